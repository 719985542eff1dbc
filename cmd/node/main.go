// Command node is the ghostdagcore daemon: it opens the storage directory
// named by configuration, wires every subsystem together via
// internal/node, serves a Prometheus /metrics endpoint, and blocks until
// signaled to stop. It plays the role cmd/synnergy/main.go plays for the
// teacher's stack, generalized from that file's bare cobra-root-plus-
// mock-subcommands shape into a real PersistentPreRunE-driven daemon
// bootstrap, grounded on cmd/cli/consensus.go's initConsensusMiddleware /
// signal-handling idiom.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ghostdagcore/internal/config"
	"ghostdagcore/internal/events"
	ghostdagnode "ghostdagcore/internal/node"
)

var (
	cfgEnv string
	log    = logrus.StandardLogger()
	n      *ghostdagnode.Node
)

func main() {
	root := &cobra.Command{
		Use:               "node",
		Short:             "Run the ghostdagcore consensus node",
		PersistentPreRunE: initNode,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if n != nil {
				return n.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgEnv, "env", "", "configuration environment name (config/<env>.yaml); defaults to GHOSTDAGCORE_ENV")
	root.AddCommand(startCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// initNode loads configuration and opens every subsystem once per
// process, mirroring initConsensusMiddleware's "run once via
// PersistentPreRunE" idiom.
func initNode(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgEnv)
	if err != nil {
		return fmt.Errorf("node: load config: %w", err)
	}
	lvl, err := logrus.ParseLevel(orDefault(cfg.Logging.Level, "info"))
	if err != nil {
		return fmt.Errorf("node: invalid logging.level %q: %w", cfg.Logging.Level, err)
	}
	log.SetLevel(lvl)

	opened, err := ghostdagnode.Open(cfg)
	if err != nil {
		return fmt.Errorf("node: open: %w", err)
	}
	n = opened
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon: serve metrics and process blocks/transactions until signaled to stop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := &http.Server{Addr: n.Config.MetricsAddr, Handler: metricsMux(promhttp.HandlerFor(n.Registry, promhttp.HandlerOpts{}))}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.WithError(err).Error("node: metrics server stopped unexpectedly")
				}
			}()
			log.WithField("addr", n.Config.MetricsAddr).Info("node: metrics server listening")

			_, cancelAccepted := subscribeAndLog(n, events.KindBlockAccepted)
			defer cancelAccepted()
			_, cancelReorg := subscribeAndLog(n, events.KindBlockReorged)
			defer cancelReorg()

			sigC := make(chan os.Signal, 1)
			signal.Notify(sigC, syscall.SIGINT, syscall.SIGTERM)
			log.Info("node: running, press Ctrl+C to stop")
			<-sigC

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("node: metrics server shutdown error")
			}
			log.Info("node: stopped")
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the daemon version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "ghostdagcore node dev")
			return nil
		},
	}
}

func metricsMux(h http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	return mux
}

// subscribeAndLog logs every event of kind until unsubscribed, the same
// visibility cmd/node gets for free once a real P2P/RPC surface exists.
func subscribeAndLog(n *ghostdagnode.Node, kind events.Kind) (<-chan events.Event, func()) {
	ch, cancel := n.Events.Subscribe(kind)
	go func() {
		for ev := range ch {
			log.WithField("kind", ev.Kind.String()).Info("node: event")
		}
	}()
	return ch, cancel
}
