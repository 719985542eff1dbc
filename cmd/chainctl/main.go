// Command chainctl is the operator CLI: it opens the same on-disk store
// cmd/node serves from and submits blocks/transactions or runs read-only
// queries directly against it, standing in for the external P2P/RPC
// caller this core's spec treats as out of scope (no network transport
// here — every subcommand is a direct in-process call). It generalizes
// the teacher's cmd/cli/consensus.go cobra-subcommand-plus-shared-state
// idiom from "one shared consensus engine reused by many subcommands in
// one process" to "one shared store opened fresh per invocation", since
// chainctl is a one-shot CLI rather than a long-running daemon.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ghostdagcore/internal/chainstate"
	"ghostdagcore/internal/config"
	ghostdagnode "ghostdagcore/internal/node"
	"ghostdagcore/internal/types"
)

var cfgEnv string

func main() {
	root := &cobra.Command{
		Use:   "chainctl",
		Short: "Operate a ghostdagcore node's local store directly",
	}
	root.PersistentFlags().StringVar(&cfgEnv, "env", "", "configuration environment name (config/<env>.yaml); defaults to GHOSTDAGCORE_ENV")
	root.AddCommand(
		submitBlockCmd(),
		submitTxCmd(),
		tipsCmd(),
		balanceCmd(),
		nonceCmd(),
		reachabilityCmd(),
	)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openNode opens the node's store for the duration of one command
// invocation; chainctl never keeps it open across commands the way
// cmd/node's daemon does.
func openNode() (*ghostdagnode.Node, error) {
	cfg, err := config.Load(cfgEnv)
	if err != nil {
		return nil, fmt.Errorf("chainctl: load config: %w", err)
	}
	return ghostdagnode.Open(cfg)
}

// readArgOrStdin reads path's contents, or stdin when path is "-", the
// same convention cmd/cli/consensus.go's file-accepting subcommands use.
func readArgOrStdin(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func parseHash(s string) (types.Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return types.Hash{}, fmt.Errorf("invalid hex: %w", err)
	}
	h, ok := types.HashFromBytes(b)
	if !ok {
		return h, fmt.Errorf("expected %d bytes, got %d", types.HashSize, len(b))
	}
	return h, nil
}

func submitBlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit-block <path|->",
		Short: "Submit one encoded block to the block processor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readArgOrStdin(args[0])
			if err != nil {
				return fmt.Errorf("chainctl: read block: %w", err)
			}
			n, err := openNode()
			if err != nil {
				return err
			}
			defer n.Close()

			out, err := n.Processor.SubmitBlock(context.Background(), raw)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), out.String())
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.String())
			if out.Status != types.Accepted {
				return fmt.Errorf("chainctl: block not accepted: %s", out.String())
			}
			return nil
		},
	}
}

func submitTxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit-tx <path|->",
		Short: "Submit one encoded transaction to the mempool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readArgOrStdin(args[0])
			if err != nil {
				return fmt.Errorf("chainctl: read transaction: %w", err)
			}
			n, err := openNode()
			if err != nil {
				return err
			}
			defer n.Close()

			out, err := n.Mempool.SubmitTransaction(context.Background(), raw)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), out.String())
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.String())
			if out.Status != types.Accepted {
				return fmt.Errorf("chainctl: transaction not accepted: %s", out.String())
			}
			return nil
		},
	}
}

func tipsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tips",
		Short: "Print the current DAG leaf set (spec.md §6's tips query)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := openNode()
			if err != nil {
				return err
			}
			defer n.Close()

			tips, err := n.Processor.Tips(context.Background())
			if err != nil {
				return err
			}
			for _, h := range tips {
				fmt.Fprintln(cmd.OutOrStdout(), h.String())
			}
			return nil
		},
	}
}

// accountQuery opens a discarded read-only snapshot and resolves account
// to its AccountID, mirroring internal/node's own nonceSource adapter.
func accountQuery(n *ghostdagnode.Node, accountHex string) (*chainstate.State, types.AccountID, func(), error) {
	accountKey, err := parseHash(accountHex)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("chainctl: account: %w", err)
	}
	sn, err := n.Store.StartSnapshot()
	if err != nil {
		return nil, 0, nil, err
	}
	st := chainstate.New(sn, 0)
	id, err := st.ResolveAccount(context.Background(), accountKey)
	if err != nil {
		sn.End(false)
		return nil, 0, nil, err
	}
	return st, id, func() { sn.End(false) }, nil
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account-hex>",
		Short: "Print an account's native-asset balance at the current top",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := openNode()
			if err != nil {
				return err
			}
			defer n.Close()

			st, id, done, err := accountQuery(n, args[0])
			if err != nil {
				return err
			}
			defer done()

			bal, err := st.GetBalance(context.Background(), id, types.NativeAsset)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), bal)
			return nil
		},
	}
}

func nonceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nonce <account-hex>",
		Short: "Print an account's current nonce",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := openNode()
			if err != nil {
				return err
			}
			defer n.Close()

			st, id, done, err := accountQuery(n, args[0])
			if err != nil {
				return err
			}
			defer done()

			nonce, err := st.GetNonce(context.Background(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), nonce)
			return nil
		},
	}
}

func reachabilityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reachability <block-hash-hex>",
		Short: "Print a block's reachability interval, height, and children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := parseHash(args[0])
			if err != nil {
				return fmt.Errorf("chainctl: block hash: %w", err)
			}
			n, err := openNode()
			if err != nil {
				return err
			}
			defer n.Close()

			sn, err := n.Store.StartSnapshot()
			if err != nil {
				return err
			}
			defer sn.End(false)

			rec, ok, err := n.Index.Get(sn, hash)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("chainctl: no reachability record for %s", hash)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "height=%d interval=[%d,%d) children=%d\n",
				rec.Height, rec.Interval.Start, rec.Interval.End, len(rec.Children))
			return nil
		},
	}
}
