// Package metrics exposes the node's Prometheus instrumentation, grounded
// on the teacher's HealthLogger (core/system_health_logging.go): a struct
// of gauges/counters built once against a private prometheus.Registry and
// registered with reg.MustRegister at construction time. The gauge/counter
// set here tracks this core's own domain instead of the teacher's
// ledger/network/coin fields: topoheight, mempool depth, GHOSTDAG mergeset
// shape, block-processor outcomes and per-step latency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles the gauges/counters/histograms the block processor
// reports into. SetMempoolDepth has no caller: the mempool registers its
// own gauges, and storage reports nothing here. A nil *Registry is valid and
// every method on it is then a no-op, so call sites never need a
// "metrics enabled?" branch of their own.
type Registry struct {
	reg *prometheus.Registry

	topoheightGauge  prometheus.Gauge
	blueScoreGauge   prometheus.Gauge
	tipCountGauge    prometheus.Gauge
	mempoolGauge     prometheus.Gauge

	blocksAccepted  prometheus.Counter
	blocksRejected  *prometheus.CounterVec
	reorgsTotal     prometheus.Counter
	txApplied       *prometheus.CounterVec
	mergeSetBlues   prometheus.Histogram
	mergeSetReds    prometheus.Histogram
	blockProcessSec prometheus.Histogram
}

// New builds a Registry and registers every collector with reg. Passing a
// nil reg (as some unit tests do, mirroring the teacher's registry==nil
// tolerance in mempool.New) skips registration but still returns a usable
// Registry whose gauges/counters simply aren't exported anywhere.
func New(reg *prometheus.Registry) *Registry {
	m := &Registry{reg: reg}

	m.topoheightGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ghostdagcore_topoheight",
		Help: "Topological height of the most recently committed block",
	})
	m.blueScoreGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ghostdagcore_blue_score",
		Help: "Blue score of the most recently committed block",
	})
	m.tipCountGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ghostdagcore_tip_count",
		Help: "Number of blocks in the current DAG tip set",
	})
	m.mempoolGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ghostdagcore_mempool_depth",
		Help: "Number of transactions currently pending admission",
	})
	m.blocksAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ghostdagcore_blocks_accepted_total",
		Help: "Total blocks committed by SubmitBlock",
	})
	m.blocksRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ghostdagcore_blocks_rejected_total",
		Help: "Total blocks rejected by SubmitBlock, by kind",
	}, []string{"kind"})
	m.reorgsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ghostdagcore_reorgs_total",
		Help: "Total reorg unwinds triggered by an accepted block",
	})
	m.txApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ghostdagcore_transactions_applied_total",
		Help: "Total transactions executed during block processing, by result",
	}, []string{"result"})
	m.mergeSetBlues = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ghostdagcore_mergeset_blues",
		Help:    "Size of each accepted block's GHOSTDAG blue mergeset",
		Buckets: prometheus.LinearBuckets(0, 2, 16),
	})
	m.mergeSetReds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ghostdagcore_mergeset_reds",
		Help:    "Size of each accepted block's GHOSTDAG red mergeset",
		Buckets: prometheus.LinearBuckets(0, 2, 16),
	})
	m.blockProcessSec = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ghostdagcore_block_process_seconds",
		Help:    "Wall-clock time spent processing one block end to end",
		Buckets: prometheus.DefBuckets,
	})

	if reg != nil {
		reg.MustRegister(
			m.topoheightGauge, m.blueScoreGauge, m.tipCountGauge, m.mempoolGauge,
			m.blocksAccepted, m.blocksRejected, m.reorgsTotal, m.txApplied,
			m.mergeSetBlues, m.mergeSetReds, m.blockProcessSec,
		)
	}
	return m
}

// ObserveAccepted records an accepted block's topoheight/blue-score/
// mergeset shape in one call, the common case after a successful commit.
func (m *Registry) ObserveAccepted(topoheight, blueScore uint64, tipCount, mergeBlues, mergeReds int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.topoheightGauge.Set(float64(topoheight))
	m.blueScoreGauge.Set(float64(blueScore))
	m.tipCountGauge.Set(float64(tipCount))
	m.blocksAccepted.Inc()
	m.mergeSetBlues.Observe(float64(mergeBlues))
	m.mergeSetReds.Observe(float64(mergeReds))
	m.blockProcessSec.Observe(elapsed.Seconds())
}

// ObserveRejected records a rejected block by its error kind.
func (m *Registry) ObserveRejected(kind string) {
	if m == nil {
		return
	}
	m.blocksRejected.WithLabelValues(kind).Inc()
}

// ObserveReorg records that an accepted block triggered a reorg unwind.
func (m *Registry) ObserveReorg() {
	if m == nil {
		return
	}
	m.reorgsTotal.Inc()
}

// ObserveTransaction records one executed transaction's outcome.
func (m *Registry) ObserveTransaction(success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failed"
	}
	m.txApplied.WithLabelValues(result).Inc()
}

// SetMempoolDepth reports the mempool's current pending-transaction count.
func (m *Registry) SetMempoolDepth(n int) {
	if m == nil {
		return
	}
	m.mempoolGauge.Set(float64(n))
}
