// Package metrics exposes the node's operational counters and gauges via
// github.com/prometheus/client_golang, mirroring the instrumentation
// pattern several repos in the retrieved corpus use for their services
// (one package-level registry, constructed once, passed around by
// reference). The teacher carried no metrics of its own; this package is
// new, grounded in prometheus/client_golang's standard collector API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every gauge/counter the node updates during normal
// operation.
type Metrics struct {
	MempoolSize      prometheus.Gauge
	BlockGasUsed     prometheus.Gauge
	BlockTxCount     prometheus.Gauge
	BlocksCommitted  prometheus.Counter
	TxsRejected      *prometheus.CounterVec
	CommitLatencyMs  prometheus.Histogram
	ChainHeight      prometheus.Gauge
	BaseFeePerGasWei prometheus.Gauge
}

// New constructs and registers every collector against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MempoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forgemini", Name: "mempool_size", Help: "Pending transactions currently held in the mempool.",
		}),
		BlockGasUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forgemini", Name: "block_gas_used", Help: "Gas used by the most recently committed block.",
		}),
		BlockTxCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forgemini", Name: "block_tx_count", Help: "Transaction count of the most recently committed block.",
		}),
		BlocksCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forgemini", Name: "blocks_committed_total", Help: "Total blocks committed since process start.",
		}),
		TxsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forgemini", Name: "txs_rejected_total", Help: "Transactions rejected at admission, by reason.",
		}, []string{"reason"}),
		CommitLatencyMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "forgemini", Name: "commit_latency_ms", Help: "Wall-clock time to build, sign, and commit one block.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		ChainHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forgemini", Name: "chain_height", Help: "Current chain head height.",
		}),
		BaseFeePerGasWei: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forgemini", Name: "base_fee_per_gas_wei", Help: "Current base fee per gas, in wei, as a float64 (precision-lossy above 2^53).",
		}),
	}
	reg.MustRegister(
		m.MempoolSize, m.BlockGasUsed, m.BlockTxCount, m.BlocksCommitted,
		m.TxsRejected, m.CommitLatencyMs, m.ChainHeight, m.BaseFeePerGasWei,
	)
	return m
}
