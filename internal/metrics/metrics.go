package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/VeltarosLabs/powledger/internal/blockchain"
)

const namespace = "powledger"

// Collector turns mining notices into prometheus series. It implements
// blockchain.Observer.
type Collector struct {
	BlocksMined    prometheus.Counter
	HashAttempts   prometheus.Counter
	Failures       *prometheus.CounterVec
	MiningDuration prometheus.Histogram
	ChainHeight    prometheus.Gauge
	Difficulty     prometheus.Gauge
}

var _ blockchain.Observer = (*Collector)(nil)

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		BlocksMined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_mined_total",
			Help:      "Blocks whose proof-of-work search completed.",
		}),
		HashAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hash_attempts_total",
			Help:      "Fingerprints computed while mining.",
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mining_failures_total",
			Help:      "Mining searches that stopped without a solution.",
		}, []string{"reason"}),
		MiningDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mining_duration_seconds",
			Help:      "Wall time spent mining one block.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
		ChainHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chain_height",
			Help:      "Number of blocks after genesis.",
		}),
		Difficulty: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "difficulty",
			Help:      "Leading zero hex digits required by the chain.",
		}),
	}

	for _, col := range []prometheus.Collector{
		c.BlocksMined, c.HashAttempts, c.Failures, c.MiningDuration, c.ChainHeight, c.Difficulty,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) BlockMined(_ blockchain.Block, res blockchain.MineResult) {
	c.BlocksMined.Inc()
	c.HashAttempts.Add(float64(res.Attempts))
	c.MiningDuration.Observe(res.Elapsed.Seconds())
}

func (c *Collector) MiningFailed(_ blockchain.Block, err error) {
	c.Failures.WithLabelValues(FailureReason(err)).Inc()
}

// ObserveChain records chain-level gauges.
func (c *Collector) ObserveChain(chain *blockchain.Chain) {
	c.ChainHeight.Set(float64(chain.Len() - 1))
	c.Difficulty.Set(float64(chain.Difficulty()))
}
