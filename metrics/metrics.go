// Package metrics implements distq.Recorder with Prometheus collectors,
// so the ordering engine's operational signals can be scraped without the
// engine itself importing a metrics library.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jabolina/go-distq/distq"
)

// Prometheus is a distq.Recorder backed by a small set of per-peer
// counters and gauges, all labeled by the peer name supplied to New.
type Prometheus struct {
	peer string

	queued    prometheus.Counter
	discarded prometheus.Counter
	committed prometheus.Counter
	clock     prometheus.Gauge
	readyLen  prometheus.Gauge
}

var (
	queuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "distq",
		Name:      "nodes_queued_total",
		Help:      "Nodes successfully linked into a peer's intake.",
	}, []string{"peer"})

	discardedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "distq",
		Name:      "nodes_discarded_total",
		Help:      "Nodes dropped because their destination was already closed.",
	}, []string{"peer"})

	committedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "distq",
		Name:      "nodes_committed_total",
		Help:      "Nodes that transitioned from queued to committed.",
	}, []string{"peer"})

	clockValue = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "distq",
		Name:      "peer_clock_value",
		Help:      "Current logical clock value of a peer's queue.",
	}, []string{"peer"})

	readyDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "distq",
		Name:      "ready_set_depth",
		Help:      "Number of settled, not-yet-popped nodes in a peer's ready set.",
	}, []string{"peer"})
)

// Register adds every collector to reg. Call it once per process; New may
// be called many times afterward, once per peer.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{queuedTotal, discardedTotal, committedTotal, clockValue, readyDepth} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// New returns a Recorder reporting under the given peer label. Register
// must have been called on the target registry first.
func New(peerName string) *Prometheus {
	return &Prometheus{
		peer:      peerName,
		queued:    queuedTotal.WithLabelValues(peerName),
		discarded: discardedTotal.WithLabelValues(peerName),
		committed: committedTotal.WithLabelValues(peerName),
		clock:     clockValue.WithLabelValues(peerName),
		readyLen:  readyDepth.WithLabelValues(peerName),
	}
}

func (p *Prometheus) NodeQueued()    { p.queued.Inc() }
func (p *Prometheus) NodeDiscarded() { p.discarded.Inc() }
func (p *Prometheus) NodeCommitted() { p.committed.Inc() }
func (p *Prometheus) ClockAdvanced(value int64) { p.clock.Set(float64(value)) }
func (p *Prometheus) ReadyDepth(depth int)      { p.readyLen.Set(float64(depth)) }

var _ distq.Recorder = (*Prometheus)(nil)
