// Package metrics exports the coordinator's state as Prometheus metrics.
//
// Collector implements fulfillment.Observer for status transitions and event
// outcomes. The Watch methods register gauges that read the reliable delivery
// engine, the worker pool and the peer links at scrape time.
package metrics

import (
	"fulfillment/internal/adapters/out/peer"
	"fulfillment/internal/adapters/out/reliable"
	"fulfillment/internal/core/domain/model/parcel"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fulfillment"

// PendingSource reports reliable delivery counters.
type PendingSource interface {
	Stats() reliable.Stats
}

// PoolSource reports worker pool occupancy.
type PoolSource interface {
	Workers() int
	Busy() int
	Queued() int
}

// LinkSource reports a peer link's connection state.
type LinkSource interface {
	Name() string
	State() peer.State
}

// Collector holds the coordinator's metrics.
type Collector struct {
	reg         prometheus.Registerer
	transitions *prometheus.CounterVec
	events      *prometheus.CounterVec
}

// New creates a Collector and registers its counters with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		reg: reg,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Package status transitions by target status.",
		}, []string{"status"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound events handled, by outcome.",
		}, []string{"event", "outcome"}),
	}

	for _, col := range []prometheus.Collector{c.transitions, c.events} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) StatusChanged(status parcel.Status) {
	c.transitions.WithLabelValues(status.String()).Inc()
}

func (c *Collector) EventHandled(event string, outcome string) {
	c.events.WithLabelValues(event, outcome).Inc()
}

// WatchEngine exports the pending request count and the resend and expiry totals.
func (c *Collector) WatchEngine(src PendingSource) error {
	return c.register(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_requests",
			Help:      "Commands sent and not yet acknowledged.",
		}, func() float64 { return float64(src.Stats().Pending) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resends_total",
			Help:      "Commands written again after the resend interval passed.",
		}, func() float64 { return float64(src.Stats().Resends) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_requests_total",
			Help:      "Commands given up after the attempt limit.",
		}, func() float64 { return float64(src.Stats().Expired) }),
	)
}

func (c *Collector) WatchPool(src PoolSource) error {
	return c.register(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Live worker goroutines.",
		}, func() float64 { return float64(src.Workers()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "busy_workers",
			Help:      "Workers currently running a task.",
		}, func() float64 { return float64(src.Busy()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queued_tasks",
			Help:      "Tasks waiting for a worker.",
		}, func() float64 { return float64(src.Queued()) }),
	)
}

// WatchLink exports 1 while the link is ready and 0 otherwise.
func (c *Collector) WatchLink(src LinkSource) error {
	return c.register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "link_up",
		Help:        "Whether the peer link is connected and handshaken.",
		ConstLabels: prometheus.Labels{"peer": src.Name()},
	}, func() float64 {
		if src.State() == peer.Ready {
			return 1
		}
		return 0
	}))
}

func (c *Collector) register(cols ...prometheus.Collector) error {
	for _, col := range cols {
		if err := c.reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}
