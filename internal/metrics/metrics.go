// Package metrics collects Prometheus metrics for the sync core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector registers and records sync metrics. A nil *Collector is valid
// and records nothing, so wiring metrics stays optional.
type Collector struct {
	snapshotsDelivered prometheus.Counter
	resubscribes       prometheus.Counter
	optimisticApplied  *prometheus.CounterVec
	rollbacks          prometheus.Counter
	offlineDeferred    prometheus.Counter
	guestMutations     *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		snapshotsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventplanner_snapshots_delivered_total",
			Help: "Live-query snapshots delivered to subscribers.",
		}),
		resubscribes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventplanner_resubscribes_total",
			Help: "Subscriptions torn down and recreated, including reconnect rebinds.",
		}),
		optimisticApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventplanner_optimistic_applied_total",
			Help: "Optimistic local mutations applied, by operation.",
		}, []string{"op"}),
		rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventplanner_optimistic_rollbacks_total",
			Help: "Optimistic mutations rolled back after a confirmed remote failure.",
		}),
		offlineDeferred: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventplanner_offline_deferred_total",
			Help: "Mutations applied locally while offline without a store call.",
		}),
		guestMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventplanner_guest_mutations_total",
			Help: "Guest-list mutations that reached the store, by operation.",
		}, []string{"op"}),
	}

	reg.MustRegister(
		c.snapshotsDelivered,
		c.resubscribes,
		c.optimisticApplied,
		c.rollbacks,
		c.offlineDeferred,
		c.guestMutations,
	)
	return c
}

// RecordSnapshot counts one delivered snapshot.
func (c *Collector) RecordSnapshot() {
	if c == nil {
		return
	}
	c.snapshotsDelivered.Inc()
}

// RecordResubscribe counts one subscription rebind.
func (c *Collector) RecordResubscribe() {
	if c == nil {
		return
	}
	c.resubscribes.Inc()
}

// RecordOptimisticApply counts one local optimistic apply for op.
func (c *Collector) RecordOptimisticApply(op string) {
	if c == nil {
		return
	}
	c.optimisticApplied.WithLabelValues(op).Inc()
}

// RecordRollback counts one optimistic rollback.
func (c *Collector) RecordRollback() {
	if c == nil {
		return
	}
	c.rollbacks.Inc()
}

// RecordOfflineDeferred counts one mutation deferred because the device was
// offline.
func (c *Collector) RecordOfflineDeferred() {
	if c == nil {
		return
	}
	c.offlineDeferred.Inc()
}

// RecordGuestMutation counts one guest-list mutation that was dispatched to
// the store.
func (c *Collector) RecordGuestMutation(op string) {
	if c == nil {
		return
	}
	c.guestMutations.WithLabelValues(op).Inc()
}
