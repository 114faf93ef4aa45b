package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSnapshot()
	c.RecordSnapshot()
	c.RecordResubscribe()
	c.RecordOptimisticApply("add")
	c.RecordOptimisticApply("add")
	c.RecordOptimisticApply("remove")
	c.RecordRollback()
	c.RecordOfflineDeferred()
	c.RecordGuestMutation("confirm")

	assert.Equal(t, float64(2), testutil.ToFloat64(c.snapshotsDelivered))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.resubscribes))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.optimisticApplied.WithLabelValues("add")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.optimisticApplied.WithLabelValues("remove")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.rollbacks))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.offlineDeferred))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.guestMutations.WithLabelValues("confirm")))
}

func TestCollector_NilIsSafe(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.RecordSnapshot()
		c.RecordResubscribe()
		c.RecordOptimisticApply("add")
		c.RecordRollback()
		c.RecordOfflineDeferred()
		c.RecordGuestMutation("remove")
	})
}
