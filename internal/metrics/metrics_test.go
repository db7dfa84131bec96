package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CountersIncrement(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordCacheHit("memory")
	r.RecordCacheHit("memory")
	r.RecordCacheMiss("memory")
	r.RecordProviderFailure("sentiment")
	r.RecordPrediction("Strong Buy")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.CacheHits.WithLabelValues("memory")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.CacheMisses.WithLabelValues("memory")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ProviderFailures.WithLabelValues("sentiment")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Predictions.WithLabelValues("Strong Buy")))
}

func TestRegistry_StageTimerRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	timer := r.StartStage("features")
	timer.Stop("ok")

	count := testutil.CollectAndCount(r.StageDuration)
	require.Equal(t, 1, count, "one labeled series observed")
}
