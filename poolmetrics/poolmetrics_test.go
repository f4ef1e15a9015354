package poolmetrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_ObserveSetsGauges(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector("test", registry)

	c.Observe(PoolStats{
		TotalCount:          5,
		Available:           2,
		Active:              3,
		ActiveHighWaterMark: 4,
		CurrentBackoff:      250 * time.Millisecond,
	})

	assert.Equal(t, float64(5), testutil.ToFloat64(c.totalCount))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.available))
	assert.Equal(t, float64(3), testutil.ToFloat64(c.active))
	assert.Equal(t, float64(4), testutil.ToFloat64(c.highWaterMark))
	assert.InDelta(t, 0.25, testutil.ToFloat64(c.backoffSeconds), 0.001)
}

func TestCollector_ObserveAccumulatesChurnAndErrorsMonotonically(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector("test", registry)

	c.Observe(PoolStats{ChurnCount: 2})
	c.Observe(PoolStats{ChurnCount: 2}) // unchanged since last observation: no double count
	c.Observe(PoolStats{ChurnCount: 5})
	assert.Equal(t, float64(5), testutil.ToFloat64(c.churnTotal))

	c.Observe(PoolStats{LastError: errors.New("open failed")})
	c.Observe(PoolStats{LastError: errors.New("open failed")})
	assert.Equal(t, float64(2), testutil.ToFloat64(c.openErrors))
}

func TestNewCollector_DefaultsNamespace(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector("", registry)
	c.Observe(PoolStats{TotalCount: 1})

	families, err := registry.Gather()
	assert.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "connpool_connections_total" {
			found = true
		}
	}
	assert.True(t, found, "empty namespace should fall back to \"connpool\"")
}
