package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordWrite(t *testing.T) {
	ts := time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC)
	RecordWrite("goal", ts)
	assert.Equal(t, float64(ts.Unix()), testutil.ToFloat64(lastWriteGauge.WithLabelValues("goal")))

	// zero timestamps leave the watermark alone
	RecordWrite("goal", time.Time{})
	assert.Equal(t, float64(ts.Unix()), testutil.ToFloat64(lastWriteGauge.WithLabelValues("goal")))
}

func TestNewManagerRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewManager("healthtracker", "api", reg)

	m.CounterRequests.WithLabelValues("GET", "/healthz", "200").Inc()
	m.CounterHandleRequestPanic.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["healthtracker_api_request"])
	assert.True(t, names["healthtracker_api_handle_request_panic"])

	// a second manager on another registry must not collide
	assert.NotPanics(t, func() { NewTestManager() })
}
