package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.CheckFailed("distance")
	m.CheckFailed("distance")
	m.CaptureFinished("captured")
	m.OverlayComputed(false)
	m.ObserveStep("measure", 2*time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.checkFailures.WithLabelValues("distance")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.captures.WithLabelValues("captured")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.overlayRequests.WithLabelValues("placeholder")))

	count, err := testutil.GatherAndCount(m.Registry(), "perfectfit_processing_step_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_Sessions(t *testing.T) {
	m := New()
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.FrameReceived()
	m.FrameDropped()
	m.EventDropped()
	m.EventDropped()

	assert.Equal(t, int64(1), m.ActiveSessions.Load())
	assert.Equal(t, uint64(1), m.FramesReceived.Load())
	assert.Equal(t, uint64(1), m.FramesDropped.Load())
	assert.Equal(t, uint64(2), m.EventsDropped.Load())

	count, err := testutil.GatherAndCount(m.Registry(), "perfectfit_outbound_events_dropped_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CheckFailed("x")
		m.CaptureFinished("error")
		m.ObserveStep("detect-glasses", time.Second, nil)
		m.OverlayComputed(true)
		m.SessionOpened()
		m.SessionClosed()
		m.FrameReceived()
		m.FrameDropped()
		m.EventDropped()
	})
}
