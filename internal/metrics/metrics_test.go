package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Recorded.WithLabelValues("track").Inc()
	m.Recorded.WithLabelValues("track").Inc()
	m.Dropped.WithLabelValues(DropQueueFull).Inc()
	m.Uploaded.Add(2)
	m.QueueSize.Set(3)

	require.Equal(t, 2.0, testutil.ToFloat64(m.Recorded.WithLabelValues("track")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Dropped.WithLabelValues(DropQueueFull)))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Uploaded))
	require.Equal(t, 3.0, testutil.ToFloat64(m.QueueSize))

	// a second client on the same registry shares the collectors
	m2, err := New(reg)
	require.NoError(t, err)
	m2.Uploaded.Inc()
	require.Equal(t, 3.0, testutil.ToFloat64(m.Uploaded))
}

func TestMetrics_privateRegistry(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	m.UploadErrors.Inc()
	require.Equal(t, 1.0, testutil.ToFloat64(m.UploadErrors))
}
