package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sessionreplay"

// drop reasons
const (
	DropQueueFull = "queue_full"
	DropSanitizer = "sanitizer"
	DropDisabled  = "disabled"
	DropUpload    = "upload_failed"
)

// Metrics counts what the client records and delivers.
type Metrics struct {
	Recorded     *prometheus.CounterVec
	Dropped      *prometheus.CounterVec
	Uploaded     prometheus.Counter
	UploadErrors prometheus.Counter
	QueueSize    prometheus.Gauge
}

// New registers the collectors with reg. A nil reg keeps them on a private
// registry. Collectors already registered by an earlier client are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		Recorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_recorded_total",
			Help:      "Events accepted into the upload buffer, by event type.",
		}, []string{"type"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events discarded before upload, by reason.",
		}, []string{"reason"}),
		Uploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_uploaded_total",
			Help:      "Events delivered to the ingest server.",
		}),
		UploadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_failures_total",
			Help:      "Batches that could not be delivered.",
		}),
		QueueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_size",
			Help:      "Events waiting in the upload buffer.",
		}),
	}

	var err error
	if m.Recorded, err = register(reg, m.Recorded); err != nil {
		return nil, err
	}
	if m.Dropped, err = register(reg, m.Dropped); err != nil {
		return nil, err
	}
	if m.Uploaded, err = register(reg, m.Uploaded); err != nil {
		return nil, err
	}
	if m.UploadErrors, err = register(reg, m.UploadErrors); err != nil {
		return nil, err
	}
	if m.QueueSize, err = register(reg, m.QueueSize); err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, errors.Wrap(err, "sessionreplay: register metrics")
	}
	return c, nil
}
