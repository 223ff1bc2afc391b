package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for uploads.
type Observer interface {
	RecordUpload(duration time.Duration, sizeBytes int64, err error)
}

// PrometheusObserver exports upload metrics to Prometheus.
type PrometheusObserver struct {
	duration *prometheus.HistogramVec
	failures prometheus.Counter
	bytes    prometheus.Counter
}

// NewPrometheusObserver registers the upload metrics on reg, reusing
// collectors that are already registered.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "mdattach"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &PrometheusObserver{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "duration_seconds",
			Help:      "Latency of attachment uploads.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "failures_total",
			Help:      "Count of failed attachment uploads.",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "bytes_total",
			Help:      "Cumulative size of successfully uploaded attachments.",
		}),
	}

	o.duration = register(reg, o.duration)
	o.failures = register(reg, o.failures)
	o.bytes = register(reg, o.bytes)
	if o.duration == nil || o.failures == nil || o.bytes == nil {
		return nil, fmt.Errorf("registering upload metrics in namespace %q", namespace)
	}
	return o, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		var zero C
		return zero
	}
	return c
}

func (o *PrometheusObserver) RecordUpload(duration time.Duration, sizeBytes int64, err error) {
	if o == nil {
		return
	}
	if err != nil {
		o.duration.WithLabelValues("error").Observe(duration.Seconds())
		o.failures.Inc()
		return
	}
	o.duration.WithLabelValues("ok").Observe(duration.Seconds())
	o.bytes.Add(float64(sizeBytes))
}

// Observed reports every upload of its delegate to an Observer.
type Observed struct {
	delegate Uploader
	observer Observer
	now      func() time.Time
}

func NewObserved(delegate Uploader, observer Observer) *Observed {
	return &Observed{delegate: delegate, observer: observer, now: time.Now}
}

func (o *Observed) Upload(ctx context.Context, req Request) (string, error) {
	start := o.now()
	url, err := o.delegate.Upload(ctx, req)
	if o.observer != nil {
		o.observer.RecordUpload(o.now().Sub(start), req.File.SizeBytes, err)
	}
	return url, err
}

var _ Uploader = (*Observed)(nil)
