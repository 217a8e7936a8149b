package cmd

import (
	"net/http"
	"time"

	"github.com/anupcshan/hexbin/intelhex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Recorder struct {
	registry *prometheus.Registry

	conversions *prometheus.CounterVec
	records     *prometheus.CounterVec
	imageBytes  prometheus.Histogram
	duration    prometheus.Histogram
	overlaps    prometheus.Counter
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
	}

	r.conversions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hexbin",
		Name:      "conversions_total",
		Help:      "Conversions attempted, by result",
	}, []string{"result"})
	r.registry.MustRegister(r.conversions)

	r.records = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hexbin",
		Name:      "records_total",
		Help:      "Records assembled, by record type",
	}, []string{"type"})
	r.registry.MustRegister(r.records)

	r.imageBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hexbin",
		Name:      "image_bytes",
		Help:      "Size of assembled images (bytes)",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 10),
	})
	r.registry.MustRegister(r.imageBytes)

	r.duration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hexbin",
		Name:      "conversion_duration_seconds",
		Help:      "Time spent parsing and assembling one file",
		Buckets:   prometheus.DefBuckets,
	})
	r.registry.MustRegister(r.duration)

	r.overlaps = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hexbin",
		Name:      "overlapping_bytes_total",
		Help:      "Bytes written over data already placed by an earlier record",
	})
	r.registry.MustRegister(r.overlaps)

	return r
}

// Observe records the outcome of one conversion. img is nil when err is set.
func (r *Recorder) Observe(img *intelhex.Image, elapsed time.Duration, err error) {
	r.conversions.WithLabelValues(intelhex.Kind(err)).Inc()
	r.duration.Observe(elapsed.Seconds())
	if img == nil {
		return
	}

	for t, n := range img.Stats.Counts() {
		r.records.WithLabelValues(t.String()).Add(float64(n))
	}
	r.imageBytes.Observe(float64(len(img.Bytes)))
	r.overlaps.Add(float64(img.Stats.Overlaps))
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// WriteTextfile dumps the metrics in the format read by the node exporter
// textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
