package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const namespace = "briya"

var publishBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

// Collector records ingest and publish outcomes.
type Collector struct {
	ingest   *prometheus.CounterVec
	publish  *prometheus.CounterVec
	duration prometheus.Histogram
	tracked  prometheus.Gauge
}

func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ingest: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_messages_total",
			Help:      "Inbound telemetry messages by outcome",
		}, []string{"outcome"}),
		publish: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Publish cycles by outcome",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_duration_seconds",
			Help:      "Latency of collector POST requests",
			Buckets:   publishBuckets,
		}),
		tracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "vehicles_tracked",
			Help:      "Vehicles currently held in memory",
		}),
	}

	c.ingest = register(reg, c.ingest)
	c.publish = register(reg, c.publish)
	c.duration = register(reg, c.duration)
	c.tracked = register(reg, c.tracked)
	return c
}

func register[T prometheus.Collector](reg prometheus.Registerer, collector T) T {
	if err := reg.Register(collector); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		log.WithField("err", err).Error("Failed to register metric")
	}
	return collector
}

func (c *Collector) ObserveIngest(outcome string) {
	c.ingest.WithLabelValues(outcome).Inc()
}

// ObservePublish counts a publish cycle. Cycles that made no request pass a zero
// duration and are left out of the latency histogram.
func (c *Collector) ObservePublish(outcome string, d time.Duration) {
	c.publish.WithLabelValues(outcome).Inc()
	if d > 0 {
		c.duration.Observe(d.Seconds())
	}
}

func (c *Collector) SetTracked(n int) {
	c.tracked.Set(float64(n))
}
