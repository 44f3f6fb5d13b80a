// Package metrics exports stage activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ib-77/stagepool/pkg/stage"
)

// Observer implements stage.Observer on top of Prometheus collectors.
type Observer struct {
	Messages *prometheus.CounterVec
	Outputs  *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
	Busy     *prometheus.GaugeVec
}

var _ stage.Observer = (*Observer)(nil)

// NewObserver creates the collectors and registers them with reg.
func NewObserver(reg prometheus.Registerer, namespace string) (*Observer, error) {
	o := &Observer{
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "messages_total",
			Help:      "Messages consumed by a stage, by outcome",
		}, []string{"stage", "outcome"}),
		Outputs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "outputs_total",
			Help:      "Messages a stage appended to its output pipe",
		}, []string{"stage"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "process_seconds",
			Help:      "Time spent processing and publishing one message",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"stage"}),
		Busy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "busy_workers",
			Help:      "Workers currently processing a message",
		}, []string{"stage"}),
	}

	for _, c := range []prometheus.Collector{o.Messages, o.Outputs, o.Latency, o.Busy} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *Observer) Begin(stageName string, _ int) {
	o.Busy.WithLabelValues(stageName).Inc()
}

func (o *Observer) Observe(ev stage.Event) {
	o.Busy.WithLabelValues(ev.Stage).Dec()
	o.Messages.WithLabelValues(ev.Stage, ev.Outcome.String()).Inc()
	o.Outputs.WithLabelValues(ev.Stage).Add(float64(ev.Published))
	o.Latency.WithLabelValues(ev.Stage).Observe(ev.Elapsed.Seconds())
}
