package observability

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver counts events by source and type.
type PrometheusObserver struct {
	events *prometheus.CounterVec
}

// NewPrometheusObserver registers an events counter named
// <namespace>_events_total with reg. Registering twice with the same
// registry reuses the existing counter.
func NewPrometheusObserver(reg prometheus.Registerer, namespace string) (*PrometheusObserver, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Observability events emitted, partitioned by source and type.",
	}, []string{"source", "type"})

	if err := reg.Register(events); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		events = existing
	}

	return &PrometheusObserver{events: events}, nil
}

func (o *PrometheusObserver) OnEvent(ctx context.Context, event Event) {
	o.events.WithLabelValues(event.Source, string(event.Type)).Inc()
}
