package diag

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kospifeed"

// PromSink counts records by At and upstream status, and accumulates the
// "items" field so dashboards can tell an empty upstream from a failing one.
type PromSink struct {
	events *prometheus.CounterVec
	items  *prometheus.CounterVec
}

// NewPromSink registers its collectors on reg.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	s := &PromSink{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diag_events_total",
			Help:      "Diagnostic records emitted, by record kind and upstream status.",
		}, []string{"at", "status"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_items_total",
			Help:      "Items returned by upstream providers.",
		}, []string{"at"}),
	}
	for _, c := range []prometheus.Collector{s.events, s.items} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register diag collector: %w", err)
		}
	}
	return s, nil
}

func (s *PromSink) Emit(_ context.Context, rec Record) {
	s.events.WithLabelValues(rec.At, statusLabel(rec.Fields["status"])).Inc()
	if n, ok := rec.Fields["items"].(int); ok && n > 0 {
		s.items.WithLabelValues(rec.At).Add(float64(n))
	}
}

func statusLabel(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case int:
		if s == 0 {
			return "error"
		}
		return fmt.Sprintf("%d", s)
	default:
		return fmt.Sprint(s)
	}
}
