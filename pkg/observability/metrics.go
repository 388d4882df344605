package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors recorded by the session store and reconciler.
type Metrics struct {
	SessionSets         *prometheus.CounterVec
	PersistErrors       prometheus.Counter
	HandlerErrors       *prometheus.CounterVec
	SubscriptionEvents  *prometheus.CounterVec
	ActiveSubscriptions prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionSets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xui_session_sets_total",
				Help: "Total number of session field sets",
			},
			[]string{"field"},
		),
		PersistErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "xui_session_persist_errors_total",
				Help: "Total number of failed durable writes",
			},
		),
		HandlerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xui_session_handler_errors_total",
				Help: "Total number of change handlers that returned an error",
			},
			[]string{"field"},
		),
		SubscriptionEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xui_subscription_events_total",
				Help: "Total number of subscription events processed",
			},
			[]string{"kind"},
		),
		ActiveSubscriptions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "xui_subscriptions_active",
				Help: "Number of subscriptions currently attached to a source",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.SessionSets, m.PersistErrors, m.HandlerErrors, m.SubscriptionEvents, m.ActiveSubscriptions)
	}
	return m
}

func (m *Metrics) ObserveSet(field string) {
	if m == nil {
		return
	}
	m.SessionSets.WithLabelValues(field).Inc()
}

func (m *Metrics) ObservePersistError() {
	if m == nil {
		return
	}
	m.PersistErrors.Inc()
}

func (m *Metrics) ObserveHandlerError(field string) {
	if m == nil {
		return
	}
	m.HandlerErrors.WithLabelValues(field).Inc()
}

func (m *Metrics) ObserveEvent(kind string) {
	if m == nil {
		return
	}
	m.SubscriptionEvents.WithLabelValues(kind).Inc()
}

func (m *Metrics) SubscriptionStarted() {
	if m == nil {
		return
	}
	m.ActiveSubscriptions.Inc()
}

func (m *Metrics) SubscriptionStopped() {
	if m == nil {
		return
	}
	m.ActiveSubscriptions.Dec()
}
