package client

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrymomot/flagkit/pkg/bandit"
	"github.com/dmitrymomot/flagkit/pkg/decision"
)

const metricsNamespace = "flagkit"

// Metrics groups the client's Prometheus collectors.
type Metrics struct {
	Decisions     *prometheus.CounterVec
	Events        *prometheus.CounterVec
	BanditFetches *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "decisions_total",
			Help:      "Decisions made, by kind and source.",
		}, []string{"kind", "source"}),
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_total",
			Help:      "Impression and conversion events, by result.",
		}, []string{"kind", "result"}),
		BanditFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bandit_fetches_total",
			Help:      "Bandit prediction fetches, by result.",
		}, []string{"result"}),
	}
}

// Label values.
const (
	kindExperiment = "experiment"
	kindFlag       = "flag"
	kindImpression = "impression"
	kindConversion = "conversion"

	resultSent    = "sent"
	resultFailed  = "failed"
	resultSkipped = "skipped"
	resultOK      = "ok"
	resultError   = "error"
	resultTimeout = "timeout"
	resultInvalid = "invalid"
)

func (m *Metrics) decision(kind string, src decision.Source) {
	source := string(src)
	if source == "" {
		source = "none"
	}
	m.Decisions.WithLabelValues(kind, source).Inc()
}

func (m *Metrics) event(kind, result string) {
	m.Events.WithLabelValues(kind, result).Inc()
}

// meteredFetcher counts bandit fetch outcomes.
type meteredFetcher struct {
	next    decision.BanditFetcher
	metrics *Metrics
}

func (f meteredFetcher) Fetch(ctx context.Context, req bandit.Request) (string, error) {
	id, err := f.next.Fetch(ctx, req)
	switch {
	case err == nil:
		f.metrics.BanditFetches.WithLabelValues(resultOK).Inc()
	case errors.Is(err, context.DeadlineExceeded):
		f.metrics.BanditFetches.WithLabelValues(resultTimeout).Inc()
	case errors.Is(err, bandit.ErrInvalidResponse):
		f.metrics.BanditFetches.WithLabelValues(resultInvalid).Inc()
	default:
		f.metrics.BanditFetches.WithLabelValues(resultError).Inc()
	}
	return id, err
}
