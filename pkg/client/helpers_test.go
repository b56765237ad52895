package client_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/bandit"
	"github.com/dmitrymomot/flagkit/pkg/client"
	"github.com/dmitrymomot/flagkit/pkg/event"
	"github.com/dmitrymomot/flagkit/pkg/profile"
	"github.com/dmitrymomot/flagkit/pkg/project/projecttest"
)

var usAdult = map[string]any{"age": 30, "country": "US"}

type recorder struct {
	mu     sync.Mutex
	events []event.LogEvent
	err    error
}

func (r *recorder) DispatchEvent(_ context.Context, e event.LogEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recorder) received() []event.LogEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.LogEvent(nil), r.events...)
}

type recordedErrors struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordedErrors) HandleError(_ context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordedErrors) has(target error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, err := range r.errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type staticBandit struct {
	variationID string
	err         error
}

func (b staticBandit) Fetch(context.Context, bandit.Request) (string, error) {
	return b.variationID, b.err
}

type fixture struct {
	client   *client.Client
	events   *recorder
	errs     *recordedErrors
	profiles *profile.Memory
	registry *prometheus.Registry
}

func newFixture(t *testing.T, opts ...client.Option) *fixture {
	t.Helper()
	f := &fixture{
		events:   &recorder{},
		errs:     &recordedErrors{},
		profiles: profile.NewMemory(100),
		registry: prometheus.NewRegistry(),
	}
	base := []client.Option{
		client.WithDispatcher(f.events),
		client.WithErrorHandler(f.errs),
		client.WithProfileStore(f.profiles),
		client.WithRegisterer(f.registry),
		client.WithEventOptions(event.WithUUIDGenerator(func() string { return "uuid" })),
	}
	c, err := client.New(projecttest.Config(t), append(base, opts...)...)
	require.NoError(t, err)
	f.client = c
	return f
}

// counter returns the value of the counter matching every label, or 0.
func (f *fixture) counter(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := f.registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}
