package decision_test

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrymomot/flagkit/pkg/bandit"
)

type profileKey struct{ user, experiment string }

type mockProfiles struct {
	mu        sync.Mutex
	records   map[profileKey]string
	lookupErr error
	lookups   int
}

func newMockProfiles() *mockProfiles {
	return &mockProfiles{records: make(map[profileKey]string)}
}

func (m *mockProfiles) Lookup(_ context.Context, userID, experimentID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.lookupErr != nil {
		return "", false, m.lookupErr
	}
	v, ok := m.records[profileKey{userID, experimentID}]
	return v, ok, nil
}

func (m *mockProfiles) Save(_ context.Context, userID, experimentID, variationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[profileKey{userID, experimentID}] = variationID
	return nil
}

func (m *mockProfiles) Remove(_ context.Context, userID, experimentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.records {
		if k.user == userID && (experimentID == "" || k.experiment == experimentID) {
			delete(m.records, k)
		}
	}
	return nil
}

type mockBandit struct {
	mu       sync.Mutex
	variant  string
	err      error
	block    bool
	requests []bandit.Request
}

func (m *mockBandit) Fetch(ctx context.Context, req bandit.Request) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	block, variant, err := m.block, m.variant, m.err
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return variant, err
}

func (m *mockBandit) calls() []bandit.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bandit.Request(nil), m.requests...)
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

func (r *recordedErrors) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}
