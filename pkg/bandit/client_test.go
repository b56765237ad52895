package bandit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/bandit"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, endpoint string, opts ...bandit.Option) *bandit.Client {
	t.Helper()
	opts = append([]bandit.Option{bandit.WithBackoff(time.Millisecond, 5*time.Millisecond)}, opts...)
	c, err := bandit.NewClient(endpoint, opts...)
	require.NoError(t, err)
	return c
}

var request = bandit.Request{
	RuleID:     "1301",
	UserID:     "user_1",
	RequestID:  "req-1",
	Attributes: []bandit.Attribute{{ID: "a3", Value: "pro", Type: bandit.AttributeTypeCustom}},
}

func TestClientFetch(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]any
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"predictions":[{"variation_id":"2302"}]}`))
	})

	c := newClient(t, srv.URL+"/predict/{ruleId}")
	id, err := c.Fetch(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, "2302", id)
	assert.Equal(t, "/predict/1301", gotPath)

	want := map[string]any{
		"instances": []any{map[string]any{
			"visitorId":    "user_1",
			"experimentId": "1301",
			"cmabUUID":     "req-1",
			"attributes": []any{map[string]any{
				"id": "a3", "value": "pro", "type": "custom_attribute",
			}},
		}},
	}
	assert.Equal(t, want, gotBody)
}

func TestClientFetch_EmptyAttributes(t *testing.T) {
	t.Parallel()

	var raw map[string][]map[string]json.RawMessage
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"predictions":[{"variation_id":"2301"}]}`))
	})

	_, err := newClient(t, srv.URL).Fetch(context.Background(), bandit.Request{RuleID: "r", UserID: "u"})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw["instances"][0]["attributes"]))
}

func TestClientFetch_Retries(t *testing.T) {
	t.Parallel()

	t.Run("server error then success", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`{"predictions":[{"variation_id":"2301"}]}`))
		})

		id, err := newClient(t, srv.URL).Fetch(context.Background(), request)
		require.NoError(t, err)
		assert.Equal(t, "2301", id)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("exhausted", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := newClient(t, srv.URL, bandit.WithMaxRetries(2)).Fetch(context.Background(), request)
		require.ErrorIs(t, err, bandit.ErrFetchFailed)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("invalid payload is not retried", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			_, _ = w.Write([]byte(`{"predictions":[]}`))
		})

		_, err := newClient(t, srv.URL, bandit.WithMaxRetries(3)).Fetch(context.Background(), request)
		require.ErrorIs(t, err, bandit.ErrInvalidResponse)
		assert.NotErrorIs(t, err, bandit.ErrFetchFailed)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		})

		_, err := newClient(t, srv.URL).Fetch(context.Background(), request)
		require.ErrorIs(t, err, bandit.ErrInvalidResponse)
	})
}

func TestClientFetch_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	c := newClient(t, srv.URL, bandit.WithTimeout(20*time.Millisecond), bandit.WithMaxRetries(0))
	_, err := c.Fetch(context.Background(), request)
	require.ErrorIs(t, err, bandit.ErrFetchFailed)
}

func TestNewClient_MissingEndpoint(t *testing.T) {
	t.Parallel()

	_, err := bandit.NewClient("")
	require.ErrorIs(t, err, bandit.ErrMissingEndpoint)
}
