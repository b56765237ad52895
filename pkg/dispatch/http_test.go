package dispatch_test

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

	"github.com/dmitrymomot/flagkit/pkg/dispatch"
	"github.com/dmitrymomot/flagkit/pkg/event"
	"github.com/dmitrymomot/flagkit/pkg/retry"
)

func TestHTTPDispatcher(t *testing.T) {
	t.Parallel()

	t.Run("posts the batch as json", func(t *testing.T) {
		t.Parallel()
		var got event.Batch
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusNoContent)
		}))
		t.Cleanup(srv.Close)

		d := dispatch.NewHTTP()
		require.NoError(t, d.DispatchEvent(context.Background(), logEvent(srv.URL, "42", "u1")))
		assert.Equal(t, "42", got.Revision)
		require.Len(t, got.Visitors, 1)
		assert.Equal(t, "u1", got.Visitors[0].VisitorID)
	})

	t.Run("retries server errors", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(srv.Close)

		d := dispatch.NewHTTP(dispatch.WithRetries(3, time.Millisecond, 5*time.Millisecond))
		require.NoError(t, d.DispatchEvent(context.Background(), logEvent(srv.URL, "42", "u1")))
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("client errors are permanent", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "bad payload", http.StatusBadRequest)
		}))
		t.Cleanup(srv.Close)

		d := dispatch.NewHTTP(dispatch.WithRetries(3, time.Millisecond, 5*time.Millisecond))
		err := d.DispatchEvent(context.Background(), logEvent(srv.URL, "42", "u1"))
		require.ErrorIs(t, err, dispatch.ErrPermanentFailure)
		assert.Contains(t, err.Error(), "bad payload")
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("rate limiting is retried", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		t.Cleanup(srv.Close)

		d := dispatch.NewHTTP(dispatch.WithRetries(2, time.Millisecond, 5*time.Millisecond))
		err := d.DispatchEvent(context.Background(), logEvent(srv.URL, "42", "u1"))
		require.ErrorIs(t, err, retry.ErrExhausted)
		require.ErrorIs(t, err, dispatch.ErrDeliveryFailed)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("open breaker fails fast", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(srv.Close)

		breaker := retry.NewBreaker(1, 1, time.Hour)
		d := dispatch.NewHTTP(dispatch.WithRetries(0, time.Millisecond, time.Millisecond), dispatch.WithBreaker(breaker))

		require.Error(t, d.DispatchEvent(context.Background(), logEvent(srv.URL, "42", "u1")))
		err := d.DispatchEvent(context.Background(), logEvent(srv.URL, "42", "u1"))
		require.ErrorIs(t, err, retry.ErrCircuitOpen)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("missing endpoint", func(t *testing.T) {
		t.Parallel()
		err := dispatch.NewHTTP().DispatchEvent(context.Background(), logEvent("", "42", "u1"))
		require.ErrorIs(t, err, dispatch.ErrInvalidEvent)
	})
}
