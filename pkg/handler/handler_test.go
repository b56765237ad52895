package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/binder"
	"github.com/dmitrymomot/flagkit/pkg/handler"
)

type trackRequest struct {
	EventKey string `json:"eventKey"`
	UserID   string `json:"userId"`
}

func post(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/track", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("binds the request", func(t *testing.T) {
		t.Parallel()
		h := handler.Wrap(func(ctx handler.Context, req trackRequest) handler.Response {
			assert.Equal(t, "/v1/track", ctx.Request().URL.Path)
			return handler.JSON(req)
		}, handler.WithBinder[handler.Context, trackRequest](binder.BindJSON()))

		w := httptest.NewRecorder()
		h(w, post(`{"eventKey":"purchase","userId":"user_1"}`))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":{"eventKey":"purchase","userId":"user_1"}}`, w.Body.String())
	})

	t.Run("bind failure reaches the error handler", func(t *testing.T) {
		t.Parallel()
		called := false
		h := handler.Wrap(func(handler.Context, trackRequest) handler.Response {
			called = true
			return handler.Empty()
		}, handler.WithBinder[handler.Context, trackRequest](binder.BindJSON()))

		w := httptest.NewRecorder()
		h(w, post(`{"eventKey":`))

		assert.False(t, called)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("binders run in order", func(t *testing.T) {
		t.Parallel()
		fill := func(r *http.Request, v any) error {
			req := v.(*trackRequest)
			if req.UserID == "" {
				req.UserID = r.URL.Query().Get("userId")
			}
			return nil
		}
		h := handler.Wrap(func(_ handler.Context, req trackRequest) handler.Response {
			return handler.JSON(req)
		}, handler.WithBinders[handler.Context, trackRequest](binder.BindJSON(), fill))

		req := post(`{"eventKey":"purchase"}`)
		req.URL.RawQuery = "userId=user_2"
		w := httptest.NewRecorder()
		h(w, req)

		assert.JSONEq(t, `{"data":{"eventKey":"purchase","userId":"user_2"}}`, w.Body.String())
	})

	t.Run("nil response", func(t *testing.T) {
		t.Parallel()
		var got error
		h := handler.Wrap(func(handler.Context, struct{}) handler.Response { return nil },
			handler.WithErrorHandler[handler.Context, struct{}](func(_ handler.Context, err error) { got = err }),
		)

		h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.ErrorIs(t, got, handler.ErrNilResponse)
	})

	t.Run("decorators wrap outermost first", func(t *testing.T) {
		t.Parallel()
		var order []string
		mark := func(name string) handler.Decorator[handler.Context, struct{}] {
			return func(next handler.HandlerFunc[handler.Context, struct{}]) handler.HandlerFunc[handler.Context, struct{}] {
				return func(ctx handler.Context, req struct{}) handler.Response {
					order = append(order, name)
					return next(ctx, req)
				}
			}
		}
		h := handler.Wrap(func(handler.Context, struct{}) handler.Response {
			order = append(order, "handler")
			return handler.Empty()
		}, handler.WithDecorators(mark("outer"), mark("inner")))

		h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, []string{"outer", "inner", "handler"}, order)
	})

	t.Run("custom context", func(t *testing.T) {
		t.Parallel()
		h := handler.Wrap(func(ctx tenantContext, _ struct{}) handler.Response {
			return handler.JSON(ctx.tenant)
		}, handler.WithContextFactory[tenantContext, struct{}](func(w http.ResponseWriter, r *http.Request) tenantContext {
			return tenantContext{Context: handler.NewContext(w, r), tenant: r.Header.Get("X-Tenant")}
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant", "acme")
		w := httptest.NewRecorder()
		h(w, req)
		assert.JSONEq(t, `{"data":"acme"}`, w.Body.String())
	})
}

type tenantContext struct {
	handler.Context
	tenant string
}

type ctxKey struct{}

func TestContext(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), ctxKey{}, "v"))
	w := httptest.NewRecorder()

	ctx := handler.NewContext(w, req)
	assert.Same(t, req, ctx.Request())
	assert.Equal(t, w, ctx.ResponseWriter())
	assert.Equal(t, "v", ctx.Value(ctxKey{}))
	assert.NoError(t, ctx.Err())
	_, ok := ctx.Deadline()
	assert.False(t, ok)
}

func TestNewErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		level  string
	}{
		{name: "client error logs a warning", err: binder.ErrInvalidJSON, status: http.StatusBadRequest, level: "WARN"},
		{name: "server error logs an error", err: errors.New("boom"), status: http.StatusInternalServerError, level: "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			log := slog.New(slog.NewJSONHandler(&buf, nil))
			onError := handler.NewErrorHandler(log)

			w := httptest.NewRecorder()
			onError(handler.NewContext(w, httptest.NewRequest(http.MethodPost, "/v1/track", nil)), tt.err)

			assert.Equal(t, tt.status, w.Code)

			var record map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
			assert.Equal(t, tt.level, record["level"])
			assert.Equal(t, "request error", record["msg"])
			assert.EqualValues(t, tt.status, record["status_code"])
			assert.Equal(t, "/v1/track", record["path"])
		})
	}
}
