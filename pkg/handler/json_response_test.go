package handler_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/binder"
	"github.com/dmitrymomot/flagkit/pkg/handler"
	"github.com/dmitrymomot/flagkit/pkg/validator"
)

func render(t *testing.T, resp handler.Response) (*httptest.ResponseRecorder, handler.JSONResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	require.NoError(t, resp.Render(w, httptest.NewRequest(http.MethodGet, "/", nil)))

	var got handler.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return w, got
}

func TestJSON(t *testing.T) {
	t.Parallel()

	t.Run("wraps data", func(t *testing.T) {
		t.Parallel()
		w, got := render(t, handler.JSON(map[string]string{"variationKey": "treatment"}))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, handler.JSONResponse{Data: map[string]any{"variationKey": "treatment"}}, got)
	})

	t.Run("with meta and status", func(t *testing.T) {
		t.Parallel()
		w, got := render(t, handler.JSON(
			map[string]string{"id": "1"},
			handler.WithJSONMeta(map[string]any{"revision": "42"}),
			handler.WithJSONStatus(http.StatusCreated),
		))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, map[string]any{"revision": "42"}, got.Meta)
	})

	t.Run("error value becomes an error envelope", func(t *testing.T) {
		t.Parallel()
		w, got := render(t, handler.JSON(errors.New("boom")))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		require.NotNil(t, got.Error)
		assert.Equal(t, "internal_error", got.Error.Code)
		assert.Nil(t, got.Data)
	})
}

func TestJSONError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		details map[string][]string
	}{
		{
			name:    "validation failure",
			err:     validator.Apply(validator.Required("userId", "")),
			status:  http.StatusUnprocessableEntity,
			code:    "validation_error",
			details: map[string][]string{"userId": {"field is required"}},
		},
		{name: "wrapped http error", err: fmt.Errorf("%w: experiment %q", handler.ErrNotFound, "x"), status: http.StatusNotFound, code: "not_found"},
		{name: "bare http error", err: handler.NewHTTPError(http.StatusConflict, "conflict"), status: http.StatusConflict, code: "conflict"},
		{name: "unsupported media type", err: fmt.Errorf("%w: text/plain", binder.ErrUnsupportedMediaType), status: http.StatusUnsupportedMediaType, code: "unsupported_media_type"},
		{name: "missing content type", err: binder.ErrMissingContentType, status: http.StatusUnsupportedMediaType, code: "unsupported_media_type"},
		{name: "body too large", err: binder.ErrBodyTooLarge, status: http.StatusRequestEntityTooLarge, code: "request_entity_too_large"},
		{name: "invalid json", err: binder.ErrInvalidJSON, status: http.StatusBadRequest, code: "bad_request"},
		{name: "unknown error", err: errors.New("boom"), status: http.StatusInternalServerError, code: "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w, got := render(t, handler.JSONError(tt.err))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.status, handler.StatusCode(tt.err))
			require.NotNil(t, got.Error)
			assert.Equal(t, tt.code, got.Error.Code)
			assert.Equal(t, tt.details, got.Error.Details)
		})
	}

	t.Run("bare http error uses the status text", func(t *testing.T) {
		t.Parallel()
		_, got := render(t, handler.JSONError(handler.ErrNotFound))
		assert.Equal(t, http.StatusText(http.StatusNotFound), got.Error.Message)
	})

	t.Run("error detail", func(t *testing.T) {
		t.Parallel()
		w, got := render(t, handler.JSONError(&handler.ErrorDetail{Code: "custom"}, handler.WithJSONStatus(http.StatusTeapot)))
		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Equal(t, "custom", got.Error.Code)
	})
}

func TestEmpty(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	require.NoError(t, handler.Empty().Render(w, httptest.NewRequest(http.MethodDelete, "/", nil)))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = httptest.NewRecorder()
	require.NoError(t, handler.EmptyWithStatus(http.StatusAccepted).Render(w, httptest.NewRequest(http.MethodPost, "/", nil)))
	assert.Equal(t, http.StatusAccepted, w.Code)
}
