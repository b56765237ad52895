package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/binder"
)

type trackRequest struct {
	EventKey string         `json:"eventKey"`
	UserID   string         `json:"userId"`
	Tags     map[string]any `json:"tags"`
}

func newRequest(contentType, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/track", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func TestBindJSON(t *testing.T) {
	t.Parallel()

	t.Run("decodes a valid body", func(t *testing.T) {
		t.Parallel()
		var got trackRequest
		err := binder.BindJSON()(newRequest("application/json; charset=utf-8",
			`{"eventKey":"purchase","userId":"user_1","tags":{"revenue":100}}`), &got)
		require.NoError(t, err)
		assert.Equal(t, "purchase", got.EventKey)
		assert.Equal(t, "user_1", got.UserID)
		assert.EqualValues(t, 100, got.Tags["revenue"])
	})

	tests := []struct {
		name        string
		contentType string
		body        string
		wantErr     error
	}{
		{name: "missing content type", body: `{}`, wantErr: binder.ErrMissingContentType},
		{name: "wrong content type", contentType: "text/plain", body: `{}`, wantErr: binder.ErrUnsupportedMediaType},
		{name: "malformed", contentType: "application/json", body: `{"userId":`, wantErr: binder.ErrInvalidJSON},
		{name: "unknown field", contentType: "application/json", body: `{"bogus":1}`, wantErr: binder.ErrInvalidJSON},
		{name: "empty body", contentType: "application/json", body: ``, wantErr: binder.ErrInvalidJSON},
		{name: "trailing data", contentType: "application/json", body: `{"userId":"u"} {}`, wantErr: binder.ErrInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got trackRequest
			err := binder.BindJSON()(newRequest(tt.contentType, tt.body), &got)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("body over the limit", func(t *testing.T) {
		t.Parallel()
		req := newRequest("application/json", `{"userId":"`+strings.Repeat("x", 64)+`"}`)
		req.Body = http.MaxBytesReader(httptest.NewRecorder(), req.Body, 16)

		var got trackRequest
		err := binder.BindJSON()(req, &got)
		assert.ErrorIs(t, err, binder.ErrBodyTooLarge)
	})
}
