package decision

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/flagkit/pkg/logger"
)

// ErrorHandler receives errors that degrade a decision instead of failing
// it. Implementations must not block.
type ErrorHandler interface {
	HandleError(ctx context.Context, err error)
}

// ErrorHandlerFunc adapts a function to ErrorHandler.
type ErrorHandlerFunc func(ctx context.Context, err error)

func (f ErrorHandlerFunc) HandleError(ctx context.Context, err error) { f(ctx, err) }

// NoopErrorHandler drops every error.
type NoopErrorHandler struct{}

func (NoopErrorHandler) HandleError(context.Context, error) {}

// LogErrorHandler logs every error at warn level.
type LogErrorHandler struct {
	Logger *slog.Logger
}

func (h LogErrorHandler) HandleError(ctx context.Context, err error) {
	if h.Logger == nil || err == nil {
		return
	}
	h.Logger.WarnContext(ctx, "decision degraded", logger.Error(err))
}
