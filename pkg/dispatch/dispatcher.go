package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/flagkit/pkg/event"
	"github.com/dmitrymomot/flagkit/pkg/logger"
)

// Dispatcher delivers assembled events.
type Dispatcher interface {
	DispatchEvent(ctx context.Context, e event.LogEvent) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, e event.LogEvent) error

func (f DispatcherFunc) DispatchEvent(ctx context.Context, e event.LogEvent) error {
	return f(ctx, e)
}

// Multi fans an event out to every dispatcher and joins their errors.
// A failing dispatcher does not prevent the others from running.
type Multi []Dispatcher

func (m Multi) DispatchEvent(ctx context.Context, e event.LogEvent) error {
	var errs []error
	for _, d := range m {
		if err := d.DispatchEvent(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogDispatcher writes a summary of every event to a logger. Useful in
// development and as the fallback when no endpoint is configured.
type LogDispatcher struct {
	Logger *slog.Logger
	Level  slog.Level
}

func (d LogDispatcher) DispatchEvent(ctx context.Context, e event.LogEvent) error {
	if d.Logger == nil {
		return nil
	}
	keys := make([]string, 0, len(e.Payload.Visitors))
	for _, v := range e.Payload.Visitors {
		for _, s := range v.Snapshots {
			for _, se := range s.Events {
				keys = append(keys, se.Key)
			}
		}
	}
	d.Logger.Log(ctx, d.Level, "event dispatched",
		logger.URL(e.EndpointURL),
		logger.Revision(e.Payload.Revision),
		logger.Count(len(e.Payload.Visitors)),
		slog.Any("events", keys),
	)
	return nil
}
