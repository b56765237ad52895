package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/flagkit/pkg/decision"
	"github.com/dmitrymomot/flagkit/pkg/dispatch"
	"github.com/dmitrymomot/flagkit/pkg/event"
)

type options struct {
	profiles      decision.ProfileStore
	bandit        decision.BanditFetcher
	banditTimeout time.Duration
	dispatcher    dispatch.Dispatcher
	eventOpts     []event.Option
	errs          decision.ErrorHandler
	log           *slog.Logger
	registerer    prometheus.Registerer
	requestID     func() string
	closers       []func(context.Context) error
}

// Option configures a Client.
type Option func(*options)

// WithProfileStore enables sticky bucketing. Fresh and bandit decisions
// are saved to the store.
func WithProfileStore(p decision.ProfileStore) Option {
	return func(o *options) {
		o.profiles = p
	}
}

// WithBandit enables bandit predictions bounded by timeout.
func WithBandit(f decision.BanditFetcher, timeout time.Duration) Option {
	return func(o *options) {
		o.bandit = f
		o.banditTimeout = timeout
	}
}

// WithDispatcher sets the event sink. By default events are logged at
// debug level.
func WithDispatcher(d dispatch.Dispatcher) Option {
	return func(o *options) {
		o.dispatcher = d
	}
}

// WithEventOptions configures the event assembler.
func WithEventOptions(opts ...event.Option) Option {
	return func(o *options) {
		o.eventOpts = append(o.eventOpts, opts...)
	}
}

// WithErrorHandler receives degraded decisions, lookup misses and
// dispatch failures. Defaults to logging them.
func WithErrorHandler(h decision.ErrorHandler) Option {
	return func(o *options) {
		o.errs = h
	}
}

// WithLogger sets the logger shared by the engine components.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithRegisterer registers the client metrics. Without it the collectors
// exist but are not exported.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithRequestIDGenerator sets the generator of bandit request ids.
func WithRequestIDGenerator(fn func() string) Option {
	return func(o *options) {
		o.requestID = fn
	}
}

// WithCloser registers fn to run on Close, in reverse registration order.
func WithCloser(fn func(context.Context) error) Option {
	return func(o *options) {
		if fn != nil {
			o.closers = append(o.closers, fn)
		}
	}
}
