package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/flagkit/pkg/decision"
	"github.com/dmitrymomot/flagkit/pkg/dispatch"
	"github.com/dmitrymomot/flagkit/pkg/event"
	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/project"
)

// Client decides experiments and flags against the current configuration
// revision and records the resulting events. Every call works on a single
// revision loaded once at its start. Safe for concurrent use.
type Client struct {
	config     atomic.Pointer[project.Config]
	decisions  *decision.Service
	overrides  *decision.Overrides
	profiles   decision.ProfileStore
	assembler  *event.Assembler
	dispatcher dispatch.Dispatcher
	errs       decision.ErrorHandler
	log        *slog.Logger
	metrics    *Metrics

	closers   []func(context.Context) error
	closeOnce sync.Once
	closeErr  error
}

// New creates a client serving cfg.
func New(cfg *project.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	o := options{log: logger.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Discard()
	}
	if o.errs == nil {
		o.errs = decision.LogErrorHandler{Logger: o.log}
	}
	if o.dispatcher == nil {
		o.dispatcher = dispatch.LogDispatcher{Logger: o.log, Level: slog.LevelDebug}
	}

	c := &Client{
		overrides:  decision.NewOverrides(),
		profiles:   o.profiles,
		assembler:  event.NewAssembler(append([]event.Option{event.WithLogger(o.log)}, o.eventOpts...)...),
		dispatcher: o.dispatcher,
		errs:       o.errs,
		log:        o.log,
		metrics:    NewMetrics(o.registerer),
		closers:    o.closers,
	}

	svcOpts := []decision.Option{
		decision.WithOverrides(c.overrides),
		decision.WithErrorHandler(o.errs),
		decision.WithLogger(o.log),
		decision.WithRequestIDGenerator(o.requestID),
	}
	if o.profiles != nil {
		svcOpts = append(svcOpts, decision.WithProfileStore(o.profiles))
	}
	if o.bandit != nil {
		svcOpts = append(svcOpts, decision.WithBandit(meteredFetcher{next: o.bandit, metrics: c.metrics}, o.banditTimeout))
	}
	c.decisions = decision.New(svcOpts...)
	c.config.Store(cfg)
	return c, nil
}

// NewFromDatafile parses data and creates a client serving it.
func NewFromDatafile(data []byte, opts ...Option) (*Client, error) {
	cfg, err := project.Parse(data)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// Config returns the revision currently served.
func (c *Client) Config() *project.Config {
	return c.config.Load()
}

// Metrics returns the client collectors.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// UpdateConfig atomically replaces the served revision. Calls in flight
// finish on the revision they started with.
func (c *Client) UpdateConfig(cfg *project.Config) error {
	if cfg == nil {
		return ErrNilConfig
	}
	prev := c.config.Swap(cfg)
	c.log.Info("configuration updated",
		slog.String("previous_revision", prev.Revision()),
		logger.Revision(cfg.Revision()),
	)
	return nil
}

// UpdateDatafile parses data and serves it. On error the current revision
// stays in place.
func (c *Client) UpdateDatafile(data []byte) error {
	cfg, err := project.Parse(data)
	if err != nil {
		return err
	}
	return c.UpdateConfig(cfg)
}

// Activate decides an experiment and records an impression when the user
// is bucketed. It returns the variation key, or "" when the user is not
// bucketed or the experiment is unknown.
func (c *Client) Activate(ctx context.Context, experimentKey, userID string, attrs map[string]any) string {
	cfg := c.config.Load()
	attrs = c.userAttributes(ctx, cfg, userID, attrs)
	d, ok := c.decideExperiment(ctx, cfg, experimentKey, userID, attrs)
	if !ok || !d.Bucketed() {
		return ""
	}
	c.dispatch(ctx, kindImpression, c.assembler.BuildImpression(cfg, d.Experiment, d.Variation, userID, attrs, event.Metadata{}))
	return d.Variation.Key
}

// GetVariation is Activate without the impression.
func (c *Client) GetVariation(ctx context.Context, experimentKey, userID string, attrs map[string]any) string {
	cfg := c.config.Load()
	attrs = c.userAttributes(ctx, cfg, userID, attrs)
	d, ok := c.decideExperiment(ctx, cfg, experimentKey, userID, attrs)
	if !ok || !d.Bucketed() {
		return ""
	}
	return d.Variation.Key
}

// DecideExperiment returns the full experiment decision without recording
// an impression. ok is false when the experiment is unknown.
func (c *Client) DecideExperiment(ctx context.Context, experimentKey, userID string, attrs map[string]any, opts decision.DecideOptions) (decision.Decision, bool) {
	cfg := c.config.Load()
	exp, ok := cfg.ExperimentByKey(experimentKey)
	if !ok {
		c.errs.HandleError(ctx, fmt.Errorf("%w: %q", decision.ErrExperimentNotFound, experimentKey))
		return decision.Decision{}, false
	}
	return c.decide(ctx, cfg, exp, userID, c.userAttributes(ctx, cfg, userID, attrs), opts), true
}

func (c *Client) decideExperiment(ctx context.Context, cfg *project.Config, key, userID string, attrs map[string]any) (decision.Decision, bool) {
	exp, ok := cfg.ExperimentByKey(key)
	if !ok {
		c.errs.HandleError(ctx, fmt.Errorf("%w: %q", decision.ErrExperimentNotFound, key))
		return decision.Decision{}, false
	}
	return c.decide(ctx, cfg, exp, userID, attrs, decision.DecideOptions{}), true
}

func (c *Client) decide(ctx context.Context, cfg *project.Config, exp *project.Experiment, userID string, attrs map[string]any, opts decision.DecideOptions) decision.Decision {
	d := c.decisions.DecideExperiment(ctx, cfg, exp, decision.User{ID: userID, Attributes: attrs}, opts)
	c.metrics.decision(kindExperiment, d.Source)
	c.persist(ctx, userID, d, opts)
	return d
}

// persist saves fresh and bandit decisions, the caller side of sticky
// bucketing.
func (c *Client) persist(ctx context.Context, userID string, d decision.Decision, opts decision.DecideOptions) {
	if c.profiles == nil || opts.IgnoreProfile || d.Variation == nil || !d.Source.Persistable() {
		return
	}
	if err := c.profiles.Save(ctx, userID, d.Experiment.ID, d.Variation.ID); err != nil {
		c.errs.HandleError(ctx, errors.Join(ErrProfileSave, err))
	}
}

// Track records a conversion for the experiments referencing eventKey in
// which the user holds a variation. Nothing is sent when there are none.
// Bandit rules are never re-fetched here: the user's stored profile, or
// else the bucketed variation, is attributed.
func (c *Client) Track(ctx context.Context, eventKey, userID string, attrs, tags map[string]any) {
	cfg := c.config.Load()
	ev, ok := cfg.EventByKey(eventKey)
	if !ok {
		c.metrics.event(kindConversion, resultSkipped)
		c.errs.HandleError(ctx, fmt.Errorf("%w: %q", event.ErrUnknownEvent, eventKey))
		return
	}

	attrs = c.userAttributes(ctx, cfg, userID, attrs)
	user := decision.User{ID: userID, Attributes: attrs}
	decisions := make(map[string]*project.Variation, len(ev.ExperimentIDs))
	for _, id := range ev.ExperimentIDs {
		exp, ok := cfg.ExperimentByID(id)
		if !ok {
			continue
		}
		if d := c.decisions.DecideExperiment(ctx, cfg, exp, user, decision.DecideOptions{DisableBandit: true}); d.Bucketed() {
			decisions[id] = d.Variation
		}
	}

	le, err := c.assembler.BuildConversion(cfg, decisions, userID, eventKey, attrs, tags)
	if err != nil {
		c.metrics.event(kindConversion, resultSkipped)
		c.errs.HandleError(ctx, err)
		return
	}
	if le == nil {
		c.metrics.event(kindConversion, resultSkipped)
		return
	}
	c.dispatch(ctx, kindConversion, *le)
}

// userAttributes drops attributes the revision does not declare, logging
// them once per call. Downstream filtering then finds nothing to drop.
func (c *Client) userAttributes(ctx context.Context, cfg *project.Config, userID string, attrs map[string]any) map[string]any {
	kept, dropped := cfg.FilterAttributes(attrs)
	if len(dropped) > 0 {
		c.log.DebugContext(ctx, "undeclared attributes ignored",
			logger.UserID(userID),
			slog.Any("attributes", dropped),
		)
	}
	return kept
}

func (c *Client) dispatch(ctx context.Context, kind string, le event.LogEvent) {
	if err := c.dispatcher.DispatchEvent(ctx, le); err != nil {
		c.metrics.event(kind, resultFailed)
		c.errs.HandleError(ctx, errors.Join(ErrDispatch, err))
		return
	}
	c.metrics.event(kind, resultSent)
}

// Close runs the registered closers once, in reverse order, and joins
// their errors.
func (c *Client) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		var errs []error
		for _, fn := range slices.Backward(c.closers) {
			if err := fn(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
