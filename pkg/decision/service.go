package decision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/flagkit/pkg/bandit"
	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/project"
)

// BanditFetcher predicts a variation id for a bandit rule.
type BanditFetcher interface {
	Fetch(ctx context.Context, req bandit.Request) (variationID string, err error)
}

// Service decides experiments and feature flags against a configuration
// snapshot passed on every call. It never writes to the profile store.
// Safe for concurrent use.
type Service struct {
	overrides     *Overrides
	profiles      ProfileStore
	bandit        BanditFetcher
	banditTimeout time.Duration
	errs          ErrorHandler
	log           *slog.Logger
	requestID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithOverrides shares a forced variation store. By default every Service
// owns its own.
func WithOverrides(o *Overrides) Option {
	return func(s *Service) {
		if o != nil {
			s.overrides = o
		}
	}
}

// WithProfileStore enables sticky bucketing lookups.
func WithProfileStore(p ProfileStore) Option {
	return func(s *Service) {
		s.profiles = p
	}
}

// WithBandit enables bandit augmentation. A positive timeout bounds each
// fetch; on timeout the bucketed variation is kept.
func WithBandit(f BanditFetcher, timeout time.Duration) Option {
	return func(s *Service) {
		s.bandit = f
		s.banditTimeout = timeout
	}
}

// WithErrorHandler receives errors the service recovers from, such as profile store failures.
func WithErrorHandler(h ErrorHandler) Option {
	return func(s *Service) {
		if h != nil {
			s.errs = h
		}
	}
}

// WithLogger sets the logger for decision diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRequestIDGenerator sets the generator of bandit request ids.
func WithRequestIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.requestID = fn
		}
	}
}

// New creates a decision service. Without options it keeps no profiles
// and never calls a bandit.
func New(opts ...Option) *Service {
	s := &Service{
		overrides: NewOverrides(),
		errs:      NoopErrorHandler{},
		log:       logger.Discard(),
		requestID: newRequestID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Overrides returns the forced variation store used by the service.
func (s *Service) Overrides() *Overrides {
	return s.overrides
}

// ProfileStore returns the configured profile store, or nil.
func (s *Service) ProfileStore() ProfileStore {
	return s.profiles
}

// DecideExperiment decides an A/B experiment. Only running experiments
// accept traffic.
func (s *Service) DecideExperiment(ctx context.Context, cfg *project.Config, exp *project.Experiment, user User, opts DecideOptions) Decision {
	ev := s.newEvaluation(ctx, cfg, user, opts)
	return s.decide(ev, exp, false)
}

// evaluation carries per-call state shared by the resolvers.
type evaluation struct {
	ctx         context.Context
	cfg         *project.Config
	user        User
	bucketingID string
	attributes  map[string]any
	opts        DecideOptions
	reasons     []string

	exp           *project.Experiment
	allowLaunched bool
}

func (s *Service) newEvaluation(ctx context.Context, cfg *project.Config, user User, opts DecideOptions) *evaluation {
	ev := &evaluation{ctx: ctx, cfg: cfg, user: user, opts: opts}

	id, err := user.BucketingID()
	if err != nil {
		s.errs.HandleError(ctx, err)
		ev.reason("invalid bucketing id, using user id %q", user.ID)
	}
	ev.bucketingID = id

	ev.attributes, _ = cfg.FilterAttributes(user.Attributes)
	return ev
}

func (ev *evaluation) reason(format string, args ...any) {
	if ev.opts.IncludeReasons {
		ev.reasons = append(ev.reasons, fmt.Sprintf(format, args...))
	}
}

// resolver returns done=true with the final variation (nil for "not
// bucketed"), or done=false to defer to the next resolver.
type resolver func(s *Service, ev *evaluation) (v *project.Variation, src Source, done bool)

// resolvers in precedence order. Bucketing is always terminal.
var resolvers = []resolver{
	(*Service).resolveStatus,
	(*Service).resolveForcedVariation,
	(*Service).resolveWhitelist,
	(*Service).resolveSticky,
	(*Service).resolveAudience,
	(*Service).resolveBucketing,
}

func (s *Service) decide(ev *evaluation, exp *project.Experiment, allowLaunched bool) Decision {
	ev.exp = exp
	ev.allowLaunched = allowLaunched

	d := Decision{Experiment: exp, Attributes: ev.attributes}
	for _, resolve := range resolvers {
		v, src, done := resolve(s, ev)
		if done {
			d.Variation, d.Source = v, src
			break
		}
	}
	d.Reasons = ev.reasons

	if d.Variation != nil {
		s.log.DebugContext(ev.ctx, "experiment decided",
			logger.ExperimentKey(exp.Key),
			logger.UserID(ev.user.ID),
			logger.VariationKey(d.Variation.Key),
			logger.Source(string(d.Source)),
		)
	}
	return d
}

func (s *Service) resolveStatus(ev *evaluation) (*project.Variation, Source, bool) {
	active := ev.exp.IsRunning() || (ev.allowLaunched && ev.exp.Status == project.StatusLaunched)
	if active {
		return nil, SourceNone, false
	}
	ev.reason("experiment %q is not running (status %q)", ev.exp.Key, ev.exp.Status)
	return nil, SourceNone, true
}

func (s *Service) resolveForcedVariation(ev *evaluation) (*project.Variation, Source, bool) {
	id, ok := s.overrides.ForcedVariation(ev.user.ID, ev.exp.ID)
	if !ok {
		return nil, SourceNone, false
	}
	v, ok := ev.exp.VariationByID(id)
	if !ok {
		s.errs.HandleError(ev.ctx, fmt.Errorf("%w: forced variation %q of experiment %q for user %q",
			ErrStaleOverride, id, ev.exp.Key, ev.user.ID))
		ev.reason("forced variation %q no longer exists in experiment %q", id, ev.exp.Key)
		return nil, SourceNone, false
	}
	ev.reason("user %q is forced into variation %q of experiment %q", ev.user.ID, v.Key, ev.exp.Key)
	return v, SourceForced, true
}

func (s *Service) resolveWhitelist(ev *evaluation) (*project.Variation, Source, bool) {
	key, ok := ev.exp.Whitelist[ev.user.ID]
	if !ok {
		return nil, SourceNone, false
	}
	v, ok := ev.exp.VariationByKey(key)
	if !ok {
		s.errs.HandleError(ev.ctx, fmt.Errorf("%w: whitelisted variation %q of experiment %q for user %q",
			ErrStaleOverride, key, ev.exp.Key, ev.user.ID))
		return nil, SourceNone, false
	}
	ev.reason("user %q is whitelisted into variation %q of experiment %q", ev.user.ID, v.Key, ev.exp.Key)
	return v, SourceWhitelist, true
}

func (s *Service) resolveSticky(ev *evaluation) (*project.Variation, Source, bool) {
	if s.profiles == nil || ev.opts.IgnoreProfile {
		return nil, SourceNone, false
	}
	id, found, err := s.profiles.Lookup(ev.ctx, ev.user.ID, ev.exp.ID)
	if err != nil {
		s.errs.HandleError(ev.ctx, fmt.Errorf("%w: user %q experiment %q: %w", ErrProfileLookup, ev.user.ID, ev.exp.ID, err))
		return nil, SourceNone, false
	}
	if !found {
		return nil, SourceNone, false
	}
	v, ok := ev.exp.VariationByID(id)
	if !ok {
		ev.reason("stored variation %q no longer exists in experiment %q", id, ev.exp.Key)
		return nil, SourceNone, false
	}
	ev.reason("user %q keeps stored variation %q of experiment %q", ev.user.ID, v.Key, ev.exp.Key)
	return v, SourceSticky, true
}

func (s *Service) resolveAudience(ev *evaluation) (*project.Variation, Source, bool) {
	result := ev.exp.Audience.Evaluate(ev.user.Attributes, ev.cfg)
	if result.Passes() {
		return nil, SourceNone, false
	}
	ev.reason("user %q does not meet the audience of %q (%s)", ev.user.ID, ev.exp.Key, result)
	return nil, SourceNone, true
}

func (s *Service) resolveBucketing(ev *evaluation) (*project.Variation, Source, bool) {
	v, outcome := bucketExperiment(ev)
	if v == nil {
		ev.reason("user %q is not bucketed into %q: %s", ev.user.ID, ev.exp.Key, outcome)
		return nil, SourceNone, true
	}
	ev.reason("user %q is bucketed into variation %q of %q", ev.user.ID, v.Key, ev.exp.Key)

	if ev.exp.IsBandit() && s.bandit != nil && !ev.opts.DisableBandit && inBanditTraffic(ev) {
		if bv, ok := s.fetchBandit(ev); ok {
			return bv, SourceBandit, true
		}
	}
	return v, SourceFresh, true
}

func (s *Service) fetchBandit(ev *evaluation) (*project.Variation, bool) {
	ctx := ev.ctx
	if s.banditTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.banditTimeout)
		defer cancel()
	}

	id, err := s.bandit.Fetch(ctx, bandit.Request{
		RuleID:         ev.exp.ID,
		UserID:         ev.user.ID,
		RequestID:      s.requestID(),
		Attributes:     banditAttributes(ev),
		IgnoreCache:    ev.opts.IgnoreBanditCache,
		ResetCache:     ev.opts.ResetBanditCache,
		InvalidateUser: ev.opts.InvalidateBanditUser,
	})
	if err != nil {
		s.errs.HandleError(ev.ctx, fmt.Errorf("%w: rule %q user %q: %w", ErrBanditFallback, ev.exp.Key, ev.user.ID, err))
		ev.reason("bandit fetch for %q failed, keeping bucketed variation", ev.exp.Key)
		return nil, false
	}
	v, ok := ev.exp.VariationByID(id)
	if !ok {
		s.errs.HandleError(ev.ctx, fmt.Errorf("%w: rule %q: predicted %w %q", ErrBanditFallback, ev.exp.Key, ErrVariationNotFound, id))
		ev.reason("bandit predicted unknown variation %q for %q, keeping bucketed variation", id, ev.exp.Key)
		return nil, false
	}
	ev.reason("bandit selected variation %q of %q", v.Key, ev.exp.Key)
	return v, true
}

// banditAttributes collects the user values of the attributes the rule
// declares, in declaration order.
func banditAttributes(ev *evaluation) []bandit.Attribute {
	attrs := make([]bandit.Attribute, 0, len(ev.exp.Bandit.AttributeIDs))
	for _, id := range ev.exp.Bandit.AttributeIDs {
		a, ok := ev.cfg.AttributeByID(id)
		if !ok {
			continue
		}
		if v, ok := ev.user.Attributes[a.Key]; ok {
			attrs = append(attrs, bandit.Attribute{ID: a.ID, Value: v, Type: bandit.AttributeTypeCustom})
		}
	}
	return attrs
}
