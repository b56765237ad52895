package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/flagkit/pkg/binder"
	"github.com/dmitrymomot/flagkit/pkg/client"
	"github.com/dmitrymomot/flagkit/pkg/decision"
	"github.com/dmitrymomot/flagkit/pkg/handler"
	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/validator"
)

type routerConfig struct {
	log         *slog.Logger
	gatherer    prometheus.Gatherer
	checks      []func(context.Context) error
	maxBodySize int64
}

// RouterOption configures NewRouter.
type RouterOption func(*routerConfig)

// WithLogger sets the access and error logger.
func WithLogger(l *slog.Logger) RouterOption {
	return func(c *routerConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// WithGatherer exposes the metrics of g on /metrics. Without it the route
// is not mounted.
func WithGatherer(g prometheus.Gatherer) RouterOption {
	return func(c *routerConfig) {
		c.gatherer = g
	}
}

// WithReadinessCheck adds a dependency check to /healthz.
func WithReadinessCheck(check func(context.Context) error) RouterOption {
	return func(c *routerConfig) {
		if check != nil {
			c.checks = append(c.checks, check)
		}
	}
}

// WithMaxBodySize caps request bodies on the /v1 routes.
func WithMaxBodySize(n int64) RouterOption {
	return func(c *routerConfig) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

type api struct {
	client  *client.Client
	onError handler.ErrorHandler[handler.Context]
}

// jsonRoute binds a strict JSON body into R before calling fn.
func jsonRoute[R any](fn handler.HandlerFunc[handler.Context, R], onError handler.ErrorHandler[handler.Context]) http.HandlerFunc {
	return handler.Wrap(fn,
		handler.WithBinder[handler.Context, R](binder.BindJSON()),
		handler.WithErrorHandler[handler.Context, R](onError),
	)
}

// route serves requests without a body.
func route(fn handler.HandlerFunc[handler.Context, struct{}], onError handler.ErrorHandler[handler.Context]) http.HandlerFunc {
	return handler.Wrap(fn, handler.WithErrorHandler[handler.Context, struct{}](onError))
}

// NewRouter exposes the client over JSON.
func NewRouter(c *client.Client, opts ...RouterOption) http.Handler {
	cfg := routerConfig{log: logger.Discard(), maxBodySize: 1 << 20}
	for _, opt := range opts {
		opt(&cfg)
	}
	h := &api{client: c, onError: handler.NewErrorHandler(cfg.log)}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLog(cfg.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", HealthCheckHandler(cfg.log, cfg.checks...))
	if cfg.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequestSize(cfg.maxBodySize))
		r.Get("/config", route(h.config, h.onError))
		r.Post("/decide", jsonRoute[decideRequest](h.decide, h.onError))
		r.Post("/activate", jsonRoute[experimentRequest](h.activate, h.onError))
		r.Post("/variation", jsonRoute[experimentRequest](h.variation, h.onError))
		r.Post("/track", jsonRoute[trackRequest](h.track, h.onError))
		r.Put("/forced-variations", jsonRoute[forcedVariationRequest](h.setForcedVariation, h.onError))
		r.Delete("/forced-variations", route(h.removeForcedVariation, h.onError))
	})
	return r
}

type configResponse struct {
	AccountID   string   `json:"accountId"`
	ProjectID   string   `json:"projectId"`
	Revision    string   `json:"revision"`
	Experiments []string `json:"experiments"`
	Features    []string `json:"features"`
	Events      []string `json:"events"`
}

func (h *api) config(handler.Context, struct{}) handler.Response {
	cfg := h.client.Config()
	resp := configResponse{
		AccountID:   cfg.AccountID(),
		ProjectID:   cfg.ProjectID(),
		Revision:    cfg.Revision(),
		Experiments: []string{},
		Features:    []string{},
		Events:      []string{},
	}
	for _, e := range cfg.Experiments() {
		resp.Experiments = append(resp.Experiments, e.Key)
	}
	for _, f := range cfg.Features() {
		resp.Features = append(resp.Features, f.Key)
	}
	for _, e := range cfg.Events() {
		resp.Events = append(resp.Events, e.Key)
	}
	return handler.JSON(resp)
}

type decideOptions struct {
	IncludeReasons       bool `json:"includeReasons"`
	IgnoreProfile        bool `json:"ignoreUserProfile"`
	ExcludeVariables     bool `json:"excludeVariables"`
	DisableDecisionEvent bool `json:"disableDecisionEvent"`
	EnabledFlagsOnly     bool `json:"enabledFlagsOnly"`
}

type decideRequest struct {
	UserID     string         `json:"userId"`
	Attributes map[string]any `json:"attributes"`
	FlagKeys   []string       `json:"flagKeys"`
	Options    decideOptions  `json:"options"`
}

func (r decideRequest) validate() error {
	return validator.Apply(
		validator.Required("userId", r.UserID),
		validator.EachRequired("flagKeys", r.FlagKeys),
	)
}

type flagDecision struct {
	FlagKey      string         `json:"flagKey"`
	Enabled      bool           `json:"enabled"`
	VariationKey string         `json:"variationKey"`
	RuleKey      string         `json:"ruleKey"`
	Source       string         `json:"source,omitempty"`
	Variables    map[string]any `json:"variables,omitempty"`
	Reasons      []string       `json:"reasons,omitempty"`
}

type decideResponse struct {
	Decisions []flagDecision `json:"decisions"`
}

func toFlagDecision(d decision.FlagDecision) flagDecision {
	return flagDecision{
		FlagKey:      d.FlagKey,
		Enabled:      d.Enabled,
		VariationKey: d.VariationKey(),
		RuleKey:      d.RuleKey(),
		Source:       string(d.Source),
		Variables:    d.Variables,
		Reasons:      d.Reasons,
	}
}

func (h *api) decide(ctx handler.Context, req decideRequest) handler.Response {
	if err := req.validate(); err != nil {
		return handler.JSONError(err)
	}

	opts := client.DecideOptions{
		DecideOptions: decision.DecideOptions{
			IgnoreProfile:    req.Options.IgnoreProfile,
			IncludeReasons:   req.Options.IncludeReasons,
			ExcludeVariables: req.Options.ExcludeVariables,
		},
		DisableDecisionEvent: req.Options.DisableDecisionEvent,
		EnabledFlagsOnly:     req.Options.EnabledFlagsOnly,
	}

	resp := decideResponse{Decisions: []flagDecision{}}
	if len(req.FlagKeys) == 0 {
		all := h.client.DecideAll(ctx, req.UserID, req.Attributes, opts)
		keys := make([]string, 0, len(all))
		for k := range all {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			resp.Decisions = append(resp.Decisions, toFlagDecision(all[k]))
		}
	} else {
		for _, key := range req.FlagKeys {
			d := h.client.Decide(ctx, key, req.UserID, req.Attributes, opts)
			if opts.EnabledFlagsOnly && !d.Enabled {
				continue
			}
			resp.Decisions = append(resp.Decisions, toFlagDecision(d))
		}
	}
	return handler.JSON(resp)
}

type experimentRequest struct {
	ExperimentKey string         `json:"experimentKey"`
	UserID        string         `json:"userId"`
	Attributes    map[string]any `json:"attributes"`
}

func (r experimentRequest) validate() error {
	return validator.Apply(
		validator.Required("experimentKey", r.ExperimentKey),
		validator.Required("userId", r.UserID),
	)
}

type variationResponse struct {
	ExperimentKey string `json:"experimentKey"`
	VariationKey  string `json:"variationKey"`
	Bucketed      bool   `json:"bucketed"`
}

func (h *api) activate(ctx handler.Context, req experimentRequest) handler.Response {
	return h.experiment(ctx, req, h.client.Activate)
}

func (h *api) variation(ctx handler.Context, req experimentRequest) handler.Response {
	return h.experiment(ctx, req, h.client.GetVariation)
}

func (h *api) experiment(ctx context.Context, req experimentRequest, fn func(context.Context, string, string, map[string]any) string) handler.Response {
	if err := req.validate(); err != nil {
		return handler.JSONError(err)
	}
	key := fn(ctx, req.ExperimentKey, req.UserID, req.Attributes)
	return handler.JSON(variationResponse{ExperimentKey: req.ExperimentKey, VariationKey: key, Bucketed: key != ""})
}

type trackRequest struct {
	EventKey   string         `json:"eventKey"`
	UserID     string         `json:"userId"`
	Attributes map[string]any `json:"attributes"`
	Tags       map[string]any `json:"tags"`
}

func (r trackRequest) validate() error {
	return validator.Apply(
		validator.Required("eventKey", r.EventKey),
		validator.Required("userId", r.UserID),
	)
}

func (h *api) track(ctx handler.Context, req trackRequest) handler.Response {
	if err := req.validate(); err != nil {
		return handler.JSONError(err)
	}
	h.client.Track(ctx, req.EventKey, req.UserID, req.Attributes, req.Tags)
	return handler.EmptyWithStatus(http.StatusAccepted)
}

type forcedVariationRequest struct {
	ExperimentKey string `json:"experimentKey"`
	UserID        string `json:"userId"`
	VariationKey  string `json:"variationKey"`
}

func (r forcedVariationRequest) validate() error {
	return validator.Apply(
		validator.Required("experimentKey", r.ExperimentKey),
		validator.Required("userId", r.UserID),
		validator.Required("variationKey", r.VariationKey),
	)
}

func (h *api) setForcedVariation(_ handler.Context, req forcedVariationRequest) handler.Response {
	if err := req.validate(); err != nil {
		return handler.JSONError(err)
	}
	if !h.client.SetForcedVariation(req.ExperimentKey, req.UserID, req.VariationKey) {
		return handler.JSONError(fmt.Errorf("%w: experiment %q has no variation %q",
			handler.ErrNotFound, req.ExperimentKey, req.VariationKey))
	}
	return handler.Empty()
}

// removeForcedVariation reads its keys from the query string.
func (h *api) removeForcedVariation(ctx handler.Context, _ struct{}) handler.Response {
	q := ctx.Request().URL.Query()
	experimentKey, userID := q.Get("experimentKey"), q.Get("userId")
	if err := validator.Apply(
		validator.Required("experimentKey", experimentKey),
		validator.Required("userId", userID),
	); err != nil {
		return handler.JSONError(err)
	}
	if !h.client.SetForcedVariation(experimentKey, userID, "") {
		return handler.JSONError(fmt.Errorf("%w: experiment %q", handler.ErrNotFound, experimentKey))
	}
	return handler.Empty()
}
