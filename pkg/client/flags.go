package client

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/flagkit/pkg/decision"
	"github.com/dmitrymomot/flagkit/pkg/event"
	"github.com/dmitrymomot/flagkit/pkg/project"
)

// DecideOptions tunes Decide and DecideAll.
type DecideOptions struct {
	decision.DecideOptions
	// DisableDecisionEvent suppresses the impression.
	DisableDecisionEvent bool
	// EnabledFlagsOnly drops disabled flags from DecideAll.
	EnabledFlagsOnly bool
}

// Decide decides a flag for a user. An impression is recorded for
// experiment rules, and for every decision when the revision asks for flag
// decisions to be sent. An unknown flag yields a disabled decision.
func (c *Client) Decide(ctx context.Context, flagKey, userID string, attrs map[string]any, opts DecideOptions) decision.FlagDecision {
	cfg := c.config.Load()
	f, ok := cfg.FeatureByKey(flagKey)
	if !ok {
		err := fmt.Errorf("%w: %q", decision.ErrFlagNotFound, flagKey)
		c.errs.HandleError(ctx, err)
		d := decision.FlagDecision{FlagKey: flagKey}
		if opts.IncludeReasons {
			d.Reasons = []string{err.Error()}
		}
		return d
	}
	return c.decideFlag(ctx, cfg, f, userID, c.userAttributes(ctx, cfg, userID, attrs), opts)
}

// DecideAll decides every flag of the revision, keyed by flag key.
func (c *Client) DecideAll(ctx context.Context, userID string, attrs map[string]any, opts DecideOptions) map[string]decision.FlagDecision {
	cfg := c.config.Load()
	attrs = c.userAttributes(ctx, cfg, userID, attrs)
	out := make(map[string]decision.FlagDecision, len(cfg.Features()))
	for _, f := range cfg.Features() {
		d := c.decideFlag(ctx, cfg, f, userID, attrs, opts)
		if opts.EnabledFlagsOnly && !d.Enabled {
			continue
		}
		out[f.Key] = d
	}
	return out
}

func (c *Client) decideFlag(ctx context.Context, cfg *project.Config, f *project.Feature, userID string, attrs map[string]any, opts DecideOptions) decision.FlagDecision {
	d := c.decisions.DecideFlag(ctx, cfg, f, decision.User{ID: userID, Attributes: attrs}, opts.DecideOptions)
	c.metrics.decision(kindFlag, d.Source)
	if ed, ok := d.Experiment(); ok {
		c.persist(ctx, userID, ed, opts.DecideOptions)
	}

	if opts.DisableDecisionEvent {
		return d
	}
	ruleType := d.RuleType()
	if ruleType == decision.RuleTypeFeatureTest || cfg.SendFlagDecisions() {
		c.dispatch(ctx, kindImpression, c.assembler.BuildImpression(cfg, d.Rule, d.Variation, userID, attrs, event.Metadata{
			FlagKey:  f.Key,
			RuleType: ruleType,
		}))
	}
	return d
}

// IsFeatureEnabled reports whether the flag is on for the user.
func (c *Client) IsFeatureEnabled(ctx context.Context, flagKey, userID string, attrs map[string]any) bool {
	return c.Decide(ctx, flagKey, userID, attrs, DecideOptions{
		DecideOptions: decision.DecideOptions{ExcludeVariables: true},
	}).Enabled
}

// GetFeatureVariable returns the typed value of one variable for the user,
// or nil when the flag or variable is unknown or the value is malformed.
func (c *Client) GetFeatureVariable(ctx context.Context, flagKey, variableKey, userID string, attrs map[string]any) any {
	cfg := c.config.Load()
	f, ok := cfg.FeatureByKey(flagKey)
	if !ok {
		c.errs.HandleError(ctx, fmt.Errorf("%w: %q", decision.ErrFlagNotFound, flagKey))
		return nil
	}
	variable, ok := f.VariableByKey(variableKey)
	if !ok {
		c.errs.HandleError(ctx, fmt.Errorf("%w: %q in flag %q", decision.ErrVariableNotFound, variableKey, flagKey))
		return nil
	}

	d := c.decideFlag(ctx, cfg, f, userID, c.userAttributes(ctx, cfg, userID, attrs), DecideOptions{
		DecideOptions:        decision.DecideOptions{ExcludeVariables: true},
		DisableDecisionEvent: true,
	})
	v, err := decision.VariableValue(variable, d.Variation)
	if err != nil {
		c.errs.HandleError(ctx, err)
		return nil
	}
	return v
}

// GetAllFeatureVariables returns every variable of the flag for the user.
func (c *Client) GetAllFeatureVariables(ctx context.Context, flagKey, userID string, attrs map[string]any) map[string]any {
	cfg := c.config.Load()
	f, ok := cfg.FeatureByKey(flagKey)
	if !ok {
		c.errs.HandleError(ctx, fmt.Errorf("%w: %q", decision.ErrFlagNotFound, flagKey))
		return nil
	}
	return c.decideFlag(ctx, cfg, f, userID, c.userAttributes(ctx, cfg, userID, attrs), DecideOptions{DisableDecisionEvent: true}).Variables
}

// Variable returns a variable converted to T. ok is false when the value
// is missing or has another type.
func Variable[T any](ctx context.Context, c *Client, flagKey, variableKey, userID string, attrs map[string]any) (T, bool) {
	var zero T
	raw := c.GetFeatureVariable(ctx, flagKey, variableKey, userID, attrs)
	if raw == nil {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		c.errs.HandleError(ctx, fmt.Errorf("%w: %q is %T, not %T", decision.ErrVariableTypeMismatch, variableKey, raw, zero))
		return zero, false
	}
	return v, true
}
