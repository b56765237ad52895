package decision

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/flagkit/pkg/bucketer"
	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/project"
)

// Rule types reported in decision metadata.
const (
	RuleTypeExperiment  = "experiment"
	RuleTypeFeatureTest = "feature-test"
	RuleTypeRollout     = "rollout"
)

// FlagDecision is the outcome of deciding a feature flag for one user.
type FlagDecision struct {
	FlagKey string
	Enabled bool
	// Variation and Rule are nil when no rule applied.
	Variation  *project.Variation
	Rule       *project.Experiment
	Source     Source
	Variables  map[string]any
	Attributes map[string]any
	Reasons    []string
}

// VariationKey returns the key of the chosen variation, or "".
func (d FlagDecision) VariationKey() string {
	if d.Variation == nil {
		return ""
	}
	return d.Variation.Key
}

// RuleKey returns the key of the rule that produced the decision, or "".
func (d FlagDecision) RuleKey() string {
	if d.Rule == nil {
		return ""
	}
	return d.Rule.Key
}

// RuleType classifies the rule for analytics.
func (d FlagDecision) RuleType() string {
	if d.Rule == nil || d.Rule.IsRolloutRule() {
		return RuleTypeRollout
	}
	return RuleTypeFeatureTest
}

// Experiment converts a decision produced by an experiment rule into the
// equivalent experiment decision.
func (d FlagDecision) Experiment() (Decision, bool) {
	if d.Rule == nil || d.Rule.IsRolloutRule() || d.Variation == nil {
		return Decision{}, false
	}
	return Decision{
		Experiment: d.Rule,
		Variation:  d.Variation,
		Source:     d.Source,
		Attributes: d.Attributes,
		Reasons:    d.Reasons,
	}, true
}

// DecideFlag decides a feature flag: a forced decision for the flag wins,
// then each experiment rule in order, then the rollout rules, then the
// disabled default.
func (s *Service) DecideFlag(ctx context.Context, cfg *project.Config, f *project.Feature, user User, opts DecideOptions) FlagDecision {
	ev := s.newEvaluation(ctx, cfg, user, opts)
	d := s.decideFlag(ev, f)
	d.FlagKey = f.Key
	d.Attributes = ev.attributes
	d.Reasons = ev.reasons
	if d.Variation != nil {
		d.Enabled = d.Variation.FeatureEnabled
	}
	if !opts.ExcludeVariables {
		d.Variables = s.variables(ctx, f, d.Variation)
	}

	s.log.DebugContext(ctx, "flag decided",
		logger.FlagKey(f.Key),
		logger.UserID(user.ID),
		logger.RuleKey(d.RuleKey()),
		logger.VariationKey(d.VariationKey()),
		logger.Source(string(d.Source)),
	)
	return d
}

func (s *Service) decideFlag(ev *evaluation, f *project.Feature) FlagDecision {
	if key, ok := s.overrides.ForcedDecision(ev.user.ID, FlagContext{FlagKey: f.Key}); ok {
		if v, ok := ev.cfg.FlagVariationByKey(f.Key, key); ok {
			ev.reason("flag %q is forced to variation %q", f.Key, key)
			return FlagDecision{Variation: v, Source: SourceForced}
		}
		s.reportStaleDecision(ev, f.Key, "", key)
	}

	for _, id := range f.ExperimentIDs {
		exp, ok := ev.cfg.ExperimentByID(id)
		if !ok {
			continue
		}
		if v, ok := s.forcedRuleDecision(ev, f, exp); ok {
			return FlagDecision{Variation: v, Rule: exp, Source: SourceForced}
		}
		if d := s.decide(ev, exp, true); d.Bucketed() {
			return FlagDecision{Variation: d.Variation, Rule: exp, Source: d.Source}
		}
	}

	if r, ok := ev.cfg.Rollout(f.RolloutID); ok {
		if v, rule, src := s.decideRollout(ev, f, r); v != nil {
			return FlagDecision{Variation: v, Rule: rule, Source: src}
		}
	}

	ev.reason("no rule of flag %q applies to user %q", f.Key, ev.user.ID)
	return FlagDecision{Source: SourceNone}
}

// decideRollout evaluates rollout rules in order. A user who meets a
// targeted rule's audience but falls outside its traffic skips straight to
// the final everyone rule.
func (s *Service) decideRollout(ev *evaluation, f *project.Feature, r *project.Rollout) (*project.Variation, *project.Experiment, Source) {
	rules := r.Rules
	for i := 0; i < len(rules); {
		rule := rules[i]
		everyone := i == len(rules)-1

		if v, ok := s.forcedRuleDecision(ev, f, rule); ok {
			return v, rule, SourceForced
		}
		if rule.Status != project.StatusRunning && rule.Status != project.StatusLaunched {
			ev.reason("rollout rule %q is not running", rule.Key)
			i++
			continue
		}
		if !rule.Audience.Evaluate(ev.user.Attributes, ev.cfg).Passes() {
			ev.reason("user %q does not meet the audience of rollout rule %q", ev.user.ID, rule.Key)
			i++
			continue
		}
		if v, _ := bucketer.Experiment(ev.cfg, rule, ev.bucketingID); v != nil {
			ev.reason("user %q is bucketed into rollout rule %q", ev.user.ID, rule.Key)
			return v, rule, SourceRollout
		}
		if everyone {
			break
		}
		ev.reason("user %q is outside the traffic of rollout rule %q", ev.user.ID, rule.Key)
		i = len(rules) - 1
	}
	return nil, nil, SourceNone
}

func (s *Service) forcedRuleDecision(ev *evaluation, f *project.Feature, rule *project.Experiment) (*project.Variation, bool) {
	key, ok := s.overrides.ForcedDecision(ev.user.ID, FlagContext{FlagKey: f.Key, RuleKey: rule.Key})
	if !ok {
		return nil, false
	}
	v, ok := rule.VariationByKey(key)
	if !ok {
		s.reportStaleDecision(ev, f.Key, rule.Key, key)
		return nil, false
	}
	ev.reason("rule %q of flag %q is forced to variation %q", rule.Key, f.Key, key)
	return v, true
}

func (s *Service) reportStaleDecision(ev *evaluation, flagKey, ruleKey, variationKey string) {
	s.errs.HandleError(ev.ctx, fmt.Errorf("%w: forced decision %q for flag %q rule %q user %q",
		ErrStaleOverride, variationKey, flagKey, ruleKey, ev.user.ID))
	ev.reason("forced decision %q for flag %q is invalid", variationKey, flagKey)
}
