package decision

import (
	"github.com/dmitrymomot/flagkit/pkg/project"
)

// Source names the resolver that produced a decision.
type Source string

const (
	SourceNone      Source = ""
	SourceForced    Source = "forced-override"
	SourceWhitelist Source = "whitelist"
	SourceSticky    Source = "sticky-profile"
	SourceFresh     Source = "fresh-bucketing"
	SourceBandit    Source = "bandit"
	SourceRollout   Source = "rollout"
)

// Persistable reports whether a decision of this source should be written
// to the profile store by the caller.
func (s Source) Persistable() bool {
	return s == SourceFresh || s == SourceBandit
}

// Decision is the outcome of deciding one experiment for one user.
// A nil Variation means the user is not bucketed.
type Decision struct {
	Experiment *project.Experiment
	Variation  *project.Variation
	Source     Source
	// Attributes holds the user attributes declared in the revision.
	Attributes map[string]any
	// Reasons is filled only when DecideOptions.IncludeReasons is set.
	Reasons []string
}

// Bucketed reports whether the user received a variation.
func (d Decision) Bucketed() bool {
	return d.Variation != nil
}

// DecideOptions tunes a single decision.
type DecideOptions struct {
	// IgnoreProfile skips the sticky profile lookup.
	IgnoreProfile bool
	// IncludeReasons collects human readable reasons.
	IncludeReasons bool
	// ExcludeVariables leaves FlagDecision.Variables empty.
	ExcludeVariables bool
	// IgnoreBanditCache, ResetBanditCache and InvalidateBanditUser are
	// forwarded to the bandit fetcher.
	IgnoreBanditCache    bool
	ResetBanditCache     bool
	InvalidateBanditUser bool
	// DisableBandit keeps the bucketed variation of bandit rules without
	// calling the fetcher. Stored profiles still apply.
	DisableBandit bool
}
