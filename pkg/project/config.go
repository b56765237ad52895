package project

import (
	"slices"
	"strings"

	"github.com/dmitrymomot/flagkit/pkg/condition"
)

// ReservedAttributePrefix marks attributes understood by the engine itself.
// They are forwarded without being declared in the datafile.
const ReservedAttributePrefix = "$opt_"

// Reserved attribute keys.
const (
	AttributeBucketingID  = "$opt_bucketing_id"
	AttributeUserAgent    = "$opt_user_agent"
	AttributeBotFiltering = "$opt_bot_filtering"
)

// Config is an immutable, validated configuration revision. Entities are
// stored in an arena keyed by id and reference each other by id.
// A *Config and everything reachable from it must not be mutated.
type Config struct {
	accountID         string
	projectID         string
	revision          string
	version           string
	sdkKey            string
	environmentKey    string
	anonymizeIP       bool
	botFiltering      *bool
	sendFlagDecisions bool

	experiments      []*Experiment
	experimentsByID  map[string]*Experiment
	experimentsByKey map[string]*Experiment
	groups           map[string]*Group
	features         []*Feature
	featuresByKey    map[string]*Feature
	rollouts         map[string]*Rollout
	events           []*Event
	eventsByKey      map[string]*Event
	attributesByKey  map[string]*Attribute
	attributesByID   map[string]*Attribute
	audiences        map[string]*Audience

	experimentFeature map[string]*Feature
	flagVariations    map[string]map[string]*Variation
}

// AccountID returns the account stamped on event batches.
func (c *Config) AccountID() string { return c.accountID }

// ProjectID returns the project stamped on event batches.
func (c *Config) ProjectID() string { return c.projectID }

// Revision returns the datafile revision.
func (c *Config) Revision() string { return c.revision }

// Version returns the datafile schema version.
func (c *Config) Version() string { return c.version }

// SDKKey returns the datafile SDK key, empty when absent.
func (c *Config) SDKKey() string { return c.sdkKey }

// EnvironmentKey returns the datafile environment key, empty when absent.
func (c *Config) EnvironmentKey() string { return c.environmentKey }

// AnonymizeIP reports whether event batches ask for IP anonymization.
func (c *Config) AnonymizeIP() bool { return c.anonymizeIP }

// SendFlagDecisions reports whether rollout decisions send impressions.
func (c *Config) SendFlagDecisions() bool { return c.sendFlagDecisions }

// BotFiltering reports the bot filtering setting and whether it is declared.
func (c *Config) BotFiltering() (enabled, declared bool) {
	if c.botFiltering == nil {
		return false, false
	}
	return *c.botFiltering, true
}

// Experiments returns the A/B experiments of the revision in datafile order,
// including group members and excluding rollout rules.
func (c *Config) Experiments() []*Experiment {
	return c.experiments
}

// ExperimentByKey looks up an A/B experiment by key.
func (c *Config) ExperimentByKey(key string) (*Experiment, bool) {
	e, ok := c.experimentsByKey[key]
	return e, ok
}

// ExperimentByID looks up an experiment or rollout rule by id.
func (c *Config) ExperimentByID(id string) (*Experiment, bool) {
	e, ok := c.experimentsByID[id]
	return e, ok
}

// Group looks up a mutual exclusion group by id.
func (c *Config) Group(id string) (*Group, bool) {
	g, ok := c.groups[id]
	return g, ok
}

// Features returns the feature flags in datafile order.
func (c *Config) Features() []*Feature {
	return c.features
}

// FeatureByKey looks up a feature flag by key.
func (c *Config) FeatureByKey(key string) (*Feature, bool) {
	f, ok := c.featuresByKey[key]
	return f, ok
}

// FeatureForExperiment returns the flag an experiment or rollout rule
// belongs to, if any.
func (c *Config) FeatureForExperiment(experimentID string) (*Feature, bool) {
	f, ok := c.experimentFeature[experimentID]
	return f, ok
}

// Rollout looks up a rollout by id.
func (c *Config) Rollout(id string) (*Rollout, bool) {
	r, ok := c.rollouts[id]
	return r, ok
}

// Events returns the declared events in datafile order.
func (c *Config) Events() []*Event {
	return c.events
}

// EventByKey looks up a declared event by key.
func (c *Config) EventByKey(key string) (*Event, bool) {
	e, ok := c.eventsByKey[key]
	return e, ok
}

// AttributeByKey looks up a declared attribute by key.
func (c *Config) AttributeByKey(key string) (*Attribute, bool) {
	a, ok := c.attributesByKey[key]
	return a, ok
}

// AttributeByID looks up a declared attribute by id.
func (c *Config) AttributeByID(id string) (*Attribute, bool) {
	a, ok := c.attributesByID[id]
	return a, ok
}

// Audience looks up an audience by id.
func (c *Config) Audience(id string) (*Audience, bool) {
	a, ok := c.audiences[id]
	return a, ok
}

// AudienceCondition implements condition.AudienceResolver.
func (c *Config) AudienceCondition(id string) (*condition.Node, bool) {
	a, ok := c.audiences[id]
	if !ok {
		return nil, false
	}
	return a.Conditions, true
}

// FlagVariationByKey looks up a variation by key among every experiment and
// rollout rule of a flag.
func (c *Config) FlagVariationByKey(flagKey, variationKey string) (*Variation, bool) {
	v, ok := c.flagVariations[flagKey][variationKey]
	return v, ok
}

// FilterAttributes keeps attributes declared in the revision plus reserved
// engine attributes. The keys of everything else are returned as dropped.
func (c *Config) FilterAttributes(attrs map[string]any) (kept map[string]any, dropped []string) {
	kept = make(map[string]any, len(attrs))
	for k, v := range attrs {
		if _, ok := c.attributesByKey[k]; ok || strings.HasPrefix(k, ReservedAttributePrefix) {
			kept[k] = v
			continue
		}
		dropped = append(dropped, k)
	}
	slices.Sort(dropped)
	return kept, dropped
}
