package project

import (
	"github.com/dmitrymomot/flagkit/pkg/condition"
)

// MaxTrafficValue is the exclusive upper bound of the bucket space.
const MaxTrafficValue = 10000

// Status is the lifecycle state of an experiment or rollout rule.
type Status string

const (
	StatusNotStarted Status = "Not started"
	StatusRunning    Status = "Running"
	StatusPaused     Status = "Paused"
	StatusLaunched   Status = "Launched"
	StatusArchived   Status = "Archived"
)

// GroupPolicy controls how experiments in a group share traffic.
type GroupPolicy string

const (
	// PolicyRandom makes group members mutually exclusive.
	PolicyRandom GroupPolicy = "random"
	// PolicyOverlapping lets members bucket independently.
	PolicyOverlapping GroupPolicy = "overlapping"
)

// VariableType is the declared type of a feature variable.
type VariableType string

const (
	VariableBoolean VariableType = "boolean"
	VariableInteger VariableType = "integer"
	VariableDouble  VariableType = "double"
	VariableString  VariableType = "string"
	VariableJSON    VariableType = "json"
)

// TrafficAllocation is one cumulative range of the bucket space.
// A bucket value v falls into the first range with v < EndOfRange.
type TrafficAllocation struct {
	EntityID   string
	EndOfRange int
}

// Variation is a single arm of an experiment.
type Variation struct {
	ID             string
	Key            string
	FeatureEnabled bool
	// Variables maps variable id to the serialized override value.
	Variables map[string]string
}

// Bandit marks a rule whose bucketed variation may be replaced by a
// contextual prediction.
type Bandit struct {
	AttributeIDs      []string
	TrafficAllocation int
}

// Experiment is an A/B test or a rollout rule.
type Experiment struct {
	ID                string
	Key               string
	LayerID           string
	Status            Status
	AudienceIDs       []string
	Audience          *condition.Node
	Variations        []*Variation
	TrafficAllocation []TrafficAllocation
	// Whitelist maps user id to variation key.
	Whitelist map[string]string
	GroupID   string
	Bandit    *Bandit

	rolloutID       string
	variationsByID  map[string]*Variation
	variationsByKey map[string]*Variation
}

// VariationByID looks up a variation of the experiment.
func (e *Experiment) VariationByID(id string) (*Variation, bool) {
	v, ok := e.variationsByID[id]
	return v, ok
}

// VariationByKey looks up a variation of the experiment.
func (e *Experiment) VariationByKey(key string) (*Variation, bool) {
	v, ok := e.variationsByKey[key]
	return v, ok
}

// IsRunning reports whether the experiment accepts traffic.
func (e *Experiment) IsRunning() bool {
	return e.Status == StatusRunning
}

// IsRolloutRule reports whether the experiment is a rule of a rollout.
func (e *Experiment) IsRolloutRule() bool {
	return e.rolloutID != ""
}

// RolloutID returns the owning rollout id for rollout rules.
func (e *Experiment) RolloutID() string {
	return e.rolloutID
}

// IsBandit reports whether the rule is bandit-enabled.
func (e *Experiment) IsBandit() bool {
	return e.Bandit != nil
}

// Group is a set of experiments sharing one traffic allocation.
type Group struct {
	ID                string
	Policy            GroupPolicy
	ExperimentIDs     []string
	TrafficAllocation []TrafficAllocation
}

// IsMutuallyExclusive reports whether members compete for traffic.
func (g *Group) IsMutuallyExclusive() bool {
	return g.Policy == PolicyRandom
}

// Variable is a typed feature variable declaration.
type Variable struct {
	ID           string
	Key          string
	Type         VariableType
	DefaultValue string
}

// Feature is a feature flag.
type Feature struct {
	ID            string
	Key           string
	RolloutID     string
	ExperimentIDs []string
	Variables     []*Variable

	variablesByKey map[string]*Variable
}

// VariableByKey looks up a variable declaration.
func (f *Feature) VariableByKey(key string) (*Variable, bool) {
	v, ok := f.variablesByKey[key]
	return v, ok
}

// Rollout is an ordered list of targeting rules. The last rule targets
// everyone.
type Rollout struct {
	ID    string
	Rules []*Experiment
}

// Event is a tracked conversion event.
type Event struct {
	ID            string
	Key           string
	ExperimentIDs []string
}

// Attribute is a declared user attribute.
type Attribute struct {
	ID  string
	Key string
}

// Audience is a named condition tree.
type Audience struct {
	ID         string
	Name       string
	Conditions *condition.Node
}
