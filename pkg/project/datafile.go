package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Datafile is the serialized form of a project configuration revision.
// Field names follow the v4 datafile schema shared by other implementations.
type Datafile struct {
	AccountID         string            `json:"accountId" yaml:"accountId"`
	ProjectID         string            `json:"projectId" yaml:"projectId"`
	Revision          string            `json:"revision" yaml:"revision"`
	Version           string            `json:"version" yaml:"version"`
	SDKKey            string            `json:"sdkKey,omitempty" yaml:"sdkKey,omitempty"`
	EnvironmentKey    string            `json:"environmentKey,omitempty" yaml:"environmentKey,omitempty"`
	AnonymizeIP       bool              `json:"anonymizeIP" yaml:"anonymizeIP"`
	BotFiltering      *bool             `json:"botFiltering,omitempty" yaml:"botFiltering,omitempty"`
	SendFlagDecisions bool              `json:"sendFlagDecisions" yaml:"sendFlagDecisions"`
	Experiments       []ExperimentData  `json:"experiments" yaml:"experiments"`
	Groups            []GroupData       `json:"groups" yaml:"groups"`
	FeatureFlags      []FeatureFlagData `json:"featureFlags" yaml:"featureFlags"`
	Rollouts          []RolloutData     `json:"rollouts" yaml:"rollouts"`
	Events            []EventData       `json:"events" yaml:"events"`
	Attributes        []AttributeData   `json:"attributes" yaml:"attributes"`
	Audiences         []AudienceData    `json:"audiences" yaml:"audiences"`
	TypedAudiences    []AudienceData    `json:"typedAudiences,omitempty" yaml:"typedAudiences,omitempty"`
}

// ExperimentData is an experiment or rollout rule entry.
type ExperimentData struct {
	ID                 string            `json:"id" yaml:"id"`
	Key                string            `json:"key" yaml:"key"`
	LayerID            string            `json:"layerId" yaml:"layerId"`
	Status             string            `json:"status" yaml:"status"`
	AudienceIDs        []string          `json:"audienceIds" yaml:"audienceIds"`
	AudienceConditions any               `json:"audienceConditions,omitempty" yaml:"audienceConditions,omitempty"`
	Variations         []VariationData   `json:"variations" yaml:"variations"`
	TrafficAllocation  []AllocationData  `json:"trafficAllocation" yaml:"trafficAllocation"`
	ForcedVariations   map[string]string `json:"forcedVariations" yaml:"forcedVariations"`
	Bandit             *BanditData       `json:"cmab,omitempty" yaml:"cmab,omitempty"`
}

// VariationData is a variation entry.
type VariationData struct {
	ID             string              `json:"id" yaml:"id"`
	Key            string              `json:"key" yaml:"key"`
	FeatureEnabled bool                `json:"featureEnabled" yaml:"featureEnabled"`
	Variables      []VariableValueData `json:"variables,omitempty" yaml:"variables,omitempty"`
}

// VariableValueData overrides a flag variable within a variation.
type VariableValueData struct {
	ID    string `json:"id" yaml:"id"`
	Value string `json:"value" yaml:"value"`
}

// AllocationData maps a bucket range end to an entity.
type AllocationData struct {
	EntityID   string `json:"entityId" yaml:"entityId"`
	EndOfRange int    `json:"endOfRange" yaml:"endOfRange"`
}

// BanditData marks an experiment as a contextual bandit.
type BanditData struct {
	AttributeIDs      []string `json:"attributeIds" yaml:"attributeIds"`
	TrafficAllocation int      `json:"trafficAllocation" yaml:"trafficAllocation"`
}

// GroupData is a mutual exclusion group entry.
type GroupData struct {
	ID                string           `json:"id" yaml:"id"`
	Policy            string           `json:"policy" yaml:"policy"`
	Experiments       []ExperimentData `json:"experiments" yaml:"experiments"`
	TrafficAllocation []AllocationData `json:"trafficAllocation" yaml:"trafficAllocation"`
}

// FeatureFlagData is a feature flag entry.
type FeatureFlagData struct {
	ID            string         `json:"id" yaml:"id"`
	Key           string         `json:"key" yaml:"key"`
	RolloutID     string         `json:"rolloutId" yaml:"rolloutId"`
	ExperimentIDs []string       `json:"experimentIds" yaml:"experimentIds"`
	Variables     []VariableData `json:"variables" yaml:"variables"`
}

// VariableData declares a flag variable and its default.
type VariableData struct {
	ID           string `json:"id" yaml:"id"`
	Key          string `json:"key" yaml:"key"`
	Type         string `json:"type" yaml:"type"`
	SubType      string `json:"subType,omitempty" yaml:"subType,omitempty"`
	DefaultValue string `json:"defaultValue" yaml:"defaultValue"`
}

// RolloutData is a rollout entry holding ordered rules.
type RolloutData struct {
	ID          string           `json:"id" yaml:"id"`
	Experiments []ExperimentData `json:"experiments" yaml:"experiments"`
}

// EventData declares a conversion event.
type EventData struct {
	ID            string   `json:"id" yaml:"id"`
	Key           string   `json:"key" yaml:"key"`
	ExperimentIDs []string `json:"experimentIds" yaml:"experimentIds"`
}

// AttributeData declares a user attribute.
type AttributeData struct {
	ID  string `json:"id" yaml:"id"`
	Key string `json:"key" yaml:"key"`
}

// AudienceData is an audience with its condition tree.
type AudienceData struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Conditions any    `json:"conditions" yaml:"conditions"`
}

// Parse decodes a JSON or YAML datafile and builds a validated Config.
func Parse(data []byte) (*Config, error) {
	df, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return New(df)
}

// Decode decodes a JSON or YAML datafile without validating it.
// JSON is detected by a leading '{'.
func Decode(data []byte) (*Datafile, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.Join(ErrInvalidDatafile, errors.New("datafile is empty"))
	}

	var df Datafile
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &df); err != nil {
			return nil, errors.Join(ErrInvalidDatafile, err)
		}
	} else if err := yaml.Unmarshal(trimmed, &df); err != nil {
		return nil, errors.Join(ErrInvalidDatafile, err)
	}

	if df.Version != "" && !supportedVersions[df.Version] {
		return nil, fmt.Errorf("%w: unsupported datafile version %q", ErrInvalidDatafile, df.Version)
	}
	return &df, nil
}

var supportedVersions = map[string]bool{"2": true, "3": true, "4": true}
