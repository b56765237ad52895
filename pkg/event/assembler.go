package event

import (
	"cmp"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/project"
)

// Defaults stamped on every batch.
const (
	DefaultEndpoint      = "https://logx.optimizely.com/v1/events"
	DefaultClientName    = "flagkit"
	DefaultClientVersion = "1.0.0"

	// ImpressionKey is the event key of every impression.
	ImpressionKey = "campaign_activated"
)

// Rule types carried in decision metadata.
const (
	RuleTypeExperiment  = "experiment"
	RuleTypeFeatureTest = "feature-test"
	RuleTypeRollout     = "rollout"
)

// Assembler builds event payloads from decisions. Apart from the clock
// and the UUID generator, building is pure. Safe for concurrent use.
type Assembler struct {
	now           func() time.Time
	newUUID       func() string
	clientName    string
	clientVersion string
	endpoint      string
	log           *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithClock sets the clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

// WithUUIDGenerator sets the generator of event uuids.
func WithUUIDGenerator(fn func() string) Option {
	return func(a *Assembler) {
		if fn != nil {
			a.newUUID = fn
		}
	}
}

// WithClientInfo overrides the engine identity stamped on batches.
func WithClientInfo(name, version string) Option {
	return func(a *Assembler) {
		if name != "" {
			a.clientName = name
		}
		if version != "" {
			a.clientVersion = version
		}
	}
}

// WithEndpoint sets the endpoint stamped on every LogEvent.
func WithEndpoint(url string) Option {
	return func(a *Assembler) {
		if url != "" {
			a.endpoint = url
		}
	}
}

// WithLogger sets the logger for dropped attributes and tags.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAssembler creates an Assembler with the default endpoint and client info.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{
		now:           time.Now,
		newUUID:       uuid.NewString,
		clientName:    DefaultClientName,
		clientVersion: DefaultClientVersion,
		endpoint:      DefaultEndpoint,
		log:           logger.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Metadata describes the flag context of an impression. The zero value
// describes a plain A/B experiment.
type Metadata struct {
	FlagKey  string
	RuleType string
}

// BuildImpression records that a user was exposed to a variation. exp and
// variation may be nil for flag decisions that no rule produced.
func (a *Assembler) BuildImpression(cfg *project.Config, exp *project.Experiment, variation *project.Variation, userID string, attrs map[string]any, meta Metadata) LogEvent {
	var campaignID, experimentID, ruleKey, variationID, variationKey string
	var enabled bool
	if exp != nil {
		campaignID, experimentID, ruleKey = exp.LayerID, exp.ID, exp.Key
	}
	if variation != nil {
		variationID, variationKey, enabled = variation.ID, variation.Key, variation.FeatureEnabled
	}
	ruleType := meta.RuleType
	if ruleType == "" {
		ruleType = RuleTypeExperiment
	}

	snapshot := Snapshot{
		Decisions: []Decision{{
			CampaignID:   campaignID,
			ExperimentID: experimentID,
			VariationID:  variationID,
			Metadata: DecisionMetadata{
				FlagKey:      meta.FlagKey,
				RuleKey:      ruleKey,
				RuleType:     ruleType,
				VariationKey: variationKey,
				Enabled:      enabled,
			},
		}},
		Events: []SnapshotEvent{{
			EntityID:  campaignID,
			Key:       ImpressionKey,
			Timestamp: a.timestamp(),
			UUID:      a.newUUID(),
		}},
	}
	return a.logEvent(cfg, userID, attrs, snapshot)
}

// BuildConversion records a tracked event. decisions maps experiment id to
// the variation the user holds; only experiments that reference the event
// and hold a decision are included. It returns nil when none do, and
// ErrUnknownEvent when the revision does not declare eventKey.
func (a *Assembler) BuildConversion(cfg *project.Config, decisions map[string]*project.Variation, userID, eventKey string, attrs, tags map[string]any) (*LogEvent, error) {
	ev, ok := cfg.EventByKey(eventKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, eventKey)
	}

	var ds []Decision
	for _, id := range ev.ExperimentIDs {
		v := decisions[id]
		if v == nil {
			continue
		}
		exp, ok := cfg.ExperimentByID(id)
		if !ok {
			continue
		}
		ds = append(ds, Decision{
			CampaignID:   exp.LayerID,
			ExperimentID: exp.ID,
			VariationID:  v.ID,
			Metadata: DecisionMetadata{
				FlagKey:      flagKey(cfg, exp.ID),
				RuleKey:      exp.Key,
				RuleType:     ruleType(cfg, exp),
				VariationKey: v.Key,
				Enabled:      v.FeatureEnabled,
			},
		})
	}
	if len(ds) == 0 {
		a.log.Debug("conversion dropped, no experiment decision",
			logger.EventKey(eventKey),
			logger.UserID(userID),
		)
		return nil, nil
	}

	se := SnapshotEvent{
		EntityID:  ev.ID,
		Key:       ev.Key,
		Timestamp: a.timestamp(),
		UUID:      a.newUUID(),
	}
	if len(tags) > 0 {
		kept, dropped := encodableTags(tags)
		for _, k := range dropped {
			a.log.Warn("tag dropped, not encodable",
				logger.EventKey(eventKey),
				slog.String("tag", k),
			)
		}
		se.Tags = kept
		if _, ok := tags[TagRevenue]; ok {
			if n, err := Revenue(tags); err == nil {
				se.Revenue = &n
			} else {
				a.log.Warn("revenue tag dropped", logger.EventKey(eventKey), logger.Error(err))
			}
		}
		if _, ok := tags[TagValue]; ok {
			if f, err := Value(tags); err == nil {
				se.Value = &f
			} else {
				a.log.Warn("value tag dropped", logger.EventKey(eventKey), logger.Error(err))
			}
		}
	}

	le := a.logEvent(cfg, userID, attrs, Snapshot{Decisions: ds, Events: []SnapshotEvent{se}})
	return &le, nil
}

func (a *Assembler) logEvent(cfg *project.Config, userID string, attrs map[string]any, snapshot Snapshot) LogEvent {
	return LogEvent{
		EndpointURL: a.endpoint,
		HTTPVerb:    http.MethodPost,
		Payload: Batch{
			AccountID:       cfg.AccountID(),
			ProjectID:       cfg.ProjectID(),
			Revision:        cfg.Revision(),
			ClientName:      a.clientName,
			ClientVersion:   a.clientVersion,
			AnonymizeIP:     cfg.AnonymizeIP(),
			EnrichDecisions: true,
			Visitors: []Visitor{{
				VisitorID:  userID,
				Attributes: a.attributes(cfg, attrs),
				Snapshots:  []Snapshot{snapshot},
			}},
		},
	}
}

// attributes keeps declared and reserved attributes with a scalar value,
// sorted by key, and appends the bot filtering flag when declared.
func (a *Assembler) attributes(cfg *project.Config, attrs map[string]any) []Attribute {
	kept, _ := cfg.FilterAttributes(attrs)

	out := make([]Attribute, 0, len(kept)+1)
	for key, value := range kept {
		if key == project.AttributeBotFiltering || !forwardable(value) {
			continue
		}
		entityID := key
		if attr, ok := cfg.AttributeByKey(key); ok {
			entityID = attr.ID
		}
		out = append(out, Attribute{EntityID: entityID, Key: key, Type: AttributeTypeCustom, Value: value})
	}
	slices.SortFunc(out, func(x, y Attribute) int { return cmp.Compare(x.Key, y.Key) })

	if enabled, declared := cfg.BotFiltering(); declared {
		out = append(out, Attribute{
			EntityID: project.AttributeBotFiltering,
			Key:      project.AttributeBotFiltering,
			Type:     AttributeTypeCustom,
			Value:    enabled,
		})
	}
	return out
}

func (a *Assembler) timestamp() int64 {
	return a.now().UnixMilli()
}

func forwardable(v any) bool {
	switch n := v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return !math.IsNaN(float64(n)) && !math.IsInf(float64(n), 0)
	case float64:
		return !math.IsNaN(n) && !math.IsInf(n, 0)
	default:
		return false
	}
}

func flagKey(cfg *project.Config, experimentID string) string {
	if f, ok := cfg.FeatureForExperiment(experimentID); ok {
		return f.Key
	}
	return ""
}

func ruleType(cfg *project.Config, exp *project.Experiment) string {
	switch {
	case exp.IsRolloutRule():
		return RuleTypeRollout
	case flagKey(cfg, exp.ID) != "":
		return RuleTypeFeatureTest
	default:
		return RuleTypeExperiment
	}
}
