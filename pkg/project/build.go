package project

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/flagkit/pkg/condition"
)

// New builds a Config from a decoded datafile and validates every
// cross-reference. All reference problems are reported together.
func New(df *Datafile) (*Config, error) {
	if df == nil {
		return nil, errors.Join(ErrInvalidDatafile, errors.New("datafile is nil"))
	}

	b := &builder{cfg: &Config{
		accountID:         df.AccountID,
		projectID:         df.ProjectID,
		revision:          df.Revision,
		version:           df.Version,
		sdkKey:            df.SDKKey,
		environmentKey:    df.EnvironmentKey,
		anonymizeIP:       df.AnonymizeIP,
		botFiltering:      df.BotFiltering,
		sendFlagDecisions: df.SendFlagDecisions,
		experimentsByID:   make(map[string]*Experiment),
		experimentsByKey:  make(map[string]*Experiment),
		groups:            make(map[string]*Group),
		featuresByKey:     make(map[string]*Feature),
		rollouts:          make(map[string]*Rollout),
		eventsByKey:       make(map[string]*Event),
		attributesByKey:   make(map[string]*Attribute),
		attributesByID:    make(map[string]*Attribute),
		audiences:         make(map[string]*Audience),
		experimentFeature: make(map[string]*Feature),
		flagVariations:    make(map[string]map[string]*Variation),
	}}

	b.buildAttributes(df.Attributes)
	b.buildAudiences(df.Audiences, df.TypedAudiences)
	for _, ed := range df.Experiments {
		b.addExperiment(ed, "", "")
	}
	b.buildGroups(df.Groups)
	b.buildRollouts(df.Rollouts)
	b.buildFeatures(df.FeatureFlags)
	b.buildEvents(df.Events)
	b.validate()

	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return b.cfg, nil
}

type builder struct {
	cfg  *Config
	errs []error
}

func (b *builder) fail(entity, id, field, ref, reason string) {
	b.errs = append(b.errs, &ReferenceError{Entity: entity, ID: id, Field: field, Ref: ref, Reason: reason})
}

func (b *builder) buildAttributes(data []AttributeData) {
	for _, ad := range data {
		if _, dup := b.cfg.attributesByKey[ad.Key]; dup {
			b.fail("attribute", ad.ID, "key", ad.Key, "duplicate key")
			continue
		}
		a := &Attribute{ID: ad.ID, Key: ad.Key}
		b.cfg.attributesByKey[a.Key] = a
		b.cfg.attributesByID[a.ID] = a
	}
}

func (b *builder) buildAudiences(legacy, typed []AudienceData) {
	add := func(ad AudienceData) {
		tree, err := condition.ParseConditions(ad.Conditions)
		if err != nil {
			b.fail("audience", ad.ID, "conditions", "", err.Error())
			return
		}
		b.cfg.audiences[ad.ID] = &Audience{ID: ad.ID, Name: ad.Name, Conditions: tree}
	}
	for _, ad := range legacy {
		add(ad)
	}
	// typed audiences supersede legacy entries with the same id
	for _, ad := range typed {
		add(ad)
	}
}

func (b *builder) addExperiment(ed ExperimentData, groupID, rolloutID string) *Experiment {
	e := &Experiment{
		ID:              ed.ID,
		Key:             ed.Key,
		LayerID:         ed.LayerID,
		Status:          Status(ed.Status),
		AudienceIDs:     ed.AudienceIDs,
		Whitelist:       ed.ForcedVariations,
		GroupID:         groupID,
		rolloutID:       rolloutID,
		variationsByID:  make(map[string]*Variation, len(ed.Variations)),
		variationsByKey: make(map[string]*Variation, len(ed.Variations)),
	}

	for _, vd := range ed.Variations {
		v := &Variation{
			ID:             vd.ID,
			Key:            vd.Key,
			FeatureEnabled: vd.FeatureEnabled,
			Variables:      make(map[string]string, len(vd.Variables)),
		}
		for _, vv := range vd.Variables {
			v.Variables[vv.ID] = vv.Value
		}
		if _, dup := e.variationsByID[v.ID]; dup {
			b.fail("experiment", e.ID, "variation", v.ID, "duplicate id")
			continue
		}
		e.Variations = append(e.Variations, v)
		e.variationsByID[v.ID] = v
		e.variationsByKey[v.Key] = v
	}

	for _, ad := range ed.TrafficAllocation {
		e.TrafficAllocation = append(e.TrafficAllocation, TrafficAllocation(ad))
	}

	if ed.AudienceConditions != nil {
		tree, err := condition.ParseAudienceConditions(ed.AudienceConditions)
		if err != nil {
			b.fail("experiment", e.ID, "audienceConditions", "", err.Error())
		}
		e.Audience = tree
	} else if len(ed.AudienceIDs) > 0 {
		refs := make([]*condition.Node, 0, len(ed.AudienceIDs))
		for _, id := range ed.AudienceIDs {
			refs = append(refs, condition.Audience(id))
		}
		e.Audience = condition.AnyOf(refs...)
	}

	if ed.Bandit != nil {
		e.Bandit = &Bandit{
			AttributeIDs:      ed.Bandit.AttributeIDs,
			TrafficAllocation: ed.Bandit.TrafficAllocation,
		}
	}

	if _, dup := b.cfg.experimentsByID[e.ID]; dup {
		b.fail("experiment", e.ID, "id", "", "duplicate id")
		return e
	}
	b.cfg.experimentsByID[e.ID] = e

	if rolloutID == "" {
		if _, dup := b.cfg.experimentsByKey[e.Key]; dup {
			b.fail("experiment", e.ID, "key", e.Key, "duplicate key")
		} else {
			b.cfg.experimentsByKey[e.Key] = e
		}
		b.cfg.experiments = append(b.cfg.experiments, e)
	}
	return e
}

func (b *builder) buildGroups(data []GroupData) {
	for _, gd := range data {
		g := &Group{ID: gd.ID, Policy: GroupPolicy(gd.Policy)}
		for _, ad := range gd.TrafficAllocation {
			g.TrafficAllocation = append(g.TrafficAllocation, TrafficAllocation(ad))
		}
		for _, ed := range gd.Experiments {
			e := b.addExperiment(ed, g.ID, "")
			g.ExperimentIDs = append(g.ExperimentIDs, e.ID)
		}
		b.cfg.groups[g.ID] = g
	}
}

func (b *builder) buildRollouts(data []RolloutData) {
	for _, rd := range data {
		r := &Rollout{ID: rd.ID}
		for _, ed := range rd.Experiments {
			r.Rules = append(r.Rules, b.addExperiment(ed, "", r.ID))
		}
		b.cfg.rollouts[r.ID] = r
	}
}

func (b *builder) buildFeatures(data []FeatureFlagData) {
	for _, fd := range data {
		f := &Feature{
			ID:             fd.ID,
			Key:            fd.Key,
			RolloutID:      fd.RolloutID,
			ExperimentIDs:  fd.ExperimentIDs,
			variablesByKey: make(map[string]*Variable, len(fd.Variables)),
		}
		for _, vd := range fd.Variables {
			typ := VariableType(vd.Type)
			if typ == VariableString && vd.SubType == string(VariableJSON) {
				typ = VariableJSON
			}
			v := &Variable{ID: vd.ID, Key: vd.Key, Type: typ, DefaultValue: vd.DefaultValue}
			f.Variables = append(f.Variables, v)
			f.variablesByKey[v.Key] = v
		}

		if _, dup := b.cfg.featuresByKey[f.Key]; dup {
			b.fail("feature", f.ID, "key", f.Key, "duplicate key")
			continue
		}
		b.cfg.features = append(b.cfg.features, f)
		b.cfg.featuresByKey[f.Key] = f

		variations := make(map[string]*Variation)
		attach := func(e *Experiment) {
			b.cfg.experimentFeature[e.ID] = f
			for _, v := range e.Variations {
				variations[v.Key] = v
			}
		}
		for _, id := range f.ExperimentIDs {
			if e, ok := b.cfg.experimentsByID[id]; ok {
				attach(e)
			}
		}
		if r, ok := b.cfg.rollouts[f.RolloutID]; ok {
			for _, rule := range r.Rules {
				attach(rule)
			}
		}
		b.cfg.flagVariations[f.Key] = variations
	}
}

func (b *builder) buildEvents(data []EventData) {
	for _, ed := range data {
		if _, dup := b.cfg.eventsByKey[ed.Key]; dup {
			b.fail("event", ed.ID, "key", ed.Key, "duplicate key")
			continue
		}
		e := &Event{ID: ed.ID, Key: ed.Key, ExperimentIDs: ed.ExperimentIDs}
		b.cfg.events = append(b.cfg.events, e)
		b.cfg.eventsByKey[e.Key] = e
	}
}

func (b *builder) validate() {
	cfg := b.cfg

	for _, a := range cfg.audiences {
		for _, id := range a.Conditions.AudienceIDs() {
			if _, ok := cfg.audiences[id]; !ok {
				b.fail("audience", a.ID, "conditions", id, "unknown audience")
			}
		}
	}

	for _, e := range cfg.experimentsByID {
		b.validateExperiment(e)
	}

	for _, g := range cfg.groups {
		members := make(map[string]bool, len(g.ExperimentIDs))
		for _, id := range g.ExperimentIDs {
			members[id] = true
		}
		b.validateAllocation("group", g.ID, g.TrafficAllocation, func(id string) bool {
			return members[id]
		})
	}

	for _, r := range cfg.rollouts {
		n := len(r.Rules)
		if n == 0 {
			b.fail("rollout", r.ID, "experiments", "", "at least one rule is required")
			continue
		}
		if r.Rules[n-1].Audience != nil {
			b.fail("rollout", r.ID, "experiments", r.Rules[n-1].ID, "last rule must target everyone")
		}
	}

	for _, f := range cfg.features {
		if f.RolloutID != "" {
			if _, ok := cfg.rollouts[f.RolloutID]; !ok {
				b.fail("feature", f.ID, "rolloutId", f.RolloutID, "unknown rollout")
			}
		}
		for _, id := range f.ExperimentIDs {
			if e, ok := cfg.experimentsByID[id]; !ok || e.IsRolloutRule() {
				b.fail("feature", f.ID, "experimentIds", id, "unknown experiment")
			}
		}
	}

	for _, ev := range cfg.events {
		for _, id := range ev.ExperimentIDs {
			if _, ok := cfg.experimentsByID[id]; !ok {
				b.fail("event", ev.ID, "experimentIds", id, "unknown experiment")
			}
		}
	}
}

func (b *builder) validateExperiment(e *Experiment) {
	cfg := b.cfg

	for _, id := range e.AudienceIDs {
		if _, ok := cfg.audiences[id]; !ok {
			b.fail("experiment", e.ID, "audienceIds", id, "unknown audience")
		}
	}
	for _, id := range e.Audience.AudienceIDs() {
		if _, ok := cfg.audiences[id]; !ok {
			b.fail("experiment", e.ID, "audienceConditions", id, "unknown audience")
		}
	}

	b.validateAllocation("experiment", e.ID, e.TrafficAllocation, func(id string) bool {
		_, ok := e.variationsByID[id]
		return ok
	})

	for userID, key := range e.Whitelist {
		if _, ok := e.variationsByKey[key]; !ok {
			b.fail("experiment", e.ID, "forcedVariations", key, fmt.Sprintf("unknown variation for user %q", userID))
		}
	}

	if f, ok := cfg.experimentFeature[e.ID]; ok {
		for _, v := range e.Variations {
			for varID := range v.Variables {
				if !featureHasVariable(f, varID) {
					b.fail("variation", v.ID, "variables", varID, "unknown feature variable")
				}
			}
		}
	}

	if e.Bandit != nil {
		if t := e.Bandit.TrafficAllocation; t < 0 || t > MaxTrafficValue {
			b.fail("experiment", e.ID, "cmab.trafficAllocation", "", fmt.Sprintf("%d is outside [0, %d]", t, MaxTrafficValue))
		}
		for _, id := range e.Bandit.AttributeIDs {
			if _, ok := cfg.attributesByID[id]; !ok {
				b.fail("experiment", e.ID, "cmab.attributeIds", id, "unknown attribute")
			}
		}
	}
}

// validateAllocation checks that ranges are strictly increasing, bounded by
// MaxTrafficValue and reference known entities. An empty entity id is a
// deliberate "no entity" range.
func (b *builder) validateAllocation(entity, id string, ranges []TrafficAllocation, known func(string) bool) {
	prev := 0
	for i, r := range ranges {
		if r.EndOfRange > MaxTrafficValue {
			b.fail(entity, id, "trafficAllocation", r.EntityID, fmt.Sprintf("end of range %d exceeds %d", r.EndOfRange, MaxTrafficValue))
		}
		if i > 0 && r.EndOfRange <= prev {
			b.fail(entity, id, "trafficAllocation", r.EntityID, "ranges must be strictly increasing")
		}
		if r.EntityID != "" && !known(r.EntityID) {
			b.fail(entity, id, "trafficAllocation", r.EntityID, "unknown entity")
		}
		prev = r.EndOfRange
	}
}

func featureHasVariable(f *Feature, id string) bool {
	for _, v := range f.Variables {
		if v.ID == id {
			return true
		}
	}
	return false
}
