package decision

import "sync"

// FlagContext addresses a forced decision: a whole flag when RuleKey is
// empty, otherwise one experiment or rollout rule of the flag.
type FlagContext struct {
	FlagKey string
	RuleKey string
}

type experimentOverride struct {
	userID       string
	experimentID string
}

type flagOverride struct {
	userID string
	ctx    FlagContext
}

// Overrides holds process-lifetime forced variations and forced decisions.
// Nothing is persisted. The zero value is not usable; use NewOverrides.
type Overrides struct {
	mu         sync.RWMutex
	variations map[experimentOverride]string
	decisions  map[flagOverride]string
}

// NewOverrides returns an empty override store.
func NewOverrides() *Overrides {
	return &Overrides{
		variations: make(map[experimentOverride]string),
		decisions:  make(map[flagOverride]string),
	}
}

// SetForcedVariation forces a user into a variation id of an experiment.
func (o *Overrides) SetForcedVariation(userID, experimentID, variationID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.variations[experimentOverride{userID, experimentID}] = variationID
}

// ForcedVariation returns the variation id forced for the user in an experiment.
func (o *Overrides) ForcedVariation(userID, experimentID string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.variations[experimentOverride{userID, experimentID}]
	return v, ok
}

// RemoveForcedVariation clears a forced variation.
func (o *Overrides) RemoveForcedVariation(userID, experimentID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.variations, experimentOverride{userID, experimentID})
}

// SetForcedDecision forces a variation key for a flag or one of its rules.
func (o *Overrides) SetForcedDecision(userID string, ctx FlagContext, variationKey string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decisions[flagOverride{userID, ctx}] = variationKey
}

// ForcedDecision returns the variation key forced for a flag or rule.
func (o *Overrides) ForcedDecision(userID string, ctx FlagContext) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.decisions[flagOverride{userID, ctx}]
	return v, ok
}

// RemoveForcedDecision reports whether an entry was removed.
func (o *Overrides) RemoveForcedDecision(userID string, ctx FlagContext) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := flagOverride{userID, ctx}
	_, ok := o.decisions[key]
	delete(o.decisions, key)
	return ok
}

// RemoveAllForcedDecisions drops every forced decision of a user.
func (o *Overrides) RemoveAllForcedDecisions(userID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for key := range o.decisions {
		if key.userID == userID {
			delete(o.decisions, key)
		}
	}
}
