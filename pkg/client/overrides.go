package client

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/flagkit/pkg/decision"
)

// SetForcedVariation forces a user into a variation of an experiment for
// the lifetime of the client. An empty variationKey removes the override.
// It reports false when the experiment or variation is unknown.
func (c *Client) SetForcedVariation(experimentKey, userID, variationKey string) bool {
	exp, ok := c.config.Load().ExperimentByKey(experimentKey)
	if !ok {
		c.errs.HandleError(context.Background(), fmt.Errorf("%w: %q", decision.ErrExperimentNotFound, experimentKey))
		return false
	}
	if variationKey == "" {
		c.overrides.RemoveForcedVariation(userID, exp.ID)
		return true
	}
	v, ok := exp.VariationByKey(variationKey)
	if !ok {
		c.errs.HandleError(context.Background(), fmt.Errorf("%w: %q in experiment %q", decision.ErrVariationNotFound, variationKey, experimentKey))
		return false
	}
	c.overrides.SetForcedVariation(userID, exp.ID, v.ID)
	return true
}

// ForcedVariation returns the key of the forced variation, or "".
func (c *Client) ForcedVariation(experimentKey, userID string) string {
	exp, ok := c.config.Load().ExperimentByKey(experimentKey)
	if !ok {
		return ""
	}
	id, ok := c.overrides.ForcedVariation(userID, exp.ID)
	if !ok {
		return ""
	}
	v, ok := exp.VariationByID(id)
	if !ok {
		return ""
	}
	return v.Key
}

// SetForcedDecision forces a flag, or one rule of it, to a variation key.
// The key is resolved on every decision, so it may name a variation that
// only a later revision declares.
func (c *Client) SetForcedDecision(userID string, fc decision.FlagContext, variationKey string) {
	c.overrides.SetForcedDecision(userID, fc, variationKey)
}

// ForcedDecision returns the variation key forced for fc, if any.
func (c *Client) ForcedDecision(userID string, fc decision.FlagContext) (string, bool) {
	return c.overrides.ForcedDecision(userID, fc)
}

// RemoveForcedDecision clears one forced decision and reports whether it existed.
func (c *Client) RemoveForcedDecision(userID string, fc decision.FlagContext) bool {
	return c.overrides.RemoveForcedDecision(userID, fc)
}

// RemoveAllForcedDecisions clears every forced decision of userID.
func (c *Client) RemoveAllForcedDecisions(userID string) {
	c.overrides.RemoveAllForcedDecisions(userID)
}
