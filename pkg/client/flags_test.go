package client_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/client"
	"github.com/dmitrymomot/flagkit/pkg/decision"
	"github.com/dmitrymomot/flagkit/pkg/project/projecttest"
)

var usOnly = map[string]any{"country": "US"}

func TestDecide(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("experiment rule records a feature test impression", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		d := f.client.Decide(ctx, projecttest.SearchFlag, projecttest.User2, map[string]any{"plan": "pro"}, client.DecideOptions{})
		assert.True(t, d.Enabled)
		assert.Equal(t, "search_on", d.VariationKey())
		assert.Equal(t, 20, d.Variables["max_results"])

		events := f.events.received()
		require.Len(t, events, 1)
		meta := events[0].Payload.Visitors[0].Snapshots[0].Decisions[0].Metadata
		assert.Equal(t, projecttest.SearchFlag, meta.FlagKey)
		assert.Equal(t, projecttest.SearchTest, meta.RuleKey)
		assert.Equal(t, decision.RuleTypeFeatureTest, meta.RuleType)
		assert.True(t, meta.Enabled)

		assert.Equal(t, map[string]string{"1201": "2201"}, f.profiles.Profile(projecttest.User2))
		assert.Equal(t, 1.0, f.counter(t, "flagkit_decisions_total", map[string]string{"kind": "flag", "source": string(decision.SourceFresh)}))
	})

	t.Run("rollout decision is sent and not saved", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		d := f.client.Decide(ctx, projecttest.SearchFlag, projecttest.User1, usOnly, client.DecideOptions{})
		assert.True(t, d.Enabled)
		assert.Equal(t, "rollout_on", d.VariationKey())
		assert.Equal(t, decision.SourceRollout, d.Source)

		events := f.events.received()
		require.Len(t, events, 1)
		assert.Equal(t, decision.RuleTypeRollout, events[0].Payload.Visitors[0].Snapshots[0].Decisions[0].Metadata.RuleType)
		assert.Equal(t, 0, f.profiles.Len())
	})

	t.Run("decision event can be disabled", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		f.client.Decide(ctx, projecttest.SearchFlag, projecttest.User2, map[string]any{"plan": "pro"}, client.DecideOptions{DisableDecisionEvent: true})
		assert.Empty(t, f.events.received())
	})

	t.Run("unknown flag is disabled and reported", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		d := f.client.Decide(ctx, "nope", projecttest.User1, nil, client.DecideOptions{
			DecideOptions: decision.DecideOptions{IncludeReasons: true},
		})
		assert.False(t, d.Enabled)
		assert.Equal(t, "nope", d.FlagKey)
		require.Len(t, d.Reasons, 1)
		assert.Contains(t, d.Reasons[0], "not found")
		assert.True(t, f.errs.has(decision.ErrFlagNotFound))
		assert.Empty(t, f.events.received())
	})

	t.Run("forced decision", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		fc := decision.FlagContext{FlagKey: projecttest.SearchFlag}

		f.client.SetForcedDecision(projecttest.Alice, fc, "search_on")
		key, ok := f.client.ForcedDecision(projecttest.Alice, fc)
		require.True(t, ok)
		assert.Equal(t, "search_on", key)

		d := f.client.Decide(ctx, projecttest.SearchFlag, projecttest.Alice, nil, client.DecideOptions{DisableDecisionEvent: true})
		assert.Equal(t, "search_on", d.VariationKey())
		assert.Equal(t, decision.SourceForced, d.Source)

		assert.True(t, f.client.RemoveForcedDecision(projecttest.Alice, fc))
		d = f.client.Decide(ctx, projecttest.SearchFlag, projecttest.Alice, nil, client.DecideOptions{DisableDecisionEvent: true})
		assert.Equal(t, "rollout_off", d.VariationKey())

		f.client.SetForcedDecision(projecttest.Alice, fc, "search_on")
		f.client.RemoveAllForcedDecisions(projecttest.Alice)
		_, ok = f.client.ForcedDecision(projecttest.Alice, fc)
		assert.False(t, ok)
	})
}

func TestDecideAll(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	all := f.client.DecideAll(ctx, projecttest.User1, usOnly, client.DecideOptions{DisableDecisionEvent: true})
	assert.Len(t, all, 2)
	assert.Contains(t, all, projecttest.BanditFlag)
	assert.True(t, all[projecttest.SearchFlag].Enabled)

	enabled := f.client.DecideAll(ctx, projecttest.Alice, map[string]any{"country": "DE"}, client.DecideOptions{
		DisableDecisionEvent: true,
		EnabledFlagsOnly:     true,
	})
	assert.NotContains(t, enabled, projecttest.SearchFlag)
	for _, d := range enabled {
		assert.True(t, d.Enabled)
	}
}

func TestIsFeatureEnabled(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	assert.True(t, f.client.IsFeatureEnabled(ctx, projecttest.SearchFlag, projecttest.User1, usOnly))
	assert.False(t, f.client.IsFeatureEnabled(ctx, projecttest.SearchFlag, projecttest.Alice, map[string]any{"country": "DE"}))
	assert.False(t, f.client.IsFeatureEnabled(ctx, "nope", projecttest.Alice, nil))
}

func TestGetFeatureVariable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("typed value from the rollout variation", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		assert.Equal(t, 50, f.client.GetFeatureVariable(ctx, projecttest.SearchFlag, "max_results", projecttest.User1, usOnly))
		n, ok := client.Variable[int](ctx, f.client, projecttest.SearchFlag, "max_results", projecttest.User1, usOnly)
		require.True(t, ok)
		assert.Equal(t, 50, n)
		assert.Empty(t, f.events.received())
	})

	t.Run("disabled variation uses defaults", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		title, ok := client.Variable[string](ctx, f.client, projecttest.SearchFlag, "title", projecttest.Alice, nil)
		require.True(t, ok)
		assert.Equal(t, "Search", title)
		assert.Equal(t, 10, f.client.GetFeatureVariable(ctx, projecttest.SearchFlag, "max_results", projecttest.Alice, nil))
	})

	t.Run("type mismatch is reported", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, ok := client.Variable[string](ctx, f.client, projecttest.SearchFlag, "max_results", projecttest.User1, usOnly)
		assert.False(t, ok)
		assert.True(t, f.errs.has(decision.ErrVariableTypeMismatch))
	})

	t.Run("unknown flag or variable", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		assert.Nil(t, f.client.GetFeatureVariable(ctx, "nope", "max_results", projecttest.User1, nil))
		assert.True(t, f.errs.has(decision.ErrFlagNotFound))
		assert.Nil(t, f.client.GetFeatureVariable(ctx, projecttest.SearchFlag, "nope", projecttest.User1, nil))
		assert.True(t, f.errs.has(decision.ErrVariableNotFound))
	})

	t.Run("all variables", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		vars := f.client.GetAllFeatureVariables(ctx, projecttest.SearchFlag, projecttest.User2, map[string]any{"plan": "pro"})
		assert.Equal(t, map[string]any{"max_results": 20, "title": "Search", "config": map[string]any{"k": 1.0}}, vars)
		assert.Nil(t, f.client.GetAllFeatureVariables(ctx, "nope", projecttest.User2, nil))
	})
}

func TestForcedVariation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	require.True(t, f.client.SetForcedVariation(projecttest.CheckoutFlow, projecttest.Alice, "treatment"))
	assert.Equal(t, "treatment", f.client.ForcedVariation(projecttest.CheckoutFlow, projecttest.Alice))
	assert.Equal(t, "treatment", f.client.GetVariation(ctx, projecttest.CheckoutFlow, projecttest.Alice, usAdult))

	require.True(t, f.client.SetForcedVariation(projecttest.CheckoutFlow, projecttest.Alice, ""))
	assert.Empty(t, f.client.ForcedVariation(projecttest.CheckoutFlow, projecttest.Alice))
	assert.Equal(t, "control", f.client.GetVariation(ctx, projecttest.CheckoutFlow, projecttest.Alice, usAdult))

	assert.False(t, f.client.SetForcedVariation(projecttest.CheckoutFlow, projecttest.Alice, "nope"))
	assert.True(t, f.errs.has(decision.ErrVariationNotFound))
	assert.False(t, f.client.SetForcedVariation("nope", projecttest.Alice, "treatment"))
	assert.True(t, f.errs.has(decision.ErrExperimentNotFound))
}
