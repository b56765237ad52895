package condition_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/condition"
)

type audienceMap map[string]*condition.Node

func (m audienceMap) AudienceCondition(id string) (*condition.Node, bool) {
	n, ok := m[id]
	return n, ok
}

func TestTernaryOperators(t *testing.T) {
	t.Parallel()

	val := func(v condition.Ternary) func() condition.Ternary {
		return func() condition.Ternary { return v }
	}

	assert.Equal(t, condition.False, condition.True.Not())
	assert.Equal(t, condition.True, condition.False.Not())
	assert.Equal(t, condition.Unknown, condition.Unknown.Not())

	assert.Equal(t, condition.False, condition.And(val(condition.Unknown), val(condition.False)))
	assert.Equal(t, condition.Unknown, condition.And(val(condition.True), val(condition.Unknown)))
	assert.Equal(t, condition.True, condition.And(val(condition.True), val(condition.True)))

	assert.Equal(t, condition.True, condition.Or(val(condition.Unknown), val(condition.True)))
	assert.Equal(t, condition.Unknown, condition.Or(val(condition.False), val(condition.Unknown)))
	assert.Equal(t, condition.False, condition.Or(val(condition.False), val(condition.False)))

	assert.True(t, condition.True.Passes())
	assert.False(t, condition.Unknown.Passes())
	assert.False(t, condition.False.Passes())
}

func TestAndShortCircuits(t *testing.T) {
	t.Parallel()

	called := false
	res := condition.And(
		func() condition.Ternary { return condition.False },
		func() condition.Ternary { called = true; return condition.True },
	)
	assert.Equal(t, condition.False, res)
	assert.False(t, called)

	called = false
	res = condition.Or(
		func() condition.Ternary { return condition.True },
		func() condition.Ternary { called = true; return condition.False },
	)
	assert.Equal(t, condition.True, res)
	assert.False(t, called)
}

func TestMissingAttributeIsUnknown(t *testing.T) {
	t.Parallel()

	age := condition.Attr("age", condition.MatchGE, 18)
	country := condition.Attr("country", condition.MatchExact, "US")
	tree := condition.AllOf(age, country)
	attrs := map[string]any{"country": "US"}

	assert.Equal(t, condition.Unknown, age.Evaluate(attrs, nil))
	assert.Equal(t, condition.True, country.Evaluate(attrs, nil))
	assert.Equal(t, condition.Unknown, tree.Evaluate(attrs, nil))
	assert.False(t, tree.Evaluate(attrs, nil).Passes())

	assert.Equal(t, condition.Unknown, condition.Negate(age).Evaluate(attrs, nil))
}

func TestMatchTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		node  *condition.Node
		attrs map[string]any
		want  condition.Ternary
	}{
		{"exact string", condition.Attr("c", condition.MatchExact, "US"), map[string]any{"c": "US"}, condition.True},
		{"exact string mismatch", condition.Attr("c", condition.MatchExact, "US"), map[string]any{"c": "CA"}, condition.False},
		{"exact type mismatch", condition.Attr("c", condition.MatchExact, "US"), map[string]any{"c": 1}, condition.Unknown},
		{"exact bool", condition.Attr("b", condition.MatchExact, true), map[string]any{"b": true}, condition.True},
		{"exact number across kinds", condition.Attr("n", condition.MatchExact, float64(3)), map[string]any{"n": int64(3)}, condition.True},
		{"legacy exact", condition.Attr("c", "", "US"), map[string]any{"c": "US"}, condition.True},
		{"exists present", condition.Attr("c", condition.MatchExists, nil), map[string]any{"c": false}, condition.True},
		{"exists absent", condition.Attr("c", condition.MatchExists, nil), map[string]any{}, condition.False},
		{"exists nil value", condition.Attr("c", condition.MatchExists, nil), map[string]any{"c": nil}, condition.False},
		{"null attribute", condition.Attr("c", condition.MatchExact, "US"), map[string]any{"c": nil}, condition.Unknown},
		{"substring", condition.Attr("u", condition.MatchSubstring, "chrome"), map[string]any{"u": "mobile chrome"}, condition.True},
		{"substring miss", condition.Attr("u", condition.MatchSubstring, "safari"), map[string]any{"u": "chrome"}, condition.False},
		{"gt", condition.Attr("n", condition.MatchGT, 10), map[string]any{"n": 11}, condition.True},
		{"ge equal", condition.Attr("n", condition.MatchGE, 10), map[string]any{"n": 10.0}, condition.True},
		{"lt", condition.Attr("n", condition.MatchLT, 10), map[string]any{"n": 11}, condition.False},
		{"le", condition.Attr("n", condition.MatchLE, 10), map[string]any{"n": float32(9.5)}, condition.True},
		{"number vs string", condition.Attr("n", condition.MatchGT, 10), map[string]any{"n": "11"}, condition.Unknown},
		{"infinite", condition.Attr("n", condition.MatchGT, 10), map[string]any{"n": math.Inf(1)}, condition.Unknown},
		{"unsafe magnitude", condition.Attr("n", condition.MatchGT, 10), map[string]any{"n": math.Pow(2, 54)}, condition.Unknown},
		{"semver eq prefix", condition.Attr("v", condition.MatchSemverEQ, "2.1"), map[string]any{"v": "2.1.3"}, condition.True},
		{"semver lt", condition.Attr("v", condition.MatchSemverLT, "2.1.0"), map[string]any{"v": "2.0.9"}, condition.True},
		{"semver gt prerelease", condition.Attr("v", condition.MatchSemverGT, "2.1.0-beta"), map[string]any{"v": "2.1.0"}, condition.True},
		{"semver invalid", condition.Attr("v", condition.MatchSemverEQ, "2.1"), map[string]any{"v": "2..1"}, condition.Unknown},
		{"unknown match", condition.Attr("v", "regex", ".*"), map[string]any{"v": "x"}, condition.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.node.Evaluate(tt.attrs, nil))
		})
	}
}

func TestUnknownLeafType(t *testing.T) {
	t.Parallel()

	n := &condition.Node{Op: condition.OpMatch, Match: &condition.Match{
		Name: "c", Type: "third_party", Kind: condition.MatchExact, Value: "US",
	}}
	assert.Equal(t, condition.Unknown, n.Evaluate(map[string]any{"c": "US"}, nil))
}

func TestParseConditions(t *testing.T) {
	t.Parallel()

	t.Run("JSONString", func(t *testing.T) {
		t.Parallel()
		tree, err := condition.ParseConditions(`["and", ["or", {"name": "age", "type": "custom_attribute", "match": "ge", "value": 18}], ["not", {"name": "banned", "type": "custom_attribute", "match": "exists"}]]`)
		require.NoError(t, err)
		require.Equal(t, condition.OpAnd, tree.Op)
		require.Len(t, tree.Children, 2)

		assert.Equal(t, condition.True, tree.Evaluate(map[string]any{"age": 21}, nil))
		assert.Equal(t, condition.False, tree.Evaluate(map[string]any{"age": 21, "banned": true}, nil))
		assert.Equal(t, condition.Unknown, tree.Evaluate(map[string]any{}, nil))
	})

	t.Run("ImplicitOr", func(t *testing.T) {
		t.Parallel()
		tree, err := condition.ParseConditions([]any{
			map[string]any{"name": "a", "type": "custom_attribute", "value": "x"},
			map[string]any{"name": "b", "type": "custom_attribute", "value": "y"},
		})
		require.NoError(t, err)
		assert.Equal(t, condition.OpOr, tree.Op)
		assert.Equal(t, condition.True, tree.Evaluate(map[string]any{"b": "y"}, nil))
	})

	t.Run("Invalid", func(t *testing.T) {
		t.Parallel()
		_, err := condition.ParseConditions(`["and", 5]`)
		require.ErrorIs(t, err, condition.ErrInvalidCondition)

		_, err = condition.ParseConditions(`not json`)
		require.ErrorIs(t, err, condition.ErrInvalidCondition)

		_, err = condition.ParseConditions([]any{"not"})
		require.ErrorIs(t, err, condition.ErrInvalidCondition)
	})
}

func TestParseAudienceConditions(t *testing.T) {
	t.Parallel()

	audiences := audienceMap{
		"1": condition.Attr("country", condition.MatchExact, "US"),
		"2": condition.Attr("age", condition.MatchGE, 18),
	}

	tree, err := condition.ParseAudienceConditions([]any{"and", "1", []any{"or", "2"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, tree.AudienceIDs())

	assert.Equal(t, condition.True, tree.Evaluate(map[string]any{"country": "US", "age": 30}, audiences))
	assert.Equal(t, condition.Unknown, tree.Evaluate(map[string]any{"country": "US"}, audiences))
	assert.Equal(t, condition.False, tree.Evaluate(map[string]any{"country": "CA"}, audiences))

	empty, err := condition.ParseAudienceConditions([]any{})
	require.NoError(t, err)
	assert.Nil(t, empty)
	assert.Equal(t, condition.True, empty.Evaluate(nil, audiences))

	missing := condition.Audience("404")
	assert.Equal(t, condition.Unknown, missing.Evaluate(nil, audiences))
}

func TestCompareVersions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		user, target string
		want         int
	}{
		{"1.2.3", "1.2.3", 0},
		{"1.2.3", "1.2", 0},
		{"1.2", "1.2.3", -1},
		{"1.10.0", "1.9.0", 1},
		{"1.2.3-beta", "1.2.3", -1},
		{"1.2.3", "1.2.3-beta", 1},
		{"1.2.3-alpha", "1.2.3-beta", -1},
		{"1.2.3-beta.2", "1.2.3-beta.10", -1},
		{"1.2.3+build.5", "1.2.3", 0},
	}
	for _, tt := range tests {
		got, err := condition.CompareVersions(tt.user, tt.target)
		require.NoError(t, err, tt.user)
		assert.Equal(t, tt.want, got, "%s vs %s", tt.user, tt.target)
	}

	for _, bad := range []string{"", "1.2.3.4", "a.b", "1. 2", "1.2-"} {
		_, err := condition.CompareVersions(bad, "1.0")
		require.ErrorIs(t, err, condition.ErrInvalidVersion, bad)
	}
}
