// Package projecttest provides a shared configuration revision for tests.
//
// The revision declares a realistic mix of entities: an audience-targeted
// A/B test with a whitelist, a paused and a zero-traffic experiment, a
// mutually exclusive group, a feature flag backed by an experiment and a
// two-rule rollout, and a bandit-enabled flag.
package projecttest

import (
	_ "embed"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/project"
)

//go:embed datafile.json
var Datafile []byte

// Entity keys and ids declared by Datafile.
const (
	Revision = "42"

	CheckoutFlow       = "checkout_flow"
	CheckoutFlowID     = "1001"
	CheckoutLayerID    = "9001"
	PausedExperiment   = "paused_test"
	PartialTraffic     = "partial_traffic"
	GroupA             = "group_a"
	GroupB             = "group_b"
	GroupID            = "3001"
	SearchTest         = "search_test"
	BanditRule         = "bandit_rule"
	BanditRuleID       = "1301"
	SearchFlag         = "new_search"
	BanditFlag         = "bandit_flag"
	RolloutUSRule      = "us_rule"
	RolloutEveryone    = "everyone_else"
	PurchaseEvent      = "purchase"
	SignupEvent        = "signup"
	WhitelistedUser    = "whitelisted_user"
	WhitelistedVariant = "treatment"
)

// Users with known bucket values. The comments list the bucket of
// user id + entity id for the entities the tests rely on.
const (
	// checkout_flow 7090, group 5612, search_test 8221, us_rule 160
	User1 = "user_1"
	// checkout_flow 976, group 3376, search_test 1847, us_rule 9520
	User2 = "user_2"
	// checkout_flow 3483, group 1821, search_test 9081, us_rule 4537
	Alice = "alice"
	// checkout_flow 8284, group 8023, search_test 4074, us_rule 1653
	Bob = "bob"
)

// Config parses Datafile and fails the test on error.
func Config(tb testing.TB) *project.Config {
	tb.Helper()
	cfg, err := project.Parse(Datafile)
	require.NoError(tb, err)
	return cfg
}

// Decode returns a fresh decoded copy of Datafile for tests that mutate it
// before building.
func Decode(tb testing.TB) *project.Datafile {
	tb.Helper()
	df, err := project.Decode(Datafile)
	require.NoError(tb, err)
	return df
}
