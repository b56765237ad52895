// Package condition evaluates audience condition trees with three-valued logic.
//
// Leaves compare a single user attribute against an expected value and
// return Unknown when the attribute is absent or has an incompatible type.
// Operators combine children so that Unknown never turns into True:
//
//	tree := condition.AllOf(
//		condition.Attr("age", condition.MatchGE, 18),
//		condition.Attr("country", condition.MatchExact, "US"),
//	)
//	tree.Evaluate(map[string]any{"country": "US"}, nil) // Unknown
//
// An audience qualifies only when the tree evaluates to exactly True.
//
// Trees decode from the nested-list form used by datafiles:
//
//	["and", {"name": "age", "type": "custom_attribute", "match": "ge", "value": 18}, ...]
//
// Experiment audience conditions use the same form with audience ids as
// leaves; those are resolved through an AudienceResolver at evaluation time.
//
// Evaluation is pure and safe for concurrent use.
package condition
