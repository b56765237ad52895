package condition

import (
	"math"
	"strings"
)

// CustomAttribute is the only leaf type evaluated against user attributes.
const CustomAttribute = "custom_attribute"

// MatchType selects the comparison a leaf performs.
type MatchType string

const (
	MatchExact     MatchType = "exact"
	MatchExists    MatchType = "exists"
	MatchSubstring MatchType = "substring"
	MatchGT        MatchType = "gt"
	MatchGE        MatchType = "ge"
	MatchLT        MatchType = "lt"
	MatchLE        MatchType = "le"
	MatchSemverEQ  MatchType = "semver_eq"
	MatchSemverLT  MatchType = "semver_lt"
	MatchSemverLE  MatchType = "semver_le"
	MatchSemverGT  MatchType = "semver_gt"
	MatchSemverGE  MatchType = "semver_ge"
)

// maxSafeNumber bounds numbers that compare exactly across implementations.
const maxSafeNumber = 1 << 53

// Match is an attribute comparison leaf.
type Match struct {
	Name  string    `json:"name"`
	Type  string    `json:"type"`
	Kind  MatchType `json:"match,omitempty"`
	Value any       `json:"value"`
}

// Evaluate compares the named attribute against the expected value.
// Absent attributes and type mismatches yield Unknown, except for the
// existence check which is always definite.
func (m *Match) Evaluate(attrs Attributes) Ternary {
	if m == nil || m.Type != CustomAttribute {
		return Unknown
	}

	actual, present := attrs[m.Name]

	kind := m.Kind
	if kind == "" {
		kind = MatchExact
	}

	if kind == MatchExists {
		return FromBool(present && actual != nil)
	}
	if !present || actual == nil {
		return Unknown
	}

	switch kind {
	case MatchExact:
		return exactMatch(m.Value, actual)
	case MatchSubstring:
		want, ok := m.Value.(string)
		if !ok {
			return Unknown
		}
		got, ok := actual.(string)
		if !ok {
			return Unknown
		}
		return FromBool(strings.Contains(got, want))
	case MatchGT, MatchGE, MatchLT, MatchLE:
		return numericMatch(kind, m.Value, actual)
	case MatchSemverEQ, MatchSemverLT, MatchSemverLE, MatchSemverGT, MatchSemverGE:
		return semverMatch(kind, m.Value, actual)
	default:
		return Unknown
	}
}

func exactMatch(expected, actual any) Ternary {
	switch want := expected.(type) {
	case string:
		got, ok := actual.(string)
		if !ok {
			return Unknown
		}
		return FromBool(got == want)
	case bool:
		got, ok := actual.(bool)
		if !ok {
			return Unknown
		}
		return FromBool(got == want)
	default:
		w, ok := safeNumber(expected)
		if !ok {
			return Unknown
		}
		g, ok := safeNumber(actual)
		if !ok {
			return Unknown
		}
		return FromBool(g == w)
	}
}

func numericMatch(kind MatchType, expected, actual any) Ternary {
	want, ok := safeNumber(expected)
	if !ok {
		return Unknown
	}
	got, ok := safeNumber(actual)
	if !ok {
		return Unknown
	}

	switch kind {
	case MatchGT:
		return FromBool(got > want)
	case MatchGE:
		return FromBool(got >= want)
	case MatchLT:
		return FromBool(got < want)
	case MatchLE:
		return FromBool(got <= want)
	default:
		return Unknown
	}
}

func semverMatch(kind MatchType, expected, actual any) Ternary {
	want, ok := expected.(string)
	if !ok {
		return Unknown
	}
	got, ok := actual.(string)
	if !ok {
		return Unknown
	}

	cmp, err := CompareVersions(got, want)
	if err != nil {
		return Unknown
	}

	switch kind {
	case MatchSemverEQ:
		return FromBool(cmp == 0)
	case MatchSemverLT:
		return FromBool(cmp < 0)
	case MatchSemverLE:
		return FromBool(cmp <= 0)
	case MatchSemverGT:
		return FromBool(cmp > 0)
	case MatchSemverGE:
		return FromBool(cmp >= 0)
	default:
		return Unknown
	}
}

// safeNumber converts any Go numeric value to float64, rejecting non-finite
// values and magnitudes beyond 2^53.
func safeNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > maxSafeNumber {
		return 0, false
	}
	return f, true
}
