package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dmitrymomot/flagkit/pkg/project"
)

// VariableValue returns the typed value of a variable for a variation.
// Overrides apply only when the variation enables the feature; otherwise,
// or for a nil variation, the default value is used.
//
// Values are bool, int, float64, string, or the decoded JSON value.
func VariableValue(variable *project.Variable, variation *project.Variation) (any, error) {
	raw := variable.DefaultValue
	if variation != nil && variation.FeatureEnabled {
		if v, ok := variation.Variables[variable.ID]; ok {
			raw = v
		}
	}
	v, err := ParseVariable(variable.Type, raw)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", variable.Key, err)
	}
	return v, nil
}

// ParseVariable converts a serialized variable value to its declared type.
func ParseVariable(typ project.VariableType, raw string) (any, error) {
	switch typ {
	case project.VariableString:
		return raw, nil
	case project.VariableBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a boolean", ErrInvalidVariableValue, raw)
		}
		return b, nil
	case project.VariableInteger:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidVariableValue, raw)
		}
		return n, nil
	case project.VariableDouble:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a double", ErrInvalidVariableValue, raw)
		}
		return f, nil
	case project.VariableJSON:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("%w: %q is not valid json", ErrInvalidVariableValue, raw)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrVariableTypeMismatch, typ)
	}
}

// variables resolves every variable of a flag. Malformed values are
// reported and left out.
func (s *Service) variables(ctx context.Context, f *project.Feature, variation *project.Variation) map[string]any {
	out := make(map[string]any, len(f.Variables))
	for _, variable := range f.Variables {
		v, err := VariableValue(variable, variation)
		if err != nil {
			s.errs.HandleError(ctx, fmt.Errorf("flag %q: %w", f.Key, err))
			continue
		}
		out[variable.Key] = v
	}
	return out
}
