package event

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/cockroachdb/apd/v3"
)

// Reserved tag keys promoted to top-level metrics.
const (
	TagRevenue = "revenue"
	TagValue   = "value"
)

// Revenue extracts the integral revenue tag. Numeric strings are accepted.
func Revenue(tags map[string]any) (int64, error) {
	raw, ok := tags[TagRevenue]
	if !ok {
		return 0, fmt.Errorf("%w: %s missing", ErrInvalidTag, TagRevenue)
	}
	d, err := toDecimal(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidTag, TagRevenue, err)
	}
	n, err := d.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidTag, TagRevenue, err)
	}
	return n, nil
}

// Value extracts the finite numeric value tag. Numeric strings are
// accepted.
func Value(tags map[string]any) (float64, error) {
	raw, ok := tags[TagValue]
	if !ok {
		return 0, fmt.Errorf("%w: %s missing", ErrInvalidTag, TagValue)
	}
	d, err := toDecimal(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidTag, TagValue, err)
	}
	f, err := d.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: %s %s is out of range", ErrInvalidTag, TagValue, d.String())
	}
	return f, nil
}

func toDecimal(v any) (*apd.Decimal, error) {
	d := new(apd.Decimal)
	switch n := v.(type) {
	case int:
		d.SetInt64(int64(n))
	case int8:
		d.SetInt64(int64(n))
	case int16:
		d.SetInt64(int64(n))
	case int32:
		d.SetInt64(int64(n))
	case int64:
		d.SetInt64(n)
	case uint8:
		d.SetInt64(int64(n))
	case uint16:
		d.SetInt64(int64(n))
	case uint32:
		d.SetInt64(int64(n))
	case uint:
		if _, _, err := d.SetString(fmt.Sprint(n)); err != nil {
			return nil, err
		}
	case uint64:
		if _, _, err := d.SetString(fmt.Sprint(n)); err != nil {
			return nil, err
		}
	case float32:
		if _, err := d.SetFloat64(float64(n)); err != nil {
			return nil, err
		}
	case float64:
		if _, err := d.SetFloat64(n); err != nil {
			return nil, err
		}
	case json.Number:
		if _, _, err := d.SetString(n.String()); err != nil {
			return nil, err
		}
	case string:
		if _, _, err := d.SetString(n); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
	if d.Form != apd.Finite {
		return nil, fmt.Errorf("%s is not finite", d.String())
	}
	return d, nil
}

// encodableTags copies tags, leaving out entries that cannot be encoded as
// JSON. Non-finite floats are the usual offenders. The keys left out are
// returned sorted.
func encodableTags(tags map[string]any) (map[string]any, []string) {
	out := make(map[string]any, len(tags))
	var dropped []string
	for k, v := range tags {
		if !encodable(v) {
			dropped = append(dropped, k)
			continue
		}
		out[k] = v
	}
	slices.Sort(dropped)
	return out, dropped
}

func encodable(v any) bool {
	switch n := v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return !math.IsNaN(float64(n)) && !math.IsInf(float64(n), 0)
	case float64:
		return !math.IsNaN(n) && !math.IsInf(n, 0)
	}
	_, err := json.Marshal(v)
	return err == nil
}
