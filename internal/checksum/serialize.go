// Package checksum implements content addressing for terminology resources:
// a canonical, order-independent serialization, MD5 digests over it, the
// field-cleanup policy deciding what participates in a digest, and a
// toggle-gated calculator managing per-resource checksum documents.
package checksum

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ErrUnsupportedType is returned when a value cannot be canonically
// serialized. Callers should match it with errors.Is.
var ErrUnsupportedType = errors.New("unsupported type for checksum serialization")

// Serialize produces the canonical textual form of v used as hash input.
// The encoding is order-independent: mappings are emitted in sorted key
// order and sequences are sorted with a generic total order, so two values
// with the same content serialize identically regardless of construction
// order. A single-element sequence serializes as its element.
func Serialize(v any) (string, error) {
	switch x := v.(type) {
	case []any:
		if len(x) == 1 {
			return Serialize(x[0])
		}
		sorted := make([]any, len(x))
		copy(sorted, x)
		if err := sortValues(sorted); err != nil {
			return "", err
		}
		parts := make([]string, len(sorted))
		for i, item := range sorted {
			s, err := Serialize(item)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[" + strings.Join(parts, ",") + "]", nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString("{")
		b.WriteString(encodeKeyList(keys))
		for _, k := range keys {
			s, err := Serialize(x[k])
			if err != nil {
				return "", err
			}
			b.WriteString(s)
			b.WriteString(",")
		}
		b.WriteString("}")
		return b.String(), nil
	case uuid.UUID:
		return encodeScalar(x.String())
	default:
		return encodeScalar(v)
	}
}

// encodeKeyList emits the sorted key list header of a mapping as a JSON
// array literal.
func encodeKeyList(keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		b, _ := json.Marshal(k)
		parts[i] = string(b)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func encodeScalar(v any) (string, error) {
	switch v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
	return string(b), nil
}

// Type ranks for the generic total order over mixed values. Checksum
// determinism depends on this order never changing between runs.
const (
	rankNil = iota
	rankBool
	rankNumber
	rankString
	rankSequence
	rankMapping
)

func typeRank(v any) (int, error) {
	switch v.(type) {
	case nil:
		return rankNil, nil
	case bool:
		return rankBool, nil
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return rankNumber, nil
	case string, uuid.UUID:
		return rankString, nil
	case []any:
		return rankSequence, nil
	case map[string]any:
		return rankMapping, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

// compareValues defines a total order over mixed values: by type rank first
// (nil < bool < number < string < sequence < mapping), then within a type by
// value. Sequences compare element-wise, then by length; mappings compare by
// their canonical serialization.
func compareValues(a, b any) (int, error) {
	ra, err := typeRank(a)
	if err != nil {
		return 0, err
	}
	rb, err := typeRank(b)
	if err != nil {
		return 0, err
	}
	if ra != rb {
		return ra - rb, nil
	}
	switch ra {
	case rankNil:
		return 0, nil
	case rankBool:
		av, bv := a.(bool), b.(bool)
		switch {
		case av == bv:
			return 0, nil
		case !av:
			return -1, nil
		default:
			return 1, nil
		}
	case rankNumber:
		av, bv := toFloat(a), toFloat(b)
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		default:
			return 0, nil
		}
	case rankString:
		return strings.Compare(toString(a), toString(b)), nil
	case rankSequence:
		av, bv := a.([]any), b.([]any)
		n := len(av)
		if len(bv) < n {
			n = len(bv)
		}
		for i := 0; i < n; i++ {
			c, err := compareValues(av[i], bv[i])
			if err != nil || c != 0 {
				return c, err
			}
		}
		return len(av) - len(bv), nil
	default: // rankMapping
		as, err := Serialize(a)
		if err != nil {
			return 0, err
		}
		bs, err := Serialize(b)
		if err != nil {
			return 0, err
		}
		return strings.Compare(as, bs), nil
	}
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	case json.Number:
		f, _ := x.Float64()
		return f
	}
	return 0
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case uuid.UUID:
		return x.String()
	}
	return ""
}

func sortValues(vs []any) error {
	var sortErr error
	sort.SliceStable(vs, func(i, j int) bool {
		c, err := compareValues(vs[i], vs[j])
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c < 0
	})
	return sortErr
}
