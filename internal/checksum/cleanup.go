package checksum

import "strings"

// Cleanup normalizes a field mapping before serialization so that digests
// are insensitive to default-ish boolean states and internal-only metadata:
//
//   - nil values are dropped
//   - a "retired" field is dropped when false
//   - an "is_active" field is dropped when true
//   - an "extras" field is dropped when empty; double-underscore-prefixed
//     keys inside it are stripped before inclusion
//
// Non-mapping values pass through unchanged. Cleanup is idempotent.
func Cleanup(v any) any {
	fields, ok := v.(map[string]any)
	if !ok {
		return v
	}
	result := make(map[string]any, len(fields))
	for key, value := range fields {
		if value == nil {
			continue
		}
		if key == "retired" && isFalsy(value) {
			continue
		}
		if key == "is_active" && !isFalsy(value) {
			continue
		}
		if key == "extras" {
			if isEmpty(value) {
				continue
			}
			if m, ok := value.(map[string]any); ok && hasPrivateKey(m) {
				stripped := make(map[string]any, len(m))
				for k, v := range m {
					if !strings.HasPrefix(k, "__") {
						stripped[k] = v
					}
				}
				value = stripped
			}
		}
		result[key] = value
	}
	return result
}

func hasPrivateKey(m map[string]any) bool {
	for k := range m {
		if strings.HasPrefix(k, "__") {
			return true
		}
	}
	return false
}

func isFalsy(v any) bool {
	switch x := v.(type) {
	case bool:
		return !x
	default:
		return isEmpty(v)
	}
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	case map[string]any:
		return len(x) == 0
	case []any:
		return len(x) == 0
	case int:
		return x == 0
	case int64:
		return x == 0
	case float64:
		return x == 0
	}
	return false
}
