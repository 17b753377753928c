package decode

import (
	"fmt"

	"olympos.io/encoding/edn"
)

// Helpers coercing the loosely-typed values edn.Unmarshal produces for an
// `any` target. Numeric representation depends on the literal, so integer
// and float coercion each accept the widened forms.

func sequence(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case nil:
		return nil, true
	}
	return nil, false
}

func mapping(v any) (map[string]any, bool) {
	out := make(map[string]any)
	switch m := v.(type) {
	case map[any]any:
		for k, val := range m {
			out[keyName(k)] = val
		}
		return out, true
	case map[edn.Keyword]any:
		for k, val := range m {
			out[string(k)] = val
		}
		return out, true
	case map[string]any:
		return m, true
	case nil:
		return out, true
	}
	return nil, false
}

func keyName(k any) string {
	switch key := k.(type) {
	case edn.Keyword:
		return string(key)
	case edn.Symbol:
		return string(key)
	case string:
		return key
	}
	return fmt.Sprintf("%v", k)
}

func stringValue(v any, what string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", NewMalformedResultError("%s %v is not a string", what, v)
	}
	return s, nil
}

// optString treats nil as absent.
func optString(v any, what string) (string, error) {
	if v == nil {
		return "", nil
	}
	return stringValue(v, what)
}

func intValue(v any, what string) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, NewMalformedResultError("%s %v is not an integer", what, v)
}

func floatValue(v any, what string) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, NewMalformedResultError("%s %v is not a number", what, v)
}
