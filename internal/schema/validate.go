package schema

import (
	"encoding/json"
	"math"
	"strings"

	appErrors "github.com/noah-isme/gwd-progress-api/pkg/errors"
)

// Normalize checks a two-level payload against the registry and returns a
// cleaned copy. Unknown categories or fields, wrong value kinds, numbers below
// a field minimum, and dropdown values outside the options are rejected. Null
// values and empty categories are dropped; missing fields are allowed.
func (r *Registry) Normalize(data map[string]map[string]interface{}) (map[string]map[string]interface{}, error) {
	out := make(map[string]map[string]interface{}, len(data))
	for catID, values := range data {
		if _, ok := r.categories[catID]; !ok {
			return nil, appErrors.Validationf("unknown category %q", catID)
		}
		cleaned := make(map[string]interface{}, len(values))
		for fieldID, raw := range values {
			field, ok := r.Field(catID, fieldID)
			if !ok {
				return nil, appErrors.Validationf("unknown field %q in category %q", fieldID, catID)
			}
			if raw == nil {
				continue
			}
			value, err := normalizeValue(catID, field, raw)
			if err != nil {
				return nil, err
			}
			cleaned[fieldID] = value
		}
		if len(cleaned) > 0 {
			out[catID] = cleaned
		}
	}
	return out, nil
}

func normalizeValue(catID string, field Field, raw interface{}) (interface{}, error) {
	switch field.Type {
	case FieldNumber:
		n, ok := toFloat(raw)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, appErrors.Validationf("%s.%s must be a number", catID, field.ID)
		}
		if field.Min != nil && n < *field.Min {
			return nil, appErrors.Validationf("%s.%s must be at least %v", catID, field.ID, *field.Min)
		}
		return n, nil
	case FieldDropdown:
		s, ok := raw.(string)
		if !ok {
			return nil, appErrors.Validationf("%s.%s must be one of %s", catID, field.ID, strings.Join(field.Options, ", "))
		}
		for _, opt := range field.Options {
			if opt == s {
				return s, nil
			}
		}
		return nil, appErrors.Validationf("%s.%s must be one of %s", catID, field.ID, strings.Join(field.Options, ", "))
	default:
		s, ok := raw.(string)
		if !ok {
			return nil, appErrors.Validationf("%s.%s must be text", catID, field.ID)
		}
		return s, nil
	}
}

// NumberValue extracts a numeric field from a payload; ok is false when the
// value is absent or not numeric.
func NumberValue(data map[string]map[string]interface{}, categoryID, fieldID string) (float64, bool) {
	values, ok := data[categoryID]
	if !ok {
		return 0, false
	}
	raw, ok := values[fieldID]
	if !ok {
		return 0, false
	}
	return toFloat(raw)
}

func toFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
