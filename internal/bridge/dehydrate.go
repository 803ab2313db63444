package bridge

import (
	"encoding/json"
	"unicode/utf8"
)

// functionMarker stands in for a runtime function value that crossed the
// wire as a dehydration sentinel (§4.4 "Dehydration cleaning").
type functionMarker struct{}

func (functionMarker) MarshalJSON() ([]byte, error) {
	return []byte(`"ƒ()"`), nil
}

const maxStringLen = 60
const truncatedStringLen = 57

// cleanValue recursively strips the runtime's serialization wrapper
// objects: any object carrying {type, preview_short, ...} collapses to
// its preview_short string, function sentinels become functionMarker,
// and long strings are truncated.
func cleanValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		if t, ok := val["type"].(string); ok {
			if t == "function" {
				return functionMarker{}
			}
			if preview, ok := val["preview_short"].(string); ok {
				return preview
			}
		}
		out := make(map[string]interface{}, len(val))
		for k, vv := range val {
			out[k] = cleanValue(vv)
		}
		return out

	case []interface{}:
		out := make([]interface{}, len(val))
		for i, vv := range val {
			out[i] = cleanValue(vv)
		}
		return out

	case string:
		return truncateString(val)

	default:
		return val
	}
}

// truncateString measures length after JSON encoding (§4.4): anything
// over 60 encoded characters collapses to its first 57 runes plus "...".
func truncateString(s string) string {
	encoded, err := json.Marshal(s)
	if err != nil || utf8.RuneCount(encoded) <= maxStringLen {
		return s
	}
	runes := []rune(s)
	if len(runes) > truncatedStringLen {
		runes = runes[:truncatedStringLen]
	}
	return string(runes) + "..."
}
