package jobs

import (
	"encoding/json"
	"fmt"
)

// stringify renders a decoded result payload for display. Strings pass
// through; structured values are re-encoded as JSON.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case map[string]any, []any:
		if b, err := json.Marshal(t); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}
