package llm

import (
	"strings"

	"discern/internal/model"
)

// ParseLabel validates a raw model response against the two allowed labels.
// The response is trimmed and case-folded, then exact-matched; surrounding
// explanatory text makes the whole response invalid.
func ParseLabel(response string) (model.Label, bool) {
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "resolved":
		return model.LabelResolved, true
	case "unresolved":
		return model.LabelUnresolved, true
	default:
		return "", false
	}
}
