package llm

import (
	"testing"

	"discern/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     model.Label
		valid    bool
	}{
		{name: "exact resolved", response: "Resolved", want: model.LabelResolved, valid: true},
		{name: "exact unresolved", response: "Unresolved", want: model.LabelUnresolved, valid: true},
		{name: "lowercase", response: "resolved", want: model.LabelResolved, valid: true},
		{name: "uppercase", response: "UNRESOLVED", want: model.LabelUnresolved, valid: true},
		{name: "surrounding whitespace", response: "  Resolved\n", want: model.LabelResolved, valid: true},
		{name: "hedged answer", response: "maybe unresolved??", valid: false},
		{name: "explanatory text", response: "The status is Resolved.", valid: false},
		{name: "trailing punctuation", response: "Resolved.", valid: false},
		{name: "empty", response: "", valid: false},
		{name: "unrelated word", response: "Pending", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLabel(tt.response)
			assert.Equal(t, tt.valid, ok)
			if tt.valid {
				assert.Equal(t, tt.want, got)
			} else {
				// An unparsed raw string must never leak into a label.
				assert.Empty(t, got)
			}
		})
	}
}
