package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"composite\": 8.4}\n```", `{"composite": 8.4}`},
		{"bare fence", "```\n{\"composite\": 8.4}\n```", `{"composite": 8.4}`},
		{"language tag", "```javascript\n{\"composite\": 8.4}\n```", `{"composite": 8.4}`},
		{"fence without newline", "```json{\"passed\": true}```", `{"passed": true}`},
		{"no fence", `{"composite": 8.4}`, `{"composite": 8.4}`},
		{"surrounding whitespace", "  \n{\"composite\": 8.4}\n ", `{"composite": 8.4}`},
		{"single line fence", "```{\"a\": 1}```", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSONBlock(tt.in))
		})
	}
}
