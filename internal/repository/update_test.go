package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLikePatternEscapesMetacharacters(t *testing.T) {
	tests := []struct {
		name   string
		substr string
		want   string
	}{
		{"plain", "norway", "%norway%"},
		{"percent", "%", `%\%%`},
		{"underscore", "a_b", `%a\_b%`},
		{"backslash", `a\b`, `%a\\b%`},
		{"mixed", `100%_done`, `%100\%\_done%`},
		{"empty", "", "%%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, likePattern(tt.substr))
		})
	}
}
