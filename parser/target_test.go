package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		name   string
		target map[string]any
		want   string
		ok     bool
	}{
		{"nil", nil, "", false},
		{"element_name", map[string]any{"element_name": "Continue"}, "Continue", true},
		{"case insensitive", map[string]any{"Element": "OK"}, "OK", true},
		{"alias order", map[string]any{"value": "v", "text": "t"}, "t", true},
		{"skips empty", map[string]any{"element_name": " ", "name": "Allow"}, "Allow", true},
		{"non string", map[string]any{"value": 3}, "3", true},
		{"no alias", map[string]any{"x": 10, "y": 20}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveTarget(tt.target)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
