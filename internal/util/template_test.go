package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name string
		text string
		data map[string]any
		want string
	}{
		{"plain", "no markers", nil, "no markers"},
		{"field", "Step {{.EntityName}} failed", map[string]any{"EntityName": "login"}, "Step login failed"},
		{"no escaping", "{{.Message}}", map[string]any{"Message": "a < b & 'c'"}, "a < b & 'c'"},
		{"default", `{{default "none" .ScreenshotPath}}`, map[string]any{"ScreenshotPath": ""}, "none"},
		{"upper", "{{upper .Status}}", map[string]any{"Status": "fail"}, "FAIL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderTemplate(tt.text, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderTemplate_ParseError(t *testing.T) {
	_, err := RenderTemplate("{{.Broken", nil)
	assert.Error(t, err)
}
