package recovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		code string
		want FailureType
	}{
		{"E0201", ScreenPopup},
		{"E0201_modal_blocking", ScreenPopup},
		{"X0201", ScreenPopup},
		{"E0401", KeywordExecution},
		{"X0401_timeout", KeywordExecution},
		{"E0101", DriverIssue},
		{"E9999_unknown", GeneralError},
		{"", GeneralError},
		{"e0201", GeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.code))
		})
	}
}
