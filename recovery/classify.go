package recovery

import "strings"

// FailureType is the coarse category of a runner error code.
type FailureType string

const (
	ScreenPopup      FailureType = "screen_popup"
	KeywordExecution FailureType = "keyword_execution"
	DriverIssue      FailureType = "driver_issue"
	GeneralError     FailureType = "general_error"
)

var prefixes = []struct {
	prefix string
	typ    FailureType
}{
	{"E0201", ScreenPopup},
	{"X0201", ScreenPopup},
	{"E0401", KeywordExecution},
	{"X0401", KeywordExecution},
	{"E0101", DriverIssue},
}

// Classify maps an error code to its failure type by prefix.
func Classify(code string) FailureType {
	for _, p := range prefixes {
		if strings.HasPrefix(code, p.prefix) {
			return p.typ
		}
	}
	return GeneralError
}
