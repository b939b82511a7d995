package parser

import (
	"fmt"
	"strings"
)

// TargetAliases lists the keys that may carry the single element argument
// of a suggestion's target, in lookup order.
var TargetAliases = []string{"element_name", "element", "text", "target", "name", "value"}

// ResolveTarget returns the first non-empty alias value of target, matched
// case-insensitively. Non-string values are formatted with %v.
func ResolveTarget(target map[string]any) (string, bool) {
	if len(target) == 0 {
		return "", false
	}
	for _, alias := range TargetAliases {
		for k, v := range target {
			if !strings.EqualFold(k, alias) || v == nil {
				continue
			}
			s, ok := v.(string)
			if !ok {
				s = fmt.Sprint(v)
			}
			if s = strings.TrimSpace(s); s != "" {
				return s, true
			}
		}
	}
	return "", false
}
