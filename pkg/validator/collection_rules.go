package validator

import (
	"fmt"
	"strings"
)

// EachRequired validates that no element of value is blank. The failing
// index is reported in the field name.
func EachRequired(field string, value []string) Rule {
	bad := -1
	for i, v := range value {
		if strings.TrimSpace(v) == "" {
			bad = i
			break
		}
	}
	return Rule{
		Check: func() bool {
			return bad < 0
		},
		Error: ValidationError{
			Field:          fmt.Sprintf("%s[%d]", field, bad),
			Message:        "field is required",
			TranslationKey: "validation.required",
		},
	}
}
