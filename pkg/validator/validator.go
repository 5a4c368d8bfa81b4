// Package validator implements USSD code grammar validation and formatting.
//
// Valid formats:
//   - *123#    (standard)
//   - *123*1#  (with parameters)
//   - #123#    (alternative)
//   - *#10#    (query)
package validator

import (
	"regexp"
	"strings"
)

const (
	minCodeLength = 3
	maxCodeLength = 30
)

var (
	codePattern = regexp.MustCompile(`^[*#][\d*#]+#?$`)

	balancePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\*1[0-9]{2}#`),
		regexp.MustCompile(`\*[0-9]{3}#`),
		regexp.MustCompile(`(?i)#BAL#`),
		regexp.MustCompile(`\*#10#`),
	}
)

// Result is the outcome of validating one USSD code.
type Result struct {
	IsValid       bool   `json:"isValid"`
	FormattedCode string `json:"formattedCode,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ValidateCode checks code against the USSD grammar. A missing trailing '#'
// is appended before the length check; the formatted code is returned.
func ValidateCode(code string) Result {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return Result{Error: "ussd code cannot be empty"}
	}

	if !codePattern.MatchString(trimmed) {
		return Result{Error: "invalid ussd code format: must start with * or # and contain only digits, * and #"}
	}

	formatted := trimmed
	if !strings.HasSuffix(formatted, "#") {
		formatted += "#"
	}

	if len(formatted) < minCodeLength || len(formatted) > maxCodeLength {
		return Result{Error: "ussd code length must be between 3 and 30 characters"}
	}

	return Result{IsValid: true, FormattedCode: formatted}
}

// IsValid reports whether code passes validation.
func IsValid(code string) bool {
	return ValidateCode(code).IsValid
}

// FormatCode returns the canonical form of code, or an empty string and
// false when the code is invalid.
func FormatCode(code string) (string, bool) {
	res := ValidateCode(code)
	return res.FormattedCode, res.IsValid
}

// IsBalanceCheck reports whether code looks like a carrier balance query.
func IsBalanceCheck(code string) bool {
	for _, p := range balancePatterns {
		if p.MatchString(code) {
			return true
		}
	}
	return false
}

// ExtractParameters returns the '*'-separated parameters of a parameterized
// code: *123*456*789# yields ["456", "789"].
func ExtractParameters(code string) []string {
	stripped := strings.TrimSuffix(strings.TrimLeft(code, "*#"), "#")
	parts := strings.Split(stripped, "*")
	if len(parts) <= 1 {
		return nil
	}
	return parts[1:]
}
