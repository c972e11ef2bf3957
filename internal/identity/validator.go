package identity

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MinHandleLength is the minimum allowed handle length
	MinHandleLength = 3
	// MaxHandleLength is the maximum allowed handle length
	MaxHandleLength = 20
)

var (
	handleCharset = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// reservedHandles can never be claimed, regardless of casing.
	// Matched exactly (not as substrings) so e.g. "admiral" stays valid.
	reservedHandles = map[string]struct{}{
		"admin":         {},
		"administrator": {},
		"root":          {},
		"system":        {},
		"api":           {},
		"www":           {},
		"mail":          {},
		"ftp":           {},
		"support":       {},
		"moderator":     {},
		"gatherly":      {},
		"anonymous":     {},
	}
)

// ValidationResult collects every rule violation for a candidate handle.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors,omitempty"`
}

// ValidateHandle checks a candidate handle against format, length, character
// set and reserved-word rules. All rules are checked independently so the
// caller gets every violation at once, not just the first.
func ValidateHandle(candidate string) ValidationResult {
	candidate = strings.TrimSpace(candidate)

	var errs []string

	if len(candidate) < MinHandleLength {
		errs = append(errs, fmt.Sprintf("Handle must be at least %d characters", MinHandleLength))
	}
	if len(candidate) > MaxHandleLength {
		errs = append(errs, fmt.Sprintf("Handle must be at most %d characters", MaxHandleLength))
	}

	if candidate != "" && !handleCharset.MatchString(candidate) {
		errs = append(errs, "Handle can only contain letters, numbers, underscores, and hyphens")
	}

	if _, reserved := reservedHandles[strings.ToLower(candidate)]; reserved {
		errs = append(errs, "This handle is reserved and cannot be used")
	}

	return ValidationResult{
		IsValid: len(errs) == 0,
		Errors:  errs,
	}
}

// NormalizeHandle converts a handle to its storage form (lowercase, trimmed).
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}
