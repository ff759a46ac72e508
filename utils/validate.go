package utils

import (
	"regexp"
	"strings"
)

// ValidationResult carries the outcome of a form-field validation along
// with the normalized value when valid.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason,omitempty"`
}

var (
	phoneDigits = regexp.MustCompile(`^[0-9]{10}$`)
	pincodeRe   = regexp.MustCompile(`^[1-9][0-9]{5}$`)
	emailRe     = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// ValidatePhone validates an Indian mobile number. It strips spaces,
// dashes and a leading +91/91/0, then requires exactly 10 digits starting
// with 6-9. The normalized 10-digit value is returned on success.
func ValidatePhone(raw string) ValidationResult {
	s := strings.TrimSpace(raw)
	for _, r := range []string{" ", "-", "(", ")"} {
		s = strings.ReplaceAll(s, r, "")
	}
	if strings.HasPrefix(s, "+91") {
		s = s[3:]
	} else if strings.HasPrefix(s, "91") && len(s) == 12 {
		s = s[2:]
	} else if strings.HasPrefix(s, "0") && len(s) == 11 {
		s = s[1:]
	}
	if !phoneDigits.MatchString(s) {
		return ValidationResult{Valid: false, Reason: "phone number must have 10 digits"}
	}
	if s[0] < '6' || s[0] > '9' {
		return ValidationResult{Valid: false, Reason: "phone number must start with 6-9"}
	}
	return ValidationResult{Valid: true, Value: s}
}

// ValidatePincode validates a 6-digit Indian postal code.
func ValidatePincode(raw string) ValidationResult {
	s := strings.TrimSpace(raw)
	if !pincodeRe.MatchString(s) {
		return ValidationResult{Valid: false, Reason: "pincode must be 6 digits and not start with 0"}
	}
	return ValidationResult{Valid: true, Value: s}
}

// ValidateEmail validates an email address.
func ValidateEmail(raw string) ValidationResult {
	s := strings.TrimSpace(strings.ToLower(raw))
	if !emailRe.MatchString(s) {
		return ValidationResult{Valid: false, Reason: "invalid email address"}
	}
	return ValidationResult{Valid: true, Value: s}
}

// ValidateName requires a non-empty name of reasonable length.
func ValidateName(raw string) ValidationResult {
	s := strings.TrimSpace(raw)
	if len(s) < 2 || len(s) > 100 {
		return ValidationResult{Valid: false, Reason: "name must be between 2 and 100 characters"}
	}
	return ValidationResult{Valid: true, Value: s}
}
