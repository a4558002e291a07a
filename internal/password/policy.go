package password

import (
	"fmt"
	"strings"
	"unicode"
)

// Characters accepted as satisfying the special-character requirement.
const specialChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"

// Policy holds the configurable password strength rules. The zero value
// rejects everything shorter than 0 characters and requires nothing; use
// DefaultPolicy for sensible defaults.
type Policy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireDigit     bool
	RequireSpecial   bool
}

// DefaultPolicy returns the recommended baseline rules.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireDigit:     true,
		RequireSpecial:   true,
	}
}

// Validate checks a candidate password against the policy. It returns the
// first failing rule's message, checked in a fixed order: length, uppercase,
// lowercase, digit, special. It has no side effects.
func (p Policy) Validate(password string) (bool, string) {
	if len(password) < p.MinLength {
		return false, fmt.Sprintf("Password must be at least %d characters", p.MinLength)
	}

	if p.RequireUppercase && !strings.ContainsFunc(password, unicode.IsUpper) {
		return false, "Password must contain at least one uppercase letter"
	}

	if p.RequireLowercase && !strings.ContainsFunc(password, unicode.IsLower) {
		return false, "Password must contain at least one lowercase letter"
	}

	if p.RequireDigit && !strings.ContainsFunc(password, unicode.IsDigit) {
		return false, "Password must contain at least one digit"
	}

	if p.RequireSpecial && !strings.ContainsAny(password, specialChars) {
		return false, "Password must contain at least one special character"
	}

	return true, ""
}
