package hospital

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	nameRe = regexp.MustCompile(`^[A-Za-z ]+$`)
	ageRe  = regexp.MustCompile(`^\d{1,3}$`)
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ValidateName accepts letters and spaces only.
func ValidateName(name string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("name %q: %w", name, ErrValidation)
	}
	return nil
}

// ParseAge accepts a 1-3 digit integer.
func ParseAge(s string) (int, error) {
	s = strings.TrimSpace(s)
	if !ageRe.MatchString(s) {
		return 0, fmt.Errorf("age %q: %w", s, ErrValidation)
	}
	return strconv.Atoi(s)
}

// ParseWard returns the ward type for s, which must match exactly.
func ParseWard(s string) (WardType, error) {
	for _, w := range Wards {
		if string(w) == s {
			return w, nil
		}
	}
	return "", fmt.Errorf("ward %q (want ICU, HDU, Maternity or General): %w", s, ErrValidation)
}

// ValidateDate checks the YYYY-MM-DD shape.
func ValidateDate(s string) error {
	if !dateRe.MatchString(s) {
		return fmt.Errorf("date %q (want YYYY-MM-DD): %w", s, ErrValidation)
	}
	return nil
}

// ParseRole accepts admin or clerk.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.TrimSpace(s)); r {
	case RoleAdmin, RoleClerk:
		return r, nil
	default:
		return "", fmt.Errorf("role %q (want admin or clerk): %w", s, ErrValidation)
	}
}
