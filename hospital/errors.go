package hospital

import "errors"

var (
	// ErrNotFound is returned when a referenced bed, patient, admission or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an operation would break the bed/admission invariants.
	ErrConflict = errors.New("conflict")
	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("invalid input")
	// ErrInvalidCredentials is returned when a login does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
