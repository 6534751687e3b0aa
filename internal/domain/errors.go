package domain

import "errors"

var (
	// ErrValidation marks caller input that fails a format or range rule.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups for rows that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks operations rejected by the current state of a row.
	ErrConflict = errors.New("conflict")
)
