package services

import "errors"

var (
	// ErrValidation marks a request rejected for missing required fields.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a lookup that resolved no record or file.
	ErrNotFound = errors.New("not found")
	// ErrAuth marks a rejected token exchange with the signing provider.
	ErrAuth = errors.New("authentication failed")
)
