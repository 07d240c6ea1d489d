package domain

import "errors"

// Sentinel errors mapped to HTTP status codes at the handler layer.
var (
	// ErrNotFound signals an unknown shop or image log id (404).
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput signals a malformed URL, domain or parameter (400).
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict signals a state-conflicting transition, e.g. fixing an
	// already optimized image (400).
	ErrConflict = errors.New("state conflict")

	// ErrUnauthorized signals a failed OAuth state or signature check (401).
	ErrUnauthorized = errors.New("unauthorized")
)
