package domain

import "errors"

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("resource conflict")

	// ErrStateMismatch means the OAuth callback carried a state value that does
	// not match the one issued for this login attempt. Fatal to the attempt.
	ErrStateMismatch = errors.New("invalid oauth state")

	// ErrNoToken means the token endpoint answered 200 without an access token.
	ErrNoToken = errors.New("no access token received")

	// ErrNotConnected means an operation required a linked GitHub account.
	ErrNotConnected = errors.New("github account not connected")
)

// ProviderError is an OAuth failure reported by GitHub itself, carried in the
// response body even on transport-success status codes.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return "oauth error: " + e.Code + " - " + e.Description
	}
	return "oauth error: " + e.Code
}

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
