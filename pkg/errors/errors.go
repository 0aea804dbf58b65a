// Package errors provides common domain error types for ffdl.
//
// This package defines sentinel errors for domain conditions like "no sentences"
// or "unauthorized" that can be used across all packages. Using typed errors enables
// consistent error handling patterns with errors.Is() checks.
//
// Usage:
//
//	import fferrors "github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/errors"
//
//	// Return a domain error
//	return fmt.Errorf("csv export: %w", fferrors.ErrNoSentences)
//
//	// Check for domain errors
//	if fferrors.IsNoSentences(err) {
//	    // skip the artifact
//	}
package errors

import "errors"

// Domain errors - common sentinel errors for domain conditions.
var (
	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid input or validation failure.
	ErrValidation = errors.New("validation error")

	// ErrUnauthorized indicates the request lacks a valid API key.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoSentences indicates an exporter was given an empty sentence sequence
	// and cannot derive its output (the CSV header comes from the first sentence).
	ErrNoSentences = errors.New("no sentences")

	// ErrNoCredentials indicates no API key could be resolved from any source.
	ErrNoCredentials = errors.New("no API key configured")
)

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnauthorized reports whether any error in err's chain is ErrUnauthorized.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsNoSentences reports whether any error in err's chain is ErrNoSentences.
func IsNoSentences(err error) bool {
	return errors.Is(err, ErrNoSentences)
}

// IsNoCredentials reports whether any error in err's chain is ErrNoCredentials.
func IsNoCredentials(err error) bool {
	return errors.Is(err, ErrNoCredentials)
}
