package errors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrorCode represents a classified export error.
type ErrorCode string

const (
	ErrTimeout             ErrorCode = "timeout"
	ErrContextCancelled    ErrorCode = "context_cancelled"
	ErrRateLimit           ErrorCode = "rate_limit"
	ErrUnauthorizedCode    ErrorCode = "unauthorized"
	ErrUpstreamUnavailable ErrorCode = "upstream_unavailable"
	ErrGraphQL             ErrorCode = "graphql_error"
	ErrIO                  ErrorCode = "io_error"
	ErrNoSentencesCode     ErrorCode = "no_sentences"
	ErrProcessingError     ErrorCode = "processing_error"
)

// StageError is a structured error for a failed pipeline stage of one transcript.
type StageError struct {
	Code         ErrorCode
	Stage        string
	TranscriptID string
	Message      string
	Cause        error
}

func (e *StageError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.TranscriptID != "" {
		fmt.Fprintf(&b, ": transcript %s", e.TranscriptID)
	}
	if e.Stage != "" {
		fmt.Fprintf(&b, ": %s", e.Stage)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	return b.String()
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// ClassifyError inspects an error and returns a *StageError with the appropriate code.
// If the error doesn't match any known pattern, it returns a StageError with ErrProcessingError.
func ClassifyError(err error, stage string) *StageError {
	if err == nil {
		return nil
	}

	var existing *StageError
	if errors.As(err, &existing) {
		return existing
	}

	se := &StageError{
		Stage:   stage,
		Cause:   err,
		Message: err.Error(),
	}

	var pathErr *fs.PathError

	lower := strings.ToLower(se.Message)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		se.Code = ErrTimeout
		se.Message = "operation timed out"
	case errors.Is(err, context.Canceled):
		se.Code = ErrContextCancelled
		se.Message = "operation cancelled"
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrNoCredentials):
		se.Code = ErrUnauthorizedCode
	case errors.Is(err, ErrNoSentences):
		se.Code = ErrNoSentencesCode
	case errors.As(err, &pathErr):
		se.Code = ErrIO
	case strings.Contains(lower, "graphql"):
		se.Code = ErrGraphQL
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "429") || strings.Contains(lower, "too many requests"):
		se.Code = ErrRateLimit
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "unavailable") || strings.Contains(lower, "503") || strings.Contains(lower, "giving up after"):
		se.Code = ErrUpstreamUnavailable
	case strings.Contains(lower, "no space left") || strings.Contains(lower, "permission denied") || strings.Contains(lower, "read-only file system"):
		se.Code = ErrIO
	default:
		se.Code = ErrProcessingError
	}

	return se
}

// WithTranscript sets the transcript id on a classified error and returns it.
func (e *StageError) WithTranscript(id string) *StageError {
	e.TranscriptID = id
	return e
}

// IsTimeout returns true if the error is a timeout error.
func IsTimeout(err error) bool {
	var se *StageError
	if errors.As(err, &se) {
		return se.Code == ErrTimeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsErrorRetryable returns true if the error is likely transient and worth retrying.
func IsErrorRetryable(err error) bool {
	var se *StageError
	if errors.As(err, &se) {
		return IsRetryable(se.Code)
	}
	return false
}

// CodeOf returns the error code of err, classifying it if needed.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return ClassifyError(err, "").Code
}
