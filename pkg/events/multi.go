package events

import (
	"context"
	"errors"
)

// Sink is a destination for export events.
type Sink interface {
	PublishTranscriptExported(ctx context.Context, params TranscriptExportedParams) error
	Close() error
}

// Multi fans each event out to every sink. A failing sink does not stop
// delivery to the others; all errors are joined.
type Multi []Sink

// PublishTranscriptExported publishes to every sink.
func (m Multi) PublishTranscriptExported(ctx context.Context, params TranscriptExportedParams) error {
	var errs []error
	for _, s := range m {
		if err := s.PublishTranscriptExported(ctx, params); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
