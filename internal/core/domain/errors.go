package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent sync failures.
// Adapters wrap their own errors around these so the core can classify them.
var (
	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConnection indicates the relational source or the search index
	// could not be reached. It is the only class retried with backoff.
	ErrConnection = errors.New("connection failure")

	// ErrDocumentRejected indicates the index refused a single document.
	ErrDocumentRejected = errors.New("document rejected")

	// ErrInvariant indicates a programming invariant was violated.
	// It is the only error that stops the scheduler.
	ErrInvariant = errors.New("invariant violation")

	// ErrCheckpoint indicates watermarks could not be read or persisted.
	ErrCheckpoint = errors.New("checkpoint failure")
)

// RejectionError describes a document the index refused.
type RejectionError struct {
	// ID is the rejected document's identifier.
	ID string

	// Status is the per-item status code reported by the index.
	Status int

	// Type is the index's error type, e.g. "mapper_parsing_exception".
	Type string

	// Reason is the human-readable cause.
	Reason string
}

func (e *RejectionError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("document %s rejected: %s", e.ID, e.Reason)
	}
	return fmt.Sprintf("document %s rejected: %s: %s", e.ID, e.Type, e.Reason)
}

// Is reports whether target is ErrDocumentRejected.
func (e *RejectionError) Is(target error) bool {
	return target == ErrDocumentRejected
}

// connError marks a transport-level failure.
type connError struct {
	op  string
	err error
}

func (e *connError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.op, ErrConnection, e.err)
}

func (e *connError) Unwrap() error { return e.err }

func (e *connError) Is(target error) bool { return target == ErrConnection }

// ConnectionError wraps err so that errors.Is(err, ErrConnection) holds.
// A nil err yields nil.
func ConnectionError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &connError{op: op, err: err}
}

// IsConnectionFailure reports whether err should be retried with backoff.
func IsConnectionFailure(err error) bool {
	return errors.Is(err, ErrConnection)
}
