package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Failure taxonomy. Each pipeline step classifies its failure as
// abort-document, abort-request, or degrade-and-continue; the sentinels below
// are what callers match on with errors.Is.
var (
	// ErrExtractionFailed means the PDF could not be turned into text.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrMetadata means the document context lacks required identity fields.
	ErrMetadata = errors.New("metadata error")
	// ErrEncodingFailed means a chunk is missing one of its two
	// representations; such a chunk is never persisted.
	ErrEncodingFailed = errors.New("encoding failed")
	// ErrPersistenceFailed means the batch write did not fully succeed and a
	// compensating delete was issued.
	ErrPersistenceFailed = errors.New("persistence failed")
	// ErrCapabilityTimeout means a single external call exceeded its own
	// deadline. The step's failure policy decides degrade versus abort.
	ErrCapabilityTimeout = errors.New("capability timeout")
	// ErrRerankUnavailable means the cross-encoder could not be reached; the
	// query degrades to the fused ordering.
	ErrRerankUnavailable = errors.New("reranker unavailable")
	// ErrSessionNotFound is internal to the ledger; callers see a fresh
	// session, never this error.
	ErrSessionNotFound = errors.New("session not found")
)

// IngestionError reports which step aborted a document's ingestion.
type IngestionError struct {
	DocumentBatchID uuid.UUID
	Step            string
	Err             error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed at %s (batch %s): %v", e.Step, e.DocumentBatchID, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// AsCapabilityError maps a context deadline hit during an external call onto
// the taxonomy so step policies can match it uniformly.
func AsCapabilityError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrCapabilityTimeout, err)
	}
	return err
}
