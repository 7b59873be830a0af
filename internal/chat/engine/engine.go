// Package engine wraps the external reasoning model behind a narrow
// interface the conversation orchestrator can depend on.
package engine

import (
	"context"

	"presales_backend/internal/chat/domain"
)

// ExtractionStatus describes the outcome of a structured extraction call.
type ExtractionStatus int

const (
	// ExtractionFields means at least one field was extracted.
	ExtractionFields ExtractionStatus = iota
	// ExtractionNone means the call succeeded but yielded no usable fields.
	ExtractionNone
	// ExtractionUnavailable means the engine could not be reached or failed.
	ExtractionUnavailable
)

// Extraction is the result of an entity extraction call. Fields only carries
// entries when Status is ExtractionFields.
type Extraction struct {
	Status ExtractionStatus
	Fields map[string]string
	// Verdict and Corrections are only populated for confirmation turns.
	Verdict     domain.Verdict
	Corrections map[string]string
}

// Engine is the reasoning interface the orchestrator depends on.
type Engine interface {
	// Generate produces the assistant reply for the current turn, steered
	// by a state-specific directive.
	Generate(ctx context.Context, directive string, history []domain.Message) (string, error)

	// Extract pulls the named fields from the latest user message.
	// Parse failures are reported as ExtractionNone, transport failures
	// as ExtractionUnavailable.
	Extract(ctx context.Context, state domain.State, message string) Extraction

	// Summarize produces a prospect-facing summary of the conversation.
	Summarize(ctx context.Context, history []domain.Message) (string, error)
}
