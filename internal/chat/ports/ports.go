// Package ports defines the outbound interfaces of the chat module. Other
// modules implement these to receive qualified leads and transcripts.
package ports

import (
	"context"

	"presales_backend/internal/chat/domain"
)

// QualifiedLead is the flattened fact record emitted on handoff.
type QualifiedLead struct {
	SessionID           string
	ClientName          string
	ContactInfo         string
	ProjectType         string
	UseCase             string
	RequirementsSummary string
	Timeline            string
	BudgetRange         string
	Summary             string
}

// LeadSink receives the qualified lead exactly once per session. Returning
// an error never fails the conversation turn; the caller logs and moves on.
type LeadSink interface {
	Store(ctx context.Context, lead QualifiedLead) (leadID string, err error)
}

// TranscriptArchiver stores the full session transcript when a session ends,
// either by handoff or deletion.
type TranscriptArchiver interface {
	Archive(ctx context.Context, session domain.Session) error
}
