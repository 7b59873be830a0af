package domain

import (
	"strings"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single turn entry in the session transcript.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Facts holds the structured information collected during the conversation.
// Empty string means the fact has not been learned yet.
type Facts struct {
	ClientName   string   `json:"client_name,omitempty"`
	ContactInfo  string   `json:"contact_info,omitempty"`
	ProjectType  string   `json:"project_type,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	UseCase      string   `json:"use_case,omitempty"`
	Timeline     string   `json:"timeline,omitempty"`
	BudgetRange  string   `json:"budget_range,omitempty"`
	Notes        string   `json:"additional_notes,omitempty"`
}

// Set assigns a single fact by field name. Requirements accepts a
// comma-separated string and splits it into trimmed entries. Empty values
// never clear a previously learned fact.
func (f *Facts) Set(field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}

	switch field {
	case FieldClientName:
		f.ClientName = value
	case FieldContactInfo:
		f.ContactInfo = value
	case FieldProjectType:
		f.ProjectType = value
	case FieldRequirements:
		f.Requirements = SplitRequirements(value)
	case FieldUseCase:
		f.UseCase = value
	case FieldTimeline:
		f.Timeline = value
	case FieldBudgetRange:
		f.BudgetRange = value
	case FieldNotes:
		f.Notes = value
	}
}

// SplitRequirements normalizes a comma-separated requirement list into
// trimmed, non-empty entries.
func SplitRequirements(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// RequirementsSummary flattens the requirement list for lead records.
func (f *Facts) RequirementsSummary() string {
	return strings.Join(f.Requirements, ", ")
}

// HasContactInfo reports whether a contact channel has been collected.
func (f *Facts) HasContactInfo() bool {
	return strings.TrimSpace(f.ContactInfo) != ""
}

// Confirmation tracks where the session stands in the confirm loop.
type Confirmation struct {
	// Confirmed is set when the prospect approves the summary. Once true
	// it never reverts.
	Confirmed bool `json:"confirmed"`
	// LeadEmitted is set just before the lead is handed to the sink, so a
	// sink failure cannot cause a duplicate emission on a later turn.
	LeadEmitted bool `json:"lead_emitted"`
	// PendingCorrections holds field corrections from a rejected summary,
	// applied before re-presenting it.
	PendingCorrections map[string]string `json:"pending_corrections,omitempty"`
}

// Session is the full per-conversation record.
type Session struct {
	ID           string       `json:"id"`
	State        State        `json:"state"`
	Facts        Facts        `json:"facts"`
	Confirmation Confirmation `json:"confirmation"`
	// Summary is the engine-produced recap presented for confirmation.
	Summary    string    `json:"summary,omitempty"`
	History    []Message `json:"history"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

// NewSession creates a fresh session in the greeting state.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		State:      StateGreeting,
		History:    make([]Message, 0, 8),
		CreatedAt:  now,
		LastActive: now,
	}
}

// Append adds a message to the transcript and bumps the activity timestamp.
func (s *Session) Append(role Role, content string, now time.Time) {
	s.History = append(s.History, Message{Role: role, Content: content, Timestamp: now})
	s.LastActive = now
}

// MessageCount returns the number of transcript entries.
func (s *Session) MessageCount() int {
	return len(s.History)
}
