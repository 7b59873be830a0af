// Package events defines the domain events exchanged between modules.
package events

import (
	"presales_backend/platform/events"
)

// Event names. Subscribers use these to register handlers.
const (
	LeadQualifiedEvent      = "lead.qualified"
	ChatSessionExpiredEvent = "chat.session_expired"
)

// Re-export platform types so modules only import this package.
type (
	Event       = events.Event
	BaseEvent   = events.BaseEvent
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	Bus         = events.Bus
)

// NewBaseEvent creates a base event stamped with the current time.
func NewBaseEvent() BaseEvent {
	return events.NewBaseEvent()
}

// LeadQualified is published exactly once when a session reaches handoff
// with a confirmed summary and the lead has been persisted.
type LeadQualified struct {
	BaseEvent
	LeadID      string `json:"lead_id"`
	SessionID   string `json:"session_id"`
	ClientName  string `json:"client_name"`
	ContactInfo string `json:"contact_info"`
	ProjectType string `json:"project_type"`
	BudgetRange string `json:"budget_range"`
	Timeline    string `json:"timeline"`
	Summary     string `json:"summary"`
}

// EventName returns the unique event identifier.
func (e LeadQualified) EventName() string { return LeadQualifiedEvent }

// ChatSessionExpired is published when the idle sweep removes a session.
type ChatSessionExpired struct {
	BaseEvent
	SessionID string `json:"session_id"`
}

// EventName returns the unique event identifier.
func (e ChatSessionExpired) EventName() string { return ChatSessionExpiredEvent }
