// Package domain defines the lead record and its follow-up lifecycle.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// FollowUpStatus tracks what the sales team has done with a lead.
type FollowUpStatus string

const (
	StatusPending   FollowUpStatus = "pending"
	StatusContacted FollowUpStatus = "contacted"
	StatusQualified FollowUpStatus = "qualified"
	StatusWon       FollowUpStatus = "won"
	StatusLost      FollowUpStatus = "lost"
)

// Valid reports whether s is a known follow-up status.
func (s FollowUpStatus) Valid() bool {
	switch s {
	case StatusPending, StatusContacted, StatusQualified, StatusWon, StatusLost:
		return true
	}
	return false
}

// Lead is the persisted record of a qualified intake conversation.
type Lead struct {
	ID                  uuid.UUID      `json:"id"`
	SessionID           string         `json:"session_id"`
	ClientName          string         `json:"client_name"`
	ContactInfo         string         `json:"contact_info"`
	ProjectType         string         `json:"project_type"`
	UseCase             string         `json:"use_case"`
	RequirementsSummary string         `json:"requirements_summary"`
	Timeline            string         `json:"timeline"`
	BudgetRange         string         `json:"budget_range"`
	Summary             string         `json:"summary"`
	FollowUpStatus      FollowUpStatus `json:"follow_up_status"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}
