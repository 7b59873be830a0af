// Package transport defines the request and response shapes of the chat API.
package transport

import (
	"time"

	"presales_backend/internal/chat/domain"
	"presales_backend/internal/chat/service"
)

// UserInfo is optional caller-supplied identity sent with a chat turn.
type UserInfo struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message   string    `json:"message" validate:"required,max=4000"`
	SessionID string    `json:"session_id,omitempty" validate:"omitempty,max=128"`
	UserInfo  *UserInfo `json:"user_info,omitempty"`
}

// ChatResponse is the reply to a chat turn.
type ChatResponse struct {
	Response          string            `json:"response"`
	SessionID         string            `json:"session_id"`
	ConversationState ConversationState `json:"conversation_state"`
}

// ConversationState reports where the conversation stands after a turn.
type ConversationState struct {
	CurrentStep   string        `json:"current_step"`
	CollectedInfo CollectedInfo `json:"collected_info"`
}

// SessionResponse is the read-only session view.
type SessionResponse struct {
	SessionID     string           `json:"session_id"`
	State         string           `json:"state"`
	CollectedInfo CollectedInfo    `json:"collected_info"`
	History       []domain.Message `json:"conversation_history"`
	CreatedAt     time.Time        `json:"created_at"`
	LastActive    time.Time        `json:"last_active"`
}

// CollectedInfo mirrors the structured facts gathered so far.
type CollectedInfo struct {
	ClientName      string   `json:"client_name,omitempty"`
	ContactInfo     string   `json:"contact_info,omitempty"`
	ProjectType     string   `json:"project_type,omitempty"`
	Requirements    []string `json:"requirements,omitempty"`
	UseCase         string   `json:"use_case,omitempty"`
	Timeline        string   `json:"timeline,omitempty"`
	BudgetRange     string   `json:"budget_range,omitempty"`
	AdditionalNotes string   `json:"additional_notes,omitempty"`
}

func collectedInfoFromFacts(f domain.Facts) CollectedInfo {
	return CollectedInfo{
		ClientName:      f.ClientName,
		ContactInfo:     f.ContactInfo,
		ProjectType:     f.ProjectType,
		Requirements:    f.Requirements,
		UseCase:         f.UseCase,
		Timeline:        f.Timeline,
		BudgetRange:     f.BudgetRange,
		AdditionalNotes: f.Notes,
	}
}

// FromTurnResult maps the orchestrator result to the wire shape.
func FromTurnResult(result service.TurnResult) ChatResponse {
	return ChatResponse{
		Response:  result.Reply,
		SessionID: result.SessionID,
		ConversationState: ConversationState{
			CurrentStep:   string(result.State),
			CollectedInfo: collectedInfoFromFacts(result.Facts),
		},
	}
}

// FromSessionInfo maps the orchestrator session view to the wire shape.
func FromSessionInfo(info service.SessionInfo) SessionResponse {
	return SessionResponse{
		SessionID:     info.SessionID,
		State:         string(info.State),
		CollectedInfo: collectedInfoFromFacts(info.Facts),
		History:       info.History,
		CreatedAt:     info.CreatedAt,
		LastActive:    info.LastActive,
	}
}
