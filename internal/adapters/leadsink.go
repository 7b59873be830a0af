// Package adapters wires the chat module's outbound ports to the modules
// that implement them.
package adapters

import (
	"context"

	"presales_backend/internal/chat/ports"
	leaddomain "presales_backend/internal/leads/domain"
	leadservice "presales_backend/internal/leads/service"
)

// LeadSink adapts the leads service to the chat module's LeadSink port.
type LeadSink struct {
	svc *leadservice.Service
}

// NewLeadSink creates the adapter.
func NewLeadSink(svc *leadservice.Service) *LeadSink {
	return &LeadSink{svc: svc}
}

// Store persists the qualified lead and returns its ID.
func (s *LeadSink) Store(ctx context.Context, lead ports.QualifiedLead) (string, error) {
	id, err := s.svc.Create(ctx, leaddomain.Lead{
		SessionID:           lead.SessionID,
		ClientName:          lead.ClientName,
		ContactInfo:         lead.ContactInfo,
		ProjectType:         lead.ProjectType,
		UseCase:             lead.UseCase,
		RequirementsSummary: lead.RequirementsSummary,
		Timeline:            lead.Timeline,
		BudgetRange:         lead.BudgetRange,
		Summary:             lead.Summary,
	})
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Compile-time check that LeadSink implements the chat port.
var _ ports.LeadSink = (*LeadSink)(nil)
