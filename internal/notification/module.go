// Package notification provides event handlers for sending notifications
// in response to domain events. This module subscribes to events and inverts
// the dependency: domain modules no longer need to know about email
// providers or templates.
package notification

import (
	"context"

	"presales_backend/internal/email"
	"presales_backend/internal/events"
	"presales_backend/platform/config"
	"presales_backend/platform/logger"
)

// Module owns the event subscriptions that fan out to notification channels.
type Module struct {
	sender email.Sender
	cfg    config.NotificationConfig
	log    *logger.Logger
}

// NewModule creates the notification module and registers its event handlers.
func NewModule(bus events.Bus, sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	m := &Module{sender: sender, cfg: cfg, log: log}

	bus.Subscribe(events.LeadQualifiedEvent, events.HandlerFunc(m.onLeadQualified))
	bus.Subscribe(events.ChatSessionExpiredEvent, events.HandlerFunc(m.onSessionExpired))

	return m
}

func (m *Module) onLeadQualified(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadQualified)
	if !ok {
		return nil
	}

	toEmail := m.cfg.GetSalesTeamEmail()
	if toEmail == "" {
		return nil
	}

	err := m.sender.SendLeadNotification(ctx, toEmail, email.LeadNotificationData{
		LeadID:      e.LeadID,
		ClientName:  e.ClientName,
		ContactInfo: e.ContactInfo,
		ProjectType: e.ProjectType,
		Timeline:    e.Timeline,
		BudgetRange: e.BudgetRange,
		Summary:     e.Summary,
	})
	if err != nil {
		m.log.Error("lead notification email failed", "lead_id", e.LeadID, "error", err)
		return err
	}

	m.log.Info("lead notification sent", "lead_id", e.LeadID)
	return nil
}

func (m *Module) onSessionExpired(_ context.Context, event events.Event) error {
	e, ok := event.(events.ChatSessionExpired)
	if !ok {
		return nil
	}
	m.log.Info("chat session expired", "session_id", e.SessionID)
	return nil
}
