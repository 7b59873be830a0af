// Package email delivers transactional mail for the application.
package email

import "context"

// Sender delivers notification emails.
type Sender interface {
	// SendLeadNotification tells the sales team a new qualified lead arrived.
	SendLeadNotification(ctx context.Context, toEmail string, data LeadNotificationData) error
}

// LeadNotificationData feeds the lead notification template.
type LeadNotificationData struct {
	LeadID      string
	ClientName  string
	ContactInfo string
	ProjectType string
	Timeline    string
	BudgetRange string
	Summary     string
}

// NoopSender is used when no SMTP server is configured.
type NoopSender struct{}

// SendLeadNotification does nothing.
func (NoopSender) SendLeadNotification(context.Context, string, LeadNotificationData) error {
	return nil
}
