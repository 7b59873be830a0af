package notification

import (
	"context"
	"testing"

	"presales_backend/internal/email"
	"presales_backend/internal/events"
	platformevents "presales_backend/platform/events"
	"presales_backend/platform/logger"
)

type testNotificationConfig struct {
	salesEmail string
}

func (c testNotificationConfig) GetSalesTeamEmail() string { return c.salesEmail }

type testSender struct {
	calls []email.LeadNotificationData
	to    string
}

func (s *testSender) SendLeadNotification(_ context.Context, toEmail string, data email.LeadNotificationData) error {
	s.to = toEmail
	s.calls = append(s.calls, data)
	return nil
}

func TestLeadQualifiedSendsNotification(t *testing.T) {
	log := logger.New("development")
	bus := platformevents.NewInMemoryBus(log)
	sender := &testSender{}

	NewModule(bus, sender, testNotificationConfig{salesEmail: "sales@example.com"}, log)

	err := bus.PublishSync(context.Background(), events.LeadQualified{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      "lead-1",
		SessionID:   "sess-1",
		ClientName:  "Ada",
		ContactInfo: "ada@example.com",
		ProjectType: "web shop",
		BudgetRange: "50k",
	})
	if err != nil {
		t.Fatalf("PublishSync() error: %v", err)
	}

	if len(sender.calls) != 1 {
		t.Fatalf("notifications sent = %d, want 1", len(sender.calls))
	}
	if sender.to != "sales@example.com" {
		t.Errorf("recipient = %q", sender.to)
	}
	if sender.calls[0].ClientName != "Ada" || sender.calls[0].LeadID != "lead-1" {
		t.Errorf("notification data = %+v", sender.calls[0])
	}
}

func TestNoSalesEmailConfigured(t *testing.T) {
	log := logger.New("development")
	bus := platformevents.NewInMemoryBus(log)
	sender := &testSender{}

	NewModule(bus, sender, testNotificationConfig{}, log)

	err := bus.PublishSync(context.Background(), events.LeadQualified{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    "lead-1",
	})
	if err != nil {
		t.Fatalf("PublishSync() error: %v", err)
	}
	if len(sender.calls) != 0 {
		t.Errorf("notifications sent = %d, want 0", len(sender.calls))
	}
}
