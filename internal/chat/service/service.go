// Package service contains the conversation orchestrator. It drives the
// intake state machine, reconciles extracted facts, and emits qualified
// leads exactly once per session.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"presales_backend/internal/chat/domain"
	"presales_backend/internal/chat/engine"
	"presales_backend/internal/chat/ports"
	"presales_backend/internal/chat/session"
	"presales_backend/internal/events"
	"presales_backend/platform/logger"
	"presales_backend/platform/phone"
)

// fallbackReply is sent when the engine cannot produce a response. The
// conversation state does not advance so the prospect can simply retry.
const fallbackReply = "I apologize, but I'm having trouble responding right now. Could you please repeat that?"

// UserInfo is optional caller-supplied identity attached to a turn.
type UserInfo struct {
	Name  string
	Email string
	Phone string
}

// TurnResult is the outcome of one processed message.
type TurnResult struct {
	SessionID string
	Reply     string
	State     domain.State
	Facts     domain.Facts
}

// SessionInfo is the read-only session view returned to clients.
type SessionInfo struct {
	SessionID  string
	State      domain.State
	Facts      domain.Facts
	History    []domain.Message
	CreatedAt  time.Time
	LastActive time.Time
}

// stateHandler resolves a state's directive and successor for one turn.
// Handlers run after extraction and reconciliation, under the session lock.
type stateHandler func(ctx context.Context, sess *domain.Session, extraction engine.Extraction, message string) (directive string, next domain.State)

// Orchestrator coordinates sessions, the reasoning engine, and lead emission.
type Orchestrator struct {
	store    *session.Store
	engine   engine.Engine
	prompts  *engine.Directives
	sink     ports.LeadSink
	archiver ports.TranscriptArchiver
	bus      events.Bus
	log      *logger.Logger
	clock    func() time.Time

	handlers map[domain.State]stateHandler
}

// NewOrchestrator wires the conversation orchestrator. sink and archiver may
// be nil in tests; emission is skipped gracefully.
func NewOrchestrator(
	store *session.Store,
	eng engine.Engine,
	prompts *engine.Directives,
	sink ports.LeadSink,
	archiver ports.TranscriptArchiver,
	bus events.Bus,
	log *logger.Logger,
) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		engine:   eng,
		prompts:  prompts,
		sink:     sink,
		archiver: archiver,
		bus:      bus,
		log:      log,
		clock:    time.Now,
	}
	o.handlers = map[domain.State]stateHandler{
		domain.StateGreeting:             o.handleLinear(engine.DirectiveGreeting),
		domain.StateRequirementGathering: o.handleLinear(engine.DirectiveRequirements),
		domain.StateUseCase:              o.handleLinear(engine.DirectiveUseCase),
		domain.StateTimeline:             o.handleLinear(engine.DirectiveTimeline),
		domain.StateBudget:               o.handleLinear(engine.DirectiveBudget),
		domain.StateSummarization:        o.handleSummarization,
		domain.StateContactCollection:    o.handleContactCollection,
		domain.StateConfirmation:         o.handleConfirmation,
		domain.StateHandoff:              o.handleHandoff,
	}
	return o
}

// HandleTurn processes one user message for the session, creating the
// session on first contact. It always returns a reply; engine failures
// degrade to a fallback response with the state unchanged.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, message string, info UserInfo) (TurnResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		sessionID = uuid.NewString()
	}
	ctx = logger.ContextWithSessionID(ctx, sessionID)
	log := o.log.WithSessionID(sessionID)

	var result TurnResult
	err := o.store.WithSession(ctx, sessionID, true, func(sess *domain.Session) error {
		now := o.clock()
		applyUserInfo(sess, info)
		sess.Append(domain.RoleUser, message, now)

		extraction := o.extractFacts(ctx, sess, message)

		handler := o.handlers[sess.State]
		directive, next := handler(ctx, sess, extraction, message)

		reply, err := o.engine.Generate(ctx, directive, sess.History)
		if err != nil {
			log.EngineError("generate", sessionID, err)
			reply = fallbackReply
			next = sess.State
		}

		sess.State = next
		sess.Append(domain.RoleAssistant, reply, o.clock())

		if sess.State == domain.StateHandoff && sess.Confirmation.Confirmed && !sess.Confirmation.LeadEmitted {
			o.emitLead(ctx, sess)
		}

		facts := sess.Facts
		facts.Requirements = append([]string(nil), sess.Facts.Requirements...)
		result = TurnResult{SessionID: sessionID, Reply: reply, State: sess.State, Facts: facts}
		return nil
	})
	if err != nil {
		return TurnResult{}, err
	}

	log.Debug("turn processed", "state", string(result.State))
	return result, nil
}

// extractFacts runs the state-bound extraction and reconciles the results
// into the session facts. Confirmation turns carry their extraction through
// to the handler instead.
func (o *Orchestrator) extractFacts(ctx context.Context, sess *domain.Session, message string) engine.Extraction {
	if sess.State == domain.StateConfirmation {
		return o.engine.Extract(ctx, sess.State, message)
	}

	if len(sess.State.ExtractionFields()) == 0 {
		return engine.Extraction{Status: engine.ExtractionNone}
	}

	extraction := o.engine.Extract(ctx, sess.State, message)
	if extraction.Status == engine.ExtractionFields {
		o.reconcile(sess, extraction.Fields)
	}
	return extraction
}

// reconcile merges extracted fields into the session facts. Non-empty values
// overwrite; empty or absent values never clear a learned fact.
func (o *Orchestrator) reconcile(sess *domain.Session, fields map[string]string) {
	for field, value := range fields {
		if field == domain.FieldContactInfo && phone.LooksLikePhone(value) {
			value = phone.NormalizeE164(value)
		}
		sess.Facts.Set(field, value)
	}
}

func (o *Orchestrator) handleLinear(directive string) stateHandler {
	return func(_ context.Context, sess *domain.Session, _ engine.Extraction, _ string) (string, domain.State) {
		return o.prompts.Get(directive), sess.State.Next()
	}
}

func (o *Orchestrator) handleSummarization(ctx context.Context, sess *domain.Session, _ engine.Extraction, _ string) (string, domain.State) {
	summary, err := o.engine.Summarize(ctx, sess.History)
	if err != nil {
		o.log.EngineError("summarize", sess.ID, err)
		summary = factSummary(sess.Facts)
	}
	sess.Summary = summary

	if sess.Facts.HasContactInfo() {
		return o.prompts.Get(engine.DirectiveSummaryConfirm), domain.StateConfirmation
	}
	return o.prompts.Get(engine.DirectiveSummaryAskContact), domain.StateContactCollection
}

func (o *Orchestrator) handleContactCollection(_ context.Context, sess *domain.Session, _ engine.Extraction, _ string) (string, domain.State) {
	if sess.Facts.HasContactInfo() {
		return o.prompts.Get(engine.DirectiveContactThanks), domain.StateConfirmation
	}
	return o.prompts.Get(engine.DirectiveContactRetry), domain.StateContactCollection
}

func (o *Orchestrator) handleConfirmation(_ context.Context, sess *domain.Session, extraction engine.Extraction, message string) (string, domain.State) {
	verdict := extraction.Verdict
	if verdict != domain.VerdictPositive && verdict != domain.VerdictNegative {
		// The engine's verdict counts only when it is decisive. When it is
		// unavailable, silent, or answers out of vocabulary, the phrase
		// lexicon on the raw message decides instead.
		verdict = domain.ClassifyVerdict(message)
	}

	switch verdict {
	case domain.VerdictPositive:
		sess.Confirmation.Confirmed = true
		sess.Confirmation.PendingCorrections = nil
		return o.prompts.Get(engine.DirectiveConfirmThanks), domain.StateHandoff

	case domain.VerdictNegative:
		if len(extraction.Corrections) > 0 {
			sess.Confirmation.PendingCorrections = extraction.Corrections
			o.reconcile(sess, extraction.Corrections)
		}
		return o.prompts.Get(engine.DirectiveConfirmCorrections), domain.StateConfirmation

	default:
		return o.prompts.Get(engine.DirectiveConfirmClarify), domain.StateConfirmation
	}
}

func (o *Orchestrator) handleHandoff(_ context.Context, sess *domain.Session, _ engine.Extraction, _ string) (string, domain.State) {
	return o.prompts.Get(engine.DirectiveHandoff), domain.StateHandoff
}

// emitLead hands the qualified lead to the sink. The session is marked
// emitted before the sink runs, so a sink failure can never cause a second
// emission on a later turn. Failures are logged and swallowed.
func (o *Orchestrator) emitLead(ctx context.Context, sess *domain.Session) {
	sess.Confirmation.LeadEmitted = true

	// Re-summarize over the complete history so contact details collected
	// after the summarization step make it into the lead.
	summary, err := o.engine.Summarize(ctx, sess.History)
	if err != nil || strings.TrimSpace(summary) == "" {
		if err != nil {
			o.log.EngineError("summarize", sess.ID, err)
		}
		summary = sess.Summary
	}
	if strings.TrimSpace(summary) == "" {
		summary = factSummary(sess.Facts)
	}
	sess.Summary = summary

	lead := ports.QualifiedLead{
		SessionID:           sess.ID,
		ClientName:          sess.Facts.ClientName,
		ContactInfo:         sess.Facts.ContactInfo,
		ProjectType:         sess.Facts.ProjectType,
		UseCase:             sess.Facts.UseCase,
		RequirementsSummary: sess.Facts.RequirementsSummary(),
		Timeline:            sess.Facts.Timeline,
		BudgetRange:         sess.Facts.BudgetRange,
		Summary:             summary,
	}

	if o.sink == nil {
		o.log.Warn("no lead sink configured, dropping qualified lead", "session_id", sess.ID)
		return
	}

	leadID, err := o.sink.Store(ctx, lead)
	if err != nil {
		o.log.Error("lead sink failed", "session_id", sess.ID, "error", err)
		return
	}

	if o.bus != nil {
		o.bus.Publish(ctx, events.LeadQualified{
			BaseEvent:   events.NewBaseEvent(),
			LeadID:      leadID,
			SessionID:   sess.ID,
			ClientName:  lead.ClientName,
			ContactInfo: lead.ContactInfo,
			ProjectType: lead.ProjectType,
			BudgetRange: lead.BudgetRange,
			Timeline:    lead.Timeline,
			Summary:     lead.Summary,
		})
	}

	if o.archiver != nil {
		snapshot := *sess
		snapshot.History = append([]domain.Message(nil), sess.History...)
		go func() {
			if err := o.archiver.Archive(context.WithoutCancel(ctx), snapshot); err != nil {
				o.log.Error("transcript archive failed", "session_id", snapshot.ID, "error", err)
			}
		}()
	}

	o.log.Info("lead emitted", "session_id", sess.ID, "lead_id", leadID)
}

// applyUserInfo merges caller-provided identity into the facts. Email wins
// over phone when both are present.
func applyUserInfo(sess *domain.Session, info UserInfo) {
	if name := strings.TrimSpace(info.Name); name != "" {
		sess.Facts.ClientName = name
	}
	if email := strings.TrimSpace(info.Email); email != "" {
		sess.Facts.ContactInfo = email
	} else if phoneNumber := strings.TrimSpace(info.Phone); phoneNumber != "" {
		sess.Facts.ContactInfo = phone.NormalizeE164(phoneNumber)
	}
}

// factSummary is the deterministic fallback used when the engine cannot
// summarize the conversation.
func factSummary(f domain.Facts) string {
	var b strings.Builder
	write := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		fmt.Fprintf(&b, "- %s: %s\n", label, value)
	}
	write("Project type", f.ProjectType)
	write("Requirements", f.RequirementsSummary())
	write("Use case", f.UseCase)
	write("Timeline", f.Timeline)
	write("Budget", f.BudgetRange)
	write("Contact", f.ContactInfo)
	write("Notes", f.Notes)
	return strings.TrimRight(b.String(), "\n")
}

// GetSession returns the read-only view of a session.
func (o *Orchestrator) GetSession(_ context.Context, sessionID string) (SessionInfo, error) {
	snap, err := o.store.Snapshot(sessionID)
	if err != nil {
		return SessionInfo{}, err
	}
	return SessionInfo{
		SessionID:  snap.ID,
		State:      snap.State,
		Facts:      snap.Facts,
		History:    snap.History,
		CreatedAt:  snap.CreatedAt,
		LastActive: snap.LastActive,
	}, nil
}

// DeleteSession archives the transcript and removes the session.
func (o *Orchestrator) DeleteSession(ctx context.Context, sessionID string) error {
	if o.archiver != nil {
		if snap, err := o.store.Snapshot(sessionID); err == nil && snap.MessageCount() > 0 {
			if err := o.archiver.Archive(ctx, snap); err != nil {
				o.log.Error("transcript archive failed", "session_id", sessionID, "error", err)
			}
		}
	}
	return o.store.Delete(sessionID)
}

// SweepIdleSessions removes sessions idle longer than maxIdle and publishes
// an expiry event for each.
func (o *Orchestrator) SweepIdleSessions(ctx context.Context, maxIdle time.Duration) int {
	swept := o.store.SweepIdle(maxIdle)
	for _, id := range swept {
		if o.bus != nil {
			o.bus.Publish(ctx, events.ChatSessionExpired{
				BaseEvent: events.NewBaseEvent(),
				SessionID: id,
			})
		}
	}
	if len(swept) > 0 {
		o.log.Info("idle sessions swept", "count", len(swept))
	}
	return len(swept)
}
