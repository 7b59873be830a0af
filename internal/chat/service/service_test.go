package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"presales_backend/internal/chat/domain"
	"presales_backend/internal/chat/engine"
	"presales_backend/internal/chat/ports"
	"presales_backend/internal/chat/session"
	"presales_backend/platform/logger"
)

// fakeEngine scripts extraction per state and echoes directives as replies.
type fakeEngine struct {
	mu           sync.Mutex
	extractions  map[domain.State]engine.Extraction
	generateErr  error
	summarizeErr error
	summary      string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		extractions: make(map[domain.State]engine.Extraction),
		summary:     "summary of the project",
	}
}

func (f *fakeEngine) Generate(_ context.Context, directive string, _ []domain.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return "reply: " + firstLine(directive), nil
}

func (f *fakeEngine) Extract(_ context.Context, state domain.State, _ string) engine.Extraction {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ext, ok := f.extractions[state]; ok {
		return ext
	}
	return engine.Extraction{Status: engine.ExtractionNone, Verdict: domain.VerdictAmbiguous}
}

func (f *fakeEngine) Summarize(_ context.Context, _ []domain.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.summarizeErr != nil {
		return "", f.summarizeErr
	}
	return f.summary, nil
}

func (f *fakeEngine) setExtraction(state domain.State, ext engine.Extraction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extractions[state] = ext
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

// recordingSink captures every stored lead.
type recordingSink struct {
	mu    sync.Mutex
	leads []ports.QualifiedLead
	err   error
}

func (r *recordingSink) Store(_ context.Context, lead ports.QualifiedLead) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.leads = append(r.leads, lead)
	return fmt.Sprintf("lead-%d", len(r.leads)), nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.leads)
}

func newTestOrchestrator(eng *fakeEngine, sink *recordingSink) *Orchestrator {
	return NewOrchestrator(
		session.NewStore(),
		eng,
		engine.NewDirectives(),
		sink,
		nil,
		nil,
		logger.New("development"),
	)
}

func fields(kv ...string) engine.Extraction {
	m := make(map[string]string)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return engine.Extraction{Status: engine.ExtractionFields, Fields: m}
}

// driveToSummarization walks a session through the five linear states.
func driveToSummarization(t *testing.T, o *Orchestrator, eng *fakeEngine, sessionID string) {
	t.Helper()

	eng.setExtraction(domain.StateGreeting, fields(domain.FieldProjectType, "web shop"))
	eng.setExtraction(domain.StateRequirementGathering, fields(domain.FieldRequirements, "catalog, checkout"))
	eng.setExtraction(domain.StateUseCase, fields(domain.FieldUseCase, "customer-facing"))
	eng.setExtraction(domain.StateTimeline, fields(domain.FieldTimeline, "3 months"))
	eng.setExtraction(domain.StateBudget, fields(domain.FieldBudgetRange, "50k-80k"))

	steps := []struct {
		message string
		want    domain.State
	}{
		{"hi, I need a web shop", domain.StateRequirementGathering},
		{"catalog and checkout", domain.StateUseCase},
		{"customer facing", domain.StateTimeline},
		{"three months", domain.StateBudget},
		{"50 to 80k", domain.StateSummarization},
	}

	for _, step := range steps {
		result, err := o.HandleTurn(context.Background(), sessionID, step.message, UserInfo{})
		if err != nil {
			t.Fatalf("HandleTurn(%q) error: %v", step.message, err)
		}
		if result.State != step.want {
			t.Fatalf("after %q state = %s, want %s", step.message, result.State, step.want)
		}
	}
}

func TestHappyPathWithContactUpfront(t *testing.T) {
	eng := newFakeEngine()
	sink := &recordingSink{}
	o := newTestOrchestrator(eng, sink)

	// contact known from the start, so summarization goes straight to confirmation
	result, err := o.HandleTurn(context.Background(), "", "hello", UserInfo{Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("HandleTurn() error: %v", err)
	}
	sessionID := result.SessionID
	if sessionID == "" {
		t.Fatal("expected generated session ID")
	}

	eng.setExtraction(domain.StateRequirementGathering, fields(domain.FieldRequirements, "catalog, checkout"))
	eng.setExtraction(domain.StateUseCase, fields(domain.FieldUseCase, "customer-facing"))
	eng.setExtraction(domain.StateTimeline, fields(domain.FieldTimeline, "3 months"))
	eng.setExtraction(domain.StateBudget, fields(domain.FieldBudgetRange, "50k-80k"))

	for _, msg := range []string{"catalog and checkout", "customer facing", "three months", "50 to 80k"} {
		if _, err := o.HandleTurn(context.Background(), sessionID, msg, UserInfo{}); err != nil {
			t.Fatalf("HandleTurn(%q) error: %v", msg, err)
		}
	}

	// summarization turn branches to confirmation because contact is known
	result, err = o.HandleTurn(context.Background(), sessionID, "sounds good so far", UserInfo{})
	if err != nil {
		t.Fatalf("HandleTurn() error: %v", err)
	}
	if result.State != domain.StateConfirmation {
		t.Fatalf("state = %s, want %s", result.State, domain.StateConfirmation)
	}

	eng.setExtraction(domain.StateConfirmation, engine.Extraction{
		Status:  engine.ExtractionFields,
		Verdict: domain.VerdictPositive,
	})
	result, err = o.HandleTurn(context.Background(), sessionID, "confirm", UserInfo{})
	if err != nil {
		t.Fatalf("HandleTurn() error: %v", err)
	}
	if result.State != domain.StateHandoff {
		t.Fatalf("state = %s, want %s", result.State, domain.StateHandoff)
	}

	if sink.count() != 1 {
		t.Fatalf("leads stored = %d, want 1", sink.count())
	}
	lead := sink.leads[0]
	if lead.ClientName != "Ada" || lead.ContactInfo != "ada@example.com" {
		t.Errorf("lead identity = %q / %q", lead.ClientName, lead.ContactInfo)
	}
	if lead.RequirementsSummary != "catalog, checkout" {
		t.Errorf("RequirementsSummary = %q", lead.RequirementsSummary)
	}
	if lead.Summary != "summary of the project" {
		t.Errorf("Summary = %q", lead.Summary)
	}
}

func TestContactCollectionLoop(t *testing.T) {
	eng := newFakeEngine()
	sink := &recordingSink{}
	o := newTestOrchestrator(eng, sink)

	driveToSummarization(t, o, eng, "s1")

	// no contact info yet: summarization branches to contact collection
	result, err := o.HandleTurn(context.Background(), "s1", "that is all", UserInfo{})
	if err != nil {
		t.Fatalf("HandleTurn() error: %v", err)
	}
	if result.State != domain.StateContactCollection {
		t.Fatalf("state = %s, want %s", result.State, domain.StateContactCollection)
	}

	// first contact turn yields nothing usable: stay and re-ask
	result, err = o.HandleTurn(context.Background(), "s1", "why do you need that?", UserInfo{})
	if err != nil {
		t.Fatalf("HandleTurn() error: %v", err)
	}
	if result.State != domain.StateContactCollection {
		t.Fatalf("state = %s, want %s", result.State, domain.StateContactCollection)
	}

	// then the prospect hands over an email and a name
	eng.setExtraction(domain.StateContactCollection, fields(
		domain.FieldContactInfo, "bob@client.io",
		domain.FieldClientName, "Bob",
	))
	result, err = o.HandleTurn(context.Background(), "s1", "sure, bob@client.io, I'm Bob", UserInfo{})
	if err != nil {
		t.Fatalf("HandleTurn() error: %v", err)
	}
	if result.State != domain.StateConfirmation {
		t.Fatalf("state = %s, want %s", result.State, domain.StateConfirmation)
	}

	info, err := o.GetSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if info.Facts.ContactInfo != "bob@client.io" || info.Facts.ClientName != "Bob" {
		t.Errorf("facts = %q / %q", info.Facts.ContactInfo, info.Facts.ClientName)
	}
}

func TestNegativeConfirmationAppliesCorrections(t *testing.T) {
	eng := newFakeEngine()
	sink := &recordingSink{}
	o := newTestOrchestrator(eng, sink)

	driveToSummarization(t, o, eng, "s1")
	eng.setExtraction(domain.StateContactCollection, fields(domain.FieldContactInfo, "eve@corp.com"))

	_, _ = o.HandleTurn(context.Background(), "s1", "done", UserInfo{})          // summarization
	_, _ = o.HandleTurn(context.Background(), "s1", "eve@corp.com", UserInfo{}) // contact

	// reject the summary and correct the budget
	eng.setExtraction(domain.StateConfirmation, engine.Extraction{
		Status:      engine.ExtractionFields,
		Verdict:     domain.VerdictNegative,
		Corrections: map[string]string{domain.FieldBudgetRange: "100k-120k"},
	})
	result, err := o.HandleTurn(context.Background(), "s1", "no, the budget is 100k-120k", UserInfo{})
	if err != nil {
		t.Fatalf("HandleTurn() error: %v", err)
	}
	if result.State != domain.StateConfirmation {
		t.Fatalf("state = %s, want %s", result.State, domain.StateConfirmation)
	}
	if sink.count() != 0 {
		t.Fatalf("lead emitted on rejection")
	}

	info, _ := o.GetSession(context.Background(), "s1")
	if info.Facts.BudgetRange != "100k-120k" {
		t.Errorf("BudgetRange = %q, want corrected value", info.Facts.BudgetRange)
	}

	// now confirm; the emitted lead carries the corrected budget
	eng.setExtraction(domain.StateConfirmation, engine.Extraction{
		Status:  engine.ExtractionFields,
		Verdict: domain.VerdictPositive,
	})
	result, err = o.HandleTurn(context.Background(), "s1", "yes", UserInfo{})
	if err != nil {
		t.Fatalf("HandleTurn() error: %v", err)
	}
	if result.State != domain.StateHandoff {
		t.Fatalf("state = %s, want %s", result.State, domain.StateHandoff)
	}
	if sink.count() != 1 {
		t.Fatalf("leads stored = %d, want 1", sink.count())
	}
	if sink.leads[0].BudgetRange != "100k-120k" {
		t.Errorf("lead BudgetRange = %q", sink.leads[0].BudgetRange)
	}
}

func TestAmbiguousConfirmationStays(t *testing.T) {
	eng := newFakeEngine()
	o := newTestOrchestrator(eng, &recordingSink{})

	driveToSummarization(t, o, eng, "s1")
	eng.setExtraction(domain.StateContactCollection, fields(domain.FieldContactInfo, "x@y.z"))
	_, _ = o.HandleTurn(context.Background(), "s1", "done", UserInfo{})
	_, _ = o.HandleTurn(context.Background(), "s1", "x@y.z", UserInfo{})

	// engine silent, lexicon cannot classify either
	result, err := o.HandleTurn(context.Background(), "s1", "let me think about it", UserInfo{})
	if err != nil {
		t.Fatalf("HandleTurn() error: %v", err)
	}
	if result.State != domain.StateConfirmation {
		t.Errorf("state = %s, want %s", result.State, domain.StateConfirmation)
	}
}

func TestLexicalFallbackWhenEngineSilent(t *testing.T) {
	eng := newFakeEngine()
	sink := &recordingSink{}
	o := newTestOrchestrator(eng, sink)

	driveToSummarization(t, o, eng, "s1")
	eng.setExtraction(domain.StateContactCollection, fields(domain.FieldContactInfo, "x@y.z"))
	_, _ = o.HandleTurn(context.Background(), "s1", "done", UserInfo{})
	_, _ = o.HandleTurn(context.Background(), "s1", "x@y.z", UserInfo{})

	// extraction unavailable, but the raw message says "confirm"
	eng.setExtraction(domain.StateConfirmation, engine.Extraction{Status: engine.ExtractionUnavailable})
	result, err := o.HandleTurn(context.Background(), "s1", "confirm", UserInfo{})
	if err != nil {
		t.Fatalf("HandleTurn() error: %v", err)
	}
	if result.State != domain.StateHandoff {
		t.Fatalf("state = %s, want %s", result.State, domain.StateHandoff)
	}
	if sink.count() != 1 {
		t.Errorf("leads stored = %d, want 1", sink.count())
	}
}

func TestLexicalFallbackWhenEngineIndecisive(t *testing.T) {
	eng := newFakeEngine()
	sink := &recordingSink{}
	o := newTestOrchestrator(eng, sink)

	driveToSummarization(t, o, eng, "s1")
	eng.setExtraction(domain.StateContactCollection, fields(domain.FieldContactInfo, "x@y.z"))
	_, _ = o.HandleTurn(context.Background(), "s1", "done", UserInfo{})
	_, _ = o.HandleTurn(context.Background(), "s1", "x@y.z", UserInfo{})

	// the engine answers but cannot classify; the raw message can
	eng.setExtraction(domain.StateConfirmation, engine.Extraction{
		Status:  engine.ExtractionFields,
		Verdict: domain.VerdictAmbiguous,
	})
	result, err := o.HandleTurn(context.Background(), "s1", "yes, all of that is correct", UserInfo{})
	if err != nil {
		t.Fatalf("HandleTurn() error: %v", err)
	}
	if result.State != domain.StateHandoff {
		t.Fatalf("state = %s, want %s", result.State, domain.StateHandoff)
	}
	if sink.count() != 1 {
		t.Errorf("leads stored = %d, want 1", sink.count())
	}
}

func TestLeadEmittedExactlyOnce(t *testing.T) {
	eng := newFakeEngine()
	sink := &recordingSink{}
	o := newTestOrchestrator(eng, sink)

	driveToSummarization(t, o, eng, "s1")
	eng.setExtraction(domain.StateContactCollection, fields(domain.FieldContactInfo, "x@y.z"))
	_, _ = o.HandleTurn(context.Background(), "s1", "done", UserInfo{})
	_, _ = o.HandleTurn(context.Background(), "s1", "x@y.z", UserInfo{})
	eng.setExtraction(domain.StateConfirmation, engine.Extraction{
		Status:  engine.ExtractionFields,
		Verdict: domain.VerdictPositive,
	})
	_, _ = o.HandleTurn(context.Background(), "s1", "confirm", UserInfo{})

	// further handoff turns never re-emit
	for _, msg := range []string{"thanks", "bye", "one more question"} {
		result, err := o.HandleTurn(context.Background(), "s1", msg, UserInfo{})
		if err != nil {
			t.Fatalf("HandleTurn(%q) error: %v", msg, err)
		}
		if result.State != domain.StateHandoff {
			t.Errorf("state = %s, want %s", result.State, domain.StateHandoff)
		}
	}
	if sink.count() != 1 {
		t.Errorf("leads stored = %d, want 1", sink.count())
	}
}

func TestSinkFailureDoesNotFailTurnOrRetry(t *testing.T) {
	eng := newFakeEngine()
	sink := &recordingSink{err: errors.New("db down")}
	o := newTestOrchestrator(eng, sink)

	driveToSummarization(t, o, eng, "s1")
	eng.setExtraction(domain.StateContactCollection, fields(domain.FieldContactInfo, "x@y.z"))
	_, _ = o.HandleTurn(context.Background(), "s1", "done", UserInfo{})
	_, _ = o.HandleTurn(context.Background(), "s1", "x@y.z", UserInfo{})
	eng.setExtraction(domain.StateConfirmation, engine.Extraction{
		Status:  engine.ExtractionFields,
		Verdict: domain.VerdictPositive,
	})

	result, err := o.HandleTurn(context.Background(), "s1", "confirm", UserInfo{})
	if err != nil {
		t.Fatalf("HandleTurn() error: %v", err)
	}
	if result.State != domain.StateHandoff {
		t.Fatalf("state = %s, want %s", result.State, domain.StateHandoff)
	}

	// the sink recovers, but the session is already marked emitted
	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()

	_, _ = o.HandleTurn(context.Background(), "s1", "hello again", UserInfo{})
	if sink.count() != 0 {
		t.Errorf("leads stored = %d, want 0 after at-most-once failure", sink.count())
	}
}

func TestGenerateFailureKeepsState(t *testing.T) {
	eng := newFakeEngine()
	o := newTestOrchestrator(eng, &recordingSink{})

	eng.setExtraction(domain.StateGreeting, fields(domain.FieldProjectType, "app"))
	_, _ = o.HandleTurn(context.Background(), "s1", "hi", UserInfo{})

	eng.mu.Lock()
	eng.generateErr = errors.New("engine down")
	eng.mu.Unlock()

	result, err := o.HandleTurn(context.Background(), "s1", "I need auth", UserInfo{})
	if err != nil {
		t.Fatalf("HandleTurn() error: %v", err)
	}
	if result.Reply != fallbackReply {
		t.Errorf("reply = %q, want fallback", result.Reply)
	}
	if result.State != domain.StateRequirementGathering {
		t.Errorf("state = %s, want unchanged %s", result.State, domain.StateRequirementGathering)
	}

	// both sides of the turn are still on the transcript
	info, _ := o.GetSession(context.Background(), "s1")
	if len(info.History) != 4 {
		t.Errorf("history length = %d, want 4", len(info.History))
	}
}

func TestEmptyExtractionNeverClearsFacts(t *testing.T) {
	eng := newFakeEngine()
	o := newTestOrchestrator(eng, &recordingSink{})

	eng.setExtraction(domain.StateGreeting, fields(domain.FieldProjectType, "mobile app"))
	_, _ = o.HandleTurn(context.Background(), "s1", "I want a mobile app", UserInfo{})

	// next state's extraction comes back empty
	eng.setExtraction(domain.StateRequirementGathering, engine.Extraction{Status: engine.ExtractionNone})
	_, _ = o.HandleTurn(context.Background(), "s1", "hmm", UserInfo{})

	info, _ := o.GetSession(context.Background(), "s1")
	if info.Facts.ProjectType != "mobile app" {
		t.Errorf("ProjectType = %q, fact was cleared", info.Facts.ProjectType)
	}
}

func TestUserInfoPhoneNormalized(t *testing.T) {
	eng := newFakeEngine()
	o := newTestOrchestrator(eng, &recordingSink{})

	_, err := o.HandleTurn(context.Background(), "s1", "hi", UserInfo{Phone: "+1 415 555 2671"})
	if err != nil {
		t.Fatalf("HandleTurn() error: %v", err)
	}

	info, _ := o.GetSession(context.Background(), "s1")
	if info.Facts.ContactInfo != "+14155552671" {
		t.Errorf("ContactInfo = %q, want E.164", info.Facts.ContactInfo)
	}
}

func TestUserInfoEmailWinsOverPhone(t *testing.T) {
	eng := newFakeEngine()
	o := newTestOrchestrator(eng, &recordingSink{})

	_, err := o.HandleTurn(context.Background(), "s1", "hi", UserInfo{
		Email: "ada@example.com",
		Phone: "+1 415 555 2671",
	})
	if err != nil {
		t.Fatalf("HandleTurn() error: %v", err)
	}

	info, _ := o.GetSession(context.Background(), "s1")
	if info.Facts.ContactInfo != "ada@example.com" {
		t.Errorf("ContactInfo = %q, want email", info.Facts.ContactInfo)
	}
}

func TestDeleteSession(t *testing.T) {
	eng := newFakeEngine()
	o := newTestOrchestrator(eng, &recordingSink{})

	_, _ = o.HandleTurn(context.Background(), "s1", "hi", UserInfo{})
	if err := o.DeleteSession(context.Background(), "s1"); err != nil {
		t.Fatalf("DeleteSession() error: %v", err)
	}
	if _, err := o.GetSession(context.Background(), "s1"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("GetSession() = %v, want ErrNotFound", err)
	}
	if err := o.DeleteSession(context.Background(), "s1"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("DeleteSession() = %v, want ErrNotFound", err)
	}
}

func TestConcurrentSessionsIsolated(t *testing.T) {
	eng := newFakeEngine()
	o := newTestOrchestrator(eng, &recordingSink{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("sess-%d", n)
			if _, err := o.HandleTurn(context.Background(), id, "hello", UserInfo{}); err != nil {
				t.Errorf("HandleTurn(%s) error: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		info, err := o.GetSession(context.Background(), fmt.Sprintf("sess-%d", i))
		if err != nil {
			t.Fatalf("GetSession() error: %v", err)
		}
		if len(info.History) != 2 {
			t.Errorf("session %d history length = %d, want 2", i, len(info.History))
		}
		if info.State != domain.StateRequirementGathering {
			t.Errorf("session %d state = %s", i, info.State)
		}
	}
}

func TestConcurrentTurnsSameSession(t *testing.T) {
	eng := newFakeEngine()
	o := newTestOrchestrator(eng, &recordingSink{})

	const turns = 10
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.HandleTurn(context.Background(), "shared", "hello", UserInfo{}); err != nil {
				t.Errorf("HandleTurn() error: %v", err)
			}
		}()
	}
	wg.Wait()

	info, err := o.GetSession(context.Background(), "shared")
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if len(info.History) != turns*2 {
		t.Errorf("history length = %d, want %d", len(info.History), turns*2)
	}
}

func TestSummarizeFailureFallsBackToFactSummary(t *testing.T) {
	eng := newFakeEngine()
	sink := &recordingSink{}
	o := newTestOrchestrator(eng, sink)

	eng.mu.Lock()
	eng.summarizeErr = errors.New("engine down")
	eng.mu.Unlock()

	driveToSummarization(t, o, eng, "s1")
	eng.setExtraction(domain.StateContactCollection, fields(domain.FieldContactInfo, "x@y.z"))
	_, _ = o.HandleTurn(context.Background(), "s1", "done", UserInfo{})
	_, _ = o.HandleTurn(context.Background(), "s1", "x@y.z", UserInfo{})
	eng.setExtraction(domain.StateConfirmation, engine.Extraction{
		Status:  engine.ExtractionFields,
		Verdict: domain.VerdictPositive,
	})
	_, _ = o.HandleTurn(context.Background(), "s1", "confirm", UserInfo{})

	if sink.count() != 1 {
		t.Fatalf("leads stored = %d, want 1", sink.count())
	}
	summary := sink.leads[0].Summary
	if summary == "" {
		t.Fatal("expected deterministic fallback summary")
	}
	for _, want := range []string{"web shop", "catalog, checkout", "3 months", "50k-80k"} {
		if !strings.Contains(summary, want) {
			t.Errorf("fallback summary missing %q: %s", want, summary)
		}
	}
}
