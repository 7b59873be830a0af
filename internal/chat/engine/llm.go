package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"presales_backend/internal/chat/domain"
	"presales_backend/platform/logger"
)

const (
	replyTemperature   float32 = 0.7
	extractTemperature float32 = 0.1
	summaryTemperature float32 = 0.3
)

// LLMEngine implements Engine on top of an ADK language model.
type LLMEngine struct {
	llm        model.LLM
	directives *Directives
	timeout    time.Duration
	log        *logger.Logger
}

// NewLLMEngine creates an engine backed by the given model. Every call is
// bounded by the timeout so a stalled upstream cannot hang a turn.
func NewLLMEngine(llm model.LLM, directives *Directives, timeout time.Duration, log *logger.Logger) *LLMEngine {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LLMEngine{
		llm:        llm,
		directives: directives,
		timeout:    timeout,
		log:        log,
	}
}

// Directives exposes the resolved directive set for the orchestrator.
func (e *LLMEngine) Directives() *Directives {
	return e.directives
}

// Generate produces the assistant reply for the current turn.
func (e *LLMEngine) Generate(ctx context.Context, directive string, history []domain.Message) (string, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		contents = append(contents, messageContent(msg))
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(replyTemperature),
	}
	if strings.TrimSpace(directive) != "" {
		cfg.SystemInstruction = textContent(genai.RoleUser, directive)
	}

	return e.complete(ctx, &model.LLMRequest{Contents: contents, Config: cfg})
}

// Extract pulls the state-bound fields from the latest user message.
func (e *LLMEngine) Extract(ctx context.Context, state domain.State, message string) Extraction {
	fields := state.ExtractionFields()
	if state == domain.StateConfirmation {
		fields = confirmationFields
	}
	if len(fields) == 0 {
		return Extraction{Status: ExtractionNone}
	}

	prompt := extractionPrompt(fields, message)
	req := &model.LLMRequest{
		Contents: []*genai.Content{textContent(genai.RoleUser, prompt)},
		Config: &genai.GenerateContentConfig{
			Temperature:      genai.Ptr(extractTemperature),
			ResponseMIMEType: "application/json",
		},
	}

	raw, err := e.complete(ctx, req)
	if err != nil {
		e.log.EngineError("extract", logger.SessionIDFromContext(ctx), err)
		return Extraction{Status: ExtractionUnavailable}
	}

	payload, ok := parseJSONObject(raw)
	if !ok {
		e.log.Warn("extraction response contained no JSON object", "state", string(state))
		return Extraction{Status: ExtractionNone}
	}

	return buildExtraction(state, payload)
}

// Summarize produces a prospect-facing summary of the conversation.
func (e *LLMEngine) Summarize(ctx context.Context, history []domain.Message) (string, error) {
	req := &model.LLMRequest{
		Contents: []*genai.Content{textContent(genai.RoleUser, summaryPrompt(history))},
		Config: &genai.GenerateContentConfig{
			Temperature: genai.Ptr(summaryTemperature),
		},
	}
	return e.complete(ctx, req)
}

func (e *LLMEngine) complete(ctx context.Context, req *model.LLMRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	for resp, err := range e.llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", err
		}
		if resp == nil || resp.Content == nil {
			return "", errors.New("empty model response")
		}
		text := contentToText(resp.Content)
		if strings.TrimSpace(text) == "" {
			return "", errors.New("blank model response")
		}
		return text, nil
	}
	return "", errors.New("model yielded no response")
}

func messageContent(msg domain.Message) *genai.Content {
	role := genai.RoleUser
	if msg.Role == domain.RoleAssistant {
		role = genai.RoleModel
	}
	return textContent(role, msg.Content)
}

func textContent(role, text string) *genai.Content {
	return &genai.Content{
		Role:  role,
		Parts: []*genai.Part{genai.NewPartFromText(text)},
	}
}

func contentToText(content *genai.Content) string {
	var builder strings.Builder
	for _, part := range content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		builder.WriteString(part.Text)
	}
	return builder.String()
}

// parseJSONObject scans for the outermost braces before decoding, since
// models sometimes wrap JSON output in explanatory prose.
func parseJSONObject(raw string) (map[string]any, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	payload := make(map[string]any)
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return nil, false
	}
	return payload, true
}

// buildExtraction normalizes the decoded payload into the typed result.
func buildExtraction(state domain.State, payload map[string]any) Extraction {
	if state == domain.StateConfirmation {
		return buildConfirmationExtraction(payload)
	}

	fields := make(map[string]string)
	for _, key := range state.ExtractionFields() {
		if value := stringifyValue(payload[key]); value != "" {
			fields[key] = value
		}
	}
	if len(fields) == 0 {
		return Extraction{Status: ExtractionNone}
	}
	return Extraction{Status: ExtractionFields, Fields: fields}
}

func buildConfirmationExtraction(payload map[string]any) Extraction {
	result := Extraction{Status: ExtractionNone, Verdict: domain.VerdictAmbiguous}

	if verdict := stringifyValue(payload["confirmation"]); verdict != "" {
		result.Status = ExtractionFields
		result.Verdict = domain.ClassifyVerdict(verdict)
	}

	if corrections, ok := payload["corrections"].(map[string]any); ok {
		normalized := make(map[string]string, len(corrections))
		for key, value := range corrections {
			if text := stringifyValue(value); text != "" {
				normalized[key] = text
			}
		}
		if len(normalized) > 0 {
			result.Status = ExtractionFields
			result.Corrections = normalized
		}
	}
	return result
}

// stringifyValue flattens extraction values. Lists become comma-joined
// strings so downstream reconciliation sees one canonical shape.
func stringifyValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			if text := stringifyValue(item); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, ", ")
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%v", typed))
	case bool:
		return fmt.Sprintf("%t", typed)
	default:
		return ""
	}
}
