package engine

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"presales_backend/internal/chat/domain"
)

// Directive keys. Most map one-to-one to a conversation state; the
// summarization and confirmation stages have multiple variants.
const (
	DirectiveGreeting           = "greeting"
	DirectiveRequirements       = "requirement_gathering"
	DirectiveUseCase            = "use_case"
	DirectiveTimeline           = "timeline"
	DirectiveBudget             = "budget"
	DirectiveSummaryConfirm     = "summary_confirm"
	DirectiveSummaryAskContact  = "summary_ask_contact"
	DirectiveContactThanks      = "contact_thanks"
	DirectiveContactRetry       = "contact_retry"
	DirectiveConfirmThanks      = "confirm_thanks"
	DirectiveConfirmCorrections = "confirm_corrections"
	DirectiveConfirmClarify     = "confirm_clarify"
	DirectiveHandoff            = "handoff"
)

var defaultDirectives = map[string]string{
	DirectiveGreeting: `You are a pre-sales assistant for a software development company.
Keep your response concise and friendly (under 100 words).
Ask about the client's software development needs in a simple, direct way.
Don't provide a list of services - just ask what they need help with.
Use plain text only - no markdown, no asterisks, no special formatting.`,

	DirectiveRequirements: `You are gathering requirements for a software project.
Ask 1-2 specific questions about key features they need.
Keep your response under 80 words.
Be friendly but direct.
Use plain text only - no markdown, no asterisks, no special formatting.`,

	DirectiveUseCase: `Ask about the intended use case for this software (internal/customer-facing).
Keep your response under 70 words.
Ask only 1 clear question about their use case.
Use plain text only - no markdown, no asterisks, no special formatting.`,

	DirectiveTimeline: `Ask about their project timeline in a direct way.
Keep your response under 60 words.
Just ask when they need the project completed.
Use plain text only - no markdown, no asterisks, no special formatting.`,

	DirectiveBudget: `Ask about budget range tactfully.
Keep your response under 70 words.
Be direct but polite.
Don't list specific price ranges - just ask what their budget is.
Use plain text only - no markdown, no asterisks, no special formatting.`,

	DirectiveSummaryConfirm: `Provide a clear summary of what you've understood about their project needs.
Format as a bulleted list with hyphens.
Include all key details: project type, requirements, timeline, budget, etc.
End by asking them to confirm if the information is correct.
Explicitly ask them to type "confirm" if everything is correct.
If something is wrong, ask them to tell you what needs to be corrected.
Keep your response under 150 words.
Use plain text only - no markdown, no asterisks, no special formatting.`,

	DirectiveSummaryAskContact: `Provide a clear summary of what you've understood about their project needs.
Format as a bulleted list with hyphens.
Include all key details: project type, requirements, timeline, budget, etc.
End by asking for their contact information (email or phone).
Keep your response under 150 words.
Use plain text only - no markdown, no asterisks, no special formatting.`,

	DirectiveContactThanks: `Thank the client for providing their contact information.
Provide a clear summary of what you've understood about their project needs.
Format as a bulleted list with hyphens.
Include all key details: project type, requirements, timeline, budget, contact info, etc.
End by asking them to confirm if the information is correct.
Explicitly ask them to type "confirm" if everything is correct.
If something is wrong, ask them to tell you what needs to be corrected.
Keep your response under 150 words.
Use plain text only - no markdown, no asterisks, no special formatting.`,

	DirectiveContactRetry: `Politely ask again for their contact information (email or phone).
Explain that this is needed to follow up on their project requirements.
Keep your response under 50 words.
Use plain text only - no markdown, no asterisks, no special formatting.`,

	DirectiveConfirmThanks: `Thank the client for confirming their information.
Let them know that a team member will contact them soon to discuss their project further.
Keep your response under 60 words.
Use plain text only - no markdown, no asterisks, no special formatting.`,

	DirectiveConfirmCorrections: `Apologize for the misunderstanding.
Ask the client specifically what information needs to be corrected.
Mention that they can provide corrections for any of these categories:
- Project type/requirements
- Use case
- Timeline
- Budget
- Contact information
Keep your response under 80 words.
Use plain text only - no markdown, no asterisks, no special formatting.`,

	DirectiveConfirmClarify: `Politely ask the client to explicitly confirm if the information is correct.
Ask them to type "confirm" if everything is correct, or to tell you what needs to be corrected.
Keep your response under 60 words.
Use plain text only - no markdown, no asterisks, no special formatting.`,

	DirectiveHandoff: `Thank the client for their time.
Let them know that a team member will contact them soon to discuss their project further.
Keep your response under 60 words.
Use plain text only - no markdown, no asterisks, no special formatting.`,
}

// Directives resolves per-stage steering prompts, with optional overrides
// loaded from a YAML file so prompt tuning does not require a rebuild.
type Directives struct {
	prompts map[string]string
}

// NewDirectives returns the built-in directive set.
func NewDirectives() *Directives {
	prompts := make(map[string]string, len(defaultDirectives))
	for k, v := range defaultDirectives {
		prompts[k] = v
	}
	return &Directives{prompts: prompts}
}

// LoadDirectives returns the built-in set merged with overrides from the
// given YAML file. An empty path means no overrides.
func LoadDirectives(path string) (*Directives, error) {
	d := NewDirectives()
	if strings.TrimSpace(path) == "" {
		return d, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directives file: %w", err)
	}

	overrides := make(map[string]string)
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parse directives file: %w", err)
	}

	for key, value := range overrides {
		if _, known := d.prompts[key]; !known {
			return nil, fmt.Errorf("unknown directive key %q", key)
		}
		if strings.TrimSpace(value) != "" {
			d.prompts[key] = value
		}
	}
	return d, nil
}

// Get returns the directive for the given key, or an empty string when the
// key is unknown.
func (d *Directives) Get(key string) string {
	return d.prompts[key]
}

// extractionPrompt builds the JSON extraction prompt for the fields bound to
// the given state.
func extractionPrompt(fields []string, message string) string {
	return fmt.Sprintf(`Extract the following information from the text below:
%s

Format the output as a valid JSON object with these keys.
If you cannot find a particular entity, set its value to null.

Text: %s`, strings.Join(fields, ", "), message)
}

// confirmationFields are the keys requested when classifying a confirmation
// reply. Corrections come back as an object mapping fact fields to values.
var confirmationFields = []string{"confirmation", "corrections"}

// summaryPrompt builds the conversation summary prompt from the transcript.
func summaryPrompt(history []domain.Message) string {
	var transcript strings.Builder
	for _, msg := range history {
		transcript.WriteString(capitalizeRole(msg.Role))
		transcript.WriteString(": ")
		transcript.WriteString(msg.Content)
		transcript.WriteString("\n")
	}

	return fmt.Sprintf(`Summarize the key points from this conversation between a pre-sales assistant and a potential client.
Focus on:
1. The client's project requirements
2. Use case and context
3. Timeline expectations
4. Budget information (if available)

Conversation:
%s`, strings.TrimRight(transcript.String(), "\n"))
}

func capitalizeRole(role domain.Role) string {
	s := string(role)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
