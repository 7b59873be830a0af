// Package domain contains the conversation state machine and session model
// for the pre-sales intake flow.
package domain

// State identifies a stage of the intake conversation.
type State string

const (
	StateGreeting             State = "greeting"
	StateRequirementGathering State = "requirement_gathering"
	StateUseCase              State = "use_case"
	StateTimeline             State = "timeline"
	StateBudget               State = "budget"
	StateSummarization        State = "summarization"
	StateContactCollection    State = "contact_collection"
	StateConfirmation         State = "confirmation"
	StateHandoff              State = "handoff"
)

// linearNext maps each unconditionally advancing state to its successor.
// Branching states (summarization, contact_collection, confirmation) and the
// terminal handoff state are resolved by the orchestrator's handlers.
var linearNext = map[State]State{
	StateGreeting:             StateRequirementGathering,
	StateRequirementGathering: StateUseCase,
	StateUseCase:              StateTimeline,
	StateTimeline:             StateBudget,
	StateBudget:               StateSummarization,
}

// Next returns the successor of a linear state. For branching and terminal
// states it returns the state itself; the orchestrator decides those.
func (s State) Next() State {
	if next, ok := linearNext[s]; ok {
		return next
	}
	return s
}

// IsTerminal reports whether the state is the terminal handoff state.
func (s State) IsTerminal() bool {
	return s == StateHandoff
}

// Valid reports whether s is a known conversation state.
func (s State) Valid() bool {
	switch s {
	case StateGreeting, StateRequirementGathering, StateUseCase, StateTimeline,
		StateBudget, StateSummarization, StateContactCollection,
		StateConfirmation, StateHandoff:
		return true
	}
	return false
}

// ExtractionFields returns the fact fields the engine may extract while the
// conversation is in this state. States with no bound fields return nil and
// skip extraction entirely.
func (s State) ExtractionFields() []string {
	switch s {
	case StateGreeting:
		return []string{FieldProjectType}
	case StateRequirementGathering:
		return []string{FieldRequirements}
	case StateUseCase:
		return []string{FieldUseCase}
	case StateTimeline:
		return []string{FieldTimeline}
	case StateBudget:
		return []string{FieldBudgetRange}
	case StateContactCollection:
		return []string{FieldContactInfo, FieldClientName}
	default:
		return nil
	}
}

// Fact field names as they appear in extraction payloads.
const (
	FieldProjectType  = "project_type"
	FieldRequirements = "requirements"
	FieldUseCase      = "use_case"
	FieldTimeline     = "timeline"
	FieldBudgetRange  = "budget_range"
	FieldContactInfo  = "contact_info"
	FieldClientName   = "client_name"
	FieldNotes        = "additional_notes"
)
