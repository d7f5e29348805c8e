package workflow

import "github.com/aretw0/tracescribe/pkg/domain"

// Guard conditions attached to rules.
const (
	GuardLoading    = "loading"
	GuardNotLoading = "not loading"
	GuardAttempt    = "current attempt"
)

// Rule is one edge of the workflow state machine.
type Rule struct {
	From   domain.Step
	Intent string
	To     domain.Step
	Guard  string
}

// Rules lists the transitions the Orchestrator accepts. Intents not listed for a step
// are refused with domain.ErrTransitionNotAllowed; Reset is accepted everywhere.
func Rules() []Rule {
	rules := []Rule{
		{From: domain.StepSelect, Intent: IntentSelectTemplate, To: domain.StepUpload},
		{From: domain.StepUpload, Intent: IntentSelectTemplate, To: domain.StepUpload},
		{From: domain.StepUpload, Intent: IntentUploadFile, To: domain.StepResult},
		{From: domain.StepUpload, Intent: IntentGoBack, To: domain.StepSelect},
		{From: domain.StepResult, Intent: IntentUploadFile, To: domain.StepResult},
		{From: domain.StepResult, Intent: IntentFormatSuccess, To: domain.StepResult, Guard: GuardAttempt},
		{From: domain.StepResult, Intent: IntentFormatFailure, To: domain.StepResult, Guard: GuardAttempt},
		{From: domain.StepResult, Intent: IntentGoBack, To: domain.StepUpload, Guard: GuardNotLoading},
	}
	for _, step := range domain.Steps() {
		rules = append(rules, Rule{From: step, Intent: IntentReset, To: domain.StepSelect})
	}
	return rules
}
