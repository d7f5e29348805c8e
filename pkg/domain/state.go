package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Step is the active stage of the workflow.
type Step int

const (
	StepSelect Step = iota
	StepUpload
	StepResult
)

var stepNames = map[Step]string{
	StepSelect: "select",
	StepUpload: "upload",
	StepResult: "result",
}

var stepLabels = map[Step]string{
	StepSelect: "Choose Template",
	StepUpload: "Upload Document",
	StepResult: "Download Result",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Label is the human title of the step used by step indicators.
func (s Step) Label() string {
	return stepLabels[s]
}

// Steps returns all steps in order.
func Steps() []Step {
	return []Step{StepSelect, StepUpload, StepResult}
}

func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Step) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for step, n := range stepNames {
		if n == name {
			*s = step
			return nil
		}
	}
	return fmt.Errorf("invalid step %q", name)
}

// Artifact is a formatted document ready for download.
// Handle is owned by the ArtifactRegistry that created it.
type Artifact struct {
	Handle        string `json:"handle"`
	SuggestedName string `json:"suggested_name"`
	Size          int64  `json:"size"`
}

// WorkflowState is the snapshot of one formatting session.
type WorkflowState struct {
	Step             Step       `json:"step"`
	SelectedTemplate TemplateID `json:"selected_template,omitempty"`
	PendingFile      *FileRef   `json:"pending_file,omitempty"`
	IsLoading        bool       `json:"is_loading"`
	Error            string     `json:"error,omitempty"`
	Artifact         *Artifact  `json:"artifact,omitempty"`
}

// NewWorkflowState returns the pristine state every session starts from.
func NewWorkflowState() *WorkflowState {
	return &WorkflowState{Step: StepSelect}
}

// Snapshot creates a deep copy of the state.
func (s *WorkflowState) Snapshot() *WorkflowState {
	if s == nil {
		return nil
	}
	out := *s
	if s.PendingFile != nil {
		f := *s.PendingFile
		out.PendingFile = &f
	}
	if s.Artifact != nil {
		a := *s.Artifact
		out.Artifact = &a
	}
	return &out
}

// Succeeded reports whether the state holds a downloadable artifact.
func (s *WorkflowState) Succeeded() bool {
	return s.Step == StepResult && s.Artifact != nil
}

// Failed reports whether the last format request failed.
func (s *WorkflowState) Failed() bool {
	return s.Step == StepResult && s.Error != ""
}

// Validate checks the structural invariants of the state.
func (s *WorkflowState) Validate() error {
	var errs []error

	active := 0
	if s.IsLoading {
		active++
	}
	if s.Error != "" {
		active++
	}
	if s.Artifact != nil {
		active++
	}

	switch s.Step {
	case StepResult:
		if active != 1 {
			errs = append(errs, fmt.Errorf("result step has %d active outcomes, want exactly 1", active))
		}
		if s.PendingFile == nil {
			errs = append(errs, errors.New("result step without pending file"))
		}
	case StepSelect, StepUpload:
		if active != 0 {
			errs = append(errs, fmt.Errorf("%s step has %d active outcomes, want 0", s.Step, active))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid step %d", int(s.Step)))
	}

	hasTemplate := s.SelectedTemplate != ""
	wantTemplate := s.Step == StepUpload || s.Step == StepResult
	if hasTemplate != wantTemplate {
		errs = append(errs, fmt.Errorf("selected template %q inconsistent with %s step", s.SelectedTemplate, s.Step))
	}
	if hasTemplate && !s.SelectedTemplate.Known() {
		errs = append(errs, fmt.Errorf("unknown template %q", s.SelectedTemplate))
	}

	return errors.Join(errs...)
}

// ArtifactBlob is the stored content behind an artifact handle.
type ArtifactBlob struct {
	Name string
	Data []byte
}
