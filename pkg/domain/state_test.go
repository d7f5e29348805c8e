package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkflowState_IsValid(t *testing.T) {
	s := NewWorkflowState()
	assert.Equal(t, StepSelect, s.Step)
	assert.NoError(t, s.Validate())
}

func TestWorkflowState_Validate(t *testing.T) {
	file := &FileRef{Name: "a.txt", Size: 3}
	tests := []struct {
		name    string
		state   WorkflowState
		wantErr bool
	}{
		{"upload with template", WorkflowState{Step: StepUpload, SelectedTemplate: TemplateSOP}, false},
		{"upload without template", WorkflowState{Step: StepUpload}, true},
		{"select with template", WorkflowState{Step: StepSelect, SelectedTemplate: TemplateSOP}, true},
		{"result loading", WorkflowState{Step: StepResult, SelectedTemplate: TemplateCAPA, PendingFile: file, IsLoading: true}, false},
		{"result error", WorkflowState{Step: StepResult, SelectedTemplate: TemplateCAPA, PendingFile: file, Error: "boom"}, false},
		{"result artifact", WorkflowState{Step: StepResult, SelectedTemplate: TemplateCAPA, PendingFile: file, Artifact: &Artifact{Handle: "h"}}, false},
		{"result idle", WorkflowState{Step: StepResult, SelectedTemplate: TemplateCAPA, PendingFile: file}, true},
		{"result loading and error", WorkflowState{Step: StepResult, SelectedTemplate: TemplateCAPA, PendingFile: file, IsLoading: true, Error: "x"}, true},
		{"upload with error", WorkflowState{Step: StepUpload, SelectedTemplate: TemplateSOP, Error: "x"}, true},
		{"unknown template", WorkflowState{Step: StepUpload, SelectedTemplate: "memo"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWorkflowState_SnapshotIsDeep(t *testing.T) {
	s := &WorkflowState{
		Step:             StepResult,
		SelectedTemplate: TemplateSOP,
		PendingFile:      &FileRef{Name: "a.txt", Size: 1},
		Artifact:         &Artifact{Handle: "h1", SuggestedName: "sop_formatted.docx"},
	}
	snap := s.Snapshot()
	snap.PendingFile.Name = "mutated"
	snap.Artifact.Handle = "h2"

	assert.Equal(t, "a.txt", s.PendingFile.Name)
	assert.Equal(t, "h1", s.Artifact.Handle)
}

func TestStep_JSON(t *testing.T) {
	data, err := json.Marshal(WorkflowState{Step: StepUpload, SelectedTemplate: TemplateGeneral})
	require.NoError(t, err)
	assert.JSONEq(t, `{"step":"upload","selected_template":"general","is_loading":false}`, string(data))

	var s WorkflowState
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, StepUpload, s.Step)

	var bad Step
	assert.Error(t, json.Unmarshal([]byte(`"done"`), &bad))
}

func TestStep_Labels(t *testing.T) {
	var labels []string
	for _, s := range Steps() {
		labels = append(labels, s.Label())
	}
	assert.Equal(t, []string{"Choose Template", "Upload Document", "Download Result"}, labels)
}

func TestParseTemplateID(t *testing.T) {
	id, err := ParseTemplateID(" CAPA ")
	require.NoError(t, err)
	assert.Equal(t, TemplateCAPA, id)
	assert.Equal(t, "capa_formatted.docx", id.OutputName())

	_, err = ParseTemplateID("memo")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "2.0 KB", FormatFileSize(2048))
	assert.Equal(t, "1.5 KB", FormatFileSize(1536))
	assert.Equal(t, "10.0 MB", FormatFileSize(10*1024*1024))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "engine overloaded", UserMessage(&APIError{StatusCode: 500, Message: "engine overloaded"}))
	assert.Equal(t, "engine overloaded (status 500)", (&APIError{StatusCode: 500, Message: "engine overloaded"}).Error())
	assert.Equal(t, "too big", UserMessage(&RejectionError{Reason: "too big"}))
}
