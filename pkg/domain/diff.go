package domain

// StateDiff represents the changes between two workflow snapshots.
// It is serialized to JSON for the session event stream.
type StateDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	Step             *Step       `json:"step,omitempty"`
	SelectedTemplate *TemplateID `json:"selected_template,omitempty"`
	PendingFile      *FileRef    `json:"pending_file,omitempty"`
	IsLoading        *bool       `json:"is_loading,omitempty"`

	// Error and Artifact are pointers to the new value; cleared fields are reported
	// through Cleared so clients can drop them.
	Error    *string   `json:"error,omitempty"`
	Artifact *Artifact `json:"artifact,omitempty"`
	Cleared  []string  `json:"cleared,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
func Diff(sessionID string, oldState, newState *WorkflowState) *StateDiff {
	if newState == nil {
		return nil
	}
	if oldState == nil {
		oldState = &WorkflowState{Step: -1}
	}

	diff := &StateDiff{SessionID: sessionID}

	if oldState.Step != newState.Step {
		step := newState.Step
		diff.Step = &step
	}

	if oldState.SelectedTemplate != newState.SelectedTemplate {
		if newState.SelectedTemplate == "" {
			diff.Cleared = append(diff.Cleared, "selected_template")
		} else {
			id := newState.SelectedTemplate
			diff.SelectedTemplate = &id
		}
	}

	if !sameFile(oldState.PendingFile, newState.PendingFile) {
		if newState.PendingFile == nil {
			diff.Cleared = append(diff.Cleared, "pending_file")
		} else {
			f := *newState.PendingFile
			diff.PendingFile = &f
		}
	}

	if oldState.IsLoading != newState.IsLoading {
		loading := newState.IsLoading
		diff.IsLoading = &loading
	}

	if oldState.Error != newState.Error {
		if newState.Error == "" {
			diff.Cleared = append(diff.Cleared, "error")
		} else {
			msg := newState.Error
			diff.Error = &msg
		}
	}

	if !sameArtifact(oldState.Artifact, newState.Artifact) {
		if newState.Artifact == nil {
			diff.Cleared = append(diff.Cleared, "artifact")
		} else {
			a := *newState.Artifact
			diff.Artifact = &a
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.Step == nil &&
		d.SelectedTemplate == nil &&
		d.PendingFile == nil &&
		d.IsLoading == nil &&
		d.Error == nil &&
		d.Artifact == nil &&
		len(d.Cleared) == 0
}

// Touches reports whether the diff changes the named field, either by setting or clearing it.
func (d *StateDiff) Touches(field string) bool {
	for _, c := range d.Cleared {
		if c == field {
			return true
		}
	}
	switch field {
	case "step":
		return d.Step != nil
	case "selected_template":
		return d.SelectedTemplate != nil
	case "pending_file":
		return d.PendingFile != nil
	case "is_loading":
		return d.IsLoading != nil
	case "error":
		return d.Error != nil
	case "artifact":
		return d.Artifact != nil
	}
	return false
}

func sameFile(a, b *FileRef) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Name == b.Name && a.Size == b.Size
}

func sameArtifact(a, b *Artifact) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
