package domain

import (
	"fmt"
	"strings"
)

// TemplateID identifies a document template understood by the formatting service.
type TemplateID string

const (
	TemplateSOP        TemplateID = "sop"
	TemplateDeviation  TemplateID = "deviation"
	TemplateCAPA       TemplateID = "capa"
	TemplateTraining   TemplateID = "training"
	TemplateMonitoring TemplateID = "monitoring"
	TemplateGeneral    TemplateID = "general"
)

// TemplateIDs returns the closed set of templates in display order.
func TemplateIDs() []TemplateID {
	return []TemplateID{
		TemplateSOP,
		TemplateDeviation,
		TemplateCAPA,
		TemplateTraining,
		TemplateMonitoring,
		TemplateGeneral,
	}
}

// Known reports whether id belongs to the compiled template set.
func (id TemplateID) Known() bool {
	for _, known := range TemplateIDs() {
		if id == known {
			return true
		}
	}
	return false
}

func (id TemplateID) String() string {
	return string(id)
}

// OutputName is the suggested download name for a document formatted with id.
func (id TemplateID) OutputName() string {
	return string(id) + "_formatted.docx"
}

// ParseTemplateID converts user input into a TemplateID.
// Matching ignores case and surrounding whitespace.
func ParseTemplateID(s string) (TemplateID, error) {
	id := TemplateID(strings.ToLower(strings.TrimSpace(s)))
	if !id.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, s)
	}
	return id, nil
}

// TemplateDescriptor is the catalog entry shown to users.
type TemplateDescriptor struct {
	ID          TemplateID `json:"id" yaml:"id"`
	DisplayName string     `json:"display_name" yaml:"display_name"`
	Description string     `json:"description" yaml:"description"`
	Sections    []string   `json:"sections,omitempty" yaml:"sections"`
}

// RemoteTemplate is a template as advertised by the formatting service itself.
type RemoteTemplate struct {
	Type             string `json:"type"`
	DisplayName      string `json:"display_name"`
	Description      string `json:"description"`
	PlaceholderCount int    `json:"placeholder_count"`
}
