package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/aretw0/tracescribe/pkg/workflow"
)

// GraphOverlay contains session state to highlight on the graph.
type GraphOverlay struct {
	Current domain.Step
	Loading bool
}

// GenerateMermaid produces a Mermaid flowchart of the workflow rules.
// Steps are drawn as rectangles labelled with their display name, Select as the
// entry point in a stadium shape. Reset edges are dotted. Guards are appended to
// the edge label in brackets.
func GenerateMermaid(rules []workflow.Rule, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, step := range domain.Steps() {
		opener, closer := "[", "]"
		if step == domain.StepSelect {
			opener, closer = "([", "])"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", step, opener, step.Label(), closer))
	}

	for _, r := range rules {
		label := r.Intent
		if r.Guard != "" {
			label = fmt.Sprintf("%s [%s]", label, r.Guard)
		}
		arrow := fmt.Sprintf("-- \"%s\" -->", label)
		if r.Intent == workflow.IntentReset {
			arrow = fmt.Sprintf("-. \"%s\" .->", label)
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", r.From, arrow, r.To))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef loading fill:#e1f5fe,stroke:#01579b,stroke-width:4px,stroke-dasharray:5 5,color:#000;\n")

		class := "current"
		if overlay.Loading {
			class = "loading"
		}
		sb.WriteString(fmt.Sprintf("    class %s %s;\n", overlay.Current, class))
	}

	return sb.String()
}
