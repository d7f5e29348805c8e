package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/tracescribe/internal/presentation/graph"
	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/aretw0/tracescribe/pkg/workflow"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		overlay  *graph.GraphOverlay
		contains []string
		excludes []string
	}{
		{
			name: "Step Shapes",
			contains: []string{
				"graph LR",
				`select(["Choose Template"])`,
				`upload["Upload Document"]`,
				`result["Download Result"]`,
			},
			excludes: []string{"classDef"},
		},
		{
			name: "Edges",
			contains: []string{
				`select -- "select_template" --> upload`,
				`upload -- "upload_file" --> result`,
				`result -- "go_back [not loading]" --> upload`,
				`result -. "reset" .-> select`,
			},
		},
		{
			name:    "Current Overlay",
			overlay: &graph.GraphOverlay{Current: domain.StepUpload},
			contains: []string{
				"classDef current",
				"class upload current;",
			},
		},
		{
			name:    "Loading Overlay",
			overlay: &graph.GraphOverlay{Current: domain.StepResult, Loading: true},
			contains: []string{
				"class result loading;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(workflow.Rules(), tt.overlay)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, bad := range tt.excludes {
				assert.False(t, strings.Contains(got, bad), "unexpected %q", bad)
			}
		})
	}
}
