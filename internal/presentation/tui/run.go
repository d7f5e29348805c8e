package tui

import (
	"context"
	"fmt"

	"github.com/aretw0/tracescribe/pkg/ports"
	"github.com/aretw0/tracescribe/pkg/workflow"
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the interactive program and blocks until the user quits or ctx is done.
// Any artifact still held is released on exit.
func Run(ctx context.Context, orch *workflow.Orchestrator, formatter ports.Formatter, opts ...Option) error {
	defer orch.Reset(context.WithoutCancel(ctx))

	p := tea.NewProgram(New(ctx, orch, formatter, opts...),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}
