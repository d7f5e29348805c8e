// Package tui is the interactive terminal front end of the formatting workflow.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/tracescribe/pkg/adapters/file"
	"github.com/aretw0/tracescribe/pkg/catalog"
	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/aretw0/tracescribe/pkg/ports"
	"github.com/aretw0/tracescribe/pkg/validator"
	"github.com/aretw0/tracescribe/pkg/workflow"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// formatDoneMsg carries the outcome of one format request back into Update.
type formatDoneMsg struct {
	attempt workflow.Attempt
	body    []byte
	err     error
}

// savedMsg reports where the artifact was written.
type savedMsg struct {
	path string
	err  error
}

// Model drives a workflow.Orchestrator from the bubbletea update loop.
// All orchestrator calls happen inside Update; the format request runs as a tea.Cmd.
type Model struct {
	ctx       context.Context
	orch      *workflow.Orchestrator
	formatter ports.Formatter
	render    func(string) (string, error)
	outDir    string

	templates []domain.TemplateDescriptor
	cursor    int
	input     textinput.Model
	spinner   spinner.Model

	// source is the path typed for the current attempt, used to place the saved file.
	source string
	notice string
	saved  string

	width  int
	height int
}

// Option configures the Model.
type Option func(*Model)

// WithRenderer sets the markdown renderer used for template outlines.
func WithRenderer(render func(string) (string, error)) Option {
	return func(m *Model) {
		m.render = render
	}
}

// WithOutputDir sets where downloaded documents are saved. Empty means next to the source.
func WithOutputDir(dir string) Option {
	return func(m *Model) {
		m.outDir = dir
	}
}

// New creates the model. ctx bounds every format request and registry call.
func New(ctx context.Context, orch *workflow.Orchestrator, formatter ports.Formatter, opts ...Option) Model {
	input := textinput.New()
	input.Placeholder = "path/to/document.docx"
	input.CharLimit = 4096
	input.Prompt = "› "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = cursorStyle

	m := Model{
		ctx:       ctx,
		orch:      orch,
		formatter: formatter,
		render:    PlainRenderer,
		templates: catalog.List(),
		input:     input,
		spinner:   sp,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// State returns the orchestrator snapshot the view is rendered from.
func (m Model) State() *domain.WorkflowState {
	return m.orch.State()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case formatDoneMsg:
		m.orch.Complete(m.ctx, msg.attempt, msg.body, msg.err)
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("Could not save document: %v", msg.err)
			return m, nil
		}
		m.saved = msg.path
		m.notice = ""
		return m, nil

	case spinner.TickMsg:
		if !m.orch.State().IsLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.orch.State().Step {
		case domain.StepSelect:
			return m.updateSelect(msg)
		case domain.StepUpload:
			return m.updateUpload(msg)
		case domain.StepResult:
			return m.updateResult(msg)
		}
	}
	return m, nil
}

func (m Model) updateSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.templates)-1 {
			m.cursor++
		}
	case "enter":
		if err := m.orch.SelectTemplate(m.ctx, m.templates[m.cursor].ID); err != nil {
			m.notice = domain.UserMessage(err)
			return m, nil
		}
		m.notice = ""
		return m, m.input.Focus()
	}
	return m, nil
}

func (m Model) updateUpload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if err := m.orch.GoBack(m.ctx); err != nil {
			m.notice = domain.UserMessage(err)
			return m, nil
		}
		m.input.Blur()
		m.notice = ""
		return m, nil

	case tea.KeyEnter:
		return m.upload()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := m.orch.State()
	switch msg.String() {
	case "r":
		m.orch.Reset(m.ctx)
		m.cursor = 0
		m.input.SetValue("")
		m.input.Blur()
		m.source, m.notice, m.saved = "", "", ""
		return m, nil

	case "esc", "enter":
		if state.Succeeded() && msg.String() == "enter" {
			return m, m.save(state.Artifact)
		}
		if err := m.orch.GoBack(m.ctx); err != nil {
			m.notice = "A document is being formatted. Press r to start over."
			return m, nil
		}
		m.notice, m.saved = "", ""
		return m, m.input.Focus()

	case "s":
		if state.Succeeded() {
			return m, m.save(state.Artifact)
		}

	case "q":
		if !state.IsLoading {
			return m, tea.Quit
		}
	}
	return m, nil
}

// upload validates the typed path and starts the format request.
func (m Model) upload() (tea.Model, tea.Cmd) {
	path := strings.TrimSpace(m.input.Value())
	if path == "" {
		m.notice = "Enter the path of a .docx, .pdf or .txt file"
		return m, nil
	}

	doc, err := validator.Stat(path)
	if err != nil {
		m.notice = domain.UserMessage(err)
		return m, nil
	}
	attempt, err := m.orch.UploadFile(m.ctx, doc)
	if err != nil {
		m.notice = domain.UserMessage(err)
		return m, nil
	}

	m.source = path
	m.notice, m.saved = "", ""
	m.input.Blur()
	return m, tea.Batch(m.submit(attempt), m.spinner.Tick)
}

func (m Model) submit(attempt workflow.Attempt) tea.Cmd {
	ctx, formatter := m.ctx, m.formatter
	return func() tea.Msg {
		body, err := formatter.Submit(ctx, attempt.File, attempt.Template)
		return formatDoneMsg{attempt: attempt, body: body, err: err}
	}
}

func (m Model) save(a *domain.Artifact) tea.Cmd {
	ctx, registry := m.ctx, m.orch.Registry()
	dest := file.Destination(m.outDir, m.source, a.SuggestedName)
	handle := a.Handle
	return func() tea.Msg {
		blob, err := registry.Open(ctx, handle)
		if err != nil {
			return savedMsg{err: err}
		}
		if err := file.WriteFile(dest, blob.Data); err != nil {
			return savedMsg{err: err}
		}
		return savedMsg{path: dest}
	}
}

// View renders the current step.
func (m Model) View() string {
	state := m.orch.State()

	var b strings.Builder
	b.WriteString(titleStyle.Render("TraceScribe"))
	b.WriteString("\n")
	b.WriteString(stepIndicator(state.Step))
	b.WriteString("\n\n")

	switch state.Step {
	case domain.StepSelect:
		b.WriteString(m.viewSelect())
	case domain.StepUpload:
		b.WriteString(m.viewUpload(state))
	case domain.StepResult:
		b.WriteString(m.viewResult(state))
	}

	if m.notice != "" {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(m.notice))
	}

	return containerStyle.Render(b.String())
}

func stepIndicator(current domain.Step) string {
	parts := make([]string, 0, len(domain.Steps()))
	for i, step := range domain.Steps() {
		label := fmt.Sprintf("%d. %s", i+1, step.Label())
		switch {
		case step < current:
			parts = append(parts, stepDoneStyle.Render("✓ "+step.Label()))
		case step == current:
			parts = append(parts, stepActiveStyle.Render(label))
		default:
			parts = append(parts, stepPendingStyle.Render(label))
		}
	}
	return strings.Join(parts, mutedStyle.Render("  ›  "))
}

func (m Model) viewSelect() string {
	var b strings.Builder
	b.WriteString("Select a template for your document\n\n")
	for i, t := range m.templates {
		line := fmt.Sprintf("  %s", t.DisplayName)
		if i == m.cursor {
			line = cursorStyle.Render(fmt.Sprintf("› %s", t.DisplayName))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	current := m.templates[m.cursor]
	outline, err := m.render(outlineMarkdown(current))
	if err != nil {
		outline = current.Description
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimRight(outline, "\n"))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("↑/↓ choose • enter select • q quit"))
	return b.String()
}

func outlineMarkdown(d domain.TemplateDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**: %s\n\n", d.DisplayName, d.Description)
	for _, s := range d.Sections {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	return b.String()
}

func (m Model) viewUpload(state *domain.WorkflowState) string {
	name := state.SelectedTemplate.String()
	if d, ok := catalog.Lookup(state.SelectedTemplate); ok {
		name = d.DisplayName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Upload a document to format as %s\n", cursorStyle.Render(name))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Accepted: %s • max %s",
		strings.Join(validator.AcceptedExtensions(), ", "),
		domain.FormatFileSize(validator.MaxFileSize))))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("enter upload • esc back • ctrl+c quit"))
	return b.String()
}

func (m Model) viewResult(state *domain.WorkflowState) string {
	var b strings.Builder
	if state.PendingFile != nil {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%s (%s)", state.PendingFile.Name, domain.FormatFileSize(state.PendingFile.Size))))
		b.WriteString("\n\n")
	}

	switch {
	case state.IsLoading:
		fmt.Fprintf(&b, "%s Formatting Your Document\n", m.spinner.View())
		b.WriteString(mutedStyle.Render("Applying the template. This may take a moment."))
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("r start over • ctrl+c quit"))

	case state.Error != "":
		b.WriteString(errorStyle.Render("Formatting Failed"))
		b.WriteString("\n")
		b.WriteString(state.Error)
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("enter try again • r start over • q quit"))

	case state.Artifact != nil:
		b.WriteString(successStyle.Render("Document Ready"))
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s (%s)", state.Artifact.SuggestedName, domain.FormatFileSize(state.Artifact.Size))
		if m.saved != "" {
			b.WriteString("\n")
			b.WriteString(successStyle.Render("Saved to " + m.saved))
		}
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("enter/s download • esc back • r start over • q quit"))
	}
	return b.String()
}
