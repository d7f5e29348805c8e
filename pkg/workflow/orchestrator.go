package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tracescribe/internal/logging"
	"github.com/aretw0/tracescribe/pkg/adapters/memory"
	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/aretw0/tracescribe/pkg/ports"
	"github.com/aretw0/tracescribe/pkg/validator"
)

// Intent names reported in transition events.
const (
	IntentSelectTemplate = "select_template"
	IntentUploadFile     = "upload_file"
	IntentFormatSuccess  = "format_success"
	IntentFormatFailure  = "format_failure"
	IntentGoBack         = "go_back"
	IntentReset          = "reset"
)

// Attempt is one in-flight format request.
type Attempt struct {
	Generation uint64
	Template   domain.TemplateID
	File       domain.FileRef
	Started    time.Time
}

// Orchestrator owns a WorkflowState and the artifact handle inside it.
type Orchestrator struct {
	state      *domain.WorkflowState
	generation uint64

	registry ports.ArtifactRegistry
	validate func(domain.FileRef) error
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithRegistry sets the artifact registry. Defaults to an in-memory registry.
func WithRegistry(r ports.ArtifactRegistry) Option {
	return func(o *Orchestrator) {
		o.registry = r
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = h
	}
}

// WithLogger configures a logger for internal events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithValidator replaces the file check run by UploadFile.
func WithValidator(fn func(domain.FileRef) error) Option {
	return func(o *Orchestrator) {
		o.validate = fn
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an Orchestrator in the Select step.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		state:    domain.NewWorkflowState(),
		validate: validator.Validate,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = memory.NewRegistry()
	}
	return o
}

// State returns a snapshot of the current state.
func (o *Orchestrator) State() *domain.WorkflowState {
	return o.state.Snapshot()
}

// Generation returns the tag that the next completion must carry to be accepted.
func (o *Orchestrator) Generation() uint64 {
	return o.generation
}

// Registry returns the registry that owns artifact handles.
func (o *Orchestrator) Registry() ports.ArtifactRegistry {
	return o.registry
}

// SelectTemplate picks the template and moves to Upload.
// It panics if id is not part of the compiled template set.
func (o *Orchestrator) SelectTemplate(ctx context.Context, id domain.TemplateID) error {
	if !id.Known() {
		panic(fmt.Sprintf("workflow: unknown template %q", id))
	}
	if o.state.Step == domain.StepResult {
		return fmt.Errorf("%w: cannot select a template from the %s step", domain.ErrTransitionNotAllowed, o.state.Step)
	}

	from := o.state.Step
	o.state.Step = domain.StepUpload
	o.state.SelectedTemplate = id
	o.state.Error = ""

	o.logger.Debug("Template selected", "template", id)
	o.emitTransition(ctx, IntentSelectTemplate, from)
	return nil
}

// UploadFile validates file and starts a new attempt. Any previous artifact is released
// and any attempt still in flight is superseded. The caller must run the returned
// Attempt and report its outcome with Complete.
func (o *Orchestrator) UploadFile(ctx context.Context, file domain.FileRef) (Attempt, error) {
	if o.state.Step == domain.StepSelect || o.state.SelectedTemplate == "" {
		return Attempt{}, fmt.Errorf("%w: select a template before uploading", domain.ErrTransitionNotAllowed)
	}
	if err := o.validate(file); err != nil {
		o.logger.Debug("File rejected", "file", file.Name, "size", file.Size, "error", err)
		return Attempt{}, err
	}

	if o.state.IsLoading {
		o.logger.Debug("Superseding in-flight request", "generation", o.generation)
	}
	o.releaseArtifact(ctx)

	from := o.state.Step
	o.generation++
	f := file
	o.state.Step = domain.StepResult
	o.state.PendingFile = &f
	o.state.IsLoading = true
	o.state.Error = ""
	o.state.Artifact = nil

	attempt := Attempt{
		Generation: o.generation,
		Template:   o.state.SelectedTemplate,
		File:       file,
		Started:    o.now(),
	}

	o.logger.Info("Format request started",
		"template", attempt.Template,
		"file", file.Name,
		"size", file.Size,
		"generation", attempt.Generation,
	)
	if o.hooks.OnRequestStart != nil {
		o.hooks.OnRequestStart(ctx, o.requestEvent(domain.EventRequestStart, attempt, nil))
	}
	o.emitTransition(ctx, IntentUploadFile, from)
	return attempt, nil
}

// Complete applies the outcome of attempt. It reports false, leaving state untouched,
// when the attempt is stale: another upload, a GoBack or a Reset happened since it started.
func (o *Orchestrator) Complete(ctx context.Context, attempt Attempt, body []byte, err error) bool {
	if attempt.Generation != o.generation || !o.state.IsLoading {
		o.logger.Debug("Dropping stale format response",
			"attempt_generation", attempt.Generation,
			"generation", o.generation,
			"template", attempt.Template,
		)
		if o.hooks.OnStaleResponse != nil {
			o.hooks.OnStaleResponse(ctx, o.requestEvent(domain.EventStaleResponse, attempt, err))
		}
		return false
	}

	o.state.IsLoading = false
	if o.hooks.OnRequestDone != nil {
		o.hooks.OnRequestDone(ctx, o.requestEvent(domain.EventRequestDone, attempt, err))
	}

	if err != nil {
		o.fail(ctx, attempt, domain.UserMessage(err))
		return true
	}

	name := attempt.Template.OutputName()
	handle, cerr := o.registry.Create(ctx, name, body)
	if cerr != nil {
		o.logger.Error("Failed to store formatted document", "template", attempt.Template, "error", cerr)
		o.fail(ctx, attempt, fmt.Sprintf("failed to store formatted document: %v", cerr))
		return true
	}

	o.state.Artifact = &domain.Artifact{
		Handle:        handle,
		SuggestedName: name,
		Size:          int64(len(body)),
	}
	o.logger.Info("Document formatted",
		"template", attempt.Template,
		"handle", handle,
		"size", len(body),
		"duration", o.now().Sub(attempt.Started),
	)
	if o.hooks.OnArtifactCreated != nil {
		o.hooks.OnArtifactCreated(ctx, &domain.ArtifactEvent{
			EventBase: o.base(domain.EventArtifactCreated),
			Handle:    handle,
			Size:      int64(len(body)),
		})
	}
	o.emitTransition(ctx, IntentFormatSuccess, domain.StepResult)
	return true
}

// Run submits attempt with f and completes it. It blocks for the duration of the request
// and must only be used where blocking the execution context is acceptable.
func (o *Orchestrator) Run(ctx context.Context, attempt Attempt, f ports.Formatter) bool {
	body, err := f.Submit(ctx, attempt.File, attempt.Template)
	return o.Complete(ctx, attempt, body, err)
}

// GoBack steps one stage back. From Result it is refused while a request is in flight.
func (o *Orchestrator) GoBack(ctx context.Context) error {
	from := o.state.Step
	switch from {
	case domain.StepSelect:
		return fmt.Errorf("%w: already at the first step", domain.ErrTransitionNotAllowed)

	case domain.StepUpload:
		o.state.Step = domain.StepSelect
		o.state.SelectedTemplate = ""

	case domain.StepResult:
		if o.state.IsLoading {
			return fmt.Errorf("%w: a format request is in flight", domain.ErrTransitionNotAllowed)
		}
		o.releaseArtifact(ctx)
		o.generation++
		o.state.Step = domain.StepUpload
		o.state.PendingFile = nil
		o.state.Error = ""
	}

	o.emitTransition(ctx, IntentGoBack, from)
	return nil
}

// Reset releases any artifact and rebuilds the pristine state.
func (o *Orchestrator) Reset(ctx context.Context) {
	from := o.state.Step
	o.releaseArtifact(ctx)
	o.generation++
	o.state = domain.NewWorkflowState()
	o.emitTransition(ctx, IntentReset, from)
}

func (o *Orchestrator) fail(ctx context.Context, attempt Attempt, msg string) {
	if msg == "" {
		msg = "Unknown error"
	}
	o.state.Error = msg
	o.logger.Warn("Format request failed", "template", attempt.Template, "generation", attempt.Generation, "error", msg)
	o.emitTransition(ctx, IntentFormatFailure, domain.StepResult)
}

// releaseArtifact revokes the held handle once and forgets it, even if revocation fails.
func (o *Orchestrator) releaseArtifact(ctx context.Context) {
	a := o.state.Artifact
	if a == nil {
		return
	}
	o.state.Artifact = nil

	err := o.registry.Revoke(ctx, a.Handle)
	if err != nil {
		o.logger.Warn("Failed to revoke artifact", "handle", a.Handle, "error", err)
	} else {
		o.logger.Debug("Artifact revoked", "handle", a.Handle)
	}
	if o.hooks.OnArtifactRevoked != nil {
		o.hooks.OnArtifactRevoked(ctx, &domain.ArtifactEvent{
			EventBase: o.base(domain.EventArtifactRevoked),
			Handle:    a.Handle,
			Size:      a.Size,
			Err:       err,
		})
	}
}

func (o *Orchestrator) emitTransition(ctx context.Context, intent string, from domain.Step) {
	if o.hooks.OnTransition == nil {
		return
	}
	o.hooks.OnTransition(ctx, &domain.TransitionEvent{
		EventBase: o.base(domain.EventTransition),
		Intent:    intent,
		From:      from,
		To:        o.state.Step,
	})
}

func (o *Orchestrator) requestEvent(t domain.EventType, a Attempt, err error) *domain.RequestEvent {
	ev := &domain.RequestEvent{
		EventBase: o.base(t),
		Template:  a.Template,
		FileName:  a.File.Name,
		FileSize:  a.File.Size,
		Err:       err,
	}
	ev.Generation = a.Generation
	if t != domain.EventRequestStart {
		ev.Duration = o.now().Sub(a.Started)
	}
	return ev
}

func (o *Orchestrator) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp:  o.now(),
		Type:       t,
		Generation: o.generation,
	}
}
