package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/tracescribe/internal/logging"
	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/aretw0/tracescribe/pkg/ports"
	"github.com/aretw0/tracescribe/pkg/workflow"
)

// Session serializes intents and request completions for one orchestrator.
type Session struct {
	id        string
	orch      *workflow.Orchestrator
	formatter ports.Formatter
	logger    *slog.Logger

	// baseCtx outlives the caller contexts that send intents, so a request started by an
	// HTTP handler keeps running after the handler returns.
	baseCtx context.Context
	cancel  context.CancelFunc

	requests chan func()
	done     chan struct{}
	closing  bool

	mu       sync.RWMutex
	snapshot *domain.WorkflowState
	subs     map[chan *domain.WorkflowState]struct{}

	lastActive atomic.Int64
	inflight   sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithLogger configures a logger for the Session.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// New starts a session loop around orch. Requests are sent with formatter.
func New(id string, orch *workflow.Orchestrator, formatter ports.Formatter, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        id,
		orch:      orch,
		formatter: formatter,
		logger:    logging.NewNop(),
		baseCtx:   ctx,
		cancel:    cancel,
		requests:  make(chan func()),
		done:      make(chan struct{}),
		snapshot:  orch.State(),
		subs:      make(map[chan *domain.WorkflowState]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session_id", id)
	s.touch()

	go s.loop()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// LastActive returns the time of the last intent.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Done is closed once the session loop has stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Snapshot returns the state published after the latest transition.
func (s *Session) Snapshot() *domain.WorkflowState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Snapshot()
}

// Subscribe returns a channel that receives a snapshot after every state change.
// Slow readers only see the latest snapshot. The channel is closed when the session closes
// or the returned cancel function is called.
func (s *Session) Subscribe() (<-chan *domain.WorkflowState, func()) {
	ch := make(chan *domain.WorkflowState, 1)

	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
}

// SelectTemplate forwards the intent to the orchestrator.
// It panics if id is not part of the compiled template set.
func (s *Session) SelectTemplate(ctx context.Context, id domain.TemplateID) error {
	if !id.Known() {
		panic(fmt.Sprintf("session: unknown template %q", id))
	}
	return s.do(ctx, func() error {
		return s.orch.SelectTemplate(s.baseCtx, id)
	})
}

// UploadFile validates file, moves to Result and starts the format request in the background.
func (s *Session) UploadFile(ctx context.Context, file domain.FileRef) error {
	return s.do(ctx, func() error {
		attempt, err := s.orch.UploadFile(s.baseCtx, file)
		if err != nil {
			return err
		}
		s.inflight.Add(1)
		go s.execute(attempt)
		return nil
	})
}

// GoBack forwards the intent to the orchestrator.
func (s *Session) GoBack(ctx context.Context) error {
	return s.do(ctx, func() error {
		return s.orch.GoBack(s.baseCtx)
	})
}

// Reset forwards the intent to the orchestrator.
func (s *Session) Reset(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.orch.Reset(s.baseCtx)
		return nil
	})
}

// Await blocks until no request is in flight and returns that state.
func (s *Session) Await(ctx context.Context) (*domain.WorkflowState, error) {
	ch, cancel := s.Subscribe()
	defer cancel()

	if snap := s.Snapshot(); !snap.IsLoading {
		return snap, nil
	}
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return s.Snapshot(), domain.ErrSessionClosed
			}
			if !snap.IsLoading {
				return snap, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// OpenArtifact returns the document behind the current artifact.
func (s *Session) OpenArtifact(ctx context.Context) (*domain.ArtifactBlob, error) {
	snap := s.Snapshot()
	if snap.Artifact == nil {
		return nil, domain.ErrArtifactNotFound
	}
	return s.orch.Registry().Open(ctx, snap.Artifact.Handle)
}

// Close resets the orchestrator, releasing any artifact, and stops the loop.
// Requests still in flight are cancelled and their completions dropped.
func (s *Session) Close(ctx context.Context) error {
	err := s.do(ctx, func() error {
		s.orch.Reset(s.baseCtx)
		s.closing = true
		return nil
	})
	if errors.Is(err, domain.ErrSessionClosed) {
		return nil
	}
	if err != nil {
		return err
	}

	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.cancel()
	return nil
}

func (s *Session) loop() {
	defer func() {
		s.mu.Lock()
		close(s.done)
		for ch := range s.subs {
			close(ch)
		}
		s.subs = map[chan *domain.WorkflowState]struct{}{}
		s.mu.Unlock()
		s.logger.Debug("Session loop stopped")
	}()

	for req := range s.requests {
		req()
		s.publish()
		if s.closing {
			return
		}
	}
}

// do runs fn on the loop and waits for its result. The snapshot is published before the
// result is delivered, so callers observe their own transition.
func (s *Session) do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	req := func() {
		err := fn()
		s.publish()
		errc <- err
	}

	select {
	case s.requests <- req:
	case <-s.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	s.touch()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// execute runs the request off-loop and posts the completion back.
func (s *Session) execute(attempt workflow.Attempt) {
	defer s.inflight.Done()

	body, err := s.formatter.Submit(s.baseCtx, attempt.File, attempt.Template)

	select {
	case s.requests <- func() { s.orch.Complete(s.baseCtx, attempt, body, err) }:
	case <-s.done:
		s.logger.Debug("Dropping completion for closed session", "generation", attempt.Generation)
	}
}

func (s *Session) publish() {
	next := s.orch.State()

	s.mu.Lock()
	defer s.mu.Unlock()

	if domain.Diff(s.id, s.snapshot, next) == nil {
		return
	}
	s.snapshot = next
	for ch := range s.subs {
		// Latest wins: replace an unread snapshot.
		select {
		case ch <- next.Snapshot():
		default:
			select {
			case <-ch:
			default:
			}
			ch <- next.Snapshot()
		}
	}
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// waitInflight blocks until every background request has returned. Used in tests.
func (s *Session) waitInflight() {
	s.inflight.Wait()
}

// Format runs one document through the whole workflow: it selects id, uploads file, waits
// for the response and returns the formatted document. A failed request is returned as an
// error carrying the message shown in the Result view.
func (s *Session) Format(ctx context.Context, id domain.TemplateID, file domain.FileRef) (*domain.ArtifactBlob, error) {
	if err := s.SelectTemplate(ctx, id); err != nil {
		return nil, err
	}
	if err := s.UploadFile(ctx, file); err != nil {
		return nil, err
	}

	state, err := s.Await(ctx)
	if err != nil {
		return nil, err
	}
	if state.Failed() {
		return nil, errors.New(state.Error)
	}
	return s.OpenArtifact(ctx)
}
