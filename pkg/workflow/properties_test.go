package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/aretw0/tracescribe/pkg/workflow"
	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"
)

// ============================================================================
// Property-Based Tests for Workflow Invariants
// ============================================================================

// pendingAttempt is a request the test harness has not completed yet.
type pendingAttempt struct {
	attempt workflow.Attempt
}

// TestProperty_WorkflowInvariants drives random intent and completion sequences and checks
// after every step that the state is structurally valid and that every artifact handle
// that left the state was revoked exactly once.
func TestProperty_WorkflowInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		reg := newCountingRegistry()
		o := workflow.New(workflow.WithRegistry(reg))
		var inflight []pendingAttempt

		templates := domain.TemplateIDs()
		files := []domain.FileRef{
			txtFile("a.txt", 10),
			txtFile("B.DOCX", 2048),
			txtFile("c.pdf", 10*1024*1024),
			{Name: "big.pdf", Size: 10*1024*1024 + 1},
			{Name: "image.png", Size: 5},
		}

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			before := o.State()
			genBefore := o.Generation()

			switch op := rapid.IntRange(0, 5).Draw(t, fmt.Sprintf("op-%d", i)); op {
			case 0:
				id := rapid.SampledFrom(templates).Draw(t, fmt.Sprintf("template-%d", i))
				err := o.SelectTemplate(ctx, id)
				if err != nil && !errors.Is(err, domain.ErrTransitionNotAllowed) {
					t.Fatalf("unexpected select error: %v", err)
				}
			case 1:
				f := rapid.SampledFrom(files).Draw(t, fmt.Sprintf("file-%d", i))
				a, err := o.UploadFile(ctx, f)
				if err == nil {
					inflight = append(inflight, pendingAttempt{attempt: a})
				} else if !errors.Is(err, domain.ErrTransitionNotAllowed) {
					var rej *domain.RejectionError
					if !errors.As(err, &rej) {
						t.Fatalf("unexpected upload error: %v", err)
					}
					if diff := cmp.Diff(before, o.State(), cmp.Comparer(sameFile)); diff != "" {
						t.Fatalf("rejected upload changed state:\n%s", diff)
					}
				}
			case 2, 3:
				if len(inflight) == 0 {
					continue
				}
				idx := rapid.IntRange(0, len(inflight)-1).Draw(t, fmt.Sprintf("complete-%d", i))
				p := inflight[idx]
				inflight = append(inflight[:idx], inflight[idx+1:]...)

				current := p.attempt.Generation == genBefore && before.IsLoading
				var applied bool
				if op == 2 {
					applied = o.Complete(ctx, p.attempt, []byte("doc"), nil)
				} else {
					applied = o.Complete(ctx, p.attempt, nil, &domain.APIError{StatusCode: 500, Message: "engine overloaded"})
				}
				if applied != current {
					t.Fatalf("completion applied=%v, want %v", applied, current)
				}
				if !applied {
					if diff := cmp.Diff(before, o.State(), cmp.Comparer(sameFile)); diff != "" {
						t.Fatalf("stale completion changed state:\n%s", diff)
					}
				}
			case 4:
				err := o.GoBack(ctx)
				if err != nil && !errors.Is(err, domain.ErrTransitionNotAllowed) {
					t.Fatalf("unexpected goBack error: %v", err)
				}
			case 5:
				o.Reset(ctx)
			}

			s := o.State()
			if err := s.Validate(); err != nil {
				t.Fatalf("invariant violated after step %d: %v", i, err)
			}
			if o.Generation() < genBefore {
				t.Fatalf("generation decreased from %d to %d", genBefore, o.Generation())
			}
			live := ""
			if s.Artifact != nil {
				live = s.Artifact.Handle
			}
			if err := reg.check(live); err != nil {
				t.Fatalf("resource safety violated after step %d: %v", i, err)
			}
		}

		// Releasing the session leaves nothing behind.
		o.Reset(ctx)
		if err := reg.check(""); err != nil {
			t.Fatalf("handle leaked after final reset: %v", err)
		}
		if n := reg.Len(); n != 0 {
			t.Fatalf("%d handles still live after reset", n)
		}
	})
}

// TestProperty_ResetIsIdempotent verifies that two resets in a row always yield the
// pristine state, whatever happened before.
func TestProperty_ResetIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		o := workflow.New()

		if rapid.Bool().Draw(t, "select") {
			_ = o.SelectTemplate(ctx, rapid.SampledFrom(domain.TemplateIDs()).Draw(t, "template"))
			if rapid.Bool().Draw(t, "upload") {
				a, err := o.UploadFile(ctx, txtFile("a.txt", rapid.IntRange(0, 4096).Draw(t, "size")))
				if err == nil && rapid.Bool().Draw(t, "complete") {
					o.Complete(ctx, a, []byte("doc"), nil)
				}
			}
		}

		o.Reset(ctx)
		first := o.State()
		o.Reset(ctx)
		second := o.State()

		if diff := cmp.Diff(domain.NewWorkflowState(), first); diff != "" {
			t.Fatalf("first reset not pristine:\n%s", diff)
		}
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("second reset differs:\n%s", diff)
		}
	})
}

func sameFile(a, b domain.FileRef) bool {
	return a.Name == b.Name && a.Size == b.Size
}
