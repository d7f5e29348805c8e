package workflow_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/tracescribe/pkg/adapters/memory"
	"github.com/aretw0/tracescribe/pkg/domain"
)

// countingRegistry wraps the memory registry and records every revoke per handle.
type countingRegistry struct {
	*memory.Registry
	mu      sync.Mutex
	created []string
	revoked map[string]int
	failOn  error
}

func newCountingRegistry() *countingRegistry {
	return &countingRegistry{
		Registry: memory.NewRegistry(),
		revoked:  make(map[string]int),
	}
}

func (r *countingRegistry) Create(ctx context.Context, name string, data []byte) (string, error) {
	if r.failOn != nil {
		return "", r.failOn
	}
	h, err := r.Registry.Create(ctx, name, data)
	if err == nil {
		r.mu.Lock()
		r.created = append(r.created, h)
		r.mu.Unlock()
	}
	return h, err
}

func (r *countingRegistry) Revoke(ctx context.Context, handle string) error {
	r.mu.Lock()
	r.revoked[handle]++
	r.mu.Unlock()
	return r.Registry.Revoke(ctx, handle)
}

// check verifies that every created handle except live was revoked exactly once,
// and that live (if set) was never revoked.
func (r *countingRegistry) check(live string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.created {
		n := r.revoked[h]
		if h == live {
			if n != 0 {
				return fmt.Errorf("live handle %s revoked %d times", h, n)
			}
			continue
		}
		if n != 1 {
			return fmt.Errorf("handle %s revoked %d times, want 1", h, n)
		}
	}
	for h := range r.revoked {
		found := false
		for _, c := range r.created {
			found = found || c == h
		}
		if !found {
			return fmt.Errorf("revoked unknown handle %s", h)
		}
	}
	return nil
}

func txtFile(name string, size int) domain.FileRef {
	return domain.BytesFile(name, make([]byte, size))
}

// stubFormatter returns a fixed body or error.
type stubFormatter struct {
	body  []byte
	err   error
	calls int
}

func (s *stubFormatter) Submit(ctx context.Context, file domain.FileRef, template domain.TemplateID) ([]byte, error) {
	s.calls++
	return s.body, s.err
}
