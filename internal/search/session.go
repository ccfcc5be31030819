package search

import (
	"context"
	"sync"

	"anibridge/internal/planner"
)

// Session serializes interactive executions. Starting a run cancels the one
// in flight, and the cancelled run reports ErrSuperseded.
type Session struct {
	exec *Executor

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewSession wraps exec.
func NewSession(exec *Executor) *Session {
	return &Session{exec: exec}
}

// Run executes plan after cancelling any previous run of the session.
func (s *Session) Run(ctx context.Context, plan *planner.Plan, page Page, opts ExecOptions) (*Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.mu.Unlock()

	result, err := s.exec.Execute(runCtx, plan, page, opts)

	s.mu.Lock()
	current := s.gen == gen
	if current {
		s.cancel = nil
	}
	s.mu.Unlock()
	cancel()

	if !current {
		return nil, ErrSuperseded
	}
	return result, err
}

// Cancel stops the run in flight, if any.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}
