// Package pipeline runs the ingestion, analysis and ranking workers.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Worker is one perpetual loop owned by the Supervisor.
type Worker interface {
	Name() string
	// Run loops until ctx is done and then returns ctx.Err().
	Run(ctx context.Context) error
	Status() WorkerStatus
}

type WorkerStatus struct {
	Name          string     `json:"name"`
	Cycles        uint64     `json:"cycles"`
	Errors        uint64     `json:"errors"`
	LastCycleAt   *time.Time `json:"last_cycle_at,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}

type stats struct {
	mu     sync.Mutex
	status WorkerStatus
}

func (s *stats) record(err error) {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Cycles++
	s.status.LastCycleAt = &now
	if err != nil {
		s.status.Errors++
		s.status.LastError = err.Error()
		return
	}
	s.status.LastSuccessAt = &now
}

func (s *stats) snapshot(name string) WorkerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.status
	out.Name = name
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// safeCycle turns a panic inside one cycle into an error so the loop survives it.
func safeCycle(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()
	return fn()
}
