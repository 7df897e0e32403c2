package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/carter2099/best-bets/internal/logger"
	"github.com/carter2099/best-bets/internal/observability"
)

type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

type Status struct {
	State     string         `json:"state"`
	StartedAt *time.Time     `json:"started_at,omitempty"`
	Workers   []WorkerStatus `json:"workers"`
}

// Supervisor owns the worker lifecycles:
// Stopped -> Starting -> Running -> Stopping -> Stopped.
type Supervisor struct {
	workers []Worker
	logger  *zap.Logger
	metrics *observability.Metrics

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time
}

func NewSupervisor(logger *zap.Logger, metrics *observability.Metrics, workers ...Worker) *Supervisor {
	return &Supervisor{workers: workers, logger: logger, metrics: metrics}
}

// Start spawns every worker under a child of parent. It reports false and does
// nothing unless the pipeline is stopped.
func (s *Supervisor) Start(parent context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStopped {
		return false
	}
	s.setState(StateStarting)

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.startedAt = time.Now().UTC()

	log := logger.OrNop(s.logger)
	var wg sync.WaitGroup
	for _, w := range s.workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			err := w.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("worker exited", zap.String("worker", w.Name()), zap.Error(err))
				return
			}
			log.Info("worker stopped", zap.String("worker", w.Name()))
		}(w)
	}
	go func() {
		wg.Wait()
		s.mu.Lock()
		s.setState(StateStopped)
		s.cancel = nil
		s.mu.Unlock()
		cancel()
		close(done)
	}()

	s.setState(StateRunning)
	log.Info("pipeline started", zap.Int("workers", len(s.workers)))
	return true
}

// Stop cancels the workers and waits until every loop has returned or ctx is
// done. In-flight provider calls and rate-limit waits are cancelled, not
// drained; an analysis interrupted this way leaves its token pending.
// Stopping a pipeline that is not running is a no-op.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateRunning && s.state != StateStopping {
		s.mu.Unlock()
		return nil
	}
	s.setState(StateStopping)
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	select {
	case <-done:
		logger.OrNop(s.logger).Info("pipeline stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) Status() Status {
	s.mu.Lock()
	out := Status{State: s.state.String()}
	if s.state != StateStopped {
		started := s.startedAt
		out.StartedAt = &started
	}
	s.mu.Unlock()

	out.Workers = make([]WorkerStatus, 0, len(s.workers))
	for _, w := range s.workers {
		out.Workers = append(out.Workers, w.Status())
	}
	return out
}

// setState must be called with mu held.
func (s *Supervisor) setState(st State) {
	s.state = st
	s.metrics.SetPipelineState(int(st))
}
