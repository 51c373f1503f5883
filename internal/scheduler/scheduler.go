// Package scheduler drives the autonomous care cadence.
//
// A coarse ticker fires one decision cycle per interval. A cycle that comes
// due while the session is down or a previous cycle is still running is
// deferred, never skipped and never doubled.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pettai/pettkeeper/internal/models"
)

// DefaultInterval is the cadence between autonomous care cycles.
const DefaultInterval = 30 * time.Minute

// defaultTick is the poll resolution of the loop.
const defaultTick = time.Second

// ConnectionChecker reports whether the platform session is usable.
type ConnectionChecker interface {
	Connected() bool
}

// Decider selects the next care action.
type Decider interface {
	Decide(ctx context.Context) models.ActionRequest
}

// Runner executes one care action end to end.
type Runner interface {
	Execute(ctx context.Context, req models.ActionRequest) (models.ActionOutcome, error)
}

// Scheduler owns the care-cycle timing state.
type Scheduler struct {
	interval time.Duration
	tick     time.Duration

	conn   ConnectionChecker
	engine Decider
	exec   Runner

	mu           sync.Mutex
	nextActionAt time.Time
	inFlight     bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval overrides the care-cycle cadence.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithTick overrides the loop poll resolution. Tests use a short tick.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// New creates a scheduler. The first cycle comes due one full interval after
// Run starts, giving the session time to authenticate and the first vitals
// to arrive.
func New(conn ConnectionChecker, engine Decider, exec Runner, opts ...Option) *Scheduler {
	s := &Scheduler{
		interval: DefaultInterval,
		tick:     defaultTick,
		conn:     conn,
		engine:   engine,
		exec:     exec,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run polls until ctx is cancelled, firing one care cycle whenever one is
// due, the session is connected, and no cycle is already running.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.nextActionAt = time.Now().Add(s.interval)
	s.mu.Unlock()
	slog.Info("scheduler: started", "interval", s.interval)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.maybeFire(ctx)
		case <-ctx.Done():
			slog.Info("scheduler: stopped")
			return
		}
	}
}

// maybeFire starts one cycle if due and runnable. A due cycle held back by a
// down session or a running cycle stays due and fires on a later tick.
func (s *Scheduler) maybeFire(ctx context.Context) {
	s.mu.Lock()
	if time.Now().Before(s.nextActionAt) || s.inFlight {
		s.mu.Unlock()
		return
	}
	if !s.conn.Connected() {
		s.mu.Unlock()
		slog.Debug("scheduler: cycle due but session not connected; deferring")
		return
	}
	s.inFlight = true
	// The cadence is anchored at fire time; a long cycle does not push the
	// following one later.
	s.nextActionAt = time.Now().Add(s.interval)
	s.mu.Unlock()

	go func() {
		s.runCycle(ctx)
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()
}

// runCycle performs one decide+execute pass. Failures are logged; there is
// no retry before the next scheduled cycle.
func (s *Scheduler) runCycle(ctx context.Context) {
	req := s.engine.Decide(ctx)
	if req.Type == models.ActionNone {
		slog.Info("scheduler: cycle chose no action")
		return
	}

	outcome, err := s.exec.Execute(ctx, req)
	switch {
	case err == nil:
		slog.Info("scheduler: cycle completed", "action", req.Type, "success", outcome.Success)
	case errors.Is(err, models.ErrNoAction):
		slog.Info("scheduler: cycle chose no action")
	case errors.Is(err, context.Canceled):
		// Shutdown mid-cycle.
	default:
		slog.Warn("scheduler: cycle failed", "action", req.Type, "error", err)
	}
}

// Status returns the externally visible schedule view.
func (s *Scheduler) Status() models.ScheduleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := models.ScheduleStatus{
		Interval:     s.interval.String(),
		NextActionAt: s.nextActionAt,
		Scheduled:    !s.nextActionAt.IsZero(),
	}
	if status.Scheduled {
		if until := time.Until(s.nextActionAt); until > 0 {
			status.MinutesUntilNext = until.Minutes()
		}
	}
	return status
}
