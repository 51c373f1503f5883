// Package executor validates and serializes care actions through the
// session, one at a time.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pettai/pettkeeper/internal/models"
	"github.com/pettai/pettkeeper/internal/session"
	"github.com/pettai/pettkeeper/internal/state"
	"github.com/pettai/pettkeeper/internal/wire"
)

// DefaultAckTimeout bounds the wait for an action acknowledgement.
const DefaultAckTimeout = 15 * time.Second

// Sender transmits one encoded frame to the platform.
type Sender interface {
	Send(frame []byte) error
}

// Executor executes care actions: precondition checks, the single in-flight
// slot, the acknowledgement wait, and history recording.
type Executor struct {
	sender     Sender
	acks       *session.AckSlot
	store      *state.Store
	ackTimeout time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithAckTimeout overrides the acknowledgement timeout.
func WithAckTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.ackTimeout = d
		}
	}
}

// New creates an executor sharing the session's ack correlation slot.
func New(sender Sender, acks *session.AckSlot, store *state.Store, opts ...Option) *Executor {
	e := &Executor{
		sender:     sender,
		acks:       acks,
		store:      store,
		ackTimeout: DefaultAckTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute validates the action, sends it, and waits for the correlated
// acknowledgement. A second call while one action is pending fails with the
// busy error before anything reaches the socket. There is no automatic
// retry; a failed action simply waits for the next scheduled cycle.
func (e *Executor) Execute(ctx context.Context, req models.ActionRequest) (models.ActionOutcome, error) {
	if req.Type == models.ActionNone {
		return models.ActionOutcome{Action: req}, models.ErrNoAction
	}

	// Encoding doubles as the exhaustive validity check over the closed
	// action enumeration.
	frame, err := wire.ActionFrame(req)
	if err != nil {
		return models.ActionOutcome{Action: req}, err
	}

	if err := e.checkPreconditions(req); err != nil {
		slog.Info("executor: action rejected by precondition", "action", req.Type, "error", err)
		e.store.RecordAction(models.ActionRecord{
			Action: req, Timestamp: time.Now(), Success: false, Error: err.Error(),
		})
		return models.ActionOutcome{Action: req}, err
	}

	ackCh, err := e.acks.Arm()
	if err != nil {
		return models.ActionOutcome{Action: req}, err
	}
	defer e.acks.Release()

	now := time.Now()
	if err := e.sender.Send(frame); err != nil {
		e.store.RecordMessage(models.SentMessageRecord{Type: string(req.Type), Timestamp: now, Success: false})
		e.store.RecordAction(models.ActionRecord{Action: req, Timestamp: now, Success: false, Error: err.Error()})
		return models.ActionOutcome{Action: req}, fmt.Errorf("send %s: %w", req.Type, err)
	}
	e.store.RecordMessage(models.SentMessageRecord{Type: string(req.Type), Timestamp: now, Success: true})
	slog.Debug("executor: action sent, awaiting acknowledgement", "action", req.Type)

	select {
	case ack := <-ackCh:
		return e.finish(req, ack), nil
	case <-time.After(e.ackTimeout):
		slog.Warn("executor: acknowledgement timed out", "action", req.Type, "timeout", e.ackTimeout)
		e.store.RecordAction(models.ActionRecord{
			Action: req, Timestamp: time.Now(), Success: false, Error: models.ErrAckTimeout.Error(),
		})
		return models.ActionOutcome{Action: req}, models.ErrAckTimeout
	case <-ctx.Done():
		// Shutdown: abandon the wait; the unacknowledged action surfaces as
		// a failure in the history.
		e.store.RecordAction(models.ActionRecord{
			Action: req, Timestamp: time.Now(), Success: false, Error: ctx.Err().Error(),
		})
		return models.ActionOutcome{Action: req}, ctx.Err()
	}
}

// checkPreconditions rejects actions the current vitals forbid, before any
// frame is sent.
func (e *Executor) checkPreconditions(req models.ActionRequest) error {
	vitals := e.store.Vitals()
	if vitals.Dead && !req.IsRevival() {
		return models.ErrPetDead
	}
	if req.Type == models.ActionSleep && vitals.Sleeping {
		return models.ErrAlreadySleeping
	}
	return nil
}

// finish applies the acknowledged result: the echoed vitals (when present)
// merge into the store and an ActionRecord is appended.
func (e *Executor) finish(req models.ActionRequest, ack wire.Message) models.ActionOutcome {
	record := models.ActionRecord{
		Action:    req,
		Timestamp: time.Now(),
		Success:   ack.Success,
		Error:     ack.Error,
	}
	if ack.Pet != nil {
		e.store.ApplyUpdate(ack.Pet)
		v := e.store.Vitals()
		record.Vitals = &v
	}
	e.store.RecordAction(record)

	slog.Info("executor: action completed", "action", req.Type, "success", ack.Success)
	return models.ActionOutcome{Action: req, Success: ack.Success, Vitals: record.Vitals}
}
