package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pettai/pettkeeper/internal/models"
	"github.com/pettai/pettkeeper/internal/session"
	"github.com/pettai/pettkeeper/internal/state"
	"github.com/pettai/pettkeeper/internal/wire"
)

// fakeSender records frames instead of hitting a socket.
type fakeSender struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (f *fakeSender) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeSender) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func boolPtr(b bool) *bool { return &b }

func newTestExecutor(t *testing.T, opts ...Option) (*Executor, *fakeSender, *session.AckSlot, *state.Store) {
	t.Helper()
	sender := &fakeSender{}
	acks := session.NewAckSlot()
	store := state.NewStore()
	opts = append([]Option{WithAckTimeout(200 * time.Millisecond)}, opts...)
	return New(sender, acks, store, opts...), sender, acks, store
}

func TestExecuteBusy(t *testing.T) {
	e, sender, acks, _ := newTestExecutor(t)

	// Occupy the slot as a pending action would.
	if _, err := acks.Arm(); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}

	_, err := e.Execute(context.Background(), models.ActionRequest{Type: models.ActionShower})
	if !errors.Is(err, models.ErrActionInFlight) {
		t.Fatalf("expected ErrActionInFlight, got %v", err)
	}
	if sender.sent() != 0 {
		t.Error("busy rejection must not send a frame")
	}
}

func TestExecuteDeadPetRejected(t *testing.T) {
	e, sender, _, store := newTestExecutor(t)
	store.ApplyUpdate(&wire.PetPayload{Dead: boolPtr(true)})

	_, err := e.Execute(context.Background(), models.ActionRequest{Type: models.ActionThrowBall})
	if !errors.Is(err, models.ErrPetDead) {
		t.Fatalf("expected ErrPetDead, got %v", err)
	}
	if sender.sent() != 0 {
		t.Error("precondition rejection must not send a frame")
	}

	actions := store.Actions()
	if len(actions) != 1 {
		t.Fatalf("expected one failed record for the rejected action, got %d", len(actions))
	}
	if actions[0].Success || actions[0].Error != models.ErrPetDead.Error() {
		t.Errorf("expected failed record carrying the rejection error, got %+v", actions[0])
	}
}

func TestExecuteDeadPetAllowsRevival(t *testing.T) {
	e, sender, acks, store := newTestExecutor(t)
	store.ApplyUpdate(&wire.PetPayload{Dead: boolPtr(true)})

	go func() {
		for !acks.Resolve(wire.Message{Kind: wire.KindActionAck, Success: true}) {
			time.Sleep(5 * time.Millisecond)
		}
	}()

	outcome, err := e.Execute(context.Background(), models.ActionRequest{
		Type: models.ActionConsumableBuy, ConsumableID: models.ConsumableRevivePotion, Amount: 1,
	})
	if err != nil {
		t.Fatalf("revival step rejected: %v", err)
	}
	if !outcome.Success {
		t.Error("expected successful outcome")
	}
	if sender.sent() != 1 {
		t.Errorf("expected one frame sent, got %d", sender.sent())
	}
}

func TestExecuteSleepWhileSleepingRejected(t *testing.T) {
	e, sender, _, store := newTestExecutor(t)
	store.ApplyUpdate(&wire.PetPayload{Sleeping: boolPtr(true)})

	_, err := e.Execute(context.Background(), models.ActionRequest{Type: models.ActionSleep})
	if !errors.Is(err, models.ErrAlreadySleeping) {
		t.Fatalf("expected ErrAlreadySleeping, got %v", err)
	}
	if sender.sent() != 0 {
		t.Error("precondition rejection must not send a frame")
	}

	actions := store.Actions()
	if len(actions) != 1 || actions[0].Success {
		t.Fatalf("expected one failed record for the rejected action, got %+v", actions)
	}
	if actions[0].Error != models.ErrAlreadySleeping.Error() {
		t.Errorf("expected rejection error on the record, got %q", actions[0].Error)
	}
}

func TestExecuteAckTimeout(t *testing.T) {
	e, _, acks, store := newTestExecutor(t, WithAckTimeout(50*time.Millisecond))

	_, err := e.Execute(context.Background(), models.ActionRequest{Type: models.ActionShower})
	if !errors.Is(err, models.ErrAckTimeout) {
		t.Fatalf("expected ErrAckTimeout, got %v", err)
	}

	actions := store.Actions()
	if len(actions) != 1 || actions[0].Success {
		t.Errorf("expected one failed action record, got %+v", actions)
	}

	// The slot must be free again for the next cycle.
	if _, err := acks.Arm(); err != nil {
		t.Errorf("slot still armed after timeout: %v", err)
	}
}

func TestExecuteSuccessAppliesVitals(t *testing.T) {
	e, _, acks, store := newTestExecutor(t)

	go func() {
		hygiene := 100
		msg := wire.Message{
			Kind:    wire.KindActionAck,
			Success: true,
			Pet:     &wire.PetPayload{Stats: &wire.PetStatsPayload{Hygiene: &hygiene}},
		}
		for !acks.Resolve(msg) {
			time.Sleep(5 * time.Millisecond)
		}
	}()

	outcome, err := e.Execute(context.Background(), models.ActionRequest{Type: models.ActionShower})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !outcome.Success {
		t.Error("expected success")
	}
	if outcome.Vitals == nil || outcome.Vitals.Hygiene != 100 {
		t.Errorf("expected echoed vitals with hygiene 100, got %+v", outcome.Vitals)
	}
	if store.Vitals().Hygiene != 100 {
		t.Errorf("ack vitals not merged into store: %d", store.Vitals().Hygiene)
	}

	actions := store.Actions()
	if len(actions) != 1 || !actions[0].Success || actions[0].Vitals == nil {
		t.Errorf("expected one successful record with vitals, got %+v", actions)
	}
	messages := store.Messages()
	if len(messages) != 1 || messages[0].Type != string(models.ActionShower) {
		t.Errorf("expected one sent-message record, got %+v", messages)
	}
}

func TestExecuteFailedAck(t *testing.T) {
	e, _, acks, store := newTestExecutor(t)

	go func() {
		msg := wire.Message{Kind: wire.KindActionAck, Success: false, Error: "not enough tokens"}
		for !acks.Resolve(msg) {
			time.Sleep(5 * time.Millisecond)
		}
	}()

	outcome, err := e.Execute(context.Background(), models.ActionRequest{
		Type: models.ActionConsumableBuy, ConsumableID: "BURGER", Amount: 1,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if outcome.Success {
		t.Error("expected failed outcome")
	}
	actions := store.Actions()
	if len(actions) != 1 || actions[0].Error != "not enough tokens" {
		t.Errorf("expected failure recorded with platform error, got %+v", actions)
	}
}

func TestExecuteNone(t *testing.T) {
	e, sender, _, _ := newTestExecutor(t)
	_, err := e.Execute(context.Background(), models.ActionRequest{Type: models.ActionNone})
	if !errors.Is(err, models.ErrNoAction) {
		t.Fatalf("expected ErrNoAction, got %v", err)
	}
	if sender.sent() != 0 {
		t.Error("no-op must not send a frame")
	}
}

func TestExecuteSendFailure(t *testing.T) {
	e, sender, acks, store := newTestExecutor(t)
	sender.err = models.ErrNotConnected

	_, err := e.Execute(context.Background(), models.ActionRequest{Type: models.ActionRub})
	if !errors.Is(err, models.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if len(store.Actions()) != 1 || store.Actions()[0].Success {
		t.Errorf("expected failed record, got %+v", store.Actions())
	}
	if _, err := acks.Arm(); err != nil {
		t.Errorf("slot still armed after send failure: %v", err)
	}
}
