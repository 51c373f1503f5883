package session

import (
	"errors"
	"testing"

	"github.com/pettai/pettkeeper/internal/models"
	"github.com/pettai/pettkeeper/internal/wire"
)

func TestAckSlotSingleOccupancy(t *testing.T) {
	slot := NewAckSlot()

	ch, err := slot.Arm()
	if err != nil {
		t.Fatalf("first Arm failed: %v", err)
	}

	if _, err := slot.Arm(); !errors.Is(err, models.ErrActionInFlight) {
		t.Fatalf("second Arm: expected ErrActionInFlight, got %v", err)
	}

	if !slot.Resolve(wire.Message{Kind: wire.KindActionAck, Success: true}) {
		t.Fatal("Resolve must deliver to the armed waiter")
	}
	msg := <-ch
	if !msg.Success {
		t.Error("expected delivered ack to be successful")
	}

	slot.Release()
	if _, err := slot.Arm(); err != nil {
		t.Errorf("Arm after Release failed: %v", err)
	}
}

func TestAckSlotResolveWithoutWaiter(t *testing.T) {
	slot := NewAckSlot()
	if slot.Resolve(wire.Message{Kind: wire.KindActionAck}) {
		t.Error("Resolve without a waiter must report false")
	}
}

func TestAckSlotReleaseIdempotent(t *testing.T) {
	slot := NewAckSlot()
	slot.Release()
	slot.Release()
	if _, err := slot.Arm(); err != nil {
		t.Errorf("Arm after redundant releases failed: %v", err)
	}
}

func TestAckSlotDoubleResolve(t *testing.T) {
	slot := NewAckSlot()
	if _, err := slot.Arm(); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}
	if !slot.Resolve(wire.Message{Kind: wire.KindActionAck}) {
		t.Fatal("first Resolve must succeed")
	}
	if slot.Resolve(wire.Message{Kind: wire.KindActionAck}) {
		t.Error("second Resolve for the same action must report false")
	}
}
