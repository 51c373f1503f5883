package session

import (
	"sync"

	"github.com/pettai/pettkeeper/internal/models"
	"github.com/pettai/pettkeeper/internal/wire"
)

// AckSlot is the single in-flight acknowledgement correlation slot. The
// platform guarantees at most one outstanding request, so occupancy of this
// slot is the system's one action-level mutual-exclusion point: arming it a
// second time fails with the busy error instead of queueing.
type AckSlot struct {
	mu    sync.Mutex
	armed bool
	ch    chan wire.Message
}

// NewAckSlot creates an empty slot.
func NewAckSlot() *AckSlot {
	return &AckSlot{}
}

// Arm claims the slot and returns the channel the acknowledgement will be
// delivered on. It fails with models.ErrActionInFlight when already armed.
func (a *AckSlot) Arm() (<-chan wire.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.armed {
		return nil, models.ErrActionInFlight
	}
	a.armed = true
	a.ch = make(chan wire.Message, 1)
	return a.ch, nil
}

// Release frees the slot. Safe to call when not armed.
func (a *AckSlot) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.armed = false
	a.ch = nil
}

// Resolve delivers an acknowledgement to the armed waiter. It reports false
// when no action is in flight.
func (a *AckSlot) Resolve(msg wire.Message) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.armed || a.ch == nil {
		return false
	}
	select {
	case a.ch <- msg:
		return true
	default:
		// Waiter already received one ack for this action.
		return false
	}
}
