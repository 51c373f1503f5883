package session

import (
	"log/slog"

	"github.com/pettai/pettkeeper/internal/state"
	"github.com/pettai/pettkeeper/internal/wire"
)

// Router decodes inbound frames into typed messages and dispatches them: a
// vitals update merges into the state store, an action acknowledgement is
// released to the waiting executor, and authentication results are handed
// back to the session. It performs no business logic beyond decode-and-route.
type Router struct {
	store *state.Store
	acks  *AckSlot
	auth  chan wire.Message
}

// NewRouter creates a router bound to the given state store and ack slot.
func NewRouter(store *state.Store, acks *AckSlot) *Router {
	return &Router{
		store: store,
		acks:  acks,
		auth:  make(chan wire.Message, 1),
	}
}

// HandleFrame processes one raw inbound frame. Unknown frames are logged and
// ignored; nothing here is ever fatal to the connection.
func (r *Router) HandleFrame(raw []byte) {
	msg := wire.Decode(raw)

	switch msg.Kind {
	case wire.KindVitalsUpdate:
		if msg.Pet == nil {
			slog.Debug("router: vitals update without pet payload")
			return
		}
		r.store.ApplyUpdate(msg.Pet)
	case wire.KindActionAck:
		if !r.acks.Resolve(msg) {
			slog.Debug("router: action ack with no waiter", "success", msg.Success)
		}
	case wire.KindAuthResult:
		if msg.Pet != nil {
			r.store.ApplyUpdate(msg.Pet)
		}
		select {
		case r.auth <- msg:
		default:
			slog.Debug("router: unsolicited auth result dropped", "success", msg.Success)
		}
	case wire.KindProtocolError:
		slog.Warn("router: platform reported protocol error", "error", msg.Error)
	default:
		slog.Debug("router: ignoring unknown frame", "type", msg.RawType)
	}
}

// AuthResults yields authentication acknowledgements to the session.
func (r *Router) AuthResults() <-chan wire.Message {
	return r.auth
}
