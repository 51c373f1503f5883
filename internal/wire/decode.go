package wire

import (
	"encoding/json"
	"strconv"
)

// Kind is the closed set of inbound message kinds the router dispatches on.
type Kind string

const (
	KindVitalsUpdate  Kind = "vitals_update"
	KindActionAck     Kind = "action_ack"
	KindAuthResult    Kind = "auth_result"
	KindProtocolError Kind = "protocol_error"
	KindUnknown       Kind = "unknown"
)

// Inbound frame type strings used by the platform.
const (
	typeAuthResult   = "auth_result"
	typePetUpdate    = "pet_update"
	typeActionResult = "action_result"
	typeError        = "error"
)

// PetStatsPayload carries the pet's metrics. Fields are pointers so a
// partial update leaves absent fields untouched on merge.
type PetStatsPayload struct {
	Hunger    *int `json:"hunger,omitempty"`
	Health    *int `json:"health,omitempty"`
	Energy    *int `json:"energy,omitempty"`
	Happiness *int `json:"happiness,omitempty"`
	Hygiene   *int `json:"hygiene,omitempty"`
	XP        *int `json:"xp,omitempty"`
	XPMax     *int `json:"xpMax,omitempty"`
	Level     *int `json:"level,omitempty"`
}

// PetTokensPayload carries the pet's token balance; the platform reports it
// as a decimal string.
type PetTokensPayload struct {
	Tokens string `json:"tokens"`
}

// PetPayload is the pet object as the platform reports it.
type PetPayload struct {
	ID        *string           `json:"id,omitempty"`
	Name      *string           `json:"name,omitempty"`
	Dead      *bool             `json:"dead,omitempty"`
	Sleeping  *bool             `json:"sleeping,omitempty"`
	HotelTier *int              `json:"currentHotelTier,omitempty"`
	Tokens    *PetTokensPayload `json:"PetTokens,omitempty"`
	Stats     *PetStatsPayload  `json:"PetStats,omitempty"`
}

// BalanceValue parses the token balance, returning ok=false when absent or
// malformed.
func (p *PetPayload) BalanceValue() (int64, bool) {
	if p == nil || p.Tokens == nil || p.Tokens.Tokens == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(p.Tokens.Tokens, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Message is one decoded inbound frame. Exactly the fields for its Kind are
// populated.
type Message struct {
	Kind Kind
	// RawType is the frame's type string as received, kept for logging
	// unknown frames.
	RawType string

	// AuthResult / ActionAck fields.
	Success bool
	Error   string

	// Pet payload, present on auth results, vitals updates, and acks that
	// echo updated stats.
	Pet *PetPayload
}

// inboundFrame matches both envelope shapes the platform uses: fields nested
// under data, or flattened onto the frame itself.
type inboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`

	Success *bool           `json:"success,omitempty"`
	Error   string          `json:"error,omitempty"`
	Pet     *PetPayload     `json:"pet,omitempty"`
	User    json.RawMessage `json:"user,omitempty"`
}

type inboundBody struct {
	Success *bool       `json:"success,omitempty"`
	Error   string      `json:"error,omitempty"`
	Pet     *PetPayload `json:"pet,omitempty"`
	User    *userBody   `json:"user,omitempty"`
}

type userBody struct {
	Pets []PetPayload `json:"pets,omitempty"`
}

// Decode parses one inbound frame into a typed Message. Malformed JSON and
// unrecognized frame types both yield KindUnknown; decode failures are never
// fatal to the connection.
func Decode(raw []byte) Message {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Message{Kind: KindUnknown}
	}

	body := flatten(frame)

	switch frame.Type {
	case typeAuthResult:
		msg := Message{Kind: KindAuthResult, RawType: frame.Type, Error: body.Error, Pet: body.Pet}
		if body.Success != nil {
			msg.Success = *body.Success
		}
		return msg
	case typePetUpdate:
		pet := body.Pet
		if pet == nil && body.User != nil && len(body.User.Pets) > 0 {
			pet = &body.User.Pets[0]
		}
		return Message{Kind: KindVitalsUpdate, RawType: frame.Type, Pet: pet}
	case typeActionResult:
		msg := Message{Kind: KindActionAck, RawType: frame.Type, Error: body.Error, Pet: body.Pet}
		if body.Success != nil {
			msg.Success = *body.Success
		} else {
			// The platform omits the flag on successful acks.
			msg.Success = body.Error == ""
		}
		return msg
	case typeError:
		return Message{Kind: KindProtocolError, RawType: frame.Type, Error: body.Error}
	default:
		return Message{Kind: KindUnknown, RawType: frame.Type}
	}
}

// flatten merges the two envelope shapes: fields under data win over
// flattened fields when both are present.
func flatten(frame inboundFrame) inboundBody {
	var body inboundBody
	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, &body); err == nil &&
			(body.Success != nil || body.Error != "" || body.Pet != nil || body.User != nil) {
			return body
		}
	}
	body = inboundBody{Success: frame.Success, Error: frame.Error, Pet: frame.Pet}
	if len(frame.User) > 0 {
		var u userBody
		if err := json.Unmarshal(frame.User, &u); err == nil {
			body.User = &u
		}
	}
	return body
}
