// Package wire implements the frame envelope the remote platform speaks.
//
// Every frame is a JSON envelope {type, data}. Outbound frames carry their
// parameters under data.params; inbound frames arrive either with or without
// the data wrapper, and both shapes are accepted.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/pettai/pettkeeper/internal/models"
)

// Outbound frame types not covered by the action enumeration.
const (
	// TypeAuth is the authentication request frame.
	TypeAuth = "AUTH"
)

// envelope is the outbound frame shape.
type envelope struct {
	Type string       `json:"type"`
	Data envelopeData `json:"data"`
}

type envelopeData struct {
	Params map[string]interface{} `json:"params,omitempty"`
}

// AuthFrame encodes the authentication request carrying the bearer token.
func AuthFrame(token string) ([]byte, error) {
	if token == "" {
		return nil, fmt.Errorf("auth token cannot be empty")
	}
	env := envelope{
		Type: TypeAuth,
		Data: envelopeData{Params: map[string]interface{}{
			"authHash": map[string]string{"hash": "Bearer " + token},
			"authType": "privy",
		}},
	}
	return json.Marshal(env)
}

// ActionFrame encodes a care action request. The switch is exhaustive over
// the closed action enumeration; unknown or underparameterized actions are
// rejected before anything reaches the socket.
func ActionFrame(req models.ActionRequest) ([]byte, error) {
	env := envelope{Type: string(req.Type)}

	switch req.Type {
	case models.ActionShower, models.ActionSleep, models.ActionThrowBall,
		models.ActionRub, models.ActionHotelCheckIn, models.ActionHotelCheckOut:
		// No parameters.
	case models.ActionConsumableUse:
		if req.ConsumableID == "" {
			return nil, fmt.Errorf("%w: consumable id required for %s", models.ErrInvalidAction, req.Type)
		}
		env.Data.Params = map[string]interface{}{"consumableId": req.ConsumableID}
	case models.ActionConsumableBuy:
		if req.ConsumableID == "" {
			return nil, fmt.Errorf("%w: consumable id required for %s", models.ErrInvalidAction, req.Type)
		}
		amount := req.Amount
		if amount <= 0 {
			amount = 1
		}
		env.Data.Params = map[string]interface{}{"foodId": req.ConsumableID, "amount": amount}
	case models.ActionHotelBuy:
		if req.HotelTier == "" {
			return nil, fmt.Errorf("%w: hotel tier required for %s", models.ErrInvalidAction, req.Type)
		}
		env.Data.Params = map[string]interface{}{"tier": req.HotelTier}
	case models.ActionAccessoryUse, models.ActionAccessoryBuy:
		if req.AccessoryID == "" {
			return nil, fmt.Errorf("%w: accessory id required for %s", models.ErrInvalidAction, req.Type)
		}
		env.Data.Params = map[string]interface{}{"accessoryId": req.AccessoryID}
	case models.ActionNone:
		return nil, fmt.Errorf("%w: no-op action has no frame", models.ErrInvalidAction)
	default:
		return nil, fmt.Errorf("%w: unknown action type %q", models.ErrInvalidAction, req.Type)
	}

	return json.Marshal(env)
}
