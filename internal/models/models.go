// Package models defines the core data structures for PettKeeper.
//
// It includes the pet vitals snapshot, the closed care-action enumeration,
// history record types, and connection/schedule status types shared across
// modules.
package models

import (
	"errors"
	"time"
)

// ActionType identifies one care action from the closed enumeration the
// remote platform accepts.
type ActionType string

const (
	// ActionShower restores hygiene.
	ActionShower ActionType = "SHOWER"
	// ActionSleep puts the pet to sleep to restore energy.
	ActionSleep ActionType = "SLEEP"
	// ActionThrowBall plays fetch with the pet.
	ActionThrowBall ActionType = "THROWBALL"
	// ActionRub gives the pet some affection.
	ActionRub ActionType = "RUB"
	// ActionConsumableUse uses a consumable from the pet's inventory.
	ActionConsumableUse ActionType = "CONSUMABLES_USE"
	// ActionConsumableBuy buys a consumable for the pet.
	ActionConsumableBuy ActionType = "CONSUMABLES_BUY"
	// ActionHotelCheckIn checks the pet into the hotel.
	ActionHotelCheckIn ActionType = "HOTEL_CHECK_IN"
	// ActionHotelCheckOut checks the pet out of the hotel.
	ActionHotelCheckOut ActionType = "HOTEL_CHECK_OUT"
	// ActionHotelBuy buys a hotel tier.
	ActionHotelBuy ActionType = "HOTEL_BUY"
	// ActionAccessoryUse equips an accessory.
	ActionAccessoryUse ActionType = "ACCESSORY_USE"
	// ActionAccessoryBuy buys an accessory.
	ActionAccessoryBuy ActionType = "ACCESSORY_BUY"
	// ActionNone is the explicit no-op; nothing is sent to the platform.
	ActionNone ActionType = "NONE"
)

// ConsumableRevivePotion is the only consumable permitted while the pet is
// dead; buying and then using it revives the pet.
const ConsumableRevivePotion = "REVIVE_POTION"

// IsValidActionType checks if the given action type is part of the closed
// enumeration.
func IsValidActionType(a ActionType) bool {
	switch a {
	case ActionShower, ActionSleep, ActionThrowBall, ActionRub,
		ActionConsumableUse, ActionConsumableBuy,
		ActionHotelCheckIn, ActionHotelCheckOut, ActionHotelBuy,
		ActionAccessoryUse, ActionAccessoryBuy, ActionNone:
		return true
	default:
		return false
	}
}

// ActionRequest is a fully parameterized care action ready for encoding.
// Parameter fields are meaningful only for the action types that use them.
type ActionRequest struct {
	Type         ActionType `json:"type"`
	ConsumableID string     `json:"consumable_id,omitempty"`
	Amount       int        `json:"amount,omitempty"`
	AccessoryID  string     `json:"accessory_id,omitempty"`
	HotelTier    string     `json:"hotel_tier,omitempty"`
}

// IsRevival reports whether the request is one of the two steps of the
// revival sequence (buy or use a revive potion). These are the only actions
// permitted while the pet is dead.
func (r ActionRequest) IsRevival() bool {
	switch r.Type {
	case ActionConsumableBuy, ActionConsumableUse:
		return r.ConsumableID == ConsumableRevivePotion
	default:
		return false
	}
}

// PetIdentity identifies the managed pet on the remote platform.
type PetIdentity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PetVitals is the current snapshot of the pet's wellbeing metrics and
// status flags. The five bounded metrics are in [0,100].
type PetVitals struct {
	Hunger    int `json:"hunger"`
	Health    int `json:"health"`
	Energy    int `json:"energy"`
	Happiness int `json:"happiness"`
	Hygiene   int `json:"hygiene"`

	XP    int `json:"xp"`
	XPMax int `json:"xp_max"`
	Level int `json:"level"`

	Sleeping  bool  `json:"sleeping"`
	Dead      bool  `json:"dead"`
	Balance   int64 `json:"balance"`
	HotelTier int   `json:"hotel_tier"`

	Identity PetIdentity `json:"identity"`
}

// ActionRecord is one executed (or attempted) care action.
type ActionRecord struct {
	Action    ActionRequest `json:"action"`
	Timestamp time.Time     `json:"timestamp"`
	Success   bool          `json:"success"`
	// Vitals is the snapshot reported back by the platform, nil when the
	// platform did not echo updated stats.
	Vitals *PetVitals `json:"vitals,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// SentMessageRecord is one outbound frame sent to the platform.
type SentMessageRecord struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
}

// PromptKind distinguishes how a decision-engine invocation was resolved.
type PromptKind string

const (
	// PromptKindBaseline means the deterministic rule chose the action.
	PromptKindBaseline PromptKind = "baseline"
	// PromptKindAdvisor means the external advisor's answer overrode the rule.
	PromptKindAdvisor PromptKind = "advisor"
	// PromptKindAdvisorFailed means the advisor was consulted but timed out
	// or answered outside the action enumeration; the baseline stood.
	PromptKindAdvisorFailed PromptKind = "advisor_failed"
)

// PromptRecord is one decision-engine invocation, appended whether or not
// the advisor altered behavior.
type PromptRecord struct {
	Kind      PromptKind `json:"kind"`
	Text      string     `json:"text"`
	Timestamp time.Time  `json:"timestamp"`
}

// ActionOutcome is the result of a completed action execution.
type ActionOutcome struct {
	Action  ActionRequest `json:"action"`
	Success bool          `json:"success"`
	// Vitals is the updated snapshot if the acknowledgement carried one.
	Vitals *PetVitals `json:"vitals,omitempty"`
}

// ConnState is the connection lifecycle state. Exactly one is active at a
// time; transitions are serialized through the session.
type ConnState string

const (
	ConnStateDisconnected   ConnState = "disconnected"
	ConnStateConnecting     ConnState = "connecting"
	ConnStateAuthenticating ConnState = "authenticating"
	ConnStateConnected      ConnState = "connected"
	ConnStateReconnecting   ConnState = "reconnecting"
	ConnStateFailed         ConnState = "failed"
)

// ConnectionStatus is the externally visible view of the session.
type ConnectionStatus struct {
	URL                  string    `json:"url"`
	State                ConnState `json:"state"`
	Connected            bool      `json:"connected"`
	Authenticated        bool      `json:"authenticated"`
	SecondsSinceActivity float64   `json:"seconds_since_last_activity"`
	ReconnectAttempts    int       `json:"reconnect_attempts"`
	LastError            string    `json:"last_error,omitempty"`
}

// ScheduleStatus is the externally visible view of the autonomous care
// schedule.
type ScheduleStatus struct {
	Interval         string    `json:"interval"`
	NextActionAt     time.Time `json:"next_action_at"`
	MinutesUntilNext float64   `json:"minutes_until_next_action"`
	Scheduled        bool      `json:"scheduled"`
}

// PetStatus is the pet half of the snapshot query.
type PetStatus struct {
	Identity  PetIdentity `json:"identity"`
	Vitals    PetVitals   `json:"vitals"`
	Sleeping  bool        `json:"sleeping"`
	Dead      bool        `json:"dead"`
	Balance   int64       `json:"balance"`
	HotelTier int         `json:"hotel_tier"`
	Mood      Mood        `json:"mood"`
}

// HistorySnapshot carries the three bounded history buffers, most recent
// first.
type HistorySnapshot struct {
	Actions  []ActionRecord      `json:"actions"`
	Messages []SentMessageRecord `json:"messages"`
	Prompts  []PromptRecord      `json:"prompts"`
}

// StatusSnapshot is the immutable point-in-time view handed to external
// observers.
type StatusSnapshot struct {
	Connection ConnectionStatus `json:"connection"`
	Pet        PetStatus        `json:"pet"`
	Schedule   ScheduleStatus   `json:"schedule"`
	History    HistorySnapshot  `json:"history"`
}

// Error variables shared across modules.
var (
	// ErrNotConnected is returned when a frame is sent while the session is
	// not in the connected state.
	ErrNotConnected = errors.New("session not connected")
	// ErrAuthRejected marks the terminal authentication failure; the session
	// will not retry until a fresh token is supplied.
	ErrAuthRejected = errors.New("authentication rejected")
	// ErrAuthTimeout is the auth acknowledgement not arriving in time. It is
	// treated the same as an explicit rejection.
	ErrAuthTimeout = errors.New("authentication acknowledgement timed out")
	// ErrActionInFlight is the busy error: a second execute while one action
	// is pending.
	ErrActionInFlight = errors.New("another action is in flight")
	// ErrAckTimeout is an action acknowledgement not arriving in time.
	ErrAckTimeout = errors.New("action acknowledgement timed out")
	// ErrPetDead rejects any non-revival action while the pet is dead.
	ErrPetDead = errors.New("pet is dead; only revival actions are permitted")
	// ErrAlreadySleeping rejects a sleep action while the pet is sleeping.
	ErrAlreadySleeping = errors.New("pet is already sleeping")
	// ErrInvalidAction rejects an action outside the closed enumeration or
	// missing required parameters.
	ErrInvalidAction = errors.New("invalid action")
	// ErrNoAction signals a decision cycle that chose to do nothing.
	ErrNoAction = errors.New("no action selected")
)
