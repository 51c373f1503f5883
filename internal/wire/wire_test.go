package wire

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/pettai/pettkeeper/internal/models"
)

func decodeEnvelope(t *testing.T, raw []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("frame is not valid JSON: %v", err)
	}
	return m
}

func params(t *testing.T, m map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := m["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("frame has no data object: %v", m)
	}
	p, ok := data["params"].(map[string]interface{})
	if !ok {
		t.Fatalf("frame has no params object: %v", m)
	}
	return p
}

func TestAuthFrame(t *testing.T) {
	raw, err := AuthFrame("tok123")
	if err != nil {
		t.Fatalf("AuthFrame failed: %v", err)
	}
	m := decodeEnvelope(t, raw)
	if m["type"] != "AUTH" {
		t.Errorf("expected type AUTH, got %v", m["type"])
	}
	p := params(t, m)
	hash, ok := p["authHash"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing authHash: %v", p)
	}
	if hash["hash"] != "Bearer tok123" {
		t.Errorf("expected bearer token, got %v", hash["hash"])
	}
	if p["authType"] != "privy" {
		t.Errorf("expected authType privy, got %v", p["authType"])
	}
}

func TestAuthFrameEmptyToken(t *testing.T) {
	if _, err := AuthFrame(""); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestActionFrameNoParams(t *testing.T) {
	for _, typ := range []models.ActionType{
		models.ActionShower, models.ActionSleep, models.ActionThrowBall,
		models.ActionRub, models.ActionHotelCheckIn, models.ActionHotelCheckOut,
	} {
		raw, err := ActionFrame(models.ActionRequest{Type: typ})
		if err != nil {
			t.Fatalf("ActionFrame(%s) failed: %v", typ, err)
		}
		m := decodeEnvelope(t, raw)
		if m["type"] != string(typ) {
			t.Errorf("expected type %s, got %v", typ, m["type"])
		}
	}
}

func TestActionFrameConsumableBuy(t *testing.T) {
	raw, err := ActionFrame(models.ActionRequest{Type: models.ActionConsumableBuy, ConsumableID: "BURGER", Amount: 2})
	if err != nil {
		t.Fatalf("ActionFrame failed: %v", err)
	}
	p := params(t, decodeEnvelope(t, raw))
	if p["foodId"] != "BURGER" {
		t.Errorf("expected foodId BURGER, got %v", p["foodId"])
	}
	if p["amount"] != float64(2) {
		t.Errorf("expected amount 2, got %v", p["amount"])
	}
}

func TestActionFrameConsumableBuyDefaultsAmount(t *testing.T) {
	raw, err := ActionFrame(models.ActionRequest{Type: models.ActionConsumableBuy, ConsumableID: "BURGER"})
	if err != nil {
		t.Fatalf("ActionFrame failed: %v", err)
	}
	p := params(t, decodeEnvelope(t, raw))
	if p["amount"] != float64(1) {
		t.Errorf("expected defaulted amount 1, got %v", p["amount"])
	}
}

func TestActionFrameConsumableUse(t *testing.T) {
	raw, err := ActionFrame(models.ActionRequest{Type: models.ActionConsumableUse, ConsumableID: "REVIVE_POTION"})
	if err != nil {
		t.Fatalf("ActionFrame failed: %v", err)
	}
	p := params(t, decodeEnvelope(t, raw))
	if p["consumableId"] != "REVIVE_POTION" {
		t.Errorf("expected consumableId REVIVE_POTION, got %v", p["consumableId"])
	}
}

func TestActionFrameMissingParams(t *testing.T) {
	cases := []models.ActionRequest{
		{Type: models.ActionConsumableUse},
		{Type: models.ActionConsumableBuy},
		{Type: models.ActionHotelBuy},
		{Type: models.ActionAccessoryUse},
		{Type: models.ActionAccessoryBuy},
	}
	for _, req := range cases {
		if _, err := ActionFrame(req); !errors.Is(err, models.ErrInvalidAction) {
			t.Errorf("ActionFrame(%s) without params: expected ErrInvalidAction, got %v", req.Type, err)
		}
	}
}

func TestActionFrameRejectsNoneAndUnknown(t *testing.T) {
	if _, err := ActionFrame(models.ActionRequest{Type: models.ActionNone}); !errors.Is(err, models.ErrInvalidAction) {
		t.Errorf("expected ErrInvalidAction for NONE, got %v", err)
	}
	if _, err := ActionFrame(models.ActionRequest{Type: "DANCE"}); !errors.Is(err, models.ErrInvalidAction) {
		t.Errorf("expected ErrInvalidAction for unknown type, got %v", err)
	}
}
