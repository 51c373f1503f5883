package wire

import "testing"

func TestDecodeAuthResultWrapped(t *testing.T) {
	raw := []byte(`{"type":"auth_result","data":{"success":true,"pet":{"name":"Momo","PetStats":{"hunger":80}}}}`)
	msg := Decode(raw)
	if msg.Kind != KindAuthResult {
		t.Fatalf("expected auth result, got %s", msg.Kind)
	}
	if !msg.Success {
		t.Error("expected success")
	}
	if msg.Pet == nil || msg.Pet.Name == nil || *msg.Pet.Name != "Momo" {
		t.Errorf("expected pet payload with name, got %+v", msg.Pet)
	}
}

func TestDecodeAuthResultFlat(t *testing.T) {
	raw := []byte(`{"type":"auth_result","success":false,"error":"token expired"}`)
	msg := Decode(raw)
	if msg.Kind != KindAuthResult {
		t.Fatalf("expected auth result, got %s", msg.Kind)
	}
	if msg.Success {
		t.Error("expected failure")
	}
	if msg.Error != "token expired" {
		t.Errorf("expected error string, got %q", msg.Error)
	}
}

func TestDecodePetUpdate(t *testing.T) {
	raw := []byte(`{"type":"pet_update","data":{"pet":{"dead":false,"sleeping":true,"PetStats":{"energy":12,"hygiene":95}}}}`)
	msg := Decode(raw)
	if msg.Kind != KindVitalsUpdate {
		t.Fatalf("expected vitals update, got %s", msg.Kind)
	}
	if msg.Pet == nil || msg.Pet.Sleeping == nil || !*msg.Pet.Sleeping {
		t.Fatalf("expected sleeping pet, got %+v", msg.Pet)
	}
	if msg.Pet.Stats == nil || msg.Pet.Stats.Energy == nil || *msg.Pet.Stats.Energy != 12 {
		t.Errorf("expected energy 12, got %+v", msg.Pet.Stats)
	}
	if msg.Pet.Stats.Hunger != nil {
		t.Error("absent hunger must stay nil for partial merge")
	}
}

func TestDecodePetUpdateFromUserPets(t *testing.T) {
	raw := []byte(`{"type":"pet_update","data":{"user":{"pets":[{"name":"Momo","PetTokens":{"tokens":"1500"}}]}}}`)
	msg := Decode(raw)
	if msg.Kind != KindVitalsUpdate {
		t.Fatalf("expected vitals update, got %s", msg.Kind)
	}
	if msg.Pet == nil {
		t.Fatal("expected pet from user.pets")
	}
	balance, ok := msg.Pet.BalanceValue()
	if !ok || balance != 1500 {
		t.Errorf("expected balance 1500, got %d ok=%t", balance, ok)
	}
}

func TestDecodeActionResult(t *testing.T) {
	raw := []byte(`{"type":"action_result","data":{"success":true,"pet":{"PetStats":{"hygiene":100}}}}`)
	msg := Decode(raw)
	if msg.Kind != KindActionAck {
		t.Fatalf("expected action ack, got %s", msg.Kind)
	}
	if !msg.Success {
		t.Error("expected success")
	}
	if msg.Pet == nil {
		t.Error("expected echoed pet payload")
	}
}

func TestDecodeActionResultImplicitSuccess(t *testing.T) {
	// The platform omits the success flag on some successful acks.
	msg := Decode([]byte(`{"type":"action_result","data":{"pet":{}}}`))
	if !msg.Success {
		t.Error("ack without error must count as success")
	}

	msg = Decode([]byte(`{"type":"action_result","error":"not enough tokens"}`))
	if msg.Success {
		t.Error("ack with error must count as failure")
	}
}

func TestDecodeProtocolError(t *testing.T) {
	msg := Decode([]byte(`{"type":"error","data":{"error":"rate limited"}}`))
	if msg.Kind != KindProtocolError {
		t.Fatalf("expected protocol error, got %s", msg.Kind)
	}
	if msg.Error != "rate limited" {
		t.Errorf("expected error text, got %q", msg.Error)
	}
}

func TestDecodeToleratesGarbage(t *testing.T) {
	for _, raw := range []string{
		`not json at all`,
		`{"type":"something_new","data":{}}`,
		`{}`,
		`[]`,
	} {
		msg := Decode([]byte(raw))
		if msg.Kind != KindUnknown {
			t.Errorf("Decode(%q): expected unknown kind, got %s", raw, msg.Kind)
		}
	}
}

func TestBalanceValueMalformed(t *testing.T) {
	p := &PetPayload{Tokens: &PetTokensPayload{Tokens: "lots"}}
	if _, ok := p.BalanceValue(); ok {
		t.Error("malformed balance must not parse")
	}
	if _, ok := (*PetPayload)(nil).BalanceValue(); ok {
		t.Error("nil payload must not parse")
	}
}
