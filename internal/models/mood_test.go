package models

import "testing"

func TestMoodForPrecedence(t *testing.T) {
	th := DefaultMoodThresholds()

	v := PetVitals{Dead: true, Sleeping: true}
	if got := MoodFor(v, th); got != MoodDead {
		t.Errorf("dead must win over sleeping, got %s", got)
	}

	v = PetVitals{Sleeping: true, Hunger: 5}
	if got := MoodFor(v, th); got != MoodAsleep {
		t.Errorf("sleeping must win over critical, got %s", got)
	}
}

func TestMoodForClassification(t *testing.T) {
	th := DefaultMoodThresholds()
	cases := []struct {
		name   string
		vitals PetVitals
		want   Mood
	}{
		{"one critical vital", PetVitals{Hunger: 10, Health: 90, Energy: 90, Happiness: 90, Hygiene: 90}, MoodCritical},
		{"low average", PetVitals{Hunger: 30, Health: 30, Energy: 30, Happiness: 30, Hygiene: 30}, MoodSad},
		{"middling average", PetVitals{Hunger: 60, Health: 60, Energy: 60, Happiness: 60, Hygiene: 60}, MoodNeutral},
		{"high average", PetVitals{Hunger: 90, Health: 90, Energy: 90, Happiness: 90, Hygiene: 90}, MoodHappy},
	}
	for _, tc := range cases {
		if got := MoodFor(tc.vitals, th); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestIsRevival(t *testing.T) {
	if !(ActionRequest{Type: ActionConsumableBuy, ConsumableID: ConsumableRevivePotion}).IsRevival() {
		t.Error("buying a revive potion is a revival step")
	}
	if !(ActionRequest{Type: ActionConsumableUse, ConsumableID: ConsumableRevivePotion}).IsRevival() {
		t.Error("using a revive potion is a revival step")
	}
	if (ActionRequest{Type: ActionConsumableBuy, ConsumableID: "BURGER"}).IsRevival() {
		t.Error("buying food is not a revival step")
	}
	if (ActionRequest{Type: ActionShower}).IsRevival() {
		t.Error("shower is not a revival step")
	}
}

func TestIsValidActionType(t *testing.T) {
	if !IsValidActionType(ActionShower) || !IsValidActionType(ActionNone) {
		t.Error("enumeration members must validate")
	}
	if IsValidActionType("DANCE") {
		t.Error("unknown type must not validate")
	}
}
