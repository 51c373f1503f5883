// Package engine selects the next autonomous care action.
//
// The baseline is a deterministic rule over the current vitals and recent
// history; an optional advisor step may override it within a bounded
// timeout, falling back to the baseline on timeout or a malformed answer.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pettai/pettkeeper/internal/genai"
	"github.com/pettai/pettkeeper/internal/models"
	"github.com/pettai/pettkeeper/internal/state"
)

// Default rule configuration.
const (
	// DefaultCriticalThreshold is the low-urgency cutoff for health, hunger,
	// hygiene and energy.
	DefaultCriticalThreshold = 30
	// DefaultHappinessThreshold is the comfort cutoff for happiness.
	DefaultHappinessThreshold = 50
	// DefaultFoodID is the consumable bought and used to restore hunger.
	DefaultFoodID = "BURGER"
	// DefaultRemedyID is the consumable bought and used to restore health.
	DefaultRemedyID = "POTION"
	// DefaultAdvisorTimeout bounds the external advisor consultation.
	DefaultAdvisorTimeout = 15 * time.Second
)

// Config holds the rule thresholds and consumable choices. Thresholds are
// configuration, not hard-coded constants.
type Config struct {
	CriticalThreshold  int
	HappinessThreshold int
	FoodID             string
	RemedyID           string
	AutoRevive         bool
	AdvisorTimeout     time.Duration
}

// DefaultConfig returns the default rule configuration.
func DefaultConfig() Config {
	return Config{
		CriticalThreshold:  DefaultCriticalThreshold,
		HappinessThreshold: DefaultHappinessThreshold,
		FoodID:             DefaultFoodID,
		RemedyID:           DefaultRemedyID,
		AdvisorTimeout:     DefaultAdvisorTimeout,
	}
}

// Engine chooses the next care action from vitals and recent history.
type Engine struct {
	cfg     Config
	store   *state.Store
	advisor genai.ClientInterface // nil disables the advisor step
}

// New creates an engine. Pass a nil advisor to run rule-only.
func New(cfg Config, store *state.Store, advisor genai.ClientInterface) *Engine {
	if cfg.FoodID == "" {
		cfg.FoodID = DefaultFoodID
	}
	if cfg.RemedyID == "" {
		cfg.RemedyID = DefaultRemedyID
	}
	if cfg.AdvisorTimeout <= 0 {
		cfg.AdvisorTimeout = DefaultAdvisorTimeout
	}
	return &Engine{cfg: cfg, store: store, advisor: advisor}
}

// Decide runs one decision cycle: the deterministic baseline, optionally
// overridden by the advisor. Every invocation appends exactly one
// PromptRecord, whether or not the advisor altered behavior.
func (e *Engine) Decide(ctx context.Context) models.ActionRequest {
	vitals := e.store.Vitals()
	recent := e.store.Actions()

	choice, reason := Baseline(vitals, recent, e.cfg)
	record := models.PromptRecord{
		Kind:      models.PromptKindBaseline,
		Text:      fmt.Sprintf("%s: %s", choice.Type, reason),
		Timestamp: time.Now(),
	}

	// The advisor is never consulted for a dead pet; revival is rule-driven.
	if e.advisor != nil && !vitals.Dead {
		advised, promptText, err := e.consultAdvisor(ctx, vitals, recent)
		record.Text = promptText
		if err != nil {
			record.Kind = models.PromptKindAdvisorFailed
			slog.Warn("engine: advisor unavailable, baseline stands", "error", err, "baseline", choice.Type)
		} else {
			record.Kind = models.PromptKindAdvisor
			slog.Info("engine: advisor override", "baseline", choice.Type, "advised", advised.Type)
			choice = advised
		}
		record.Timestamp = time.Now()
	}

	e.store.RecordPrompt(record)
	slog.Debug("engine: decision made", "action", choice.Type, "kind", record.Kind, "reason", reason)
	return choice
}

// Baseline is the deterministic fallback rule. Given identical vitals and
// history it always selects the same action.
func Baseline(v models.PetVitals, recent []models.ActionRecord, cfg Config) (models.ActionRequest, string) {
	if v.Dead {
		if !cfg.AutoRevive {
			return models.ActionRequest{Type: models.ActionNone}, "pet is dead; revival handled externally"
		}
		return reviveStep(recent), "pet is dead; running revival sequence"
	}

	// Deficit scan in fixed tie-break order: health > hunger > hygiene >
	// energy. The lowest value below the threshold wins.
	type deficit struct {
		name  string
		value int
	}
	deficits := []deficit{
		{"health", v.Health},
		{"hunger", v.Hunger},
		{"hygiene", v.Hygiene},
		{"energy", v.Energy},
	}
	worst := ""
	worstValue := 0
	for _, d := range deficits {
		if d.value >= cfg.CriticalThreshold {
			continue
		}
		if d.name == "energy" && v.Sleeping {
			// Energy is already being restored.
			continue
		}
		if worst == "" || d.value < worstValue {
			worst = d.name
			worstValue = d.value
		}
	}

	switch worst {
	case "health":
		return buyThenUse(recent, cfg.RemedyID), fmt.Sprintf("health at %d", worstValue)
	case "hunger":
		return buyThenUse(recent, cfg.FoodID), fmt.Sprintf("hunger at %d", worstValue)
	case "hygiene":
		return models.ActionRequest{Type: models.ActionShower}, fmt.Sprintf("hygiene at %d", worstValue)
	case "energy":
		return models.ActionRequest{Type: models.ActionSleep}, fmt.Sprintf("energy at %d", worstValue)
	}

	if v.Happiness < cfg.HappinessThreshold {
		return models.ActionRequest{Type: models.ActionThrowBall}, fmt.Sprintf("happiness at %d", v.Happiness)
	}

	if v.Sleeping {
		return models.ActionRequest{Type: models.ActionNone}, "all vitals comfortable; pet asleep"
	}
	return models.ActionRequest{Type: models.ActionRub}, "all vitals comfortable; maintenance"
}

// buyThenUse drives a two-step consumable sequence from history: use the
// item when the immediately preceding action was its successful purchase,
// buy it otherwise.
func buyThenUse(recent []models.ActionRecord, consumableID string) models.ActionRequest {
	if len(recent) > 0 {
		last := recent[0]
		if last.Success && last.Action.Type == models.ActionConsumableBuy && last.Action.ConsumableID == consumableID {
			return models.ActionRequest{Type: models.ActionConsumableUse, ConsumableID: consumableID}
		}
	}
	return models.ActionRequest{Type: models.ActionConsumableBuy, ConsumableID: consumableID, Amount: 1}
}

func reviveStep(recent []models.ActionRecord) models.ActionRequest {
	return buyThenUse(recent, models.ConsumableRevivePotion)
}
