package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/pettai/pettkeeper/internal/models"
)

const advisorSystemPrompt = `You are the caretaker of a virtual pet. Given its current vitals and recent care history, pick the single best next action.

Reply with exactly one action token and nothing else. Valid tokens:
SHOWER (restore hygiene), SLEEP (restore energy), THROWBALL (play, restore happiness), RUB (affection), CONSUMABLES_BUY (buy food), CONSUMABLES_USE (feed), HOTEL_CHECK_IN, HOTEL_CHECK_OUT, NONE (do nothing).

Rules: never pick SLEEP if the pet is already sleeping. Prefer the most urgent need. If everything is comfortable, pick RUB or NONE.`

// consultAdvisor asks the external advisor for the next action within the
// configured timeout. The returned prompt text is recorded regardless of
// outcome. A timeout or an answer outside the closed action enumeration is
// returned as an error so the caller falls back to the baseline.
func (e *Engine) consultAdvisor(ctx context.Context, vitals models.PetVitals, recent []models.ActionRecord) (models.ActionRequest, string, error) {
	userPrompt := buildAdvisorPrompt(vitals, recent)

	ctx, cancel := context.WithTimeout(ctx, e.cfg.AdvisorTimeout)
	defer cancel()

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(advisorSystemPrompt),
		openai.UserMessage(userPrompt),
	}
	reply, err := e.advisor.GenerateWithMessages(ctx, messages)
	if err != nil {
		return models.ActionRequest{}, userPrompt, fmt.Errorf("advisor request failed: %w", err)
	}

	req, ok := e.parseAdvisorReply(reply)
	if !ok {
		return models.ActionRequest{}, userPrompt, fmt.Errorf("advisor reply outside action enumeration: %q", reply)
	}
	return req, userPrompt, nil
}

// buildAdvisorPrompt summarizes vitals and the recent action history the
// same way the deterministic rule sees them.
func buildAdvisorPrompt(vitals models.PetVitals, recent []models.ActionRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pet %q vitals: hunger=%d health=%d energy=%d happiness=%d hygiene=%d, level %d, sleeping=%t.\n",
		vitals.Identity.Name, vitals.Hunger, vitals.Health, vitals.Energy, vitals.Happiness, vitals.Hygiene,
		vitals.Level, vitals.Sleeping)

	if len(recent) == 0 {
		b.WriteString("No actions taken yet.")
		return b.String()
	}
	b.WriteString("Recent actions, newest first:")
	limit := len(recent)
	if limit > 5 {
		limit = 5
	}
	for _, r := range recent[:limit] {
		outcome := "ok"
		if !r.Success {
			outcome = "failed"
		}
		fmt.Fprintf(&b, " %s(%s)", r.Action.Type, outcome)
	}
	return b.String()
}

// parseAdvisorReply maps the advisor's token back into the closed action
// enumeration. Parameterized purchases default to the configured food item;
// tokens needing identifiers the advisor cannot supply (hotel tiers,
// accessories) count as malformed.
func (e *Engine) parseAdvisorReply(reply string) (models.ActionRequest, bool) {
	token := strings.ToUpper(strings.TrimSpace(reply))
	if i := strings.IndexAny(token, " \n\t"); i >= 0 {
		token = token[:i]
	}
	token = strings.Trim(token, ".,!\"'`")

	switch models.ActionType(token) {
	case models.ActionShower, models.ActionSleep, models.ActionThrowBall, models.ActionRub,
		models.ActionHotelCheckIn, models.ActionHotelCheckOut, models.ActionNone:
		return models.ActionRequest{Type: models.ActionType(token)}, true
	case models.ActionConsumableBuy:
		return models.ActionRequest{Type: models.ActionConsumableBuy, ConsumableID: e.cfg.FoodID, Amount: 1}, true
	case models.ActionConsumableUse:
		return models.ActionRequest{Type: models.ActionConsumableUse, ConsumableID: e.cfg.FoodID}, true
	default:
		return models.ActionRequest{}, false
	}
}
