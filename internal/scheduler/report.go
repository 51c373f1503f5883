package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/pettai/pettkeeper/internal/models"
)

// DefaultReportSchedule emits the status report every morning at 09:00.
const DefaultReportSchedule = "0 9 * * *"

// Reporter runs cron-scheduled jobs, chiefly the daily status report.
type Reporter struct {
	cron *cron.Cron
}

// NewReporter creates and starts a cron runner.
func NewReporter() *Reporter {
	// Standard 5-field cron expressions (min, hour, dom, month, dow), with
	// panic recovery around jobs.
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Reporter{cron: c}
}

// AddJob schedules a task using the provided cron expression. It returns an
// error if the expression is invalid.
func (r *Reporter) AddJob(expr string, task func()) error {
	_, err := r.cron.AddFunc(expr, task)
	return err
}

// AddStatusReport schedules a recurring log-line summary of the full status
// snapshot.
func (r *Reporter) AddStatusReport(expr string, snapshot func() models.StatusSnapshot) error {
	return r.AddJob(expr, func() {
		s := snapshot()
		slog.Info("status report",
			"pet", s.Pet.Identity.Name,
			"mood", s.Pet.Mood,
			"hunger", s.Pet.Vitals.Hunger,
			"health", s.Pet.Vitals.Health,
			"energy", s.Pet.Vitals.Energy,
			"happiness", s.Pet.Vitals.Happiness,
			"hygiene", s.Pet.Vitals.Hygiene,
			"level", s.Pet.Vitals.Level,
			"balance", s.Pet.Balance,
			"dead", s.Pet.Dead,
			"connection", s.Connection.State,
			"next_action_at", s.Schedule.NextActionAt)
	})
}

// Stop stops the cron runner and waits for running jobs to finish.
func (r *Reporter) Stop() {
	r.cron.Stop()
}
