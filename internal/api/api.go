// Package api provides the HTTP observation surface and the top-level
// service wiring for PettKeeper.
//
// It exposes read-only snapshot and history endpoints plus the token re-arm
// endpoint, and assembles the session, state store, decision engine,
// executor, and scheduler into one running service.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pettai/pettkeeper/internal/engine"
	"github.com/pettai/pettkeeper/internal/executor"
	"github.com/pettai/pettkeeper/internal/genai"
	"github.com/pettai/pettkeeper/internal/models"
	"github.com/pettai/pettkeeper/internal/scheduler"
	"github.com/pettai/pettkeeper/internal/session"
	"github.com/pettai/pettkeeper/internal/state"
	"github.com/pettai/pettkeeper/internal/store"
)

// DefaultAddr is the API listen address when none is configured.
const DefaultAddr = ":8080"

// shutdownGrace bounds how long in-flight HTTP requests may finish during
// shutdown.
const shutdownGrace = 10 * time.Second

// Opts holds configuration for the API server.
type Opts struct {
	Addr           string
	ReportSchedule string
	MoodThresholds models.MoodThresholds
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithReportSchedule sets the cron expression for the recurring status
// report.
func WithReportSchedule(expr string) Option {
	return func(o *Opts) { o.ReportSchedule = expr }
}

// WithMoodThresholds overrides the mood classification cutoffs.
func WithMoodThresholds(t models.MoodThresholds) Option {
	return func(o *Opts) { o.MoodThresholds = t }
}

// Server exposes the observation endpoints over the assembled modules.
type Server struct {
	store *state.Store
	sess  *session.Session
	sched *scheduler.Scheduler
}

// NewServer creates a server over already-wired modules.
func NewServer(st *state.Store, sess *session.Session, sched *scheduler.Scheduler) *Server {
	return &Server{store: st, sess: sess, sched: sched}
}

// Handler returns the HTTP routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/history/actions", s.actionsHandler)
	mux.HandleFunc("/history/messages", s.messagesHandler)
	mux.HandleFunc("/history/prompts", s.promptsHandler)
	mux.HandleFunc("/token", s.tokenHandler)
	return mux
}

// snapshot assembles the immutable point-in-time status view.
func (s *Server) snapshot() models.StatusSnapshot {
	return models.StatusSnapshot{
		Connection: s.sess.Status(),
		Pet:        s.store.PetStatus(),
		Schedule:   s.sched.Status(),
		History: models.HistorySnapshot{
			Actions:  s.store.Actions(),
			Messages: s.store.Messages(),
			Prompts:  s.store.Prompts(),
		},
	}
}

// Run wires every module from the given options and serves until SIGINT or
// SIGTERM. It blocks for the lifetime of the service.
func Run(sessionOpts []session.Option, storeOpts []store.Option, genaiOpts []genai.Option,
	engineCfg engine.Config, schedOpts []scheduler.Option, apiOpts []Option) error {

	cfg := Opts{
		Addr:           DefaultAddr,
		ReportSchedule: scheduler.DefaultReportSchedule,
		MoodThresholds: models.DefaultMoodThresholds(),
	}
	for _, opt := range apiOpts {
		opt(&cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// History archive is optional; the daemon runs on the in-memory buffers
	// alone when no DSN is configured.
	stateOpts := []state.Option{state.WithMoodThresholds(cfg.MoodThresholds)}
	var archiveCfg store.Opts
	for _, opt := range storeOpts {
		opt(&archiveCfg)
	}
	if archiveCfg.DSN != "" {
		archive, err := store.New(archiveCfg.DSN)
		if err != nil {
			return fmt.Errorf("open history archive: %w", err)
		}
		defer archive.Close()
		stateOpts = append(stateOpts, state.WithArchiver(archive))
		slog.Info("api: history archive enabled", "backend", store.DetectDSNType(archiveCfg.DSN))
	}
	stateStore := state.NewStore(stateOpts...)

	acks := session.NewAckSlot()
	router := session.NewRouter(stateStore, acks)
	sess, err := session.New(router, sessionOpts...)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	// The advisor is optional; without an API key the engine runs rule-only.
	var advisor genai.ClientInterface
	if client, err := genai.NewClient(genaiOpts...); err != nil {
		slog.Warn("api: advisor disabled, running rule-only", "reason", err)
	} else {
		advisor = client
	}

	eng := engine.New(engineCfg, stateStore, advisor)
	exec := executor.New(sess, acks, stateStore)
	sched := scheduler.New(sess, eng, exec, schedOpts...)

	server := NewServer(stateStore, sess, sched)

	reporter := scheduler.NewReporter()
	defer reporter.Stop()
	if err := reporter.AddStatusReport(cfg.ReportSchedule, server.snapshot); err != nil {
		return fmt.Errorf("schedule status report %q: %w", cfg.ReportSchedule, err)
	}

	go sess.Run(ctx)
	go sched.Run(ctx)

	httpServer := &http.Server{Addr: cfg.Addr, Handler: server.Handler()}
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("api: listening", "addr", cfg.Addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("api: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("api: shutdown incomplete", "error", err)
	}
	sess.Close()
	return nil
}
