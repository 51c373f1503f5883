package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/pettai/pettkeeper/internal/api"
	"github.com/pettai/pettkeeper/internal/engine"
	"github.com/pettai/pettkeeper/internal/genai"
	"github.com/pettai/pettkeeper/internal/models"
	"github.com/pettai/pettkeeper/internal/scheduler"
	"github.com/pettai/pettkeeper/internal/session"
	"github.com/pettai/pettkeeper/internal/store"
	"github.com/pettai/pettkeeper/internal/util"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	sessionOpts := buildSessionOptions(flags)
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	engineCfg := buildEngineConfig(config)
	schedOpts := buildSchedulerOptions(config)
	apiOpts := buildAPIOptions(flags, config)

	slog.Info("Bootstrapping PettKeeper with configured modules")
	slog.Debug("Final configuration",
		"ws_url", *flags.wsURL, "token_set", *flags.authToken != "",
		"dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr,
		"interval", config.ActionInterval, "auto_revive", config.AutoRevive)

	if err := api.Run(sessionOpts, storeOpts, genaiOpts, engineCfg, schedOpts, apiOpts); err != nil {
		slog.Error("PettKeeper failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("PettKeeper exited successfully")
}

// Config holds environment configuration.
type Config struct {
	WSURL              string
	AuthToken          string
	OpenAIKey          string
	APIAddr            string
	DatabaseURL        string
	ReportSchedule     string
	ActionInterval     time.Duration
	AutoRevive         bool
	CriticalThreshold  int
	HappinessThreshold int
	MoodThresholds     models.MoodThresholds
}

// Flags holds command line flag values.
type Flags struct {
	wsURL          *string
	authToken      *string
	openaiKey      *string
	apiAddr        *string
	dbDSN          *string
	reportSchedule *string
}

// initializeLogger sets up structured logging.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("PETTKEEPER_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and
// the optional .env file.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		WSURL:              os.Getenv("PETT_WS_URL"),
		AuthToken:          os.Getenv("PETT_AUTH_TOKEN"),
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		APIAddr:            os.Getenv("API_ADDR"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		ReportSchedule:     os.Getenv("REPORT_SCHEDULE"),
		ActionInterval:     util.ParseDurationEnv("ACTION_INTERVAL", scheduler.DefaultInterval),
		AutoRevive:         util.ParseBoolEnv("AUTO_REVIVE", false),
		CriticalThreshold:  util.ParseIntEnv("THRESHOLD_CRITICAL", engine.DefaultCriticalThreshold),
		HappinessThreshold: util.ParseIntEnv("THRESHOLD_HAPPINESS", engine.DefaultHappinessThreshold),
	}

	moodDefaults := models.DefaultMoodThresholds()
	config.MoodThresholds = models.MoodThresholds{
		Critical: util.ParseIntEnv("MOOD_CRITICAL", moodDefaults.Critical),
		Sad:      util.ParseIntEnv("MOOD_SAD", moodDefaults.Sad),
		Happy:    util.ParseIntEnv("MOOD_HAPPY", moodDefaults.Happy),
	}

	slog.Debug("environment variables loaded",
		"PETT_WS_URL", config.WSURL,
		"PETT_AUTH_TOKEN_SET", config.AuthToken != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"REPORT_SCHEDULE", config.ReportSchedule,
		"ACTION_INTERVAL", config.ActionInterval,
		"AUTO_REVIVE", config.AutoRevive)

	return config
}

// parseCommandLineFlags parses command line arguments with environment
// defaults.
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		wsURL:          flag.String("ws-url", config.WSURL, "pet platform WebSocket URL (overrides $PETT_WS_URL)"),
		authToken:      flag.String("auth-token", config.AuthToken, "platform bearer token (overrides $PETT_AUTH_TOKEN)"),
		openaiKey:      flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key for the advisor (overrides $OPENAI_API_KEY)"),
		apiAddr:        flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		dbDSN:          flag.String("db-dsn", config.DatabaseURL, "history archive DSN, SQLite path or postgres:// URL (overrides $DATABASE_URL)"),
		reportSchedule: flag.String("report-schedule", config.ReportSchedule, "cron expression for the status report (overrides $REPORT_SCHEDULE)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"wsURL", *flags.wsURL,
		"authTokenSet", *flags.authToken != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"dbDSN_set", *flags.dbDSN != "",
		"reportSchedule", *flags.reportSchedule)

	return flags
}

// buildSessionOptions constructs session configuration options.
func buildSessionOptions(flags Flags) []session.Option {
	var sessionOpts []session.Option
	if *flags.wsURL != "" {
		sessionOpts = append(sessionOpts, session.WithURL(*flags.wsURL))
	}
	if *flags.authToken != "" {
		sessionOpts = append(sessionOpts, session.WithToken(*flags.authToken))
	}
	return sessionOpts
}

// buildStoreOptions constructs history archive configuration options.
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL archive")
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite archive", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, history stays in memory only")
	}
	return storeOpts
}

// buildGenAIOptions constructs advisor configuration options.
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	return genaiOpts
}

// buildEngineConfig constructs the decision rule configuration.
func buildEngineConfig(config Config) engine.Config {
	cfg := engine.DefaultConfig()
	cfg.CriticalThreshold = config.CriticalThreshold
	cfg.HappinessThreshold = config.HappinessThreshold
	cfg.AutoRevive = config.AutoRevive
	return cfg
}

// buildSchedulerOptions constructs care-cadence configuration options.
func buildSchedulerOptions(config Config) []scheduler.Option {
	var schedOpts []scheduler.Option
	if config.ActionInterval > 0 {
		schedOpts = append(schedOpts, scheduler.WithInterval(config.ActionInterval))
	}
	return schedOpts
}

// buildAPIOptions constructs API server configuration options.
func buildAPIOptions(flags Flags, config Config) []api.Option {
	apiOpts := []api.Option{api.WithMoodThresholds(config.MoodThresholds)}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.reportSchedule != "" {
		apiOpts = append(apiOpts, api.WithReportSchedule(*flags.reportSchedule))
	}
	return apiOpts
}
