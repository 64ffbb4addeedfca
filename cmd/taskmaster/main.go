package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"taskmaster/internal/api"
	"taskmaster/internal/config"
	"taskmaster/internal/reminder"
	"taskmaster/internal/tracker"
	"taskmaster/internal/ui"
)

func main() {
	godotenv.Load()

	cfg, err := config.LoadOrCreate(config.ResolveConfigPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading config:", err)
		os.Exit(1)
	}
	if url := os.Getenv("TASKMASTER_API_URL"); url != "" {
		cfg.APIURL = url
	}

	logger, closeLog, err := newLogger(cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "opening log file:", err)
		os.Exit(1)
	}
	defer closeLog()

	client := api.NewClient(cfg.APIURL)

	store := tracker.New(client, logger)
	if cfg.UndoWindowSecs > 0 {
		store.UndoWindow = time.Duration(cfg.UndoWindowSecs) * time.Second
	}

	interval := reminder.DefaultInterval
	if cfg.ReminderSweepSecs > 0 {
		interval = time.Duration(cfg.ReminderSweepSecs) * time.Second
	}
	sched := reminder.New(interval, store.Tasks, logger)
	sched.Notifier = reminder.SystemNotifier{}

	if err := ui.Run(store, sched, cfg, logger); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newLogger writes to the configured log file so output never corrupts
// the terminal UI. An empty path discards logs.
func newLogger(path string) (*log.Logger, func(), error) {
	if path == "" {
		logger := log.New(os.Stderr)
		logger.SetLevel(log.FatalLevel)
		return logger, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	logger := log.New(f)
	logger.SetLevel(log.DebugLevel)
	return logger, func() { f.Close() }, nil
}
