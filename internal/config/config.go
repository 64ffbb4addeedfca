// Package config loads the client configuration from a TOML file,
// creating it with defaults on first launch.
package config

import (
	"errors"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	defaultAPIURL         = "http://localhost:3000"
)

// Keymap holds the list-mode key bindings.
type Keymap struct {
	Quit       string `toml:"quit"`
	Add        string `toml:"add"`
	Up         string `toml:"up"`
	Down       string `toml:"down"`
	Toggle     string `toml:"toggle"`
	Delete     string `toml:"delete"`
	Undo       string `toml:"undo"`
	Edit       string `toml:"edit"`
	Reminder   string `toml:"reminder"`
	Calendar   string `toml:"calendar"`
	Filter     string `toml:"filter"`
	Sort       string `toml:"sort"`
	Theme      string `toml:"theme"`
	ClearDone  string `toml:"clear_done"`
	Confirm    string `toml:"confirm"`
	Cancel     string `toml:"cancel"`
	NextField  string `toml:"next_field"`
	PrevField  string `toml:"prev_field"`
	PriorityUp string `toml:"priority_up"`
}

// Config is the client configuration.
type Config struct {
	APIURL              string `toml:"api_url"`
	DefaultPriority     string `toml:"default_priority"`
	DefaultFilter       string `toml:"default_filter"`
	DefaultSort         string `toml:"default_sort"`
	DarkMode            bool   `toml:"dark_mode"`
	UndoWindowSecs      int    `toml:"undo_window_secs"`
	ReminderSweepSecs   int    `toml:"reminder_sweep_secs"`
	NLPDebounceMillis   int    `toml:"nlp_debounce_ms"`
	ReminderLeadMinutes int    `toml:"reminder_lead_minutes"`
	ExportDir           string `toml:"export_dir"`
	LogFile             string `toml:"log_file"`
	Keys                Keymap `toml:"keys"`
}

// ResolveConfigPath returns the config file location under the user
// config dir, falling back to the working directory.
func ResolveConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(base, "taskmaster", DefaultConfigFileName)
}

// LoadOrCreate reads the config at path, writing defaults first if the
// file does not exist yet.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	return cfg, nil
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() Config {
	return Config{
		APIURL:              defaultAPIURL,
		DefaultPriority:     "medium",
		DefaultFilter:       "all",
		DefaultSort:         "createdAt-desc",
		DarkMode:            true,
		UndoWindowSecs:      5,
		ReminderSweepSecs:   60,
		NLPDebounceMillis:   500,
		ReminderLeadMinutes: 15,
		ExportDir:           ".",
		LogFile:             "taskmaster.log",
		Keys: Keymap{
			Quit:       "q",
			Add:        "a",
			Up:         "k",
			Down:       "j",
			Toggle:     " ",
			Delete:     "d",
			Undo:       "u",
			Edit:       "e",
			Reminder:   "r",
			Calendar:   "x",
			Filter:     "f",
			Sort:       "s",
			Theme:      "t",
			ClearDone:  "C",
			Confirm:    "enter",
			Cancel:     "esc",
			NextField:  "tab",
			PrevField:  "shift+tab",
			PriorityUp: "ctrl+p",
		},
	}
}
