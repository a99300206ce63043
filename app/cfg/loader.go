package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

const DefaultConfigPath = "transmission-rss.conf.example"

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	Args struct {
		Config string `positional-arg-name:"CONFIG" description:"Path to the settings document (default: transmission-rss.conf.example)"`
	} `positional-args:"yes"`

	WatchConfig bool `long:"watch-config" env:"WATCH_CONFIG" description:"Reload the settings document when it changes"`
	Once        bool `long:"once" env:"RUN_ONCE" description:"Process all feeds once and exit"`

	ListenAddr   string `long:"listen" env:"LISTEN_ADDR" description:"Address of the status server, e.g. :8080 (disabled when empty)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	DBPath string `long:"db-path" env:"DB_PATH" description:"SQLite history database path (disabled when empty)"`

	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"transmission-rss" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"text" choice:"text" choice:"json" description:"Log output format"`
}

// Load parses args together with the environment. A .env file (or the file
// named by ENV_FILE) is applied first without overriding set variables.
// Returns nil when help was requested.
func Load(args []string) (*Cfg, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		ConfigPath:   cmp.Or(raw.Args.Config, DefaultConfigPath),
		WatchConfig:  raw.WatchConfig,
		Once:         raw.Once,
		ListenAddr:   raw.ListenAddr,
		APIAccessKey: raw.APIAccessKey,
		DBPath:       raw.DBPath,
		UserAgent:    raw.UserAgent,
		Timezone:     raw.Timezone,
		Debug:        raw.Debug,
		LogFormat:    raw.LogFormat,
		Version:      GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	return cfg, nil
}

func loadEnvFile() error {
	path := cmp.Or(os.Getenv("ENV_FILE"), ".env")

	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone == "" {
		return nil
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}
	time.Local = loc

	return nil
}
