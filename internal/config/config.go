// Package config loads application settings from configs/config.yml, an
// optional .env file, DEPDASH_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"deposition_dashboard/internal/store"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "DEPDASH"

// AppConfig holds all runtime settings.
type AppConfig struct {
	Port      string
	Log       LogConfig
	DBPath    string
	Telemetry TelemetryConfig
	Commands  CommandsConfig
	Auth      AuthConfig
	Simulator SimulatorConfig
	TUI       bool
}

type LogConfig struct {
	Level string
	// File receives log output instead of stdout. Required while the TUI
	// owns the terminal.
	File string
}

type TelemetryConfig struct {
	URL            string
	ReconnectDelay time.Duration
	ReadTimeout    time.Duration
	MergePolicy    store.MergePolicy
}

type CommandsConfig struct {
	BaseURL string
	Timeout time.Duration
}

type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}

type SimulatorConfig struct {
	Enabled  bool
	Interval time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "depdash.log")
	v.SetDefault("db.path", "depdash.db")
	v.SetDefault("telemetry.url", "ws://localhost:8003/ws/state")
	v.SetDefault("telemetry.reconnect_delay", 3*time.Second)
	v.SetDefault("telemetry.read_timeout", 60*time.Second)
	v.SetDefault("telemetry.merge_policy", string(store.MergeReplace))
	v.SetDefault("commands.base_url", "http://localhost:8003")
	v.SetDefault("commands.timeout", 5*time.Second)
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", 12*time.Hour)
	v.SetDefault("simulator.enabled", false)
	v.SetDefault("simulator.interval", time.Second)
	v.SetDefault("tui", false)
}

// Flags returns the command-line flags understood by Load.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to config file (default configs/config.yml)")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.Bool("tui", false, "run the terminal dashboard instead of logging to stdout")
	return fs
}

// Load parses args and reads the configuration.
func Load(args []string) (*AppConfig, error) {
	fs := Flags("depdash")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return LoadWithFlags(fs)
}

// LoadWithFlags reads the configuration using already parsed flags.
func LoadWithFlags(fs *pflag.FlagSet) (*AppConfig, error) {
	// a missing .env is the normal case
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if f := fs.Lookup("log-level"); f != nil && f.Changed {
		if err := v.BindPFlag("log.level", f); err != nil {
			return nil, err
		}
	}
	if err := v.BindPFlag("tui", fs.Lookup("tui")); err != nil {
		return nil, err
	}

	policy, err := store.ParseMergePolicy(v.GetString("telemetry.merge_policy"))
	if err != nil {
		return nil, fmt.Errorf("telemetry.merge_policy: %w", err)
	}

	cfg := &AppConfig{
		Port: v.GetString("port"),
		Log: LogConfig{
			Level: strings.ToLower(v.GetString("log.level")),
			File:  v.GetString("log.file"),
		},
		DBPath: v.GetString("db.path"),
		Telemetry: TelemetryConfig{
			URL:            v.GetString("telemetry.url"),
			ReconnectDelay: v.GetDuration("telemetry.reconnect_delay"),
			ReadTimeout:    v.GetDuration("telemetry.read_timeout"),
			MergePolicy:    policy,
		},
		Commands: CommandsConfig{
			BaseURL: strings.TrimRight(v.GetString("commands.base_url"), "/"),
			Timeout: v.GetDuration("commands.timeout"),
		},
		Auth: AuthConfig{
			SigningKey: v.GetString("auth.signing_key"),
			TokenTTL:   v.GetDuration("auth.token_ttl"),
		},
		Simulator: SimulatorConfig{
			Enabled:  v.GetBool("simulator.enabled"),
			Interval: v.GetDuration("simulator.interval"),
		},
		TUI: v.GetBool("tui"),
	}
	if cfg.Telemetry.URL == "" {
		return nil, errors.New("telemetry.url must not be empty")
	}
	if cfg.Telemetry.ReconnectDelay <= 0 {
		return nil, fmt.Errorf("telemetry.reconnect_delay must be positive, got %s", cfg.Telemetry.ReconnectDelay)
	}
	return cfg, nil
}
