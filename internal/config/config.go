package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	checkinerrors "github.com/bgricker/checkin/internal/errors"
	"github.com/bgricker/checkin/internal/fleet"
)

// FileName is the configuration file looked up in the working directory.
const FileName = ".checkin.yml"

// Config captures CLI options sourced from config files, the environment or flags.
type Config struct {
	Service   string        `yaml:"service"`
	Host      string        `yaml:"host"`
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	Retries   int           `yaml:"retries"`

	Accounts AccountsConfig `yaml:"accounts"`
	// AccountFiles are explicit credential files from the command line; each must exist.
	AccountFiles []string `yaml:"-"`
	Only         []string `yaml:"only"`
	Skip         []string `yaml:"skip"`

	Mode    string `yaml:"mode"`
	Workers int    `yaml:"workers"`
	// Delay separates accounts in sequential mode; nil selects the service default.
	Delay *DelayConfig `yaml:"delay"`
	// SettleDelay is slept after login; nil selects the service default.
	SettleDelay *DelayConfig `yaml:"settle_delay"`

	Challenge      ChallengeConfig `yaml:"challenge"`
	StatusRequired bool            `yaml:"status_required"`
	FailOnPartial  bool            `yaml:"fail_on_partial"`

	Notify NotifyConfig `yaml:"notify"`

	Format  string `yaml:"format"`
	Color   string `yaml:"color"`
	DryRun  bool   `yaml:"dry_run"`
	Verbose bool   `yaml:"verbose"`
}

// AccountsConfig names the credential sources and their encoding.
type AccountsConfig struct {
	Env           string   `yaml:"env"`
	Files         []string `yaml:"files"`
	Delimiter     string   `yaml:"delimiter"`
	Separator     string   `yaml:"separator"`
	IdentifierEnv string   `yaml:"identifier_env"`
	SecretEnv     string   `yaml:"secret_env"`
}

// DelayConfig is an inclusive random delay range. A zero Max means a fixed Min.
type DelayConfig struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

// ChallengeConfig configures the external solver.
type ChallengeConfig struct {
	URL      string        `yaml:"url"`
	AppID    string        `yaml:"app_id"`
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

// NotifyConfig controls the summary notification.
type NotifyConfig struct {
	Disabled bool           `yaml:"disabled"`
	Title    string         `yaml:"title"`
	Attempts int            `yaml:"attempts"`
	Backoff  time.Duration  `yaml:"backoff"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig holds Bot API credentials.
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID string `yaml:"chat_id"`
	APIURL string `yaml:"api_url"`
}

// Enabled reports whether the Telegram sink has what it needs.
func (t TelegramConfig) Enabled() bool {
	return strings.TrimSpace(t.Token) != "" && strings.TrimSpace(t.ChatID) != ""
}

const (
	// ServiceIkuuu is the cookie-session flavor.
	ServiceIkuuu = "ikuuu"
	// ServiceRainyun is the token-session flavor with a challenge step.
	ServiceRainyun = "rainyun"

	// FormatPretty renders human readable output.
	FormatPretty = "pretty"
	// FormatJSON renders machine readable output.
	FormatJSON = "json"

	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Default returns the baseline configuration used when no flags or config file specify values.
func Default() Config {
	return Config{
		Service: ServiceIkuuu,
		Timeout: 30 * time.Second,
		Mode:    string(fleet.Sequential),
		Workers: fleet.DefaultWorkers,
		Challenge: ChallengeConfig{
			Attempts: 3,
			Delay:    2 * time.Second,
		},
		Notify: NotifyConfig{
			Attempts: 3,
			Backoff:  2 * time.Second,
		},
		Format: FormatPretty,
		Color:  ColorAuto,
	}
}

// Load reads the config file and merges it over the defaults. With an empty
// path, FileName in root is used and a missing file is ignored; an explicit
// path must exist.
func Load(root, path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(root, FileName)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return cfg, checkinerrors.Configf("config file %q not found", path)
		}
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	if err := ValidateDocument(data); err != nil {
		return cfg, checkinerrors.Configf("%s: %v", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, checkinerrors.Configf("parse config %q: %v", path, err)
	}

	cfg = merge(cfg, fileCfg)
	return cfg, nil
}

// LoadDotEnv loads root/.env into the process environment when present.
// Variables already set are left alone.
func LoadDotEnv(root string) error {
	path := filepath.Join(root, ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %q: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return checkinerrors.Configf("load %q: %v", path, err)
	}
	return nil
}

func merge(base, override Config) Config {
	out := base

	if override.Service != "" {
		out.Service = override.Service
	}
	if override.Host != "" {
		out.Host = override.Host
	}
	if override.BaseURL != "" {
		out.BaseURL = override.BaseURL
	}
	if override.UserAgent != "" {
		out.UserAgent = override.UserAgent
	}
	if override.Timeout != 0 {
		out.Timeout = override.Timeout
	}
	if override.Retries != 0 {
		out.Retries = override.Retries
	}

	out.Accounts = mergeAccounts(out.Accounts, override.Accounts)
	if len(override.Only) > 0 {
		out.Only = append([]string{}, override.Only...)
	}
	if len(override.Skip) > 0 {
		out.Skip = append([]string{}, override.Skip...)
	}

	if override.Mode != "" {
		out.Mode = override.Mode
	}
	if override.Workers != 0 {
		out.Workers = override.Workers
	}
	if override.Delay != nil {
		d := *override.Delay
		out.Delay = &d
	}
	if override.SettleDelay != nil {
		d := *override.SettleDelay
		out.SettleDelay = &d
	}

	if override.Challenge.URL != "" {
		out.Challenge.URL = override.Challenge.URL
	}
	if override.Challenge.AppID != "" {
		out.Challenge.AppID = override.Challenge.AppID
	}
	if override.Challenge.Attempts != 0 {
		out.Challenge.Attempts = override.Challenge.Attempts
	}
	if override.Challenge.Delay != 0 {
		out.Challenge.Delay = override.Challenge.Delay
	}
	if override.StatusRequired {
		out.StatusRequired = true
	}
	if override.FailOnPartial {
		out.FailOnPartial = true
	}

	if override.Notify.Disabled {
		out.Notify.Disabled = true
	}
	if override.Notify.Title != "" {
		out.Notify.Title = override.Notify.Title
	}
	if override.Notify.Attempts != 0 {
		out.Notify.Attempts = override.Notify.Attempts
	}
	if override.Notify.Backoff != 0 {
		out.Notify.Backoff = override.Notify.Backoff
	}
	if override.Notify.Telegram.Token != "" {
		out.Notify.Telegram.Token = override.Notify.Telegram.Token
	}
	if override.Notify.Telegram.ChatID != "" {
		out.Notify.Telegram.ChatID = override.Notify.Telegram.ChatID
	}
	if override.Notify.Telegram.APIURL != "" {
		out.Notify.Telegram.APIURL = override.Notify.Telegram.APIURL
	}

	if override.Format != "" {
		out.Format = override.Format
	}
	if override.Color != "" {
		out.Color = override.Color
	}
	if override.DryRun {
		out.DryRun = true
	}
	if override.Verbose {
		out.Verbose = true
	}

	return out
}

func mergeAccounts(base, override AccountsConfig) AccountsConfig {
	out := base
	if override.Env != "" {
		out.Env = override.Env
	}
	if len(override.Files) > 0 {
		out.Files = append([]string{}, override.Files...)
	}
	if override.Delimiter != "" {
		out.Delimiter = override.Delimiter
	}
	if override.Separator != "" {
		out.Separator = override.Separator
	}
	if override.IdentifierEnv != "" {
		out.IdentifierEnv = override.IdentifierEnv
	}
	if override.SecretEnv != "" {
		out.SecretEnv = override.SecretEnv
	}
	return out
}

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// Environment variables read by ApplyEnv.
const (
	EnvService        = "CHECKIN_SERVICE"
	EnvHost           = "HOST"
	EnvMode           = "MODE"
	EnvWorkers        = "RUN_MAX"
	EnvTelegramToken  = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"
)

// ApplyEnv overlays environment variables on cfg. Empty values are ignored.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvService); ok {
		cfg.Service = v
	}
	if v, ok := get(EnvHost); ok {
		cfg.Host = v
	}
	if v, ok := get(EnvMode); ok {
		cfg.Mode = v
	}
	if v, ok := get(EnvWorkers); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return checkinerrors.Configf("%s=%q is not a number", EnvWorkers, v)
		}
		cfg.Workers = n
	}
	if v, ok := get(EnvTelegramToken); ok {
		cfg.Notify.Telegram.Token = v
	}
	if v, ok := get(EnvTelegramChatID); ok {
		cfg.Notify.Telegram.ChatID = v
	}
	return nil
}

// ApplyFlags mutates cfg by applying values from CLI flags when they are present.
func ApplyFlags(cfg *Config, flags FlagValues) {
	if flags.Service.Set {
		cfg.Service = flags.Service.Value
	}
	if flags.Mode.Set {
		cfg.Mode = flags.Mode.Value
	}
	if flags.Workers.Set {
		cfg.Workers = flags.Workers.Value
	}
	if len(flags.Only.Values) > 0 {
		cfg.Only = append([]string{}, flags.Only.Values...)
	}
	if len(flags.Skip.Values) > 0 {
		cfg.Skip = append([]string{}, flags.Skip.Values...)
	}
	if len(flags.AccountFiles.Values) > 0 {
		cfg.AccountFiles = append([]string{}, flags.AccountFiles.Values...)
	}
	if flags.Format.Set {
		cfg.Format = flags.Format.Value
	}
	if flags.Color.Set {
		cfg.Color = flags.Color.Value
	}
	if flags.DryRun.Set {
		cfg.DryRun = flags.DryRun.Value
	}
	if flags.Verbose.Set {
		cfg.Verbose = flags.Verbose.Value
	}
	if flags.FailOnPartial.Set {
		cfg.FailOnPartial = flags.FailOnPartial.Value
	}
	if flags.NoNotify.Set {
		cfg.Notify.Disabled = flags.NoNotify.Value
	}
}

// FlagValues captures CLI flag state with knowledge of whether each flag was set explicitly.
type FlagValues struct {
	Service       StringFlag
	Mode          StringFlag
	Workers       IntFlag
	Only          SliceFlag
	Skip          SliceFlag
	AccountFiles  SliceFlag
	Format        StringFlag
	Color         StringFlag
	DryRun        BoolFlag
	Verbose       BoolFlag
	FailOnPartial BoolFlag
	NoNotify      BoolFlag
}

// StringFlag represents a string flag and whether it was set.
type StringFlag struct {
	Value string
	Set   bool
}

// IntFlag represents an int flag and whether it was set.
type IntFlag struct {
	Value int
	Set   bool
}

// SliceFlag represents a slice flag and whether it captured values via CLI.
type SliceFlag struct {
	Values []string
}

// BoolFlag represents a bool flag and whether it was set.
type BoolFlag struct {
	Value bool
	Set   bool
}
