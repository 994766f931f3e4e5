package config

import (
	"strings"
	"time"

	checkinerrors "github.com/bgricker/checkin/internal/errors"
	"github.com/bgricker/checkin/internal/fleet"
)

// serviceDefaults are the per-flavor settings applied by Finalize to
// anything the user left unset.
type serviceDefaults struct {
	host        string
	accounts    AccountsConfig
	delay       DelayConfig
	settleDelay DelayConfig
}

var services = map[string]serviceDefaults{
	ServiceIkuuu: {
		host: "ikuuu.one",
		accounts: AccountsConfig{
			Env:           "IKUUU_ACCOUNTS",
			Delimiter:     ":",
			Separator:     ",",
			IdentifierEnv: "IKUUU_EMAIL",
			SecretEnv:     "IKUUU_PASSWORD",
		},
		delay: DelayConfig{Min: 3 * time.Second},
	},
	ServiceRainyun: {
		accounts: AccountsConfig{
			Env:       "yuyun",
			Files:     []string{"yuyun.txt"},
			Delimiter: "#",
		},
		settleDelay: DelayConfig{Min: 10 * time.Second, Max: 20 * time.Second},
	},
}

// Services lists the supported service names.
func Services() []string {
	return []string{ServiceIkuuu, ServiceRainyun}
}

// Finalize normalizes names and fills service-dependent defaults. It runs
// after every overlay so those defaults never shadow a user setting.
func (c *Config) Finalize() {
	c.Service = strings.ToLower(strings.TrimSpace(c.Service))
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Color = strings.ToLower(strings.TrimSpace(c.Color))
	if mode, err := fleet.ParseMode(c.Mode); err == nil {
		c.Mode = string(mode)
	}

	d, ok := services[c.Service]
	if !ok {
		return
	}
	if c.Host == "" {
		c.Host = d.host
	}

	a := &c.Accounts
	// A custom env variable keeps its own separator.
	if a.Env == "" {
		a.Env = d.accounts.Env
		if a.Separator == "" {
			a.Separator = d.accounts.Separator
		}
	}
	if a.Files == nil {
		a.Files = append([]string(nil), d.accounts.Files...)
	}
	if a.Delimiter == "" {
		a.Delimiter = d.accounts.Delimiter
	}
	if a.IdentifierEnv == "" && a.SecretEnv == "" {
		a.IdentifierEnv = d.accounts.IdentifierEnv
		a.SecretEnv = d.accounts.SecretEnv
	}

	if c.Delay == nil {
		delay := d.delay
		c.Delay = &delay
	}
	if c.SettleDelay == nil {
		settle := d.settleDelay
		c.SettleDelay = &settle
	}
}

// Validate reports the first invalid setting as a config error.
func (c Config) Validate() error {
	if _, ok := services[c.Service]; !ok {
		return checkinerrors.Configf("unknown service %q (want %s)", c.Service, strings.Join(Services(), " or "))
	}
	if _, err := fleet.ParseMode(c.Mode); err != nil {
		return err
	}
	if c.Workers < fleet.MinWorkers || c.Workers > fleet.MaxWorkers {
		return checkinerrors.Configf("workers must be between %d and %d, got %d", fleet.MinWorkers, fleet.MaxWorkers, c.Workers)
	}
	switch c.Format {
	case FormatPretty, FormatJSON:
	default:
		return checkinerrors.Configf("unknown format %q (want pretty or json)", c.Format)
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return checkinerrors.Configf("unknown color setting %q (want auto, always or never)", c.Color)
	}
	if c.Timeout <= 0 {
		return checkinerrors.Configf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Retries < 0 || c.Retries > 5 {
		return checkinerrors.Configf("retries must be between 0 and 5, got %d", c.Retries)
	}
	if c.Accounts.Delimiter == "" {
		return checkinerrors.Config("accounts.delimiter must not be empty")
	}
	if err := validateDelay("delay", c.Delay); err != nil {
		return err
	}
	if err := validateDelay("settle_delay", c.SettleDelay); err != nil {
		return err
	}
	if c.Challenge.Attempts < 1 || c.Challenge.Attempts > 10 {
		return checkinerrors.Configf("challenge.attempts must be between 1 and 10, got %d", c.Challenge.Attempts)
	}
	if c.Challenge.Delay < 0 {
		return checkinerrors.Configf("challenge.delay must not be negative")
	}
	if c.Notify.Attempts < 1 || c.Notify.Attempts > 10 {
		return checkinerrors.Configf("notify.attempts must be between 1 and 10, got %d", c.Notify.Attempts)
	}
	if c.Notify.Backoff < 0 {
		return checkinerrors.Configf("notify.backoff must not be negative")
	}
	return nil
}

func validateDelay(name string, d *DelayConfig) error {
	if d == nil {
		return nil
	}
	if d.Min < 0 || d.Max < 0 {
		return checkinerrors.Configf("%s must not be negative", name)
	}
	if d.Max != 0 && d.Max < d.Min {
		return checkinerrors.Configf("%s.max (%s) is below %s.min (%s)", name, d.Max, name, d.Min)
	}
	return nil
}
