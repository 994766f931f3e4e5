package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bgricker/checkin/internal/challenge"
	"github.com/bgricker/checkin/internal/config"
	"github.com/bgricker/checkin/internal/credential"
	"github.com/bgricker/checkin/internal/discovery"
	checkinerrors "github.com/bgricker/checkin/internal/errors"
	"github.com/bgricker/checkin/internal/filter"
	"github.com/bgricker/checkin/internal/fleet"
	"github.com/bgricker/checkin/internal/remote"
	"github.com/bgricker/checkin/internal/remote/ikuuu"
	"github.com/bgricker/checkin/internal/remote/rainyun"
	"github.com/bgricker/checkin/internal/workflow"
)

// accountSet bundles the selected credentials with parse warnings.
type accountSet struct {
	creds    []credential.Credential
	warnings []credential.Warning
}

func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	root, err := os.Getwd()
	if err != nil {
		return config.Config{}, "", fmt.Errorf("determine working directory: %w", err)
	}

	if err := config.LoadDotEnv(root); err != nil {
		return config.Config{}, "", err
	}

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, "", fmt.Errorf("parse --config: %w", err)
	}
	cfg, err := config.Load(root, path)
	if err != nil {
		return config.Config{}, "", err
	}

	if err := config.ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return config.Config{}, "", err
	}

	flags, err := gatherFlags(cmd)
	if err != nil {
		return config.Config{}, "", err
	}
	config.ApplyFlags(&cfg, flags)

	cfg.Finalize()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, "", err
	}
	return cfg, root, nil
}

// loadAccounts reads and filters credentials. Explicit --accounts-file paths
// replace the environment sources.
func loadAccounts(root string, cfg config.Config) (accountSet, error) {
	files, err := discovery.AccountFiles(root, cfg.AccountFiles, cfg.Accounts.Files)
	if err != nil {
		return accountSet{}, err
	}

	src := credential.Source{Files: files}
	if len(cfg.AccountFiles) == 0 {
		src.Env = cfg.Accounts.Env
		src.IdentifierEnv = cfg.Accounts.IdentifierEnv
		src.SecretEnv = cfg.Accounts.SecretEnv
	}
	format := credential.Format{Delimiter: cfg.Accounts.Delimiter, Separator: cfg.Accounts.Separator}
	read := func(path string) ([]byte, error) {
		return os.ReadFile(discovery.Resolve(root, path))
	}

	creds, warnings, err := credential.Load(src, format, os.LookupEnv, read)
	if err != nil {
		return accountSet{warnings: warnings}, err
	}

	only, err := filter.Compile(cfg.Only)
	if err != nil {
		return accountSet{}, checkinerrors.Configf("--only: %v", err)
	}
	skip, err := filter.Compile(cfg.Skip)
	if err != nil {
		return accountSet{}, checkinerrors.Configf("--skip: %v", err)
	}
	selected := filter.Accounts(creds, only, skip)
	if len(selected) == 0 {
		return accountSet{warnings: warnings}, checkinerrors.Configf("no account left after filtering %d loaded account(s)", len(creds))
	}
	return accountSet{creds: selected, warnings: warnings}, nil
}

func buildService(cfg config.Config) (workflow.Service, workflow.Solver, error) {
	client := remote.Options{
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
		Retries:   cfg.Retries,
	}
	switch cfg.Service {
	case config.ServiceIkuuu:
		return ikuuu.New(ikuuu.Options{Host: cfg.Host, BaseURL: cfg.BaseURL, Client: client}), nil, nil
	case config.ServiceRainyun:
		svc := rainyun.New(rainyun.Options{BaseURL: cfg.BaseURL, Client: client})
		return svc, challenge.New(cfg.Challenge.URL, cfg.Challenge.AppID, cfg.Timeout), nil
	default:
		return nil, nil, checkinerrors.Configf("unknown service %q", cfg.Service)
	}
}

func newFactory(svc workflow.Service, solver workflow.Solver, cfg config.Config, logger *zap.Logger) fleet.Factory {
	opts := workflow.Options{
		CallTimeout:       cfg.Timeout,
		ChallengeAttempts: cfg.Challenge.Attempts,
		ChallengeDelay:    cfg.Challenge.Delay,
		SettleDelay:       toRange(cfg.SettleDelay),
		StatusRequired:    cfg.StatusRequired,
		Logger:            logger,
	}
	return func(cred credential.Credential) (fleet.Runnable, error) {
		return workflow.New(svc, solver, cred, opts), nil
	}
}

func toRange(d *config.DelayConfig) workflow.Range {
	if d == nil {
		return workflow.Range{}
	}
	return workflow.Range{Min: d.Min, Max: d.Max}
}

func colorEnabled(setting string, w io.Writer) bool {
	switch setting {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func warningStrings(warnings []credential.Warning) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.String())
	}
	return out
}
