package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bgricker/checkin/internal/config"
	"github.com/bgricker/checkin/internal/credential"
	checkinerrors "github.com/bgricker/checkin/internal/errors"
	"github.com/bgricker/checkin/internal/fleet"
	"github.com/bgricker/checkin/internal/logging"
	"github.com/bgricker/checkin/internal/notify"
	"github.com/bgricker/checkin/internal/output"
	"github.com/bgricker/checkin/internal/report"
	"github.com/bgricker/checkin/internal/workflow"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Check in every selected account and send the summary",
		RunE:  runFleet,
	}
}

func runFleet(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := logging.New(cmd.ErrOrStderr(), logging.Options{
		Verbose: cfg.Verbose,
		Color:   colorEnabled(cfg.Color, cmd.ErrOrStderr()),
	}).With(zap.String("run", runID))
	defer func() { _ = logger.Sync() }()

	set, err := loadAccounts(root, cfg)
	for _, w := range set.warnings {
		logger.Warn("skipped credential entry", zap.String("source", w.Source), zap.Int("entry", w.Entry), zap.String("reason", w.Message))
	}
	if err != nil {
		return err
	}

	if cfg.DryRun {
		return renderAccounts(cmd, cfg, set.creds, set.warnings, true)
	}

	svc, solver, err := buildService(cfg)
	if err != nil {
		return err
	}
	mode, err := fleet.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}

	scheduler := fleet.New(fleet.Options{
		Service: cfg.Service,
		Mode:    mode,
		Workers: cfg.Workers,
		Delay:   toRange(cfg.Delay),
		Logger:  logger,
	})
	results, summary := scheduler.Run(cmd.Context(), set.creds, newFactory(svc, solver, cfg, logger))

	if err := renderFleet(cmd, cfg, runID, set.warnings, results, summary); err != nil {
		return err
	}

	sendSummary(cmd, cfg, logger, results, summary)

	if summary.Success {
		return nil
	}
	if cfg.FailOnPartial {
		return checkinerrors.Newf("%d of %d account(s) failed", summary.Failed, summary.Total)
	}
	logger.Warn("some accounts failed", zap.Int("failed", summary.Failed), zap.Int("total", summary.Total))
	return nil
}

func renderFleet(cmd *cobra.Command, cfg config.Config, runID string, warnings []credential.Warning, results []report.AccountResult, summary report.FleetResult) error {
	switch cfg.Format {
	case config.FormatPretty:
		renderer := output.NewPretty(cmd.OutOrStdout()).WithColor(colorEnabled(cfg.Color, cmd.OutOrStdout()))
		return renderer.RenderFleet(results, summary)
	case config.FormatJSON:
		return output.NewJSON(cmd.OutOrStdout()).Render(output.Report{
			RunID:    runID,
			Fleet:    summary,
			Accounts: results,
			Warnings: warningStrings(warnings),
		})
	default:
		return fmt.Errorf("unsupported format %q", cfg.Format)
	}
}

// sendSummary delivers the run summary. Failures are logged only.
func sendSummary(cmd *cobra.Command, cfg config.Config, logger *zap.Logger, results []report.AccountResult, summary report.FleetResult) {
	if cfg.Notify.Disabled {
		logger.Debug("notification disabled")
		return
	}

	var sink notify.Sink
	if cfg.Notify.Telegram.Enabled() {
		tg, err := notify.NewTelegram(notify.TelegramOptions{
			Token:  cfg.Notify.Telegram.Token,
			ChatID: cfg.Notify.Telegram.ChatID,
			APIURL: cfg.Notify.Telegram.APIURL,
		})
		if err != nil {
			logger.Warn("notification sink unavailable", zap.Error(err))
			return
		}
		sink = tg
	}

	title, body := output.Message(cfg.Notify.Title, results, summary)
	notify.Deliver(cmd.Context(), sink, title, body, notify.Options{
		Attempts: cfg.Notify.Attempts,
		Backoff:  cfg.Notify.Backoff,
		Timeout:  cfg.Timeout,
		Sleep:    workflow.Sleep,
		Logger:   logger,
	})
}
