package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bgricker/checkin/internal/config"
	"github.com/bgricker/checkin/internal/credential"
	"github.com/bgricker/checkin/internal/output"
)

func newAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List the configured accounts, masked, without contacting any service",
		RunE:  runAccounts,
	}
}

func runAccounts(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	set, err := loadAccounts(root, cfg)
	if err != nil {
		return err
	}

	return renderAccounts(cmd, cfg, set.creds, set.warnings, false)
}

func renderAccounts(cmd *cobra.Command, cfg config.Config, creds []credential.Credential, warnings []credential.Warning, dryRun bool) error {
	switch cfg.Format {
	case config.FormatPretty:
		renderer := output.NewPretty(cmd.OutOrStdout()).WithColor(colorEnabled(cfg.Color, cmd.OutOrStdout()))
		if dryRun {
			return renderer.RenderPlan(output.Plan{Service: cfg.Service, Mode: cfg.Mode, Workers: cfg.Workers, Accounts: creds})
		}
		return renderer.RenderAccounts(creds, warnings)
	case config.FormatJSON:
		list := output.AccountList{Service: cfg.Service, DryRun: dryRun, Warnings: warningStrings(warnings)}
		for _, c := range creds {
			list.Accounts = append(list.Accounts, output.Account{Index: c.Index, Account: c.Masked()})
		}
		return output.NewJSON(cmd.OutOrStdout()).RenderAccounts(list)
	default:
		return fmt.Errorf("unsupported format %q", cfg.Format)
	}
}
