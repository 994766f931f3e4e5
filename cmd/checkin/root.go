package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "checkin",
		Short:         "Checkin runs the daily check-in for every configured account",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	persistent := cmd.PersistentFlags()
	persistent.String("config", "", "config file (default ./.checkin.yml)")
	persistent.String("service", "", "remote service (ikuuu|rainyun)")
	persistent.String("mode", "", "scheduling mode (sequential|concurrent, or 1|2)")
	persistent.Int("workers", 0, "maximum concurrent accounts in concurrent mode")
	persistent.StringArray("only", nil, "include only matching accounts (substring, /regex/ or #ordinal, repeatable)")
	persistent.StringArray("skip", nil, "exclude matching accounts (repeatable)")
	persistent.StringArray("accounts-file", nil, "credential file to read instead of the environment (repeatable)")
	persistent.Bool("dry-run", false, "show the accounts that would run without contacting any service")
	persistent.BoolP("verbose", "v", false, "log every workflow step")
	persistent.Bool("fail-on-partial", false, "exit non-zero when any account fails")
	persistent.Bool("no-notify", false, "skip the summary notification")
	persistent.String("format", "pretty", "output format (pretty|json)")
	persistent.String("color", "auto", "color output (auto|always|never)")

	cmd.AddCommand(newAccountsCmd())
	cmd.AddCommand(newRunCmd())

	return cmd
}
