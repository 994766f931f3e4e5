package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bgricker/checkin/internal/config"
)

func gatherFlags(cmd *cobra.Command) (config.FlagValues, error) {
	flags := cmd.Flags()
	var values config.FlagValues

	stringFlags := []struct {
		name   string
		target *config.StringFlag
	}{
		{"service", &values.Service},
		{"mode", &values.Mode},
		{"format", &values.Format},
		{"color", &values.Color},
	}
	for _, f := range stringFlags {
		if !flags.Changed(f.name) {
			continue
		}
		v, err := flags.GetString(f.name)
		if err != nil {
			return values, fmt.Errorf("parse --%s: %w", f.name, err)
		}
		*f.target = config.StringFlag{Value: v, Set: true}
	}

	sliceFlags := []struct {
		name   string
		target *config.SliceFlag
	}{
		{"only", &values.Only},
		{"skip", &values.Skip},
		{"accounts-file", &values.AccountFiles},
	}
	for _, f := range sliceFlags {
		if !flags.Changed(f.name) {
			continue
		}
		v, err := flags.GetStringArray(f.name)
		if err != nil {
			return values, fmt.Errorf("parse --%s: %w", f.name, err)
		}
		*f.target = config.SliceFlag{Values: append([]string{}, v...)}
	}

	boolFlags := []struct {
		name   string
		target *config.BoolFlag
	}{
		{"dry-run", &values.DryRun},
		{"verbose", &values.Verbose},
		{"fail-on-partial", &values.FailOnPartial},
		{"no-notify", &values.NoNotify},
	}
	for _, f := range boolFlags {
		if !flags.Changed(f.name) {
			continue
		}
		v, err := flags.GetBool(f.name)
		if err != nil {
			return values, fmt.Errorf("parse --%s: %w", f.name, err)
		}
		*f.target = config.BoolFlag{Value: v, Set: true}
	}

	if flags.Changed("workers") {
		v, err := flags.GetInt("workers")
		if err != nil {
			return values, fmt.Errorf("parse --workers: %w", err)
		}
		values.Workers = config.IntFlag{Value: v, Set: true}
	}

	return values, nil
}
