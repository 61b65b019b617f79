// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Thermoquad/monsoon/pkg/appliance"
	"github.com/Thermoquad/monsoon/pkg/midea"
	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <channel> <value>",
	Short: "Change one appliance setting",
	Long: `Change one setting and print the state the appliance reports back.

The command starts from the current appliance state, so every other setting
is kept. Values are ON, OFF, a number or a name:

  power               ON | OFF
  operational-mode    AUTO | COOL | DRY | HEAT | FAN_ONLY
  target-temperature  17 to 30 in 0.5 steps
  fan-speed           SILENT | LOW | MEDIUM | HIGH | AUTO | OFF
  swing-mode          OFF | VERTICAL | HORIZONTAL | BOTH
  eco-mode, turbo-mode, screen-display, temp-unit   ON | OFF

REFRESH on any channel requests fresh status without changing anything.`,
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return appliance.Channels(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	channel := strings.ToLower(args[0])
	if !slices.Contains(appliance.Channels(), channel) {
		return fmt.Errorf("unknown channel %q (one of: %s)", args[0], strings.Join(appliance.Channels(), ", "))
	}
	value := appliance.ParseValue(args[1])
	if err := appliance.Accepts(channel, value); err != nil {
		return err
	}

	ac, err := openAppliance(cmd)
	if err != nil {
		return err
	}
	defer ac.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), ac.cfg.ConnectTimeout+3*ac.cfg.ReadTimeout)
	defer cancel()

	if err := ac.handler.Initialize(ctx, ac.cfg); err != nil {
		return fmt.Errorf("%s: %w", connInfo(ac.cfg), err)
	}

	if err := ac.handler.HandleCommand(ctx, channel, value); err != nil {
		return fmt.Errorf("failed to set %s to %s: %w", channel, value, err)
	}

	fmt.Printf("Set %s to %s\n\n", channel, value)
	if r, ok := ac.handler.LastResponse(); ok {
		fmt.Print(midea.FormatState(r.State))
	}
	return nil
}
