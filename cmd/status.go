// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"

	"github.com/Thermoquad/monsoon/pkg/appliance"
	"github.com/Thermoquad/monsoon/pkg/midea"
	"github.com/spf13/cobra"
)

var statusChannels bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Connect once and print the appliance state",
	Long: `Connect to the appliance, request its status and print the decoded state.

With --channels the state is printed as one line per channel, in the same
form the monitor command uses.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusChannels, "channels", false, "Print one line per channel")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ac, err := openAppliance(cmd)
	if err != nil {
		return err
	}
	defer ac.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), ac.cfg.ConnectTimeout+2*ac.cfg.ReadTimeout)
	defer cancel()

	if err := ac.handler.Initialize(ctx, ac.cfg); err != nil {
		return fmt.Errorf("%s: %w", connInfo(ac.cfg), err)
	}

	r, ok := ac.handler.LastResponse()
	if !ok {
		return fmt.Errorf("no status received from %s", connInfo(ac.cfg))
	}

	fmt.Printf("Connection: %s\n", connInfo(ac.cfg))
	fmt.Printf("Status: %s\n\n", ac.handler.Status())
	if statusChannels {
		for _, u := range appliance.Updates(r) {
			fmt.Printf("%-20s %s\n", u.Channel, u.Value)
		}
		return nil
	}
	fmt.Print(midea.FormatState(r.State))
	return nil
}
