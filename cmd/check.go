// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/monsoon/pkg/appliance"
	"github.com/Thermoquad/monsoon/pkg/link"
	"github.com/Thermoquad/monsoon/pkg/midea"
	"github.com/spf13/cobra"
)

var (
	checkShowAll       bool
	checkInterval      time.Duration
	checkCount         int
	checkStatsInterval int
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Poll the appliance and report failed exchanges and anomalies",
	Long: `Poll the appliance repeatedly and track link errors and anomalous reports.

Each poll is classified as:
  - Valid response
  - Failed exchange (timeout, no data, decode error, connect or I/O error)
  - Anomalous report (unknown mode, fan speed or swing, temperature or
    humidity out of range, appliance error flag)

By default, only failures and anomalies are displayed. Use --show-all to
display every decoded state too. Statistics are printed every
--stats-interval polls and when the command ends.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkShowAll, "show-all", false, "Show every poll (not just errors)")
	checkCmd.Flags().DurationVar(&checkInterval, "interval", 2*time.Second, "Time between polls")
	checkCmd.Flags().IntVar(&checkCount, "count", 0, "Number of polls (0 runs until interrupted)")
	checkCmd.Flags().IntVar(&checkStatsInterval, "stats-interval", 10, "Print statistics every N polls")
}

// printExchangeError prints a failed exchange in highlighted format
func printExchangeError(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31m%s ERROR:\033[0m %v\n\n", timestamp, link.KindOf(err), err)
}

// printValidationErrors prints the anomalies of one report
func printValidationErrors(r midea.Response, errors []midea.ValidationError) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;33mANOMALOUS REPORT:\033[0m %d issue(s)\n", timestamp, len(errors))

	for i, err := range errors {
		color := "1;33"
		if err.Type == midea.AnomalyApplianceError {
			color = "1;31"
		}
		fmt.Printf("  Issue %d: \033[%sm%s\033[0m\n", i+1, color, err.Message)
	}
	fmt.Print(midea.FormatState(r.State))
	fmt.Println()
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ac, err := openAppliance(cmd)
	if err != nil {
		return err
	}
	defer ac.Close()

	fmt.Printf("Monsoon - Error Detection Mode\n")
	fmt.Printf("Connection: %s\n", connInfo(ac.cfg))
	fmt.Printf("Poll interval: %s\n", checkInterval)
	if checkShowAll {
		fmt.Printf("Mode: All polls\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := link.NewStatistics()

	// The first status request happens inside Initialize
	err = ac.handler.Initialize(ctx, ac.cfg)
	if link.KindOf(err) == link.KindConfiguration {
		return err
	}

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for poll := 1; ; poll++ {
		if err != nil {
			stats.Update(err, nil)
			printExchangeError(err)
		} else if r, ok := ac.handler.LastResponse(); ok {
			anomalies := midea.ValidateResponse(r)
			stats.Update(nil, anomalies)
			if len(anomalies) > 0 {
				printValidationErrors(r, anomalies)
			} else if checkShowAll {
				fmt.Printf("[%s] OK\n", time.Now().Format("15:04:05.000"))
				fmt.Print(midea.FormatState(r.State))
				fmt.Println()
			}
		}

		if checkStatsInterval > 0 && poll%checkStatsInterval == 0 {
			fmt.Print(stats.String())
			fmt.Println()
		}
		if checkCount > 0 && poll >= checkCount {
			break
		}

		select {
		case <-ctx.Done():
			fmt.Println()
			fmt.Print(stats.String())
			return nil
		case <-ticker.C:
		}

		err = ac.handler.HandleCommand(ctx, appliance.ChannelPower, appliance.Refresh())
	}

	fmt.Print(stats.String())
	if stats.Errors() > 0 || stats.Anomalous > 0 {
		return fmt.Errorf("%d failed exchanges, %d anomalous reports", stats.Errors(), stats.Anomalous)
	}
	return nil
}
