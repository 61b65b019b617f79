// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/monsoon/pkg/appliance"
	"github.com/spf13/cobra"
)

var (
	pingCount    int
	pingInterval time.Duration
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure status request round trips",
	Long: `Send status requests to the appliance and report the round-trip time.

The first request is sent as part of connecting. This is useful for verifying:
  - The appliance is reachable and answers as the configured device id
  - WebSocket authentication works when a bridge is used
  - Replies arrive within the read timeout

Exit codes:
  0 - All requests answered
  1 - One or more requests failed or timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of requests to send")
	pingCmd.Flags().DurationVar(&pingInterval, "interval", 500*time.Millisecond, "Delay between requests")
}

func runPing(cmd *cobra.Command, args []string) error {
	ac, err := openAppliance(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	start := time.Now()
	if err := ac.handler.Initialize(ctx, ac.cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		ac.Close()
		os.Exit(2)
	}
	connectTime := time.Since(start)

	fmt.Printf("Monsoon - Status Ping\n")
	fmt.Printf("Connection: %s\n", connInfo(ac.cfg))
	fmt.Printf("Connected and answered in %v\n\n", connectTime.Round(time.Millisecond))

	successCount := 0
	failCount := 0
	var total time.Duration

	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		start := time.Now()
		err := ac.handler.HandleCommand(ctx, appliance.ChannelPower, appliance.Refresh())
		rtt := time.Since(start)
		if err != nil {
			fmt.Printf("FAILED: %v\n", err)
			failCount++
		} else {
			r, _ := ac.handler.LastResponse()
			fmt.Printf("reply, indoor=%.1f°C, rtt=%v\n", r.IndoorTemperature, rtt.Round(time.Millisecond))
			successCount++
			total += rtt
		}

		if i < pingCount {
			time.Sleep(pingInterval)
		}
	}

	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d requests sent, %d replies received, %.0f%% loss\n",
		pingCount, successCount, float64(failCount)/float64(max(pingCount, 1))*100)
	if successCount > 0 {
		fmt.Printf("average rtt=%v\n", (total / time.Duration(successCount)).Round(time.Millisecond))
	}

	ac.Close()
	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}
