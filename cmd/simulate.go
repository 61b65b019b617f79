// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thermoquad/monsoon/pkg/config"
	"github.com/Thermoquad/monsoon/pkg/midea"
	"github.com/Thermoquad/monsoon/pkg/simulator"
	"github.com/spf13/cobra"
)

var (
	simulateListen string
	simulateFaults []string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated appliance on a TCP port",
	Long: `Listen for LAN connections and answer like an air conditioner.

Status queries are answered with the simulated state, and set commands change
it. The device id comes from --device-id (default 1).

--fault queues failures for the next requests, in order:
  drop     close the connection instead of replying
  silent   read the request and never reply
  garbage  reply with an undecodable frame`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVarP(&simulateListen, "listen", "l", fmt.Sprintf("127.0.0.1:%d", config.DefaultPort), "TCP listen address")
	simulateCmd.Flags().StringSliceVar(&simulateFaults, "fault", nil, "Faults to inject (drop, silent, garbage)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	id := uint64(1)
	if cfg.DeviceID != "" {
		id, err = config.ParseDeviceID(cfg.DeviceID)
		if err != nil {
			return err
		}
	}

	faults := make([]simulator.Fault, 0, len(simulateFaults))
	for _, name := range simulateFaults {
		f, err := simulator.ParseFault(name)
		if err != nil {
			return err
		}
		faults = append(faults, f)
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	sim := simulator.New(id, simulator.WithLogger(logger))
	sim.Inject(faults...)
	if err := sim.Listen(ctx, simulateListen); err != nil {
		return err
	}
	defer sim.Close()

	fmt.Printf("Monsoon - Appliance Simulator\n")
	fmt.Printf("Listening: %s (device %d)\n", sim.Addr(), id)
	fmt.Printf("Press Ctrl+C to exit\n\n")
	fmt.Print(midea.FormatState(sim.State()))

	<-ctx.Done()
	fmt.Printf("\nServed %d requests on %d connections\n", sim.Requests(), sim.Accepted())
	return nil
}
