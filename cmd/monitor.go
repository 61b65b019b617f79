// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Thermoquad/monsoon/pkg/appliance"
	"github.com/Thermoquad/monsoon/pkg/link"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var monitorShowAll bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Keep the link up and print status and channel changes",
	Long: `Run the connection supervisor until interrupted.

The appliance is polled every --polling interval. Status transitions are
printed as they happen, and channel values are printed whenever they change.
Use --show-all to print every channel after every poll.

A dropped connection is reopened on the next poll.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&monitorShowAll, "show-all", false, "Print every channel after every poll")
}

// changeFilter remembers the last value of each channel.
type changeFilter struct {
	mu   sync.Mutex
	last map[string]string
}

func newChangeFilter() *changeFilter {
	return &changeFilter{last: make(map[string]string)}
}

// changed records u and reports whether its value differs from the
// previous one.
func (f *changeFilter) changed(u appliance.Update) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := u.Value.String()
	prev, seen := f.last[u.Channel]
	f.last[u.Channel] = v
	return !seen || prev != v
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ac, err := openAppliance(cmd)
	if err != nil {
		return err
	}
	defer ac.Close()

	fmt.Printf("Monsoon - Appliance Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo(ac.cfg))
	fmt.Printf("Polling: every %s\n", ac.cfg.PollingTime)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ac.handler.SubscribeStatus(func(s link.Status) {
		fmt.Printf("[%s] STATUS %s\n", time.Now().Format("15:04:05.000"), s)
	})

	filter := newChangeFilter()
	ac.handler.SubscribeUpdates(func(u appliance.Update) {
		if filter.changed(u) || monitorShowAll {
			fmt.Printf("[%s] %-20s %s\n", time.Now().Format("15:04:05.000"), u.Channel, u.Value)
		}
	})

	if err := ac.handler.Initialize(ctx, ac.cfg); err != nil {
		if link.KindOf(err) == link.KindConfiguration {
			return err
		}
		// The supervisor keeps retrying from the monitor
		ac.logger.Warn("initial connection failed", zap.Error(err))
	}

	<-ctx.Done()
	fmt.Printf("\nShutting down...\n")
	return nil
}
