// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Thermoquad/monsoon/pkg/appliance"
	"github.com/Thermoquad/monsoon/pkg/link"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const (
	controlBatchInterval = 50 * time.Millisecond
	controlEventBuffer   = 256
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for controlling the air conditioner",
	Long: `Control the air conditioner via an interactive terminal UI.

Features:
  - Settings list with the current value of every commandable channel
  - Live telemetry (indoor/outdoor temperature, humidity, mode, fan)
  - Status transitions and command results in an event log
  - Automatic reconnection through the polling monitor

Tab switches between the settings list, the value input and the Apply
button. Arrow keys navigate the settings list. Outside the input:
p toggles power, + and - change the target temperature, r refreshes.

Supports LAN, serial and WebSocket connections.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
}

// controlBridge collects handler events and forwards them to the TUI in
// batches so that a poll does not become 31 separate redraws.
type controlBridge struct {
	p        *tea.Program
	statuses chan link.Status
	updates  chan appliance.Update
	done     chan struct{}
}

func newControlBridge(p *tea.Program) *controlBridge {
	return &controlBridge{
		p:        p,
		statuses: make(chan link.Status, controlEventBuffer),
		updates:  make(chan appliance.Update, controlEventBuffer),
		done:     make(chan struct{}),
	}
}

// status is a link.StatusListener. Statuses are never dropped.
func (b *controlBridge) status(s link.Status) {
	select {
	case b.statuses <- s:
	case <-b.done:
	}
}

// update is an appliance.UpdateListener. Updates are dropped when the TUI
// falls behind; the next poll repeats them.
func (b *controlBridge) update(u appliance.Update) {
	select {
	case b.updates <- u:
	default:
	}
}

// drain returns everything queued since the last call.
func (b *controlBridge) drain() controlBatchMsg {
	var batch controlBatchMsg
	for {
		select {
		case s := <-b.statuses:
			batch.statuses = append(batch.statuses, s)
		case u := <-b.updates:
			batch.updates = append(batch.updates, u)
		default:
			return batch
		}
	}
}

// run sends batches to the program at a fixed rate until stop is called.
func (b *controlBridge) run() {
	ticker := time.NewTicker(controlBatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			batch := b.drain()
			if len(batch.statuses) > 0 || len(batch.updates) > 0 {
				b.p.Send(batch)
			}
		}
	}
}

func (b *controlBridge) stop() {
	close(b.done)
}

func runControl(cmd *cobra.Command, args []string) error {
	ac, err := openAppliance(cmd)
	if err != nil {
		return err
	}
	defer ac.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	m := initialControlModel(ctx, ac.handler, connInfo(ac.cfg))
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	bridge := newControlBridge(p)
	ac.handler.SubscribeStatus(bridge.status)
	ac.handler.SubscribeUpdates(bridge.update)
	go bridge.run()
	defer bridge.stop()

	// Connect in the background so the TUI is up while dialing
	initDone := make(chan struct{})
	go func() {
		defer close(initDone)
		err := ac.handler.Initialize(ctx, ac.cfg)
		p.Send(initializedMsg{err: err})
	}()

	_, runErr := p.Run()

	// Initialize must return before the handler is disposed
	cancel()
	<-initDone

	if runErr != nil {
		return fmt.Errorf("TUI error: %v", runErr)
	}
	return nil
}
