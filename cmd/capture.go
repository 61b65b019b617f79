// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/Thermoquad/monsoon/pkg/capture"
	"github.com/Thermoquad/monsoon/pkg/midea"
	"github.com/Thermoquad/monsoon/pkg/transport"
	"github.com/spf13/cobra"
)

var captureDirection string

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Inspect frame capture files",
	Long: `Inspect files written with --capture.

Every command that talks to the appliance accepts --capture <file> and
appends each frame it sends or receives to that file.`,
}

var captureDumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Display a capture file in human-readable format",
	Long: `Decode and display every frame in a capture file, with timestamp,
direction, message type and decoded body.

Frames that do not decode are shown as hex.`,
	Args: cobra.ExactArgs(1),
	RunE: runCaptureDump,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.AddCommand(captureDumpCmd)
	captureDumpCmd.Flags().StringVar(&captureDirection, "direction", "", "Only show tx or rx frames")
}

func runCaptureDump(cmd *cobra.Command, args []string) error {
	var only *transport.Direction
	switch captureDirection {
	case "":
	case transport.Outbound.String():
		d := transport.Outbound
		only = &d
	case transport.Inbound.String():
		d := transport.Inbound
		only = &d
	default:
		return fmt.Errorf("invalid --direction %q (use tx or rx)", captureDirection)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer f.Close()

	fmt.Printf("Monsoon - Capture Dump\n")
	fmt.Printf("File: %s\n\n", args[0])

	reader := capture.NewReader(f)
	shown, undecodable := 0, 0
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if only != nil && rec.Direction != *only {
			continue
		}
		if _, err := midea.DecodePacket(rec.Frame); err != nil {
			undecodable++
		}
		fmt.Print(rec.Format())
		fmt.Println()
		shown++
	}

	fmt.Printf("--- %d frames, %d undecodable ---\n", shown, undecodable)
	return nil
}
