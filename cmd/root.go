// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"time"

	"github.com/Thermoquad/monsoon/pkg/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	// LAN connection flags
	host     string
	lanPort  int
	deviceID string

	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Link flags
	promptTone  bool
	readTimeout time.Duration
	pollingTime time.Duration
	captureFile string
)

var rootCmd = &cobra.Command{
	Use:   "monsoon",
	Short: "Midea Air Conditioner Client",
	Long: `Monsoon - A CLI tool for monitoring and controlling Midea-protocol air
conditioners over a persistent connection.

Connection modes:
  LAN:       --host 192.168.1.50 --device-id 1234567890 [--lan-port 6444]
  Serial:    --port /dev/ttyUSB0 [--baud 9600]
  WebSocket: --url ws://host/path [--username user]

Settings may also come from a YAML file (--config) and the MONSOON_HOST,
MONSOON_PORT and MONSOON_DEVICE_ID environment variables. Flags win over
both.

For WebSocket authentication, the password is read from the MONSOON_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version: "0.3.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log link activity to stderr")

	// LAN connection flags
	rootCmd.PersistentFlags().StringVarP(&host, "host", "H", "", "Appliance host name or IP address")
	rootCmd.PersistentFlags().IntVar(&lanPort, "lan-port", config.DefaultPort, "Appliance TCP port")
	rootCmd.PersistentFlags().StringVarP(&deviceID, "device-id", "d", "", "Appliance device id (decimal)")

	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", config.DefaultBaudRate, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Link flags
	rootCmd.PersistentFlags().BoolVar(&promptTone, "prompt-tone", false, "Let the appliance beep on commands")
	rootCmd.PersistentFlags().DurationVar(&readTimeout, "read-timeout", config.DefaultReadTimeout, "Time to wait for a reply")
	rootCmd.PersistentFlags().DurationVar(&pollingTime, "polling", config.DefaultPollingTime, "Status polling interval")
	rootCmd.PersistentFlags().StringVar(&captureFile, "capture", "", "Append raw frames to a CBOR capture file")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
