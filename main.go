// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Monsoon - Midea Air Conditioner Client
//
// A CLI tool that keeps a persistent connection to a Midea-protocol air
// conditioner for monitoring, control and metrics export.

package main

import (
	"os"

	"github.com/Thermoquad/monsoon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
