// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cynayd/connect-core/cmd"
	"github.com/cynayd/connect-core/internal/config"
	"github.com/USA-RedDragon/configulator"
)

// version and commit are overridden at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	c := configulator.New[config.Config]()

	rootCmd := cmd.NewCommand(version, commit)
	rootCmd.SetContext(c.WithContext(context.Background()))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
