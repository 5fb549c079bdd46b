// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

// Command coursectl is the offline companion to the server. It inspects
// model bundles, runs one-shot recommendations against a bundle, imports
// bundles into a badger store and looks up cluster labels.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/coursemate/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Init(logging.Config{Level: "warn", Format: "console", Output: os.Stderr})

	if err := newRootCommand(os.Stdout).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "coursectl:", err)
		stop()
		os.Exit(1)
	}
}
