// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/u-root/u-wdt/config"
	"github.com/u-root/u-wdt/pkg/logger"
	"github.com/u-root/u-wdt/pkg/service/grpc"
	"go.uber.org/zap"
)

var (
	fs = afero.NewOsFs()

	server  string
	timeout time.Duration
	verbose bool

	log = zap.NewNop()

	exit = os.Exit
)

var rootCmd = &cobra.Command{
	Use:           "wdtctl",
	Short:         "Watchdog simulator control",
	Long:          `Read and write watchdog registers of a running wdtsim, advance its clock and replay recorded bus traces.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		if err := logger.LogContainer.Configure(level, ""); err != nil {
			return err
		}
		log = logger.LogContainer.GetLogger()
		return nil
	},
}

// errInterruptAsserted makes irq exit with status 2 without printing an
// error.
var errInterruptAsserted = errors.New("interrupt asserted")

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errInterruptAsserted):
		return 2
	}
	return 1
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	err := rootCmd.Execute()
	code := exitCode(err)
	if code == 1 {
		fmt.Fprintln(os.Stderr, err)
	}
	if code != 0 {
		exit(code)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&server, "server", "s", config.DefaultConfig.GrpcAddress, "wdtsim gRPC address")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "how long to wait for the simulator")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// connect dials the simulator. The returned context carries the command
// timeout.
func connect(cmd *cobra.Command) (context.Context, context.CancelFunc, *grpc.Client, error) {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	c, err := grpc.Dial(ctx, server, log)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return ctx, cancel, c, nil
}
