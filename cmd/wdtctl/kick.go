// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/jmhodges/clock"
	"github.com/spf13/cobra"
	"github.com/u-root/u-wdt/pkg/driver"
)

var (
	kickInterval time.Duration
	kickFor      time.Duration
	kickArm      uint32
)

var kickCmd = &cobra.Command{
	Use:   "kick",
	Short: "Keep tapping the watchdog",
	Long: `Tap the watchdog periodically until interrupted, the way a service
loop keeps a machine from being reset.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cancel, c, err := connect(cmd)
		if err != nil {
			return err
		}
		cancel()
		w := driver.OpenWithLogger(c, log)
		defer w.Close()
		if kickArm > 0 {
			w.Arm(kickArm)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		if kickFor > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, kickFor)
			defer cancel()
		}
		err = w.Kick(ctx, clock.New(), kickInterval)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	},
}

func init() {
	kickCmd.Flags().DurationVarP(&kickInterval, "interval", "i", time.Second, "time between taps")
	kickCmd.Flags().DurationVar(&kickFor, "for", 0, "stop after this long, 0 runs until interrupted")
	kickCmd.Flags().Uint32Var(&kickArm, "arm", 0, "arm with this countdown before kicking")
	rootCmd.AddCommand(kickCmd)
}
