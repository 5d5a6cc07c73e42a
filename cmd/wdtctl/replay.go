// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/u-root/u-wdt/pkg/sim"
	"github.com/u-root/u-wdt/pkg/trace"
)

var (
	replayIrqSync int
	replayShow    bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <trace>",
	Short: "Replay a recorded bus trace against a local simulator",
	Long: `Replay a binary trace recorded by wdtsim against a fresh local
simulator. Recorded reads are checked against what the model returns.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := fs.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		opts := []sim.Option{sim.WithLogger(log), sim.WithIrqSync(replayIrqSync)}
		if replayShow {
			opts = append(opts, sim.WithTracer(trace.NewStdoutLog(log.Sugar())))
		}
		s := sim.New(opts...)
		n, err := trace.Replay(f, s)
		if err != nil {
			return fmt.Errorf("replay of %s failed after %d ops: %v", args[0], n, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "replayed %d ops\n", n)
		printState(cmd, s.State(), s.Cycles())
		return nil
	},
}

func init() {
	replayCmd.Flags().IntVar(&replayIrqSync, "irq-sync", 0, "interrupt synchronizer stages of the replay model")
	replayCmd.Flags().BoolVar(&replayShow, "show", false, "log every replayed op")
	rootCmd.AddCommand(replayCmd)
}
