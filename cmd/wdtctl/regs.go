// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/u-root/u-wdt/pkg/driver"
	"github.com/u-root/u-wdt/pkg/hardware/wdt"
)

var width uint8

func accessWidth() (wdt.Width, error) {
	w := wdt.Width(width)
	if !w.Valid() {
		return 0, fmt.Errorf("invalid access width %d, use 8, 16 or 32", width)
	}
	return w, nil
}

func parseValue(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %v", s, err)
	}
	return uint32(v), nil
}

var writeCmd = &cobra.Command{
	Use:   "write <register> <value>",
	Short: "Write a register",
	Long:  `Write a value to a register given by name (enable, start, countdown, tap, status) or word offset.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := accessWidth()
		if err != nil {
			return err
		}
		addr, err := wdt.LookupRegister(args[0])
		if err != nil {
			return err
		}
		v, err := parseValue(args[1])
		if err != nil {
			return err
		}
		ctx, cancel, c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cancel()
		defer c.Close()
		return c.Write(ctx, addr, w, v)
	},
}

var readCmd = &cobra.Command{
	Use:   "read <register>",
	Short: "Read a register",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := accessWidth()
		if err != nil {
			return err
		}
		addr, err := wdt.LookupRegister(args[0])
		if err != nil {
			return err
		}
		ctx, cancel, c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cancel()
		defer c.Close()
		v, err := c.Read(ctx, addr, w)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: 0x%08x\n", wdt.RegisterToFunction(addr), v)
		return nil
	},
}

var tickCmd = &cobra.Command{
	Use:   "tick <cycles>",
	Short: "Advance the simulator clock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.ParseUint(args[0], 0, 64)
		if err != nil {
			return fmt.Errorf("invalid cycle count %q: %v", args[0], err)
		}
		ctx, cancel, c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cancel()
		defer c.Close()
		total, err := c.ClockCycles(ctx, n)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cycle %d\n", total)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the watchdog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel, c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cancel()
		defer c.Close()
		return c.Reset(ctx)
	},
}

var irqCmd = &cobra.Command{
	Use:   "irq",
	Short: "Sample the interrupt line",
	Long:  `Print the interrupt line. The exit status is 2 while it is asserted.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel, c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cancel()
		defer c.Close()
		irq, err := c.Interrupt(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "interrupt asserted: %v\n", irq)
		if irq {
			return errInterruptAsserted
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the watchdog state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel, c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cancel()
		defer c.Close()
		s, cycles, err := c.Status(ctx)
		if err != nil {
			return err
		}
		printState(cmd, s, cycles)
		return nil
	},
}

var armCmd = &cobra.Command{
	Use:   "arm <ticks>",
	Short: "Load a countdown and start the watchdog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticks, err := parseValue(args[0])
		if err != nil {
			return err
		}
		_, cancel, c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cancel()
		w := driver.OpenWithLogger(c, log)
		defer w.Close()
		w.Arm(ticks)
		fmt.Fprintln(cmd.OutOrStdout(), w.Status())
		return nil
	},
}

var tapValue uint32

var tapCmd = &cobra.Command{
	Use:   "tap",
	Short: "Feed the watchdog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cancel, c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cancel()
		w := driver.OpenWithLogger(c, log)
		defer w.Close()
		w.TapWith(tapValue)
		fmt.Fprintln(cmd.OutOrStdout(), w.Status())
		return nil
	},
}

func printState(cmd *cobra.Command, s wdt.State, cycles uint64) {
	fmt.Fprintf(cmd.OutOrStdout(), "phase:     %v\n", s.Phase)
	fmt.Fprintf(cmd.OutOrStdout(), "countdown: %d\n", s.Countdown)
	fmt.Fprintf(cmd.OutOrStdout(), "counter:   %d\n", s.Counter)
	fmt.Fprintf(cmd.OutOrStdout(), "enabled:   %v\n", s.Enabled)
	fmt.Fprintf(cmd.OutOrStdout(), "started:   %v\n", s.Started)
	fmt.Fprintf(cmd.OutOrStdout(), "latched:   %v\n", s.Latched)
	fmt.Fprintf(cmd.OutOrStdout(), "interrupt: %v\n", s.Line)
	fmt.Fprintf(cmd.OutOrStdout(), "cycles:    %d\n", cycles)
}

func init() {
	for _, c := range []*cobra.Command{writeCmd, readCmd} {
		c.Flags().Uint8VarP(&width, "width", "w", 32, "access width in bits")
	}
	tapCmd.Flags().Uint32Var(&tapValue, "value", wdt.WDT_TAP_MAGIC, "value written to the tap register")
	rootCmd.AddCommand(writeCmd, readCmd, tickCmd, resetCmd, irqCmd, statusCmd, armCmd, tapCmd)
}
