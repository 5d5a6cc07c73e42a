// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package driver is the firmware side of the watchdog: the register
// sequences a boot loader or a service loop issues to arm and feed it.
package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/jmhodges/clock"
	"github.com/u-root/u-wdt/pkg/hardware/wdt"
	"go.uber.org/zap"
)

type Wdt struct {
	mem memProvider
	log *zap.Logger
}

type Status struct {
	Enabled bool
	Started bool
	// Counting is set while the counter has not reached zero.
	Counting bool
	// Pending mirrors the internal timeout latch.
	Pending bool
}

func (s Status) String() string {
	return fmt.Sprintf("enabled=%v started=%v counting=%v pending=%v",
		s.Enabled, s.Started, s.Counting, s.Pending)
}

func Open(mem memProvider) *Wdt {
	return OpenWithLogger(mem, zap.NewNop())
}

func OpenWithLogger(mem memProvider, log *zap.Logger) *Wdt {
	return &Wdt{mem: mem, log: log}
}

func (w *Wdt) Close() {
	w.Mem().Close()
}

func (w *Wdt) SetCountdown(ticks uint32) {
	w.Mem().MustWrite32(wdt.WDT_COUNTDOWN, ticks)
}

func (w *Wdt) Countdown() uint32 {
	return w.Mem().MustRead32(wdt.WDT_COUNTDOWN)
}

// Enable lets a started watchdog count. It does not clear a pending timeout.
func (w *Wdt) Enable() {
	w.Mem().MustWrite32(wdt.WDT_ENABLE, 1)
}

// Disable freezes the counter. It does not clear a pending timeout.
func (w *Wdt) Disable() {
	w.Mem().MustWrite32(wdt.WDT_ENABLE, 0)
}

// Start reloads the counter from the countdown register and begins counting.
func (w *Wdt) Start() {
	w.Mem().MustWrite32(wdt.WDT_START, 1)
}

// Tap feeds the watchdog: the counter is reloaded and a pending timeout is
// cleared.
func (w *Wdt) Tap() {
	w.TapWith(wdt.WDT_TAP_MAGIC)
}

// TapWith writes v to the tap register. Anything but the magic value is
// ignored by the hardware.
func (w *Wdt) TapWith(v uint32) {
	w.Mem().MustWrite32(wdt.WDT_TAP, v)
}

func (w *Wdt) Status() Status {
	s := w.Mem().MustRead32(wdt.WDT_STATUS)
	return Status{
		Enabled:  s&wdt.STATUS_ENABLED != 0,
		Started:  s&wdt.STATUS_STARTED != 0,
		Counting: s&wdt.STATUS_COUNTING != 0,
		Pending:  s&wdt.STATUS_PENDING != 0,
	}
}

// Arm loads a countdown of the given number of ticks and starts the watchdog.
func (w *Wdt) Arm(ticks uint32) {
	w.SetCountdown(ticks)
	w.Start()
	w.log.Info("Watchdog armed", zap.Uint32("ticks", ticks))
}

// Kick taps the watchdog every interval until ctx is done. No tap is issued
// once ctx is done.
func (w *Wdt) Kick(ctx context.Context, clk clock.Clock, interval time.Duration) error {
	w.log.Info("Kicking watchdog", zap.Duration("interval", interval))
	for {
		if err := ctx.Err(); err != nil {
			w.log.Info("Stopped kicking watchdog")
			return err
		}
		w.Tap()
		select {
		case <-ctx.Done():
		case <-clk.After(interval):
		}
	}
}
