// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sim drives a watchdog model the way a test bench would: it owns
// the clock, serializes register accesses like a bus fabric and exposes the
// register level interface firmware and test harnesses talk to.
package sim

import (
	"context"
	"sync"
	"time"

	"github.com/jmhodges/clock"
	"github.com/u-root/u-wdt/pkg/hardware/wdt"
	"github.com/u-root/u-wdt/pkg/trace"
	"go.uber.org/zap"
)

// DefaultPeriod is a 10 MHz clock.
const DefaultPeriod = 100 * time.Nanosecond

type Simulator struct {
	m      sync.Mutex
	core   *wdt.Wdt
	cycles uint64

	clk    clock.Clock
	period time.Duration
	log    *zap.Logger
	tracer trace.Tracer

	irqStages int
}

type Option func(*Simulator)

func WithClock(clk clock.Clock) Option {
	return func(s *Simulator) {
		s.clk = clk
	}
}

// WithPeriod sets the simulated clock period used by Run.
func WithPeriod(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.period = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) {
		s.log = l
	}
}

func WithIrqSync(stages int) Option {
	return func(s *Simulator) {
		s.irqStages = stages
	}
}

// WithTracer records every bus access, tick batch and reset to t.
func WithTracer(t trace.Tracer) Option {
	return func(s *Simulator) {
		s.tracer = t
	}
}

func New(opts ...Option) *Simulator {
	s := &Simulator{
		clk:    clock.New(),
		period: DefaultPeriod,
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.core = wdt.New(
		wdt.WithLogger(s.log.Named("wdt")),
		wdt.WithIrqSync(s.irqStages),
		wdt.WithEventHandler(countEvent),
	)
	return s
}

func (s *Simulator) Period() time.Duration {
	return s.period
}

func (s *Simulator) traceLocked(op trace.Op) {
	if s.tracer == nil {
		return
	}
	op.Cycle = s.cycles
	s.tracer.Log(op)
}

// Write performs a bus write of the given width.
func (s *Simulator) Write(addr uint32, w wdt.Width, v uint32) {
	s.m.Lock()
	defer s.m.Unlock()
	s.core.Write(addr, w, v)
	s.traceLocked(trace.Op{Kind: trace.Write, Width: w, Address: addr, Value: uint64(w.Truncate(v))})
	interruptAsserted.Set(boolToFloat(s.core.IsInterruptAsserted()))
}

// Read performs a bus read of the given width.
func (s *Simulator) Read(addr uint32, w wdt.Width) uint32 {
	s.m.Lock()
	defer s.m.Unlock()
	v := s.core.Read(addr, w)
	s.traceLocked(trace.Op{Kind: trace.Read, Width: w, Address: addr, Value: uint64(v)})
	return v
}

func (s *Simulator) WriteWord(addr uint32, v uint32) {
	s.Write(addr, wdt.Word, v)
}

func (s *Simulator) WriteHword(addr uint32, v uint16) {
	s.Write(addr, wdt.Hword, uint32(v))
}

func (s *Simulator) WriteByte(addr uint32, v uint8) {
	s.Write(addr, wdt.Byte, uint32(v))
}

func (s *Simulator) ReadWord(addr uint32) uint32 {
	return s.Read(addr, wdt.Word)
}

func (s *Simulator) ReadHword(addr uint32) uint16 {
	return uint16(s.Read(addr, wdt.Hword))
}

func (s *Simulator) ReadByte(addr uint32) uint8 {
	return uint8(s.Read(addr, wdt.Byte))
}

// The Must accessors let a Simulator act as the memory provider of a driver.

func (s *Simulator) MustWrite8(addr uint32, d uint8)   { s.WriteByte(addr, d) }
func (s *Simulator) MustWrite16(addr uint32, d uint16) { s.WriteHword(addr, d) }
func (s *Simulator) MustWrite32(addr uint32, d uint32) { s.WriteWord(addr, d) }
func (s *Simulator) MustRead8(addr uint32) uint8       { return s.ReadByte(addr) }
func (s *Simulator) MustRead16(addr uint32) uint16     { return s.ReadHword(addr) }
func (s *Simulator) MustRead32(addr uint32) uint32     { return s.ReadWord(addr) }

// Close does nothing, the simulator lives as long as its owner wants it to.
func (s *Simulator) Close() {
}

// Reset synchronously reinitializes the watchdog. The cycle count is kept.
func (s *Simulator) Reset() {
	s.m.Lock()
	defer s.m.Unlock()
	s.core.Reset()
	s.traceLocked(trace.Op{Kind: trace.Reset})
	interruptAsserted.Set(0)
}

// ClockCycles advances the clock by n rising edges.
// No register access can interleave with the batch.
func (s *Simulator) ClockCycles(n uint64) {
	if n == 0 {
		return
	}
	s.m.Lock()
	defer s.m.Unlock()
	s.traceLocked(trace.Op{Kind: trace.Tick, Value: n})
	s.core.Ticks(n)
	s.cycles += n
	cyclesTotal.Add(float64(n))
	interruptAsserted.Set(boolToFloat(s.core.IsInterruptAsserted()))
}

func (s *Simulator) IsInterruptAsserted() bool {
	s.m.Lock()
	defer s.m.Unlock()
	return s.core.IsInterruptAsserted()
}

func (s *Simulator) State() wdt.State {
	s.m.Lock()
	defer s.m.Unlock()
	return s.core.State()
}

// Cycles returns the number of clock edges evaluated since creation.
func (s *Simulator) Cycles() uint64 {
	s.m.Lock()
	defer s.m.Unlock()
	return s.cycles
}

// Run free-runs the clock until ctx is done. Every interval of clock time it
// evaluates as many edges as fit into the time elapsed at the configured
// period, so a coarse interval still yields the exact cycle count.
func (s *Simulator) Run(ctx context.Context, interval time.Duration) error {
	if interval < s.period {
		interval = s.period
	}
	s.log.Info("Starting watchdog clock",
		zap.Duration("period", s.period), zap.Duration("interval", interval))
	last := s.clk.Now()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Stopping watchdog clock", zap.Uint64("cycles", s.Cycles()))
			return ctx.Err()
		default:
		}
		s.clk.Sleep(interval)
		now := s.clk.Now()
		n := now.Sub(last) / s.period
		if n <= 0 {
			continue
		}
		last = last.Add(n * s.period)
		s.ClockCycles(uint64(n))
	}
}
