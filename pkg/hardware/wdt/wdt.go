// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wdt models a memory mapped watchdog timer peripheral.
//
// The watchdog counts down a configured number of clock ticks once started
// and latches its interrupt line when the count reaches zero. Software keeps
// the watchdog quiet by periodically writing WDT_TAP_MAGIC to the tap
// register, which reloads the countdown and clears a pending interrupt.
//
// A Wdt behaves like the flip-flops it stands in for: all state changes
// happen either on a register access or on Tick, and nothing in here is safe
// for concurrent use. Callers that drive the clock from one goroutine and
// issue register accesses from another must serialize them, see package sim.
//
// Register accesses never fail. Unmapped offsets read as zero and drop
// writes, and a tap with the wrong value is a silent no-op.
package wdt

import (
	"go.uber.org/zap"
)

type Wdt struct {
	countdown uint32
	counter   uint32
	enabled   bool
	started   bool
	latched   bool

	// Interrupt synchronizer, sync[len-1] drives the line.
	sync []bool

	log     *zap.Logger
	onEvent func(Event)
}

type Option func(*Wdt)

// WithLogger makes the watchdog log state changes at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(w *Wdt) {
		w.log = l
	}
}

// WithIrqSync delays the interrupt line by the given number of clock ticks
// relative to the internal latch. Zero, the default, drives the line
// straight from the latch.
func WithIrqSync(stages int) Option {
	return func(w *Wdt) {
		if stages < 0 {
			stages = 0
		}
		w.sync = make([]bool, stages)
	}
}

// WithEventHandler registers f to be called for every Event.
// f runs synchronously inside the register access or Tick that caused it.
func WithEventHandler(f func(Event)) Option {
	return func(w *Wdt) {
		w.onEvent = f
	}
}

// New returns a watchdog in its reset state.
func New(opts ...Option) *Wdt {
	w := &Wdt{log: zap.NewNop()}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Reset puts every register and counter back to its power-on value.
func (w *Wdt) Reset() {
	w.countdown = 0
	w.counter = 0
	w.enabled = false
	w.started = false
	w.latched = false
	for i := range w.sync {
		w.sync[i] = false
	}
	w.emit(Event{Kind: EventReset})
}

// Write performs a register write of width wd.
// The value is truncated to the access width before it is decoded.
func (w *Wdt) Write(addr uint32, wd Width, v uint32) {
	v = wd.Truncate(v)
	switch addr {
	case WDT_ENABLE:
		if v&1 == 1 {
			w.enabled = true
			w.emit(Event{Kind: EventEnable, Value: v})
		} else {
			// Disabling only gates the clock, a pending interrupt stays.
			w.enabled = false
			w.emit(Event{Kind: EventDisable, Value: v})
		}
	case WDT_START:
		if v&1 == 1 {
			// Without a countdown there is nothing to time, the timer
			// stays stopped.
			w.enabled = true
			w.started = w.countdown != 0
			w.counter = w.countdown
			w.emit(Event{Kind: EventStart, Value: w.countdown})
		}
	case WDT_COUNTDOWN:
		w.countdown = v
	case WDT_TAP:
		if v != WDT_TAP_MAGIC {
			w.emit(Event{Kind: EventTapIgnored, Value: v})
			return
		}
		w.counter = w.countdown
		w.latched = false
		w.emit(Event{Kind: EventTap, Value: w.countdown})
	}
}

// Read performs a register read of width wd.
func (w *Wdt) Read(addr uint32, wd Width) uint32 {
	switch addr {
	case WDT_COUNTDOWN:
		return wd.Truncate(w.countdown)
	case WDT_STATUS:
		return wd.Truncate(w.State().StatusWord())
	}
	return 0
}

func (w *Wdt) MustWrite8(addr uint32, d uint8) {
	w.Write(addr, Byte, uint32(d))
}

func (w *Wdt) MustWrite16(addr uint32, d uint16) {
	w.Write(addr, Hword, uint32(d))
}

func (w *Wdt) MustWrite32(addr uint32, d uint32) {
	w.Write(addr, Word, d)
}

func (w *Wdt) MustRead8(addr uint32) uint8 {
	return uint8(w.Read(addr, Byte))
}

func (w *Wdt) MustRead16(addr uint32) uint16 {
	return uint16(w.Read(addr, Hword))
}

func (w *Wdt) MustRead32(addr uint32) uint32 {
	return w.Read(addr, Word)
}

// Close is a no-op, it lets a Wdt stand in for any other memory provider.
func (w *Wdt) Close() {
}

// Tick evaluates one rising clock edge.
func (w *Wdt) Tick() {
	// The synchronizer samples the latch as it was before this edge.
	for i := len(w.sync) - 1; i > 0; i-- {
		w.sync[i] = w.sync[i-1]
	}
	if len(w.sync) > 0 {
		w.sync[0] = w.latched
	}

	if !w.enabled || !w.started || w.counter == 0 {
		return
	}
	w.counter--
	if w.counter == 0 {
		w.latched = true
		w.emit(Event{Kind: EventExpire, Value: w.countdown})
	}
}

// Ticks evaluates n rising clock edges. It gives the same result as calling
// Tick n times but skips over stretches where the only change is the
// counter moving towards zero, so the cost is bounded by the synchronizer
// depth and not by n.
func (w *Wdt) Ticks(n uint64) {
	for n > 0 {
		if w.syncSettled() {
			if !w.enabled || !w.started || w.counter == 0 {
				return
			}
			if w.counter > 1 {
				k := uint64(w.counter - 1)
				if k > n {
					k = n
				}
				w.counter -= uint32(k)
				n -= k
				continue
			}
		}
		w.Tick()
		n--
	}
}

// syncSettled reports whether every synchronizer stage already holds the
// latch value, so shifting it is a no-op.
func (w *Wdt) syncSettled() bool {
	for _, v := range w.sync {
		if v != w.latched {
			return false
		}
	}
	return true
}

// IsInterruptAsserted samples the interrupt output line.
func (w *Wdt) IsInterruptAsserted() bool {
	if len(w.sync) == 0 {
		return w.latched
	}
	return w.sync[len(w.sync)-1]
}

func (w *Wdt) State() State {
	s := State{
		Countdown: w.countdown,
		Counter:   w.counter,
		Enabled:   w.enabled,
		Started:   w.started,
		Latched:   w.latched,
		Line:      w.IsInterruptAsserted(),
	}
	switch {
	case w.latched:
		s.Phase = Expired
	case w.started:
		s.Phase = Armed
	default:
		s.Phase = Idle
	}
	return s
}

func (w *Wdt) emit(e Event) {
	if ce := w.log.Check(zap.DebugLevel, "wdt "+e.Kind.String()); ce != nil {
		ce.Write(
			zap.Uint32("value", e.Value),
			zap.Uint32("counter", w.counter),
			zap.Bool("latched", w.latched),
		)
	}
	if w.onEvent != nil {
		w.onEvent(e)
	}
}
