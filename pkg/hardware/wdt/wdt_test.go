// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wdt

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

const tapInvalid uint32 = 0xFFFF

func ticks(w *Wdt, n int) {
	for i := 0; i < n; i++ {
		w.Tick()
	}
}

func armed(t *testing.T, countdown uint32) *Wdt {
	w := New(WithLogger(zaptest.NewLogger(t)))
	w.MustWrite32(WDT_COUNTDOWN, countdown)
	w.MustWrite32(WDT_START, 1)
	return w
}

func TestResetState(t *testing.T) {
	w := New()
	require.Equal(t, State{Phase: Idle}, w.State())
	require.False(t, w.IsInterruptAsserted())

	w = armed(t, 3)
	ticks(w, 3)
	require.True(t, w.IsInterruptAsserted())

	w.Reset()
	require.Equal(t, State{Phase: Idle}, w.State())
	require.False(t, w.IsInterruptAsserted())
}

func TestInterruptExactlyAtTimeout(t *testing.T) {
	for _, n := range []uint32{1, 2, 10, 100, 257} {
		w := armed(t, n)
		for i := uint32(1); i < n; i++ {
			w.Tick()
			require.False(t, w.IsInterruptAsserted(), "countdown %d asserted early at tick %d", n, i)
		}
		w.Tick()
		require.True(t, w.IsInterruptAsserted(), "countdown %d not asserted at tick %d", n, n)
		require.Equal(t, Expired, w.State().Phase)
	}
}

func TestCounterHoldsAtZero(t *testing.T) {
	w := armed(t, 2)
	ticks(w, 50)
	s := w.State()
	require.Equal(t, uint32(0), s.Counter)
	require.True(t, s.Latched)
	require.Equal(t, uint32(2), s.Countdown)
}

func TestTapReloadsAndClears(t *testing.T) {
	w := armed(t, 100)
	ticks(w, 100)
	require.True(t, w.IsInterruptAsserted())

	w.MustWrite32(WDT_TAP, WDT_TAP_MAGIC)
	require.False(t, w.IsInterruptAsserted())
	require.Equal(t, uint32(100), w.State().Counter)
	require.Equal(t, Armed, w.State().Phase)

	ticks(w, 25)
	require.False(t, w.IsInterruptAsserted())
	require.Equal(t, uint32(75), w.State().Counter)
}

func TestTapWithWrongValueIgnored(t *testing.T) {
	w := armed(t, 100)
	ticks(w, 100)
	before := w.State()

	for _, v := range []uint32{tapInvalid, 0, 0xABCC, 0x1ABCD, 0xABCD0000, 0xFFFFABCD} {
		w.MustWrite32(WDT_TAP, v)
		require.Equal(t, before, w.State(), "tap with %#x changed state", v)
	}

	ticks(w, 25)
	require.True(t, w.IsInterruptAsserted())

	// A running counter is not reloaded by an invalid tap either.
	w = armed(t, 10)
	ticks(w, 4)
	w.MustWrite16(WDT_TAP, uint16(tapInvalid))
	require.Equal(t, uint32(6), w.State().Counter)
}

func TestTapWidths(t *testing.T) {
	// A byte access can never present the full magic value.
	w := armed(t, 5)
	ticks(w, 5)
	w.MustWrite8(WDT_TAP, 0xCD)
	require.True(t, w.IsInterruptAsserted())

	w.MustWrite16(WDT_TAP, 0xABCD)
	require.False(t, w.IsInterruptAsserted())

	ticks(w, 5)
	require.True(t, w.IsInterruptAsserted())
	w.MustWrite32(WDT_TAP, 0x0000ABCD)
	require.False(t, w.IsInterruptAsserted())
}

func TestDisableDoesNotClearInterrupt(t *testing.T) {
	w := armed(t, 10)
	ticks(w, 10)
	require.True(t, w.IsInterruptAsserted())

	w.MustWrite32(WDT_ENABLE, 0)
	require.True(t, w.IsInterruptAsserted())
	require.False(t, w.State().Enabled)

	// Re-enabling does not clear it either.
	w.MustWrite32(WDT_ENABLE, 1)
	require.True(t, w.IsInterruptAsserted())
}

func TestDisableGatesCounting(t *testing.T) {
	w := armed(t, 10)
	ticks(w, 4)
	w.MustWrite32(WDT_ENABLE, 0)
	ticks(w, 100)
	require.False(t, w.IsInterruptAsserted())
	require.Equal(t, uint32(6), w.State().Counter)

	w.MustWrite32(WDT_ENABLE, 1)
	ticks(w, 5)
	require.False(t, w.IsInterruptAsserted())
	w.Tick()
	require.True(t, w.IsInterruptAsserted())
}

func TestEnableAloneDoesNotStart(t *testing.T) {
	w := New()
	w.MustWrite32(WDT_COUNTDOWN, 3)
	w.MustWrite32(WDT_ENABLE, 1)
	ticks(w, 10)
	require.False(t, w.IsInterruptAsserted())
	require.Equal(t, Idle, w.State().Phase)
}

func TestStartDoesNotClearInterrupt(t *testing.T) {
	w := armed(t, 50)
	ticks(w, 50)
	require.True(t, w.IsInterruptAsserted())

	w.MustWrite32(WDT_START, 1)
	require.True(t, w.IsInterruptAsserted())
	s := w.State()
	require.Equal(t, uint32(50), s.Counter)
	require.Equal(t, Expired, s.Phase)

	// Counting resumes, the latch is simply still set.
	ticks(w, 10)
	require.Equal(t, uint32(40), w.State().Counter)
	require.True(t, w.IsInterruptAsserted())
}

func TestStartImpliesEnable(t *testing.T) {
	w := New()
	w.MustWrite32(WDT_COUNTDOWN, 2)
	w.MustWrite32(WDT_ENABLE, 0)
	w.MustWrite32(WDT_START, 1)
	require.True(t, w.State().Enabled)
	ticks(w, 2)
	require.True(t, w.IsInterruptAsserted())
}

func TestStartZeroIsNoop(t *testing.T) {
	w := New()
	w.MustWrite32(WDT_COUNTDOWN, 2)
	w.MustWrite32(WDT_START, 0)
	require.Equal(t, State{Countdown: 2, Phase: Idle}, w.State())
}

func TestRepeatedStartReloadsCountdown(t *testing.T) {
	w := armed(t, 100)
	ticks(w, 50)
	w.MustWrite32(WDT_START, 1)
	ticks(w, 50)
	require.False(t, w.IsInterruptAsserted())
	ticks(w, 50)
	require.True(t, w.IsInterruptAsserted())
}

func TestStartWithoutCountdown(t *testing.T) {
	w := New()
	w.MustWrite32(WDT_START, 1)
	ticks(w, 1000)
	require.False(t, w.IsInterruptAsserted())
	require.Equal(t, State{Enabled: true, Phase: Idle}, w.State())
	require.Equal(t, STATUS_ENABLED, w.MustRead32(WDT_STATUS))

	// Loading a countdown afterwards still needs a real start.
	w.MustWrite32(WDT_COUNTDOWN, 5)
	ticks(w, 10)
	require.False(t, w.IsInterruptAsserted())
	w.MustWrite32(WDT_START, 1)
	require.Equal(t, STATUS_ENABLED|STATUS_STARTED|STATUS_COUNTING, w.MustRead32(WDT_STATUS))
	ticks(w, 5)
	require.True(t, w.IsInterruptAsserted())
}

func TestStartWithZeroCountdownStopsTimer(t *testing.T) {
	w := armed(t, 100)
	ticks(w, 10)
	w.MustWrite32(WDT_COUNTDOWN, 0)
	w.MustWrite32(WDT_START, 1)
	ticks(w, 1000)
	require.False(t, w.IsInterruptAsserted())
	require.Equal(t, State{Enabled: true, Phase: Idle}, w.State())
}

func TestRepeatedTapsPreventExpiry(t *testing.T) {
	w := armed(t, 20)
	for i := 0; i < 100; i++ {
		ticks(w, 19)
		w.MustWrite32(WDT_TAP, WDT_TAP_MAGIC)
		require.False(t, w.IsInterruptAsserted())
	}
}

func TestPartialWritesZeroUpperBits(t *testing.T) {
	w := New()
	w.MustWrite32(WDT_COUNTDOWN, 0x82345678)
	require.Equal(t, uint32(0x82345678), w.MustRead32(WDT_COUNTDOWN))
	require.Equal(t, uint16(0x5678), w.MustRead16(WDT_COUNTDOWN))
	require.Equal(t, uint8(0x78), w.MustRead8(WDT_COUNTDOWN))

	w.MustWrite8(WDT_COUNTDOWN, 0x42)
	require.Equal(t, uint32(0x00000042), w.MustRead32(WDT_COUNTDOWN))

	w.MustWrite32(WDT_COUNTDOWN, 0xFFFFFFFF)
	w.MustWrite16(WDT_COUNTDOWN, 0x1234)
	require.Equal(t, uint32(0x00001234), w.MustRead32(WDT_COUNTDOWN))

	// Values wider than the access are truncated before they are stored.
	w.Write(WDT_COUNTDOWN, Byte, 0xDEADBEEF)
	require.Equal(t, uint32(0xEF), w.MustRead32(WDT_COUNTDOWN))
}

func TestWriteOnlyAndUnmappedRegisters(t *testing.T) {
	w := armed(t, 7)
	for _, a := range []uint32{WDT_ENABLE, WDT_START, WDT_TAP, 5, 63, 0xFFFFFFFF} {
		require.Equal(t, uint32(0), w.MustRead32(a), "read of %s", RegisterToFunction(a))
	}

	before := w.State()
	w.MustWrite32(5, 0xFFFFFFFF)
	w.MustWrite32(WDT_STATUS, 0xFFFFFFFF)
	require.Equal(t, before, w.State())
}

func TestStatusRegister(t *testing.T) {
	w := New()
	require.Equal(t, uint32(0), w.MustRead32(WDT_STATUS))

	w.MustWrite32(WDT_COUNTDOWN, 4)
	w.MustWrite32(WDT_START, 1)
	require.Equal(t, STATUS_ENABLED|STATUS_STARTED|STATUS_COUNTING, w.MustRead32(WDT_STATUS))

	ticks(w, 4)
	require.Equal(t, STATUS_ENABLED|STATUS_STARTED|STATUS_PENDING, w.MustRead32(WDT_STATUS))

	w.MustWrite8(WDT_ENABLE, 0)
	require.Equal(t, STATUS_STARTED|STATUS_PENDING, uint32(w.MustRead8(WDT_STATUS)))
}

func TestTimeoutScenario(t *testing.T) {
	w := armed(t, 10)

	ticks(w, 10)
	require.True(t, w.IsInterruptAsserted())

	ticks(w, 10)
	require.True(t, w.IsInterruptAsserted(), "interrupt must be sticky")

	w.MustWrite32(WDT_TAP, WDT_TAP_MAGIC)
	require.False(t, w.IsInterruptAsserted())

	ticks(w, 3)
	require.False(t, w.IsInterruptAsserted())

	ticks(w, 10)
	require.True(t, w.IsInterruptAsserted())
}

func TestTapsKeepWatchdogQuiet(t *testing.T) {
	w := armed(t, 100)

	w.MustWrite32(WDT_TAP, WDT_TAP_MAGIC)
	ticks(w, 50)
	w.MustWrite32(WDT_TAP, WDT_TAP_MAGIC)
	ticks(w, 50)
	require.False(t, w.IsInterruptAsserted())
}

func TestIrqSync(t *testing.T) {
	w := New(WithIrqSync(2))
	w.MustWrite32(WDT_COUNTDOWN, 3)
	w.MustWrite32(WDT_START, 1)

	ticks(w, 3)
	require.True(t, w.State().Latched)
	require.False(t, w.IsInterruptAsserted())
	w.Tick()
	require.False(t, w.IsInterruptAsserted())
	w.Tick()
	require.True(t, w.IsInterruptAsserted())

	// Clearing propagates with the same delay.
	w.MustWrite32(WDT_TAP, WDT_TAP_MAGIC)
	require.True(t, w.IsInterruptAsserted())
	ticks(w, 2)
	require.False(t, w.IsInterruptAsserted())

	w.Reset()
	require.False(t, w.IsInterruptAsserted())
}

func TestNegativeIrqSyncIsCombinational(t *testing.T) {
	w := New(WithIrqSync(-3))
	w.MustWrite32(WDT_COUNTDOWN, 1)
	w.MustWrite32(WDT_START, 1)
	w.Tick()
	require.True(t, w.IsInterruptAsserted())
}

func TestEvents(t *testing.T) {
	var got []Event
	core, logs := observer.New(zap.DebugLevel)
	w := New(WithLogger(zap.New(core)), WithEventHandler(func(e Event) {
		got = append(got, e)
	}))

	w.MustWrite32(WDT_COUNTDOWN, 2)
	w.MustWrite32(WDT_ENABLE, 1)
	w.MustWrite32(WDT_START, 1)
	ticks(w, 2)
	w.MustWrite32(WDT_TAP, tapInvalid)
	w.MustWrite32(WDT_TAP, WDT_TAP_MAGIC)
	w.MustWrite32(WDT_ENABLE, 0)
	w.Reset()

	require.Equal(t, []Event{
		{Kind: EventEnable, Value: 1},
		{Kind: EventStart, Value: 2},
		{Kind: EventExpire, Value: 2},
		{Kind: EventTapIgnored, Value: tapInvalid},
		{Kind: EventTap, Value: 2},
		{Kind: EventDisable, Value: 0},
		{Kind: EventReset},
	}, got)
	require.Equal(t, 1, logs.FilterMessage("wdt expire").Len())
	require.Equal(t, len(got), logs.Len())
}

func TestWidth(t *testing.T) {
	require.True(t, Hword.Valid())
	require.False(t, Width(24).Valid())
	require.Equal(t, uint32(0x12345678), Width(24).Truncate(0x12345678))
	require.Equal(t, "16 bit", Hword.String())
	require.Equal(t, "Tap Register", RegisterToFunction(WDT_TAP))
	require.Equal(t, "Unmapped Register 0x9", RegisterToFunction(9))
}

func TestLookupRegister(t *testing.T) {
	for in, want := range map[string]uint32{
		"tap":       WDT_TAP,
		"Countdown": WDT_COUNTDOWN,
		"STATUS":    WDT_STATUS,
		"1":         WDT_START,
		"0x10":      0x10,
	} {
		a, err := LookupRegister(in)
		require.NoError(t, err, in)
		require.Equal(t, want, a, in)
	}
	for _, in := range []string{"", "watchdog", "0x100000000", "-1"} {
		_, err := LookupRegister(in)
		require.Error(t, err, in)
	}
}

func TestTicksMatchesTickLoop(t *testing.T) {
	setups := map[string]func(w *Wdt){
		"idle": func(w *Wdt) {},
		"armed": func(w *Wdt) {
			w.MustWrite32(WDT_COUNTDOWN, 37)
			w.MustWrite32(WDT_START, 1)
		},
		"expired and restarted": func(w *Wdt) {
			w.MustWrite32(WDT_COUNTDOWN, 5)
			w.MustWrite32(WDT_START, 1)
			ticks(w, 5)
			w.MustWrite32(WDT_START, 1)
		},
		"tapped after expiry": func(w *Wdt) {
			w.MustWrite32(WDT_COUNTDOWN, 3)
			w.MustWrite32(WDT_START, 1)
			ticks(w, 4)
			w.MustWrite32(WDT_TAP, WDT_TAP_MAGIC)
		},
		"disabled": func(w *Wdt) {
			w.MustWrite32(WDT_COUNTDOWN, 20)
			w.MustWrite32(WDT_START, 1)
			w.MustWrite32(WDT_ENABLE, 0)
		},
	}
	for name, setup := range setups {
		for _, stages := range []int{0, 1, 3} {
			for _, n := range []int{0, 1, 2, 4, 5, 36, 37, 38, 41, 100} {
				want := New(WithIrqSync(stages))
				got := New(WithIrqSync(stages))
				setup(want)
				setup(got)
				ticks(want, n)
				got.Ticks(uint64(n))
				require.Equal(t, want.State(), got.State(), "%s, %d stages, %d ticks", name, stages, n)
			}
		}
	}
}

func TestTicksHugeBatch(t *testing.T) {
	w := New(WithIrqSync(3))
	w.MustWrite32(WDT_COUNTDOWN, 0xffffffff)
	w.MustWrite32(WDT_START, 1)

	w.Ticks(1000)
	require.Equal(t, uint32(0xffffffff-1000), w.State().Counter)
	require.False(t, w.IsInterruptAsserted())

	w.Ticks(1 << 40)
	require.True(t, w.IsInterruptAsserted())
	require.Equal(t, uint32(0), w.State().Counter)
	require.Equal(t, Expired, w.State().Phase)
}

func TestTicksEmitsOneExpiry(t *testing.T) {
	var expiries int
	w := New(WithEventHandler(func(e Event) {
		if e.Kind == EventExpire {
			expiries++
		}
	}))
	w.MustWrite32(WDT_COUNTDOWN, 10)
	w.MustWrite32(WDT_START, 1)
	w.Ticks(1 << 40)
	require.Equal(t, 1, expiries)
}
