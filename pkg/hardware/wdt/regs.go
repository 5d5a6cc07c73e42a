// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wdt

import (
	"fmt"
	"strconv"
	"strings"
)

// Register offsets. The register file is word addressed.
const (
	WDT_ENABLE    uint32 = 0
	WDT_START     uint32 = 1
	WDT_COUNTDOWN uint32 = 2
	WDT_TAP       uint32 = 3
	WDT_STATUS    uint32 = 4

	// This is a static number that acts as a password to prevent
	// accidental writes from silencing the watchdog.
	// The tap register only reloads the countdown when this exact value is
	// written, any other value is ignored.
	WDT_TAP_MAGIC uint32 = 0xABCD
)

// Status register bits.
const (
	STATUS_ENABLED uint32 = 1 << iota
	STATUS_STARTED
	STATUS_COUNTING
	STATUS_PENDING
)

var (
	wdtRegs = map[uint32]string{
		WDT_ENABLE:    "Enable Register",
		WDT_START:     "Start Register",
		WDT_COUNTDOWN: "Countdown Register",
		WDT_TAP:       "Tap Register",
		WDT_STATUS:    "Status Register",
	}
	wdtRegNames = map[string]uint32{
		"enable":    WDT_ENABLE,
		"start":     WDT_START,
		"countdown": WDT_COUNTDOWN,
		"tap":       WDT_TAP,
		"status":    WDT_STATUS,
	}
)

// Width is the size in bits of a single register access.
type Width uint8

const (
	Byte  Width = 8
	Hword Width = 16
	Word  Width = 32
)

func (w Width) String() string {
	switch w {
	case Byte:
		return "8 bit"
	case Hword:
		return "16 bit"
	case Word:
		return "32 bit"
	}
	return fmt.Sprintf("%d bit", uint8(w))
}

// Valid reports whether w is one of the supported access widths.
func (w Width) Valid() bool {
	return w == Byte || w == Hword || w == Word
}

// mask returns the bits covered by an access of width w.
// Anything that is not a byte or half word access is treated as a full word.
func (w Width) mask() uint32 {
	switch w {
	case Byte:
		return 0xff
	case Hword:
		return 0xffff
	}
	return 0xffffffff
}

// Truncate zero-extends the low w bits of v.
func (w Width) Truncate(v uint32) uint32 {
	return v & w.mask()
}

// RegisterToFunction returns a human readable register name for addr.
func RegisterToFunction(addr uint32) string {
	if n, ok := wdtRegs[addr]; ok {
		return n
	}
	return fmt.Sprintf("Unmapped Register %#x", addr)
}

// LookupRegister resolves a short register name such as "tap" or a numeric
// word offset in any base strconv understands.
func LookupRegister(s string) (uint32, error) {
	if a, ok := wdtRegNames[strings.ToLower(s)]; ok {
		return a, nil
	}
	a, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown register %q", s)
	}
	return uint32(a), nil
}
