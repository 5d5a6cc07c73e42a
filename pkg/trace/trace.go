// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trace records watchdog bus traffic and plays it back.
package trace

import (
	"fmt"

	"github.com/u-root/u-wdt/pkg/hardware/wdt"
)

type Kind uint8

const (
	Read Kind = iota + 1
	Write
	Tick
	Reset
)

func (k Kind) String() string {
	switch k {
	case Read:
		return "read"
	case Write:
		return "write"
	case Tick:
		return "tick"
	case Reset:
		return "reset"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Op is a single recorded bus operation.
// For Tick, Value holds the number of clock edges in the batch.
type Op struct {
	Cycle   uint64
	Kind    Kind
	Width   wdt.Width
	Address uint32
	Value   uint64
}

func (o Op) String() string {
	switch o.Kind {
	case Read, Write:
		return fmt.Sprintf("{%s @ %02x, %v = %08x}", o.Kind, o.Address, o.Width, o.Value)
	case Tick:
		return fmt.Sprintf("{tick x%d}", o.Value)
	}
	return fmt.Sprintf("{%s}", o.Kind)
}

type Tracer interface {
	Log(op Op)
}

type multi []Tracer

func (m multi) Log(op Op) {
	for _, t := range m {
		t.Log(op)
	}
}

// Multi returns a Tracer that logs every op to all of ts.
func Multi(ts ...Tracer) Tracer {
	return multi(ts)
}

// Target is anything a trace can be replayed against.
type Target interface {
	Write(addr uint32, w wdt.Width, v uint32)
	Read(addr uint32, w wdt.Width) uint32
	ClockCycles(n uint64)
	Reset()
}

// MismatchError reports a replayed read that returned something other than
// what was recorded.
type MismatchError struct {
	Op  Op
	Got uint32
}

func (e MismatchError) Error() string {
	return fmt.Sprintf("replay of %v at cycle %d read %08x", e.Op, e.Op.Cycle, e.Got)
}
