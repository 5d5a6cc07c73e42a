// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wdt

type EventKind int

const (
	EventEnable EventKind = iota
	EventDisable
	EventStart
	EventTap
	EventTapIgnored
	EventExpire
	EventReset
)

var eventNames = map[EventKind]string{
	EventEnable:     "enable",
	EventDisable:    "disable",
	EventStart:      "start",
	EventTap:        "tap",
	EventTapIgnored: "tap ignored",
	EventExpire:     "expire",
	EventReset:      "reset",
}

func (k EventKind) String() string {
	if n, ok := eventNames[k]; ok {
		return n
	}
	return "unknown"
}

// Event describes a state change inside the watchdog.
// Value carries the written value for register driven events
// and the reloaded countdown for start and tap.
type Event struct {
	Kind  EventKind
	Value uint32
}

// Phase is the coarse state of the watchdog.
type Phase int

const (
	Idle Phase = iota
	Armed
	Expired
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Expired:
		return "expired"
	}
	return "unknown"
}

// State is a snapshot of the watchdog internals.
type State struct {
	Countdown uint32
	Counter   uint32
	Enabled   bool
	Started   bool
	Latched   bool
	Line      bool
	Phase     Phase
}

// StatusWord packs s the way the status register reports it.
func (s State) StatusWord() uint32 {
	var v uint32
	if s.Enabled {
		v |= STATUS_ENABLED
	}
	if s.Started {
		v |= STATUS_STARTED
	}
	if s.Counter != 0 {
		v |= STATUS_COUNTING
	}
	if s.Latched {
		v |= STATUS_PENDING
	}
	return v
}
