// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trace

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/u-root/u-wdt/pkg/hardware/wdt"
)

// record is the on-disk layout of an Op, little endian, 24 bytes.
type record struct {
	Cycle   uint64
	Kind    uint8
	Width   uint8
	_       uint16
	Address uint32
	Value   uint64
}

type BinaryLog struct {
	m   sync.Mutex
	w   io.Writer
	err error
}

func NewBinaryLog(w io.Writer) *BinaryLog {
	return &BinaryLog{w: w}
}

// Log appends op to the log. The first write error sticks and is returned
// by Err, later ops are dropped.
func (l *BinaryLog) Log(op Op) {
	l.m.Lock()
	defer l.m.Unlock()
	if l.err != nil {
		return
	}
	r := record{
		Cycle:   op.Cycle,
		Kind:    uint8(op.Kind),
		Width:   uint8(op.Width),
		Address: op.Address,
		Value:   op.Value,
	}
	if err := binary.Write(l.w, binary.LittleEndian, &r); err != nil {
		l.err = fmt.Errorf("binary.Write failed: %v", err)
	}
}

func (l *BinaryLog) Err() error {
	l.m.Lock()
	defer l.m.Unlock()
	return l.err
}

// Close closes the underlying writer if it is an io.Closer.
func (l *BinaryLog) Close() error {
	if c, ok := l.w.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return l.Err()
}

type Playback struct {
	r io.Reader
}

func NewPlayback(r io.Reader) *Playback {
	return &Playback{r}
}

// Next returns the next recorded op, or nil at the end of the log.
func (p *Playback) Next() (*Op, error) {
	var r record
	err := binary.Read(p.r, binary.LittleEndian, &r)
	if err == io.EOF {
		return nil, nil
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("truncated trace record: %v", err)
	}
	if err != nil {
		return nil, fmt.Errorf("binary.Read failed: %v", err)
	}
	return &Op{
		Cycle:   r.Cycle,
		Kind:    Kind(r.Kind),
		Width:   wdt.Width(r.Width),
		Address: r.Address,
		Value:   r.Value,
	}, nil
}

// Replay applies every op read from r to t, in order.
// Reads are re-issued and must return the recorded value.
// It returns the number of ops applied.
func Replay(r io.Reader, t Target) (int, error) {
	p := NewPlayback(r)
	n := 0
	for {
		op, err := p.Next()
		if err != nil {
			return n, err
		}
		if op == nil {
			return n, nil
		}
		switch op.Kind {
		case Write:
			t.Write(op.Address, op.Width, uint32(op.Value))
		case Read:
			if v := t.Read(op.Address, op.Width); uint64(v) != op.Value {
				return n, MismatchError{Op: *op, Got: v}
			}
		case Tick:
			t.ClockCycles(op.Value)
		case Reset:
			t.Reset()
		default:
			return n, fmt.Errorf("unknown op kind %d at cycle %d", op.Kind, op.Cycle)
		}
		n++
	}
}
