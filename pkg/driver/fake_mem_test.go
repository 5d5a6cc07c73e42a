// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package driver

import (
	"fmt"
	"testing"
)

type op struct {
	write   bool
	address uint32
	data    uint32
	size    int
}

// fakeMem checks that exactly the expected bus operations happen, in order.
type fakeMem struct {
	t      *testing.T
	ops    []op
	closed bool
}

func opstr(o *op) string {
	t := "read"
	if o.write {
		t = "write"
	}
	return fmt.Sprintf("{%s @ %02x, %v bit = %08x}", t, o.address, o.size, o.data)
}

func (m *fakeMem) next(write bool, a uint32, d uint32, size int) op {
	m.t.Helper()
	if len(m.ops) == 0 {
		m.t.Fatalf("Unexpected %d bit access on %02x", size, a)
	}
	o := m.ops[0]
	m.ops = m.ops[1:]
	if o.write != write || o.address != a || o.size != size || (write && o.data != d) {
		got := op{write, a, d, size}
		m.t.Errorf("Expected %s, got %s", opstr(&o), opstr(&got))
	}
	return o
}

func (m *fakeMem) MustRead32(a uint32) uint32 {
	return m.next(false, a, 0, 32).data
}

func (m *fakeMem) MustRead16(a uint32) uint16 {
	return uint16(m.next(false, a, 0, 16).data)
}

func (m *fakeMem) MustRead8(a uint32) uint8 {
	return uint8(m.next(false, a, 0, 8).data)
}

func (m *fakeMem) MustWrite32(a uint32, d uint32) {
	m.next(true, a, d, 32)
}

func (m *fakeMem) MustWrite16(a uint32, d uint16) {
	m.next(true, a, uint32(d), 16)
}

func (m *fakeMem) MustWrite8(a uint32, d uint8) {
	m.next(true, a, uint32(d), 8)
}

func (m *fakeMem) ExpectWrite32(a uint32, d uint32) {
	m.ops = append(m.ops, op{true, a, d, 32})
}

func (m *fakeMem) FakeRead32(a uint32, d uint32) {
	m.ops = append(m.ops, op{false, a, d, 32})
}

func (m *fakeMem) Close() {
	m.closed = true
}

// Done fails the test if expected operations were never issued.
func (m *fakeMem) Done() {
	m.t.Helper()
	for i := range m.ops {
		m.t.Errorf("Expected %s, never happened", opstr(&m.ops[i]))
	}
}

func fakeMemory(t *testing.T) *fakeMem {
	return &fakeMem{t: t}
}
