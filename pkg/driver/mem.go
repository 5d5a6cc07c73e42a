// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package driver

// memProvider is anything that can carry bus accesses to the watchdog: the
// in-process simulator, a remote simulator over gRPC or a test fake.
type memProvider interface {
	MustRead32(uint32) uint32
	MustRead16(uint32) uint16
	MustRead8(uint32) uint8
	MustWrite32(uint32, uint32)
	MustWrite16(uint32, uint16)
	MustWrite8(uint32, uint8)
	Close()
}

func (w *Wdt) Mem() memProvider {
	return w.mem
}
