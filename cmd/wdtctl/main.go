// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// wdtctl pokes the registers of a running wdtsim and replays bus traces.
package main

func main() {
	Execute()
}
