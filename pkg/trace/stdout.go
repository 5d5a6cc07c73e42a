// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trace

import (
	"github.com/u-root/u-wdt/pkg/hardware/wdt"
	"go.uber.org/zap"
)

type StdoutLog struct {
	log *zap.SugaredLogger
}

func NewStdoutLog(log *zap.SugaredLogger) *StdoutLog {
	return &StdoutLog{log}
}

func (l *StdoutLog) Log(op Op) {
	switch op.Kind {
	case Write:
		l.log.Infof("[%10d] %-20s <- %08x (%v)", op.Cycle, wdt.RegisterToFunction(op.Address), op.Value, op.Width)
	case Read:
		l.log.Infof("[%10d] %-20s -> %08x (%v)", op.Cycle, wdt.RegisterToFunction(op.Address), op.Value, op.Width)
	case Tick:
		l.log.Debugf("[%10d] %d clock cycles", op.Cycle, op.Value)
	case Reset:
		l.log.Infof("[%10d] reset", op.Cycle)
	}
}
