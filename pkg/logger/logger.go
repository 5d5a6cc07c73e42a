// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	LogContainer     = logContainer{level: zap.NewAtomicLevelAt(zapcore.InfoLevel)}
	loggerInit       sync.Once
	simpleLoggerInit sync.Once
)

type logContainer struct {
	logger       *zap.Logger
	simpleLogger *zap.SugaredLogger

	level zap.AtomicLevel
	file  string
	err   error
}

// Configure sets the log level and the optional JSON log file. The level
// can be changed at any time, the file is only picked up if Configure runs
// before the first logger is handed out.
func (l *logContainer) Configure(level, file string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %v", level, err)
	}
	l.level.SetLevel(lvl)
	l.file = file
	return nil
}

// Err returns the error from opening the log file, if any. Logging falls
// back to the console in that case.
func (l *logContainer) Err() error {
	return l.err
}

// GetLogger returns the pointer to the logger and creates one if none exists
func (l *logContainer) GetLogger() *zap.Logger {
	loggerInit.Do(func() {
		l.logger = zap.New(l.getCombinedCore())
	})
	return l.logger
}

// GetSimpleLogger returns the pointer to the sugared logger and creates one
// if none exists
func (l *logContainer) GetSimpleLogger() *zap.SugaredLogger {
	simpleLoggerInit.Do(func() {
		l.simpleLogger = l.GetLogger().Sugar()
	})
	return l.simpleLogger
}

func getConsoleEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func getJsonEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.EpochTimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

func (l *logContainer) getLogWriter() (zapcore.WriteSyncer, error) {
	f, err := os.OpenFile(l.file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("unable to open logfile: %v", err)
	}
	return zapcore.AddSync(f), nil
}

func (l *logContainer) getConsoleCore() zapcore.Core {
	return zapcore.NewCore(getConsoleEncoder(), zapcore.Lock(os.Stderr), l.level)
}

func (l *logContainer) getCombinedCore() zapcore.Core {
	if l.file == "" {
		return l.getConsoleCore()
	}
	w, err := l.getLogWriter()
	if err != nil {
		l.err = err
		return l.getConsoleCore()
	}
	return zapcore.NewTee(l.getConsoleCore(), zapcore.NewCore(getJsonEncoder(), w, l.level))
}
