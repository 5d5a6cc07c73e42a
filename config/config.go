// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Set at link time with -X.
var (
	gitVersion = "dev"
	gitHash    = ""
)

type Version struct {
	Version string
	GitHash string
}

type Config struct {
	// ClockPeriod is the simulated watchdog clock period.
	ClockPeriod time.Duration `yaml:"clock_period"`
	// SyncInterval is how often the free running clock catches up with
	// wall time.
	SyncInterval time.Duration `yaml:"sync_interval"`
	// IrqSyncStages is the depth of the interrupt output synchronizer,
	// zero for a combinational line.
	IrqSyncStages int `yaml:"irq_sync_stages"`

	GrpcAddress    string `yaml:"grpc_address"`
	MetricsAddress string `yaml:"metrics_address"`

	LogFile   string `yaml:"log_file"`
	LogLevel  string `yaml:"log_level"`
	TraceFile string `yaml:"trace_file"`

	Version Version `yaml:"-"`
}

var DefaultConfig = &Config{
	// 10 MHz, the rate the register model was characterized at.
	ClockPeriod:   100 * time.Nanosecond,
	SyncInterval:  10 * time.Millisecond,
	IrqSyncStages: 0,

	GrpcAddress:    "localhost:9370",
	MetricsAddress: "localhost:9371",

	LogLevel: "info",

	Version: Version{
		Version: gitVersion,
		GitHash: gitHash,
	},
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path returns the defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	c := *DefaultConfig
	if path == "" {
		return &c, c.Validate()
	}
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %v", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parsing config %s: %v", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.ClockPeriod <= 0 {
		return fmt.Errorf("clock_period must be positive, got %v", c.ClockPeriod)
	}
	if c.SyncInterval < c.ClockPeriod {
		return fmt.Errorf("sync_interval %v is shorter than clock_period %v", c.SyncInterval, c.ClockPeriod)
	}
	if c.IrqSyncStages < 0 {
		return fmt.Errorf("irq_sync_stages must not be negative, got %d", c.IrqSyncStages)
	}
	if c.GrpcAddress == "" {
		return fmt.Errorf("grpc_address must be set")
	}
	return nil
}
