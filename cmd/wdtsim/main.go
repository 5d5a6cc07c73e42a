// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// wdtsim runs a free running watchdog simulator and exports its register
// interface over gRPC and its metrics over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/u-root/u-wdt/config"
	"github.com/u-root/u-wdt/pkg/logger"
	"github.com/u-root/u-wdt/pkg/network/web"
	"github.com/u-root/u-wdt/pkg/service/grpc"
	"github.com/u-root/u-wdt/pkg/sim"
	"github.com/u-root/u-wdt/pkg/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	configFile = flag.String("config", "", "YAML file overriding the built-in configuration")
	verbose    = flag.Bool("v", false, "Log every register access")
)

func main() {
	flag.Parse()

	c, err := config.Load(afero.NewOsFs(), *configFile)
	if err != nil {
		log.Fatalf("Loading configuration: %v", err)
	}
	if err := logger.LogContainer.Configure(c.LogLevel, c.LogFile); err != nil {
		log.Fatalf("Configuring logging: %v", err)
	}
	l := logger.LogContainer.GetLogger()
	defer l.Sync()
	if err := logger.LogContainer.Err(); err != nil {
		l.Warn("Logging to console only", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, afero.NewOsFs(), c, l); err != nil {
		l.Fatal("Simulator failed", zap.Error(err))
	}
}

func run(ctx context.Context, fs afero.Fs, c *config.Config, l *zap.Logger) error {
	l.Info("Starting watchdog simulator",
		zap.String("version", c.Version.Version), zap.String("git_hash", c.Version.GitHash))

	var tracers []trace.Tracer
	if *verbose {
		tracers = append(tracers, trace.NewStdoutLog(logger.LogContainer.GetSimpleLogger().Named("bus")))
	}
	if c.TraceFile != "" {
		f, err := fs.Create(c.TraceFile)
		if err != nil {
			return err
		}
		bl := trace.NewBinaryLog(f)
		defer func() {
			if err := bl.Close(); err != nil {
				l.Error("Writing trace", zap.String("file", c.TraceFile), zap.Error(err))
			}
		}()
		tracers = append(tracers, bl)
	}

	opts := []sim.Option{
		sim.WithLogger(l),
		sim.WithPeriod(c.ClockPeriod),
		sim.WithIrqSync(c.IrqSyncStages),
	}
	if len(tracers) > 0 {
		opts = append(opts, sim.WithTracer(trace.Multi(tracers...)))
	}
	s := sim.New(opts...)
	s.Reset()

	gl, err := net.Listen("tcp", c.GrpcAddress)
	if err != nil {
		return err
	}
	gs := grpc.NewServer(s, &c.Version, l.Named("grpc"))

	w := web.NewWebserver()
	w.HandleMetrics(prometheus.DefaultGatherer)
	if c.MetricsAddress != "" {
		if err := w.SetServer(c.MetricsAddress); err != nil {
			gl.Close()
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Run(ctx, c.SyncInterval)
	})
	g.Go(func() error {
		l.Info("Serving gRPC", zap.Stringer("address", gl.Addr()))
		return gs.Serve(gl)
	})
	if w.Listener != nil {
		g.Go(func() error {
			l.Info("Serving metrics", zap.Stringer("address", w.Listener.Addr()))
			return w.Serve()
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		gs.GracefulStop()
		if w.Listener != nil {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return w.Shutdown(sctx)
		}
		return nil
	})

	err = g.Wait()
	if err == context.Canceled {
		l.Info("Watchdog simulator stopped", zap.Uint64("cycles", s.Cycles()))
		return nil
	}
	return err
}
