// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package grpc exposes a watchdog simulator as a register level gRPC
// service, and the client side of it.
package grpc

import (
	"context"
	"fmt"
	"math"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/u-root/u-wdt/config"
	"github.com/u-root/u-wdt/pkg/hardware/wdt"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type rpcSimulator interface {
	Write(uint32, wdt.Width, uint32)
	Read(uint32, wdt.Width) uint32
	ClockCycles(uint64)
	Cycles() uint64
	Reset()
	IsInterruptAsserted() bool
	State() wdt.State
}

type regServer struct {
	sim rpcSimulator
	v   *config.Version
	log *zap.Logger
}

func numberField(s *structpb.Struct, name string) (uint32, error) {
	f, ok := s.GetFields()[name]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "missing field %q", name)
	}
	n, ok := f.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "field %q is not a number", name)
	}
	v := n.NumberValue
	if v < 0 || v > math.MaxUint32 || v != math.Trunc(v) {
		return 0, status.Errorf(codes.InvalidArgument, "field %q out of range: %v", name, v)
	}
	return uint32(v), nil
}

func accessArgs(s *structpb.Struct) (uint32, wdt.Width, error) {
	addr, err := numberField(s, "address")
	if err != nil {
		return 0, 0, err
	}
	w, err := numberField(s, "width")
	if err != nil {
		return 0, 0, err
	}
	if !wdt.Width(w).Valid() {
		return 0, 0, status.Errorf(codes.InvalidArgument, "invalid access width %d", w)
	}
	return addr, wdt.Width(w), nil
}

func (r *regServer) WriteRegister(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	addr, w, err := accessArgs(in)
	if err != nil {
		return nil, err
	}
	v, err := numberField(in, "value")
	if err != nil {
		return nil, err
	}
	r.sim.Write(addr, w, v)
	return &emptypb.Empty{}, nil
}

func (r *regServer) ReadRegister(ctx context.Context, in *structpb.Struct) (*wrapperspb.UInt32Value, error) {
	addr, w, err := accessArgs(in)
	if err != nil {
		return nil, err
	}
	return wrapperspb.UInt32(r.sim.Read(addr, w)), nil
}

func (r *regServer) ClockCycles(ctx context.Context, in *wrapperspb.UInt64Value) (*wrapperspb.UInt64Value, error) {
	r.sim.ClockCycles(in.GetValue())
	return wrapperspb.UInt64(r.sim.Cycles()), nil
}

func (r *regServer) Reset(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	r.log.Info("Watchdog reset requested")
	r.sim.Reset()
	return &emptypb.Empty{}, nil
}

func (r *regServer) GetInterrupt(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	return wrapperspb.Bool(r.sim.IsInterruptAsserted()), nil
}

func (r *regServer) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s := r.sim.State()
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"countdown": structpb.NewNumberValue(float64(s.Countdown)),
		"counter":   structpb.NewNumberValue(float64(s.Counter)),
		"enabled":   structpb.NewBoolValue(s.Enabled),
		"started":   structpb.NewBoolValue(s.Started),
		"latched":   structpb.NewBoolValue(s.Latched),
		"line":      structpb.NewBoolValue(s.Line),
		"phase":     structpb.NewStringValue(s.Phase.String()),
		// Cycle counts stay below 2^53 for years of simulated time at 10 MHz.
		"cycles":   structpb.NewNumberValue(float64(r.sim.Cycles())),
		"version":  structpb.NewStringValue(r.v.Version),
		"git_hash": structpb.NewStringValue(r.v.GitHash),
	}}, nil
}

// NewServer returns a gRPC server exporting sim, instrumented with
// Prometheus metrics. The caller serves it on a listener of its choice.
func NewServer(sim rpcSimulator, v *config.Version, log *zap.Logger) *grpc.Server {
	g := grpc.NewServer(
		grpc.StreamInterceptor(grpc_prometheus.StreamServerInterceptor),
		grpc.UnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
	)
	RegisterRegisterServiceServer(g, &regServer{sim, v, log})
	grpc_prometheus.Register(g)
	return g
}

func accessRequest(addr uint32, w wdt.Width) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"address": structpb.NewNumberValue(float64(addr)),
		"width":   structpb.NewNumberValue(float64(w)),
	}}
}

func writeRequest(addr uint32, w wdt.Width, v uint32) *structpb.Struct {
	s := accessRequest(addr, w)
	s.Fields["value"] = structpb.NewNumberValue(float64(v))
	return s
}

func stateFromStruct(s *structpb.Struct) (wdt.State, uint64, error) {
	f := s.GetFields()
	st := wdt.State{
		Countdown: uint32(f["countdown"].GetNumberValue()),
		Counter:   uint32(f["counter"].GetNumberValue()),
		Enabled:   f["enabled"].GetBoolValue(),
		Started:   f["started"].GetBoolValue(),
		Latched:   f["latched"].GetBoolValue(),
		Line:      f["line"].GetBoolValue(),
	}
	p := f["phase"].GetStringValue()
	switch p {
	case wdt.Idle.String():
		st.Phase = wdt.Idle
	case wdt.Armed.String():
		st.Phase = wdt.Armed
	case wdt.Expired.String():
		st.Phase = wdt.Expired
	default:
		return st, 0, fmt.Errorf("unknown watchdog phase %q", p)
	}
	return st, uint64(f["cycles"].GetNumberValue()), nil
}
