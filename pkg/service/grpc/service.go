// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "wdt.RegisterService"

// RegisterServiceServer is the server API for the watchdog register service.
// All messages are protobuf well-known types.
type RegisterServiceServer interface {
	// WriteRegister takes {address, width, value}.
	WriteRegister(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	// ReadRegister takes {address, width}.
	ReadRegister(context.Context, *structpb.Struct) (*wrapperspb.UInt32Value, error)
	// ClockCycles advances the clock and returns the total cycle count.
	ClockCycles(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.UInt64Value, error)
	Reset(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	GetInterrupt(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error)
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

func fullMethod(m string) string {
	return "/" + serviceName + "/" + m
}

// unaryHandler adapts a typed method to the handler signature grpc expects.
func unaryHandler(method string, newIn func() proto.Message, call func(RegisterServiceServer, context.Context, proto.Message) (interface{}, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := newIn()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RegisterServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(method),
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(RegisterServiceServer), ctx, req.(proto.Message))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func newStruct() proto.Message { return &structpb.Struct{} }
func newEmpty() proto.Message  { return &emptypb.Empty{} }
func newUInt64() proto.Message { return &wrapperspb.UInt64Value{} }

var registerServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RegisterServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "WriteRegister",
			Handler: unaryHandler("WriteRegister", newStruct, func(s RegisterServiceServer, ctx context.Context, in proto.Message) (interface{}, error) {
				return s.WriteRegister(ctx, in.(*structpb.Struct))
			}),
		},
		{
			MethodName: "ReadRegister",
			Handler: unaryHandler("ReadRegister", newStruct, func(s RegisterServiceServer, ctx context.Context, in proto.Message) (interface{}, error) {
				return s.ReadRegister(ctx, in.(*structpb.Struct))
			}),
		},
		{
			MethodName: "ClockCycles",
			Handler: unaryHandler("ClockCycles", newUInt64, func(s RegisterServiceServer, ctx context.Context, in proto.Message) (interface{}, error) {
				return s.ClockCycles(ctx, in.(*wrapperspb.UInt64Value))
			}),
		},
		{
			MethodName: "Reset",
			Handler: unaryHandler("Reset", newEmpty, func(s RegisterServiceServer, ctx context.Context, in proto.Message) (interface{}, error) {
				return s.Reset(ctx, in.(*emptypb.Empty))
			}),
		},
		{
			MethodName: "GetInterrupt",
			Handler: unaryHandler("GetInterrupt", newEmpty, func(s RegisterServiceServer, ctx context.Context, in proto.Message) (interface{}, error) {
				return s.GetInterrupt(ctx, in.(*emptypb.Empty))
			}),
		},
		{
			MethodName: "GetStatus",
			Handler: unaryHandler("GetStatus", newEmpty, func(s RegisterServiceServer, ctx context.Context, in proto.Message) (interface{}, error) {
				return s.GetStatus(ctx, in.(*emptypb.Empty))
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wdt.proto",
}

func RegisterRegisterServiceServer(s *grpc.Server, srv RegisterServiceServer) {
	s.RegisterService(&registerServiceDesc, srv)
}
