// Copyright 2025 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"github.com/u-root/u-wdt/pkg/hardware/wdt"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// DefaultTimeout bounds every RPC issued by the Must accessors.
const DefaultTimeout = 5 * time.Second

// Client talks to a remote watchdog simulator. Besides the RPCs it offers
// the Must accessors of a memory provider, so a driver can run against a
// simulator in another process.
type Client struct {
	conn *grpc.ClientConn
	log  *zap.Logger
}

func NewClient(conn *grpc.ClientConn, log *zap.Logger) *Client {
	return &Client{conn, log}
}

// Dial connects to target, retrying with exponential backoff until a
// connection is up or ctx is done.
func Dial(ctx context.Context, target string, log *zap.Logger) (*Client, error) {
	b := &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
	}
	for {
		dctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		conn, err := grpc.DialContext(dctx, target, grpc.WithInsecure(), grpc.WithBlock())
		cancel()
		if err == nil {
			return NewClient(conn, log), nil
		}
		d := b.Duration()
		log.Warn("Unable to reach watchdog simulator",
			zap.String("target", target), zap.Error(err), zap.Duration("retry_in", d))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("dial %s: %v", target, ctx.Err())
		case <-time.After(d):
		}
	}
}

func (c *Client) invoke(ctx context.Context, method string, in, out interface{}) error {
	return c.conn.Invoke(ctx, fullMethod(method), in, out)
}

func (c *Client) Write(ctx context.Context, addr uint32, w wdt.Width, v uint32) error {
	return c.invoke(ctx, "WriteRegister", writeRequest(addr, w, v), &emptypb.Empty{})
}

func (c *Client) Read(ctx context.Context, addr uint32, w wdt.Width) (uint32, error) {
	out := &wrapperspb.UInt32Value{}
	if err := c.invoke(ctx, "ReadRegister", accessRequest(addr, w), out); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

// ClockCycles advances the remote clock by n edges and returns the total
// number of edges evaluated so far.
func (c *Client) ClockCycles(ctx context.Context, n uint64) (uint64, error) {
	out := &wrapperspb.UInt64Value{}
	if err := c.invoke(ctx, "ClockCycles", wrapperspb.UInt64(n), out); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

func (c *Client) Reset(ctx context.Context) error {
	return c.invoke(ctx, "Reset", &emptypb.Empty{}, &emptypb.Empty{})
}

func (c *Client) Interrupt(ctx context.Context) (bool, error) {
	out := &wrapperspb.BoolValue{}
	if err := c.invoke(ctx, "GetInterrupt", &emptypb.Empty{}, out); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

// Status returns the remote watchdog state and its cycle count.
func (c *Client) Status(ctx context.Context) (wdt.State, uint64, error) {
	out := &structpb.Struct{}
	if err := c.invoke(ctx, "GetStatus", &emptypb.Empty{}, out); err != nil {
		return wdt.State{}, 0, err
	}
	return stateFromStruct(out)
}

func (c *Client) mustWrite(addr uint32, w wdt.Width, v uint32) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	if err := c.Write(ctx, addr, w, v); err != nil {
		c.log.Panic("Register write failed",
			zap.String("register", wdt.RegisterToFunction(addr)), zap.Stringer("width", w), zap.Error(err))
	}
}

func (c *Client) mustRead(addr uint32, w wdt.Width) uint32 {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	v, err := c.Read(ctx, addr, w)
	if err != nil {
		c.log.Panic("Register read failed",
			zap.String("register", wdt.RegisterToFunction(addr)), zap.Stringer("width", w), zap.Error(err))
	}
	return v
}

func (c *Client) MustWrite8(addr uint32, d uint8)   { c.mustWrite(addr, wdt.Byte, uint32(d)) }
func (c *Client) MustWrite16(addr uint32, d uint16) { c.mustWrite(addr, wdt.Hword, uint32(d)) }
func (c *Client) MustWrite32(addr uint32, d uint32) { c.mustWrite(addr, wdt.Word, d) }
func (c *Client) MustRead8(addr uint32) uint8       { return uint8(c.mustRead(addr, wdt.Byte)) }
func (c *Client) MustRead16(addr uint32) uint16     { return uint16(c.mustRead(addr, wdt.Hword)) }
func (c *Client) MustRead32(addr uint32) uint32     { return c.mustRead(addr, wdt.Word) }

// Close tears down the connection.
func (c *Client) Close() {
	if err := c.conn.Close(); err != nil {
		c.log.Warn("Closing connection", zap.Error(err))
	}
}
