// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grpc

import (
	"context"
	"log"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/u-root/u-wdt/config"
	"github.com/u-root/u-wdt/pkg/driver"
	"github.com/u-root/u-wdt/pkg/hardware/wdt"
	"github.com/u-root/u-wdt/pkg/sim"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	addr = ""
	s    = sim.New()
)

func Server() {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		log.Fatalf("net.Listen: %v", err)
	}
	addr = l.Addr().String()
	log.Printf("Listening on %s", addr)
	g := NewServer(s, &config.Version{Version: "test", GitHash: "cafe"}, zap.NewNop())
	go g.Serve(l)
}

func NewTestClient(t *testing.T) *Client {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := Dial(ctx, addr, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestMain(m *testing.M) {
	Server()
	os.Exit(m.Run())
}

// The tests share one simulator, so each starts from a reset.
func reset(t *testing.T, c *Client) {
	require.NoError(t, c.Reset(context.Background()))
}

func TestTimeoutOverRPC(t *testing.T) {
	ctx := context.Background()
	c := NewTestClient(t)
	reset(t, c)

	require.NoError(t, c.Write(ctx, wdt.WDT_COUNTDOWN, wdt.Word, 10))
	require.NoError(t, c.Write(ctx, wdt.WDT_START, wdt.Word, 1))
	v, err := c.Read(ctx, wdt.WDT_COUNTDOWN, wdt.Hword)
	require.NoError(t, err)
	require.Equal(t, uint32(10), v)

	before := s.Cycles()
	total, err := c.ClockCycles(ctx, 9)
	require.NoError(t, err)
	require.Equal(t, before+9, total)
	irq, err := c.Interrupt(ctx)
	require.NoError(t, err)
	require.False(t, irq)

	_, err = c.ClockCycles(ctx, 1)
	require.NoError(t, err)
	irq, err = c.Interrupt(ctx)
	require.NoError(t, err)
	require.True(t, irq)

	st, cycles, err := c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, wdt.State{
		Countdown: 10, Enabled: true, Started: true, Latched: true, Line: true, Phase: wdt.Expired,
	}, st)
	require.Equal(t, s.Cycles(), cycles)

	require.NoError(t, c.Write(ctx, wdt.WDT_TAP, wdt.Hword, 0xABCD))
	irq, err = c.Interrupt(ctx)
	require.NoError(t, err)
	require.False(t, irq)
}

func TestDriverOverRPC(t *testing.T) {
	c := NewTestClient(t)
	reset(t, c)

	w := driver.Open(c)
	w.Arm(5)
	require.Equal(t, uint32(5), w.Countdown())
	require.Equal(t, driver.Status{Enabled: true, Started: true, Counting: true}, w.Status())

	s.ClockCycles(5)
	require.True(t, w.Status().Pending)
	w.Tap()
	require.False(t, w.Status().Pending)
	require.Equal(t, uint8(5), c.MustRead8(wdt.WDT_COUNTDOWN))
}

func TestInvalidArguments(t *testing.T) {
	ctx := context.Background()
	c := NewTestClient(t)
	reset(t, c)

	err := c.Write(ctx, wdt.WDT_COUNTDOWN, wdt.Width(12), 1)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.Read(ctx, wdt.WDT_COUNTDOWN, wdt.Width(0))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	for _, in := range []*structpb.Struct{
		{Fields: map[string]*structpb.Value{"width": structpb.NewNumberValue(32)}},
		{Fields: map[string]*structpb.Value{
			"address": structpb.NewNumberValue(-1),
			"width":   structpb.NewNumberValue(32),
		}},
		{Fields: map[string]*structpb.Value{
			"address": structpb.NewStringValue("countdown"),
			"width":   structpb.NewNumberValue(32),
		}},
		{Fields: map[string]*structpb.Value{
			"address": structpb.NewNumberValue(2.5),
			"width":   structpb.NewNumberValue(32),
		}},
	} {
		err := c.invoke(ctx, "ReadRegister", in, &emptypb.Empty{})
		require.Equal(t, codes.InvalidArgument, status.Code(err), in.String())
	}

	// A write without a value is rejected and leaves the register alone.
	err = c.invoke(ctx, "WriteRegister", accessRequest(wdt.WDT_COUNTDOWN, wdt.Word), &emptypb.Empty{})
	require.Equal(t, codes.InvalidArgument, status.Code(err))
	require.Equal(t, uint32(0), c.MustRead32(wdt.WDT_COUNTDOWN))
}

func TestUnknownMethod(t *testing.T) {
	c := NewTestClient(t)
	err := c.conn.Invoke(context.Background(), "/wdt.RegisterService/Explode", &emptypb.Empty{}, &emptypb.Empty{})
	require.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestDialGivesUp(t *testing.T) {
	l, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	dead := l.Addr().String()
	l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err = Dial(ctx, dead, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestNewClientWithoutDial(t *testing.T) {
	conn, err := grpc.Dial(addr, grpc.WithInsecure())
	require.NoError(t, err)
	c := NewClient(conn, zaptest.NewLogger(t))
	defer c.Close()
	_, err = c.Interrupt(context.Background())
	require.NoError(t, err)
}
