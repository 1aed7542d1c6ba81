// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"context"
	"testing"
	"time"
)

var (
	pointSchema = MustSchema("Point", Int32("x"), Int32("y"))
	sumSchema   = MustSchema("Sum", Int64("sum"))
	byteSchema  = MustSchema("Byte", Uint8("b"))
	connSchema  = MustSchema("Conn", String("id", 27), String("remote", 64))
)

func echoList(list *List, _ Args) (any, error) { return list, nil }

func addPoint(rec *Record, _ Args) (any, error) {
	x, err := Value[int32](rec, "x")
	if err != nil {
		return nil, err
	}
	y, err := Value[int32](rec, "y")
	if err != nil {
		return nil, err
	}
	out := sumSchema.New()
	return out, out.Set("sum", int64(x)+int64(y))
}

func newPoint(t testing.TB, x, y int32) *Record {
	t.Helper()
	rec := pointSchema.New()
	if err := rec.Set("x", x); err != nil {
		t.Fatalf("Set x: %v", err)
	}
	if err := rec.Set("y", y); err != nil {
		t.Fatalf("Set y: %v", err)
	}
	return rec
}

// startServer listens on a loopback port, lets register add handlers and
// serves until the test ends.
func startServer(t testing.TB, register func(Server), opts ...ServerOption) Server {
	t.Helper()
	server, err := Listen("127.0.0.1:0", opts...)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if register != nil {
		register(server)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		server.Close()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Errorf("server did not stop")
		}
	})
	return server
}

func dial(t testing.TB, addr string, opts ...DialOption) Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := Dial(ctx, addr, opts...)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}
