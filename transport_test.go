// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"context"
	"slices"
	"strings"
	"testing"
)

func TestAvailableTransports(t *testing.T) {
	got := AvailableTransports()
	for _, name := range []string{TransportZAP, TransportJSON} {
		if !slices.Contains(got, name) || !HasTransport(name) {
			t.Errorf("transport %q not registered: %v", name, got)
		}
	}
	if !slices.IsSorted(got) {
		t.Errorf("AvailableTransports not sorted: %v", got)
	}
	if HasTransport("carrier-pigeon") {
		t.Error("unexpected transport")
	}
}

func TestUnknownTransport(t *testing.T) {
	if _, err := Dial(context.Background(), "127.0.0.1:1", WithTransport("carrier-pigeon")); err == nil ||
		!strings.Contains(err.Error(), "unknown transport") {
		t.Errorf("Dial: got %v", err)
	}
	if _, err := Listen("127.0.0.1:0", WithServerTransport("carrier-pigeon")); err == nil ||
		!strings.Contains(err.Error(), "unknown transport") {
		t.Errorf("Listen: got %v", err)
	}
}

func TestListenSharedDispatcher(t *testing.T) {
	d := NewAsyncDispatcher()
	d.Register(1, OnList(byteSchema, echoList))

	server := startServer(t, nil, WithDispatcher(d))
	if server.Dispatcher() != d {
		t.Fatal("server does not serve the given dispatcher")
	}

	client := dial(t, server.Addr(), WithCodec(JSONCodec{}), WithMaxFrameSize(1<<20))
	resp, err := client.CallRaw(context.Background(), 1, []byte{1, 2})
	if err != nil {
		t.Fatalf("CallRaw: %v", err)
	}
	if len(resp) != 2 {
		t.Errorf("got %v", resp)
	}
}

func TestDialFailure(t *testing.T) {
	server, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := server.Addr()
	server.Close()

	if _, err := Dial(context.Background(), addr); err == nil {
		t.Error("Dial to a closed listener succeeded")
	}
}
