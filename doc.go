// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wire maps fixed-layout binary messages onto named fields and
// routes them to handlers by integer message code.
//
// # Schemas and records
//
// A Schema is an ordered list of fields, each with a Format (fixed-width
// little-endian integers, IEEE floats, a one-byte bool, an 8-byte Unix
// timestamp or a NUL-padded fixed-length string). Fields are packed one
// after the other unless an explicit offset is given with Field.At:
//
//	var Order = wire.MustSchema("Order",
//	    wire.Uint32("id"),
//	    wire.String("symbol", 8),
//	    wire.Int64("qty"),
//	    wire.Float64("price"),
//	    wire.Timestamp("placed"),
//	)
//
// Record is a live view over a byte buffer: Get decodes a field from the
// buffer on every call and Set encodes into it, so the buffer is always the
// record's serialized form. List views a buffer holding back-to-back
// records of one schema:
//
//	rec, err := Order.View(payload)
//	qty, err := wire.Value[int64](rec, "qty")
//	err = rec.Set("price", 101.25)
//
// Marshal and Unmarshal copy between a record and a Go struct, matching
// fields by the `wire` tag or, without a tag, by name.
//
// # Dispatching
//
// Handlers declare their input shape (one record or a list of records) and
// the names of the extra parameters they want:
//
//	d := wire.NewDispatcher()
//	d.Register(10, wire.OnRecord(Order, func(rec *wire.Record, args wire.Args) (any, error) {
//	    return rec, nil
//	}, "session"))
//
//	out, err := d.Invoke(10, payload, map[string]any{"session": s})
//
// AsyncDispatcher does the same with a context.Context that reaches handlers
// built with OnRecordContext and OnListContext, and can run a call on its own
// goroutine with Go.
//
// # Transports
//
// ZAP, a length-prefixed binary framing over TCP, is the default transport.
// JSON-RPC 2.0 over HTTP is always available; gRPC needs a build tag:
//
//	go build              # ZAP and JSON-RPC
//	go build -tags grpc   # Enable gRPC transport
//
// Server usage:
//
//	server, err := wire.Listen(":9000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	server.Register(10, wire.OnRecord(Order, handleOrder, wire.ParamConnID))
//	server.Serve(ctx)
//
// Client usage:
//
//	client, err := wire.Dial(ctx, "localhost:9000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	resp, err := client.CallRaw(ctx, 10, orderBytes)
//
// # Errors
//
// Every failure from this package is an *Error whose Kind can be tested
// with errors.Is against ErrUnknownCode, ErrMalformedPayload and the other
// sentinels. Transports carry the Kind to the client in a *RemoteError, so
// the same checks work on the far side of a connection.
//
// # Concurrency
//
// Records and lists are not synchronized. Dispatcher registration is not
// synchronized either: register every handler before serving.
package wire
