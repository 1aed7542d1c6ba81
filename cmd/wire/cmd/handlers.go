// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"time"

	"github.com/luxfi/wire"
)

// Message codes of the handlers every `wire serve` instance answers.
const (
	CodePing int32 = 1
	CodeEcho int32 = 2
)

var (
	// PingSchema is the request of CodePing.
	PingSchema = wire.MustSchema("Ping",
		wire.Uint32("seq"),
		wire.Timestamp("sent"),
	)

	// PongSchema is the reply to a ping. conn holds the ZAP connection id,
	// which is empty on transports without one.
	PongSchema = wire.MustSchema("Pong",
		wire.Uint32("seq"),
		wire.Timestamp("sent"),
		wire.Timestamp("received"),
		wire.String("conn", 27),
	)

	// ByteSchema makes any payload a list of single-byte records, so
	// CodeEcho accepts arbitrary bytes.
	ByteSchema = wire.MustSchema("Byte", wire.Uint8("b"))
)

type registrar interface {
	Register(code int32, h *wire.Handler)
}

func registerBuiltins(r registrar, now func() time.Time) {
	r.Register(CodePing, wire.OnRecord(PingSchema, func(rec *wire.Record, args wire.Args) (any, error) {
		return pong(rec, args, now())
	}, wire.ParamConnID))

	r.Register(CodeEcho, wire.OnList(ByteSchema, func(list *wire.List, _ wire.Args) (any, error) {
		return list, nil
	}))
}

func pong(ping *wire.Record, args wire.Args, received time.Time) (*wire.Record, error) {
	seq, err := wire.Value[uint32](ping, "seq")
	if err != nil {
		return nil, err
	}
	sent, err := wire.Value[time.Time](ping, "sent")
	if err != nil {
		return nil, err
	}

	out := PongSchema.New()
	if err := out.Set("seq", seq); err != nil {
		return nil, err
	}
	if err := out.Set("sent", sent); err != nil {
		return nil, err
	}
	if err := out.Set("received", received); err != nil {
		return nil, err
	}
	if conn, ok := wire.Arg[string](args, wire.ParamConnID); ok {
		if err := out.Set("conn", conn); err != nil {
			return nil, err
		}
	}
	return out, nil
}
