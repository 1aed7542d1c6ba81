// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Client sends coded binary messages to a Server. Transports implement it;
// application code should only depend on this interface.
type Client interface {
	// Call encodes args with the client codec, sends it under code and
	// decodes the reply into reply (skipped when reply is nil or the reply
	// is empty).
	Call(ctx context.Context, code int32, args, reply interface{}) error

	// CallRaw sends payload under code and returns the raw reply bytes.
	CallRaw(ctx context.Context, code int32, payload []byte) ([]byte, error)

	// Notify sends a one-way message (no response expected)
	Notify(ctx context.Context, code int32, args interface{}) error

	// Close closes the connection
	Close() error
}

// Server exposes an AsyncDispatcher over a transport.
type Server interface {
	// Register binds a handler to a message code (last registration wins).
	Register(code int32, h *Handler)

	// Dispatcher returns the dispatcher requests are routed to.
	Dispatcher() *AsyncDispatcher

	// Serve starts serving requests (blocks until context cancelled or Close)
	Serve(ctx context.Context) error

	// Close stops the server
	Close() error

	// Addr returns the server's listen address
	Addr() string
}

// Codec encodes/decodes message payloads
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte, v interface{}) error
}

// DefaultMaxFrameSize bounds a single frame on stream transports.
const DefaultMaxFrameSize = 64 * 1024 * 1024

// DefaultWriteTimeout bounds writing a response frame.
const DefaultWriteTimeout = 30 * time.Second

// DialOption configures client connections
type DialOption func(*dialOptions)

type dialOptions struct {
	codec        Codec
	transport    string // "zap", "grpc", "json"
	maxFrameSize int
	logger       *zap.Logger
}

func newDialOptions(opts []DialOption) *dialOptions {
	o := &dialOptions{
		codec:        Binary,
		transport:    DefaultTransport,
		maxFrameSize: DefaultMaxFrameSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}
	return o
}

// WithCodec sets a custom codec
func WithCodec(c Codec) DialOption {
	return func(o *dialOptions) { o.codec = c }
}

// WithTransport explicitly sets the transport type
func WithTransport(t string) DialOption {
	return func(o *dialOptions) { o.transport = t }
}

// WithMaxFrameSize limits the size of frames the client accepts.
func WithMaxFrameSize(n int) DialOption {
	return func(o *dialOptions) { o.maxFrameSize = n }
}

// WithDialLogger sets the client logger.
func WithDialLogger(l *zap.Logger) DialOption {
	return func(o *dialOptions) { o.logger = l }
}

// ServerOption configures servers
type ServerOption func(*serverOptions)

type serverOptions struct {
	transport    string
	dispatcher   *AsyncDispatcher
	maxFrameSize int
	writeTimeout time.Duration
	logger       *zap.Logger
	metrics      *Metrics
}

func newServerOptions(opts []ServerOption) *serverOptions {
	o := &serverOptions{
		transport:    DefaultTransport,
		maxFrameSize: DefaultMaxFrameSize,
		writeTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}
	if o.dispatcher == nil {
		o.dispatcher = NewAsyncDispatcher(WithLogger(o.logger), WithMetrics(o.metrics))
	}
	return o
}

// WithServerTransport explicitly sets the transport type for the server
func WithServerTransport(t string) ServerOption {
	return func(o *serverOptions) { o.transport = t }
}

// WithDispatcher serves an existing dispatcher instead of a new one.
func WithDispatcher(d *AsyncDispatcher) ServerOption {
	return func(o *serverOptions) { o.dispatcher = d }
}

// WithServerMaxFrameSize limits the size of request frames.
func WithServerMaxFrameSize(n int) ServerOption {
	return func(o *serverOptions) { o.maxFrameSize = n }
}

// WithWriteTimeout bounds writing each response.
func WithWriteTimeout(d time.Duration) ServerOption {
	return func(o *serverOptions) { o.writeTimeout = d }
}

// WithServerLogger sets the server logger.
func WithServerLogger(l *zap.Logger) ServerOption {
	return func(o *serverOptions) { o.logger = l }
}

// WithServerMetrics records dispatch metrics for the server's own
// dispatcher. It has no effect together with WithDispatcher.
func WithServerMetrics(m *Metrics) ServerOption {
	return func(o *serverOptions) { o.metrics = m }
}
