// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
)

// Option configures a dispatcher.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	metrics *Metrics
}

// WithLogger sets the dispatcher logger. The package Logger is used
// otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics makes the dispatcher record Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// registry is the code→handler table shared by Dispatcher and
// AsyncDispatcher. It is not locked: register every handler before
// invoking from more than one goroutine.
type registry struct {
	handlers map[int32]*Handler
	opts     options
}

func newRegistry(opts []Option) registry {
	r := registry{handlers: make(map[int32]*Handler)}
	for _, opt := range opts {
		opt(&r.opts)
	}
	return r
}

func (r *registry) log() *zap.Logger {
	if r.opts.logger != nil {
		return r.opts.logger
	}
	return Logger()
}

// Register binds a handler to a message code. Registering a code twice
// replaces the earlier handler.
func (r *registry) Register(code int32, h *Handler) {
	if h == nil {
		panic("wire: nil handler")
	}
	if _, ok := r.handlers[code]; ok {
		r.log().Debug("replacing handler", zap.Int32("code", code), zap.Stringer("input", h.shape))
	} else {
		r.log().Debug("registered handler", zap.Int32("code", code), zap.Stringer("input", h.shape))
	}
	r.handlers[code] = h
	r.opts.metrics.setRegistered(len(r.handlers))
}

// Handle registers fn for code with a single-record input.
func (r *registry) Handle(code int32, s *Schema, fn func(rec *Record, args Args) (any, error), params ...string) {
	r.Register(code, OnRecord(s, fn, params...))
}

// Lookup returns the handler registered for code.
func (r *registry) Lookup(code int32) (*Handler, bool) {
	h, ok := r.handlers[code]
	return h, ok
}

// Codes returns the registered message codes in ascending order.
func (r *registry) Codes() []int32 {
	codes := make([]int32, 0, len(r.handlers))
	for code := range r.handlers {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

func (r *registry) dispatch(ctx context.Context, code int32, payload []byte, extra map[string]any) (any, error) {
	start := time.Now()

	h, ok := r.handlers[code]
	if !ok {
		r.log().Warn("no handler for message code", zap.Int32("code", code), zap.Int("size", len(payload)))
		r.opts.metrics.observe(code, statusUnknown, time.Since(start))
		return nil, codeError(KindUnknownCode, code, "no handler registered", nil)
	}

	in, err := h.shape.decode(payload)
	if err != nil {
		r.log().Warn("malformed payload",
			zap.Int32("code", code),
			zap.Stringer("input", h.shape),
			zap.Int("size", len(payload)),
			zap.Error(err))
		r.opts.metrics.observe(code, statusMalformed, time.Since(start))
		return nil, codeError(KindMalformedPayload, code,
			fmt.Sprintf("cannot decode %d bytes as %s", len(payload), h.shape), err)
	}

	out, err := h.call(ctx, in, h.args(extra))
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	r.opts.metrics.observe(code, status, time.Since(start))
	return out, err
}

// Dispatcher routes (code, payload) pairs to registered handlers on the
// caller's goroutine. Handlers built with the Context variants receive
// context.Background.
type Dispatcher struct {
	registry
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	return &Dispatcher{registry: newRegistry(opts)}
}

// Invoke decodes payload into the input shape of the handler registered for
// code, calls it with the extra parameters it declared (looked up by name in
// extra) and returns its result unmodified.
//
// Invoke fails with ErrUnknownCode for an unregistered code and with
// ErrMalformedPayload, without calling the handler, when the payload does
// not decode. Errors returned by the handler are passed through as is.
func (d *Dispatcher) Invoke(code int32, payload []byte, extra map[string]any) (any, error) {
	return d.dispatch(context.Background(), code, payload, extra)
}
