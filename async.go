// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"context"
)

// AsyncDispatcher routes messages like Dispatcher but threads a
// context.Context through to handlers, so handlers may block on I/O and be
// cancelled. It adds no locking or ordering of its own: concurrent Invoke
// and Go calls run their handlers concurrently.
type AsyncDispatcher struct {
	registry
}

// NewAsyncDispatcher creates an empty asynchronous dispatcher.
func NewAsyncDispatcher(opts ...Option) *AsyncDispatcher {
	return &AsyncDispatcher{registry: newRegistry(opts)}
}

// Invoke runs the decode, call, return sequence on the calling goroutine and
// waits for the handler. ctx is passed to handlers built with
// OnRecordContext or OnListContext; the dispatcher itself does not watch it.
// Errors are those of Dispatcher.Invoke.
func (d *AsyncDispatcher) Invoke(ctx context.Context, code int32, payload []byte, extra map[string]any) (any, error) {
	return d.dispatch(ctx, code, payload, extra)
}

// Call is an invocation started with Go.
type Call struct {
	Code  int32
	Reply any
	Error error
	// Done receives the call itself once Reply and Error are set.
	Done chan *Call

	finished chan struct{}
}

// Wait blocks until the call finishes and returns its result. It may be
// used whether or not Done has been received from.
func (c *Call) Wait() (any, error) {
	<-c.finished
	return c.Reply, c.Error
}

// Go starts Invoke on a new goroutine and returns immediately. The returned
// Call's Done channel is signalled when the handler returns.
func (d *AsyncDispatcher) Go(ctx context.Context, code int32, payload []byte, extra map[string]any) *Call {
	call := &Call{Code: code, Done: make(chan *Call, 1), finished: make(chan struct{})}
	go func() {
		call.Reply, call.Error = d.dispatch(ctx, code, payload, extra)
		close(call.finished)
		call.Done <- call
	}()
	return call
}

// HandleZAP implements ZAPHandler: the handler value is encoded with Encode
// before being written back on the connection.
func (d *AsyncDispatcher) HandleZAP(ctx context.Context, code int32, payload []byte, extra map[string]any) ([]byte, error) {
	out, err := d.dispatch(ctx, code, payload, extra)
	if err != nil {
		return nil, err
	}
	return Encode(out)
}
