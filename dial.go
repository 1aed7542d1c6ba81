// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"context"
	"fmt"
	"net"
)

// Dial connects to a server using the default transport (ZAP) unless
// WithTransport selects another registered one.
func Dial(ctx context.Context, addr string, opts ...DialOption) (Client, error) {
	o := newDialOptions(opts)
	t, ok := lookupTransport(o.transport)
	if !ok || t.dial == nil {
		return nil, fmt.Errorf("unknown transport: %s", o.transport)
	}
	return t.dial(ctx, addr, o)
}

// Listen creates a server on addr using the default transport (ZAP) unless
// WithServerTransport selects another registered one.
func Listen(addr string, opts ...ServerOption) (Server, error) {
	o := newServerOptions(opts)
	t, ok := lookupTransport(o.transport)
	if !ok || t.listen == nil {
		return nil, fmt.Errorf("unknown transport: %s", o.transport)
	}
	return t.listen(addr, o)
}

// dialZAP creates a ZAP client
func dialZAP(ctx context.Context, addr string, o *dialOptions) (Client, error) {
	conn, err := zapDial(ctx, addr, o.maxFrameSize, o.logger)
	if err != nil {
		return nil, err
	}
	return &zapClient{
		conn:  conn,
		codec: o.codec,
	}, nil
}

// listenZAP creates a ZAP server
func listenZAP(addr string, o *serverOptions) (Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &zapServer{
		server:     newZAPServer(listener, o.dispatcher, o),
		dispatcher: o.dispatcher,
	}, nil
}

// zapClient implements Client using ZAP transport
type zapClient struct {
	conn  *ZAPConn
	codec Codec
}

func (c *zapClient) Call(ctx context.Context, code int32, args, reply interface{}) error {
	payload, err := encodeArgs(c.codec, args)
	if err != nil {
		return err
	}

	resp, err := c.conn.Call(ctx, code, payload)
	if err != nil {
		return err
	}

	return decodeReply(c.codec, resp, reply)
}

func (c *zapClient) CallRaw(ctx context.Context, code int32, payload []byte) ([]byte, error) {
	return c.conn.Call(ctx, code, payload)
}

func (c *zapClient) Notify(ctx context.Context, code int32, args interface{}) error {
	payload, err := encodeArgs(c.codec, args)
	if err != nil {
		return err
	}
	return c.conn.Notify(ctx, code, payload)
}

func (c *zapClient) Close() error {
	return c.conn.Close()
}

func encodeArgs(codec Codec, args interface{}) ([]byte, error) {
	if args == nil {
		return nil, nil
	}
	payload, err := codec.Encode(args)
	if err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	return payload, nil
}

func decodeReply(codec Codec, resp []byte, reply interface{}) error {
	if reply == nil || len(resp) == 0 {
		return nil
	}
	if err := codec.Decode(resp, reply); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	return nil
}

// zapServer implements Server using ZAP transport
type zapServer struct {
	server     *ZAPServer
	dispatcher *AsyncDispatcher
}

func (s *zapServer) Register(code int32, h *Handler) {
	s.dispatcher.Register(code, h)
}

func (s *zapServer) Dispatcher() *AsyncDispatcher {
	return s.dispatcher
}

func (s *zapServer) Serve(ctx context.Context) error {
	return s.server.Serve(ctx)
}

func (s *zapServer) Close() error {
	return s.server.Close()
}

func (s *zapServer) Addr() string {
	return s.server.Addr().String()
}
