//go:build grpc

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// GRPCInvokeMethod is the full method name every call is sent under.
const GRPCInvokeMethod = "/wire.Dispatcher/Invoke"

const (
	grpcCodeKey = "wire-code"
	grpcKindKey = "wire-kind"
)

func init() {
	// Register gRPC transport when build tag is enabled
	registerTransport(TransportGRPC, dialGRPC, listenGRPC)
}

// rawCodec passes wire bytes through gRPC untouched.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case *[]byte:
		return *x, nil
	}
	return nil, fmt.Errorf("grpc raw codec: cannot marshal %T", v)
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	p, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("grpc raw codec: cannot unmarshal into %T", v)
	}
	*p = append((*p)[:0], data...)
	return nil
}

func (rawCodec) Name() string { return "wire-raw" }

func dialGRPC(_ context.Context, addr string, o *dialOptions) (Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.ForceCodec(rawCodec{}),
			grpc.MaxCallRecvMsgSize(o.maxFrameSize),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &grpcClient{conn: conn, codec: o.codec}, nil
}

func listenGRPC(addr string, o *serverOptions) (Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &grpcServer{
		listener:   listener,
		dispatcher: o.dispatcher,
		log:        o.logger,
	}
	s.server = grpc.NewServer(
		grpc.ForceServerCodec(rawCodec{}),
		grpc.MaxRecvMsgSize(o.maxFrameSize),
		grpc.UnknownServiceHandler(s.handleStream),
	)
	return s, nil
}

// grpcServer implements Server by routing GRPCInvokeMethod to the
// dispatcher; the message code travels in request metadata.
type grpcServer struct {
	listener   net.Listener
	dispatcher *AsyncDispatcher
	server     *grpc.Server
	log        *zap.Logger
}

func (s *grpcServer) handleStream(_ any, stream grpc.ServerStream) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("handler panicked", zap.Any("panic", r), zap.Stack("stack"))
			err = status.Errorf(codes.Internal, "handler panic: %v", r)
		}
	}()

	ctx := stream.Context()
	method, _ := grpc.MethodFromServerStream(stream)
	if method != GRPCInvokeMethod {
		return status.Errorf(codes.Unimplemented, "unknown method %s", method)
	}

	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get(grpcCodeKey)
	if len(vals) != 1 {
		return status.Errorf(codes.InvalidArgument, "missing %s metadata", grpcCodeKey)
	}
	code, err := strconv.ParseInt(vals[0], 10, 32)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "bad %s metadata: %v", grpcCodeKey, err)
	}

	var payload []byte
	if err := stream.RecvMsg(&payload); err != nil {
		return err
	}

	extra := map[string]any{}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		extra[ParamRemoteAddr] = p.Addr.String()
	}

	out, err := s.dispatcher.HandleZAP(ctx, int32(code), payload, extra)
	if err != nil {
		return s.statusError(stream, err)
	}
	if out == nil {
		out = []byte{}
	}
	return stream.SendMsg(out)
}

func (s *grpcServer) statusError(stream grpc.ServerStream, err error) error {
	var we *Error
	if !errors.As(err, &we) {
		return status.Error(codes.Unknown, err.Error())
	}
	stream.SetTrailer(metadata.Pairs(grpcKindKey, string(we.Kind)))
	switch we.Kind {
	case KindUnknownCode:
		return status.Error(codes.Unimplemented, err.Error())
	case KindMalformedPayload:
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Unknown, err.Error())
}

func (s *grpcServer) Register(code int32, h *Handler) {
	s.dispatcher.Register(code, h)
}

func (s *grpcServer) Dispatcher() *AsyncDispatcher {
	return s.dispatcher
}

func (s *grpcServer) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.server.Stop)
	defer stop()

	s.log.Info("grpc server listening", zap.Stringer("addr", s.listener.Addr()))
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *grpcServer) Close() error {
	s.server.Stop()
	return nil
}

func (s *grpcServer) Addr() string {
	return s.listener.Addr().String()
}

type grpcClient struct {
	conn  *grpc.ClientConn
	codec Codec
}

func (c *grpcClient) Call(ctx context.Context, code int32, args, reply interface{}) error {
	payload, err := encodeArgs(c.codec, args)
	if err != nil {
		return err
	}
	resp, err := c.CallRaw(ctx, code, payload)
	if err != nil {
		return err
	}
	return decodeReply(c.codec, resp, reply)
}

func (c *grpcClient) CallRaw(ctx context.Context, code int32, payload []byte) ([]byte, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, grpcCodeKey, strconv.FormatInt(int64(code), 10))
	if payload == nil {
		payload = []byte{}
	}
	var (
		resp    []byte
		trailer metadata.MD
	)
	if err := c.conn.Invoke(ctx, GRPCInvokeMethod, payload, &resp, grpc.Trailer(&trailer)); err != nil {
		return nil, grpcRemoteError(err, trailer)
	}
	return resp, nil
}

// Notify over gRPC is a unary call whose reply is discarded.
func (c *grpcClient) Notify(ctx context.Context, code int32, args interface{}) error {
	payload, err := encodeArgs(c.codec, args)
	if err != nil {
		return err
	}
	_, err = c.CallRaw(ctx, code, payload)
	return err
}

func (c *grpcClient) Close() error {
	return c.conn.Close()
}

func grpcRemoteError(err error, trailer metadata.MD) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var kind Kind
	if vals := trailer.Get(grpcKindKey); len(vals) > 0 {
		kind = Kind(vals[0])
	}
	if kind == "" && st.Code() != codes.Unknown {
		return err
	}
	return &RemoteError{Kind: kind, Message: st.Message()}
}
