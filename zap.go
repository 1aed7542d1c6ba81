// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

var (
	ErrZAPClosed        = errors.New("zap: connection closed")
	ErrZAPTimeout       = errors.New("zap: request timeout")
	ErrZAPInvalidResp   = errors.New("zap: invalid response")
	ErrZAPFrameTooLarge = errors.New("zap: frame too large")
)

// MessageType identifies ZAP message types
type MessageType uint8

const (
	MsgRequest  MessageType = 0x01
	MsgResponse MessageType = 0x02
	MsgError    MessageType = 0x03
	MsgNotify   MessageType = 0x04
)

// Extra parameters the ZAP server supplies to every dispatch. Handlers
// receive them by declaring these names.
const (
	ParamConnID     = "conn_id"
	ParamRemoteAddr = "remote_addr"
)

// Frames are length-prefixed, big-endian:
//
//	request  [4 len][1 type][4 reqID][4 code][payload]
//	notify   [4 len][1 type][4 code][payload]
//	response [4 len][1 type][4 reqID][payload]
//	error    [4 len][1 type][4 reqID][kind 0x00 message]

// RemoteError is a failure reported by the peer. It matches the wire error
// sentinels of the same Kind under errors.Is, so ErrUnknownCode and
// ErrMalformedPayload survive the round trip.
type RemoteError struct {
	Kind    Kind
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// Is reports whether target is a wire *Error of the same Kind.
func (e *RemoteError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Kind != "" && e.Kind == t.Kind
}

func encodeRemoteError(err error) []byte {
	var kind Kind
	var we *Error
	if errors.As(err, &we) {
		kind = we.Kind
	}
	msg := err.Error()
	buf := make([]byte, 0, len(kind)+1+len(msg))
	buf = append(buf, kind...)
	buf = append(buf, 0)
	return append(buf, msg...)
}

func decodeRemoteError(payload []byte) *RemoteError {
	i := bytes.IndexByte(payload, 0)
	if i < 0 {
		return &RemoteError{Message: string(payload)}
	}
	return &RemoteError{Kind: Kind(payload[:i]), Message: string(payload[i+1:])}
}

// readFrame reads one length-prefixed frame, rejecting empty frames and
// frames larger than maxFrame.
func readFrame(r io.Reader, header []byte, maxFrame int) ([]byte, error) {
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	msgLen := binary.BigEndian.Uint32(header)
	if msgLen == 0 {
		return nil, errors.New("zap: empty frame")
	}
	if uint64(msgLen) > uint64(maxFrame) {
		return nil, fmt.Errorf("%w: %d bytes", ErrZAPFrameTooLarge, msgLen)
	}
	msg := make([]byte, msgLen)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ZAPConn represents a ZAP connection for RPC
type ZAPConn struct {
	conn     net.Conn
	writeMu  sync.Mutex
	pending  sync.Map // requestID -> chan *ZAPResponse
	nextID   atomic.Uint32
	closed   atomic.Bool
	readDone chan struct{}
	maxFrame int
	log      *zap.Logger
}

// ZAPResponse holds a response from a ZAP call
type ZAPResponse struct {
	Data []byte
	Err  error
}

// ZAPDial connects to a ZAP server
func ZAPDial(ctx context.Context, addr string) (*ZAPConn, error) {
	return zapDial(ctx, addr, DefaultMaxFrameSize, Logger())
}

func zapDial(ctx context.Context, addr string, maxFrame int, log *zap.Logger) (*ZAPConn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("zap dial: %w", err)
	}
	return NewZAPConn(conn, maxFrame, log), nil
}

// NewZAPConn wraps an established connection and starts reading responses.
func NewZAPConn(conn net.Conn, maxFrame int, log *zap.Logger) *ZAPConn {
	if log == nil {
		log = Logger()
	}
	zc := &ZAPConn{
		conn:     conn,
		readDone: make(chan struct{}),
		maxFrame: maxFrame,
		log:      log,
	}
	go zc.readLoop()
	return zc
}

// Call sends payload under code and waits for the reply.
func (z *ZAPConn) Call(ctx context.Context, code int32, payload []byte) ([]byte, error) {
	if z.closed.Load() {
		return nil, ErrZAPClosed
	}

	requestID := z.nextID.Add(1)
	respCh := make(chan *ZAPResponse, 1)
	z.pending.Store(requestID, respCh)
	defer z.pending.Delete(requestID)

	msgLen := 1 + 4 + 4 + len(payload)
	buf := make([]byte, 4+msgLen)
	binary.BigEndian.PutUint32(buf[0:4], uint32(msgLen))
	buf[4] = byte(MsgRequest)
	binary.BigEndian.PutUint32(buf[5:9], requestID)
	binary.BigEndian.PutUint32(buf[9:13], uint32(code))
	copy(buf[13:], payload)

	if err := z.write(buf); err != nil {
		return nil, fmt.Errorf("zap write: %w", err)
	}

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrZAPTimeout
		}
		return nil, ctx.Err()
	case resp := <-respCh:
		if resp.Err != nil {
			return nil, resp.Err
		}
		return resp.Data, nil
	case <-z.readDone:
		select {
		case resp := <-respCh:
			return resp.Data, resp.Err
		default:
			return nil, ErrZAPClosed
		}
	}
}

// Notify sends a one-way notification (no response expected)
func (z *ZAPConn) Notify(ctx context.Context, code int32, payload []byte) error {
	if z.closed.Load() {
		return ErrZAPClosed
	}

	msgLen := 1 + 4 + len(payload)
	buf := make([]byte, 4+msgLen)
	binary.BigEndian.PutUint32(buf[0:4], uint32(msgLen))
	buf[4] = byte(MsgNotify)
	binary.BigEndian.PutUint32(buf[5:9], uint32(code))
	copy(buf[9:], payload)

	return z.write(buf)
}

func (z *ZAPConn) write(buf []byte) error {
	z.writeMu.Lock()
	defer z.writeMu.Unlock()
	_, err := z.conn.Write(buf)
	return err
}

func (z *ZAPConn) readLoop() {
	defer close(z.readDone)

	header := make([]byte, 4)
	for {
		msg, err := readFrame(z.conn, header, z.maxFrame)
		if err != nil {
			if !z.closed.Load() && !errors.Is(err, io.EOF) {
				z.log.Debug("zap read failed", zap.Error(err))
			}
			return
		}

		if len(msg) < 5 {
			continue
		}

		msgType := MessageType(msg[0])
		requestID := binary.BigEndian.Uint32(msg[1:5])
		payload := msg[5:]

		ch, ok := z.pending.Load(requestID)
		if !ok {
			continue
		}
		resp := &ZAPResponse{}
		switch msgType {
		case MsgResponse:
			resp.Data = payload
		case MsgError:
			resp.Err = decodeRemoteError(payload)
		default:
			resp.Err = ErrZAPInvalidResp
		}
		// a duplicate reply for the same request is dropped
		select {
		case ch.(chan *ZAPResponse) <- resp:
		default:
		}
	}
}

// Close closes the connection
func (z *ZAPConn) Close() error {
	if z.closed.Swap(true) {
		return nil
	}
	return z.conn.Close()
}

// ZAPHandler handles ZAP requests. extra carries the per-connection
// parameters ParamConnID and ParamRemoteAddr.
type ZAPHandler interface {
	HandleZAP(ctx context.Context, code int32, payload []byte, extra map[string]any) ([]byte, error)
}

// ZAPHandlerFunc is a function adapter for ZAPHandler
type ZAPHandlerFunc func(ctx context.Context, code int32, payload []byte, extra map[string]any) ([]byte, error)

func (f ZAPHandlerFunc) HandleZAP(ctx context.Context, code int32, payload []byte, extra map[string]any) ([]byte, error) {
	return f(ctx, code, payload, extra)
}

// ZAPServer handles incoming ZAP RPC requests
type ZAPServer struct {
	listener     net.Listener
	handler      ZAPHandler
	conns        sync.Map
	closed       atomic.Bool
	maxFrame     int
	writeTimeout time.Duration
	log          *zap.Logger
}

// NewZAPServer creates a new ZAP server
func NewZAPServer(listener net.Listener, handler ZAPHandler) *ZAPServer {
	return newZAPServer(listener, handler, newServerOptions(nil))
}

func newZAPServer(listener net.Listener, handler ZAPHandler, o *serverOptions) *ZAPServer {
	return &ZAPServer{
		listener:     listener,
		handler:      handler,
		maxFrame:     o.maxFrameSize,
		writeTimeout: o.writeTimeout,
		log:          o.logger,
	}
}

// serverConn serializes response writes on one connection.
type serverConn struct {
	net.Conn
	writeMu sync.Mutex
}

// Serve accepts connections until Close is called or ctx is cancelled.
func (s *ZAPServer) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warn("zap accept failed", zap.Error(err))
			continue
		}
		go s.handleConn(ctx, &serverConn{Conn: conn})
	}
}

func (s *ZAPServer) handleConn(ctx context.Context, conn *serverConn) {
	defer conn.Close()
	s.conns.Store(conn, struct{}{})
	defer s.conns.Delete(conn)

	connID := ksuid.New().String()
	extra := map[string]any{
		ParamConnID:     connID,
		ParamRemoteAddr: conn.RemoteAddr().String(),
	}
	log := s.log.With(zap.String("conn_id", connID), zap.Stringer("remote", conn.RemoteAddr()))
	log.Debug("zap connection opened")
	defer log.Debug("zap connection closed")

	header := make([]byte, 4)
	for {
		msg, err := readFrame(conn, header, s.maxFrame)
		if err != nil {
			if errors.Is(err, ErrZAPFrameTooLarge) {
				log.Warn("dropping connection", zap.Error(err))
			}
			return
		}

		msgType := MessageType(msg[0])

		switch msgType {
		case MsgRequest:
			if len(msg) < 9 {
				continue
			}
			requestID := binary.BigEndian.Uint32(msg[1:5])
			code := int32(binary.BigEndian.Uint32(msg[5:9]))
			payload := msg[9:]

			go func() {
				respData, err := s.handle(ctx, log, code, payload, extra)
				s.sendResponse(conn, requestID, respData, err)
			}()

		case MsgNotify:
			if len(msg) < 5 {
				continue
			}
			code := int32(binary.BigEndian.Uint32(msg[1:5]))
			payload := msg[5:]
			go func() {
				if _, err := s.handle(ctx, log, code, payload, extra); err != nil {
					log.Debug("notification failed", zap.Int32("code", code), zap.Error(err))
				}
			}()
		}
	}
}

// handle runs the handler, turning a panic into an error for the caller.
func (s *ZAPServer) handle(ctx context.Context, log *zap.Logger, code int32, payload []byte, extra map[string]any) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panicked", zap.Int32("code", code), zap.Any("panic", r), zap.Stack("stack"))
			out, err = nil, fmt.Errorf("handler panic: %v", r)
		}
	}()
	return s.handler.HandleZAP(ctx, code, payload, extra)
}

func (s *ZAPServer) sendResponse(conn *serverConn, requestID uint32, data []byte, err error) {
	var msgType MessageType
	var payload []byte
	if err != nil {
		msgType = MsgError
		payload = encodeRemoteError(err)
	} else {
		msgType = MsgResponse
		payload = data
	}

	msgLen := 1 + 4 + len(payload)
	buf := make([]byte, 4+msgLen)
	binary.BigEndian.PutUint32(buf[0:4], uint32(msgLen))
	buf[4] = byte(msgType)
	binary.BigEndian.PutUint32(buf[5:9], requestID)
	copy(buf[9:], payload)

	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if _, werr := conn.Write(buf); werr != nil {
		s.log.Debug("zap write failed", zap.Uint32("request_id", requestID), zap.Error(werr))
	}
}

// Close closes the server
func (s *ZAPServer) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.conns.Range(func(key, _ interface{}) bool {
		key.(*serverConn).Close()
		return true
	})
	return s.listener.Close()
}

// Addr returns the listener address
func (s *ZAPServer) Addr() net.Addr {
	return s.listener.Addr()
}
