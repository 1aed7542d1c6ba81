// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// JSONInvokeMethod is the JSON-RPC method served by the bridge.
const JSONInvokeMethod = "Wire.Invoke"

// JSONPath is where the bridge mounts the JSON-RPC endpoint.
const JSONPath = "/rpc"

func init() {
	registerTransport(TransportJSON, dialJSON, listenJSON)
}

// InvokeArgs are the params of Wire.Invoke. Payload travels as base64.
type InvokeArgs struct {
	Code    int32          `json:"code"`
	Payload []byte         `json:"payload"`
	Context map[string]any `json:"context,omitempty"`
}

// InvokeReply is the result of Wire.Invoke. Fields holds the decoded
// record (an object) or list (an array of objects) when the handler
// returned one.
type InvokeReply struct {
	Payload []byte `json:"payload"`
	Fields  any    `json:"fields,omitempty"`
}

// JSONService exposes an AsyncDispatcher as the JSON-RPC service "Wire".
type JSONService struct {
	dispatcher *AsyncDispatcher
}

// Invoke dispatches args.Code with args.Payload. args.Context supplies the
// extra parameters; ParamRemoteAddr is filled from the HTTP request.
func (s *JSONService) Invoke(r *http.Request, args *InvokeArgs, reply *InvokeReply) error {
	extra := make(map[string]any, len(args.Context)+1)
	for k, v := range args.Context {
		extra[k] = v
	}
	extra[ParamRemoteAddr] = r.RemoteAddr

	out, err := s.dispatcher.Invoke(r.Context(), args.Code, args.Payload, extra)
	if err != nil {
		return jsonError(err)
	}
	payload, err := Encode(out)
	if err != nil {
		return jsonError(err)
	}
	fields, err := snapshotFields(out)
	if err != nil {
		return jsonError(err)
	}
	reply.Payload = payload
	reply.Fields = fields
	return nil
}

// jsonError carries the error Kind in the JSON-RPC error data so that the
// client can rebuild a RemoteError.
func jsonError(err error) *json2.Error {
	var kind Kind
	var we *Error
	if errors.As(err, &we) {
		kind = we.Kind
	}
	return &json2.Error{Code: json2.E_SERVER, Message: err.Error(), Data: string(kind)}
}

// NewJSONHandler returns an HTTP handler serving d over JSON-RPC 2.0 at
// JSONPath and Prometheus metrics at /metrics. /metrics reads the registry
// of the dispatcher's Metrics (the default one when it has none).
func NewJSONHandler(d *AsyncDispatcher, log *zap.Logger) http.Handler {
	if log == nil {
		log = Logger()
	}

	s := rpc.NewServer()
	s.RegisterCodec(json2.NewCodec(), "application/json")
	if err := s.RegisterService(&JSONService{dispatcher: d}, "Wire"); err != nil {
		// JSONService always has a valid method set
		panic(err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.HandlerFor(d.opts.metrics.Gatherer(), promhttp.HandlerOpts{}))
	r.Handle(JSONPath, s)
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

// listenJSON creates a JSON-RPC server
func listenJSON(addr string, o *serverOptions) (Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &jsonServer{
		listener:   listener,
		dispatcher: o.dispatcher,
		log:        o.logger,
		http: &http.Server{
			Handler:           NewJSONHandler(o.dispatcher, o.logger),
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      o.writeTimeout,
		},
	}, nil
}

// jsonServer implements Server using JSON-RPC over HTTP
type jsonServer struct {
	listener   net.Listener
	dispatcher *AsyncDispatcher
	http       *http.Server
	log        *zap.Logger
}

func (s *jsonServer) Register(code int32, h *Handler) {
	s.dispatcher.Register(code, h)
}

func (s *jsonServer) Dispatcher() *AsyncDispatcher {
	return s.dispatcher
}

func (s *jsonServer) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	s.log.Info("json-rpc server listening", zap.Stringer("addr", s.listener.Addr()))
	if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *jsonServer) Close() error {
	return s.http.Close()
}

func (s *jsonServer) Addr() string {
	return s.listener.Addr().String()
}

// dialJSON creates a JSON-RPC client. addr may be host:port or a full URL.
func dialJSON(_ context.Context, addr string, o *dialOptions) (Client, error) {
	uri, err := jsonURL(addr)
	if err != nil {
		return nil, err
	}
	return &jsonClient{uri: uri, codec: o.codec}, nil
}

func jsonURL(addr string) (*url.URL, error) {
	if u, err := url.Parse(addr); err == nil && u.Scheme != "" && u.Host != "" {
		if u.Path == "" {
			u.Path = JSONPath
		}
		return u, nil
	}
	u, err := url.Parse("http://" + addr + JSONPath)
	if err != nil {
		return nil, fmt.Errorf("json address %q: %w", addr, err)
	}
	return u, nil
}

// jsonClient implements Client using JSON-RPC over HTTP
type jsonClient struct {
	uri   *url.URL
	codec Codec
}

func (c *jsonClient) Call(ctx context.Context, code int32, args, reply interface{}) error {
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

func (c *jsonClient) CallRaw(ctx context.Context, code int32, payload []byte) ([]byte, error) {
	var reply InvokeReply
	uri := *c.uri
	err := SendJSONRequest(ctx, &uri, JSONInvokeMethod, &InvokeArgs{Code: code, Payload: payload}, &reply)
	if err != nil {
		return nil, err
	}
	return reply.Payload, nil
}

// Notify over JSON-RPC still waits for the HTTP response; the reply is
// discarded.
func (c *jsonClient) Notify(ctx context.Context, code int32, args interface{}) error {
	payload, err := encodeArgs(c.codec, args)
	if err != nil {
		return err
	}
	_, err = c.CallRaw(ctx, code, payload)
	return err
}

func (*jsonClient) Close() error {
	return nil
}

// JSONOption configures a single JSON-RPC request.
type JSONOption func(*JSONOptions)

// JSONOptions holds the per-request headers and query parameters.
type JSONOptions struct {
	headers     http.Header
	queryParams url.Values
}

// NewJSONOptions applies opts to an empty option set.
func NewJSONOptions(opts []JSONOption) *JSONOptions {
	o := &JSONOptions{
		headers:     http.Header{},
		queryParams: url.Values{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithHeader adds a request header.
func WithHeader(key, value string) JSONOption {
	return func(o *JSONOptions) { o.headers.Add(key, value) }
}

// WithQueryParam adds a query parameter to the request URL.
func WithQueryParam(key, value string) JSONOption {
	return func(o *JSONOptions) { o.queryParams.Add(key, value) }
}

// CleanlyCloseBody drains and closes an HTTP response body so the
// connection can be reused.
func CleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// SendJSONRequest issues one JSON-RPC 2.0 call. A server-side wire error is
// returned as a *RemoteError carrying its Kind.
func SendJSONRequest(
	ctx context.Context,
	uri *url.URL,
	method string,
	params interface{},
	reply interface{},
	options ...JSONOption,
) error {
	requestBodyBytes, err := json2.EncodeClientRequest(method, params)
	if err != nil {
		return fmt.Errorf("failed to encode client params: %w", err)
	}

	ops := NewJSONOptions(options)
	if len(ops.queryParams) > 0 {
		uri.RawQuery = ops.queryParams.Encode()
	}

	request, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		uri.String(),
		bytes.NewBuffer(requestBodyBytes),
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	request.Header = ops.headers
	request.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(request)
	if err != nil {
		return fmt.Errorf("failed to issue request: %w", err)
	}
	defer CleanlyCloseBody(resp.Body)

	// Return an error for any non successful status code
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("received status code: %d", resp.StatusCode)
	}

	if err := json2.DecodeClientResponse(resp.Body, reply); err != nil {
		var jerr *json2.Error
		if errors.As(err, &jerr) {
			kind, _ := jerr.Data.(string)
			return &RemoteError{Kind: Kind(kind), Message: jerr.Message}
		}
		return fmt.Errorf("failed to decode client response: %w", err)
	}
	return nil
}
