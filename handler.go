// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"context"
	"fmt"
)

// Args holds the extra parameters a handler declared, resolved by name from
// the context map passed to Invoke. A declared parameter that the caller did
// not supply is absent: Get returns nil and Has returns false.
type Args map[string]any

// Get returns the named parameter or nil.
func (a Args) Get(name string) any {
	return a[name]
}

// Has reports whether the caller supplied the named parameter.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Arg returns the named parameter asserted to T. ok is false when the
// parameter is absent or holds another type.
func Arg[T any](a Args, name string) (v T, ok bool) {
	v, ok = a[name].(T)
	return v, ok
}

// Shape describes how a payload is decoded before reaching a handler:
// either a single record or a list of records of one schema.
type Shape struct {
	schema *Schema
	list   bool
}

// Schema returns the record schema of the shape.
func (s Shape) Schema() *Schema { return s.schema }

// IsList reports whether payloads decode into a *List.
func (s Shape) IsList() bool { return s.list }

func (s Shape) String() string {
	if s.list {
		return "[]" + s.schema.name
	}
	return s.schema.name
}

func (s Shape) decode(payload []byte) (any, error) {
	if s.list {
		return s.schema.List(payload), nil
	}
	return s.schema.View(payload)
}

// Handler is a registered message handler: its input shape, the names of
// the extra parameters it accepts and the function to call. Handlers are
// built with OnRecord, OnList and their Context variants, which fix all of
// this once at registration time.
type Handler struct {
	shape      Shape
	params     []string
	contextual bool
	call       func(ctx context.Context, in any, args Args) (any, error)
}

// OnRecord builds a handler whose payload decodes into a single record.
func OnRecord(s *Schema, fn func(rec *Record, args Args) (any, error), params ...string) *Handler {
	return newHandler(Shape{schema: s}, params, false, func(_ context.Context, in any, args Args) (any, error) {
		return fn(in.(*Record), args)
	})
}

// OnList builds a handler whose payload decodes into a list of records.
func OnList(s *Schema, fn func(list *List, args Args) (any, error), params ...string) *Handler {
	return newHandler(Shape{schema: s, list: true}, params, false, func(_ context.Context, in any, args Args) (any, error) {
		return fn(in.(*List), args)
	})
}

// OnRecordContext is OnRecord for handlers that block on ctx.
func OnRecordContext(s *Schema, fn func(ctx context.Context, rec *Record, args Args) (any, error), params ...string) *Handler {
	return newHandler(Shape{schema: s}, params, true, func(ctx context.Context, in any, args Args) (any, error) {
		return fn(ctx, in.(*Record), args)
	})
}

// OnListContext is OnList for handlers that block on ctx.
func OnListContext(s *Schema, fn func(ctx context.Context, list *List, args Args) (any, error), params ...string) *Handler {
	return newHandler(Shape{schema: s, list: true}, params, true, func(ctx context.Context, in any, args Args) (any, error) {
		return fn(ctx, in.(*List), args)
	})
}

func newHandler(shape Shape, params []string, contextual bool, call func(context.Context, any, Args) (any, error)) *Handler {
	if shape.schema == nil {
		panic("wire: handler schema cannot be nil")
	}
	seen := make(map[string]struct{}, len(params))
	for _, p := range params {
		if p == "" {
			panic("wire: handler parameter name cannot be empty")
		}
		if _, dup := seen[p]; dup {
			panic(fmt.Sprintf("wire: duplicate handler parameter %q", p))
		}
		seen[p] = struct{}{}
	}
	return &Handler{
		shape:      shape,
		params:     append([]string(nil), params...),
		contextual: contextual,
		call:       call,
	}
}

// Shape returns the handler's input shape.
func (h *Handler) Shape() Shape { return h.shape }

// Params returns the declared extra parameter names.
func (h *Handler) Params() []string {
	return append([]string(nil), h.params...)
}

// Contextual reports whether the handler takes a context.Context.
func (h *Handler) Contextual() bool { return h.contextual }

func (h *Handler) args(extra map[string]any) Args {
	args := make(Args, len(h.params))
	for _, p := range h.params {
		if v, ok := extra[p]; ok {
			args[p] = v
		}
	}
	return args
}
