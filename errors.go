// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"strconv"
	"strings"
)

// Kind categorizes a wire error.
type Kind string

const (
	KindSchemaDefinition Kind = "schema_definition"
	KindBufferTooSmall   Kind = "buffer_too_small"
	KindTypeMismatch     Kind = "type_mismatch"
	KindValueOutOfRange  Kind = "value_out_of_range"
	KindUnknownField     Kind = "unknown_field"
	KindIndexOutOfRange  Kind = "index_out_of_range"
	KindUnknownCode      Kind = "unknown_code"
	KindMalformedPayload Kind = "malformed_payload"
)

// Sentinels for errors.Is. Any *Error with the same Kind matches.
var (
	ErrSchemaDefinition = &Error{Kind: KindSchemaDefinition}
	ErrBufferTooSmall   = &Error{Kind: KindBufferTooSmall}
	ErrTypeMismatch     = &Error{Kind: KindTypeMismatch}
	ErrValueOutOfRange  = &Error{Kind: KindValueOutOfRange}
	ErrUnknownField     = &Error{Kind: KindUnknownField}
	ErrIndexOutOfRange  = &Error{Kind: KindIndexOutOfRange}
	ErrUnknownCode      = &Error{Kind: KindUnknownCode}
	ErrMalformedPayload = &Error{Kind: KindMalformedPayload}
)

// Error is the structured error returned by schemas, records and dispatchers.
type Error struct {
	Cause  error
	Kind   Kind
	Schema string
	Field  string
	Detail string
	Code   int32
	// HasCode is set when Code identifies a message code.
	HasCode bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString("wire: ")
	b.WriteString(string(e.Kind))

	if e.Schema != "" || e.Field != "" {
		b.WriteString(" at ")
		if e.Schema != "" {
			b.WriteString(e.Schema)
			if e.Field != "" {
				b.WriteByte('.')
			}
		}
		b.WriteString(e.Field)
	}

	if e.HasCode {
		b.WriteString(" (code ")
		b.WriteString(strconv.FormatInt(int64(e.Code), 10))
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

func fieldError(kind Kind, s *Schema, field, detail string) *Error {
	err := &Error{Kind: kind, Field: field, Detail: detail}
	if s != nil {
		err.Schema = s.name
	}
	return err
}

func codeError(kind Kind, code int32, detail string, cause error) *Error {
	return &Error{Kind: kind, Code: code, HasCode: true, Detail: detail, Cause: cause}
}
