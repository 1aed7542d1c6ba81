// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// Record is a typed view over a byte buffer laid out by a Schema. Reads and
// writes go straight to the buffer: a Record built with View aliases the
// caller's bytes, so changes are visible on both sides.
//
// Record is not safe for concurrent mutation.
type Record struct {
	schema *Schema
	buf    []byte
}

// New returns a Record over a fresh zero-filled buffer.
func (s *Schema) New() *Record {
	return &Record{schema: s, buf: make([]byte, s.size)}
}

// View returns a Record aliasing buf, which must hold at least Size bytes.
func (s *Schema) View(buf []byte) (*Record, error) {
	if len(buf) < s.size {
		return nil, fieldError(KindBufferTooSmall, s, "",
			fmt.Sprintf("need %d bytes, have %d", s.size, len(buf)))
	}
	return &Record{schema: s, buf: buf}, nil
}

// Schema returns the record's schema.
func (r *Record) Schema() *Schema { return r.schema }

// Get decodes the named field from the buffer.
func (r *Record) Get(name string) (any, error) {
	slot, err := r.schema.slot(name)
	if err != nil {
		return nil, err
	}
	end := slot.Offset + slot.Format.size
	if end > len(r.buf) {
		return nil, fieldError(KindBufferTooSmall, r.schema, name,
			fmt.Sprintf("field ends at %d, buffer has %d bytes", end, len(r.buf)))
	}
	return slot.Format.decode(r.buf[slot.Offset:end]), nil
}

// Set encodes v into the named field. On error the buffer is unchanged.
func (r *Record) Set(name string, v any) error {
	slot, err := r.schema.slot(name)
	if err != nil {
		return err
	}
	end := slot.Offset + slot.Format.size
	if end > len(r.buf) {
		return fieldError(KindBufferTooSmall, r.schema, name,
			fmt.Sprintf("field ends at %d, buffer has %d bytes", end, len(r.buf)))
	}
	if err := slot.Format.encode(r.buf[slot.Offset:end], v); err != nil {
		if we, ok := err.(*Error); ok {
			we.Schema, we.Field = r.schema.name, name
		}
		return err
	}
	return nil
}

// Value is Get with the result asserted to T.
func Value[T any](r *Record, name string) (T, error) {
	var zero T
	v, err := r.Get(name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fieldError(KindTypeMismatch, r.schema, name,
			fmt.Sprintf("field holds %T, not %T", v, zero))
	}
	return t, nil
}

// Bytes returns the Size bytes backing the record. The slice aliases the
// record buffer; copy it before handing it to code that retains it.
func (r *Record) Bytes() []byte {
	return r.buf[:r.schema.size:r.schema.size]
}

// Clone returns a Record over a private copy of the buffer.
func (r *Record) Clone() *Record {
	buf := make([]byte, r.schema.size)
	copy(buf, r.buf)
	return &Record{schema: r.schema, buf: buf}
}

// Snapshot decodes every field, in declaration order. It is recomputed on
// every call, so it always reflects the buffer's current content.
func (r *Record) Snapshot() (Snapshot, error) {
	out := make(Snapshot, 0, len(r.schema.slots))
	for _, slot := range r.schema.slots {
		v, err := r.Get(slot.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, NamedValue{Name: slot.Name, Value: v})
	}
	return out, nil
}

// String renders the record for debugging.
func (r *Record) String() string {
	snap, err := r.Snapshot()
	if err != nil {
		return r.schema.name + "<" + err.Error() + ">"
	}
	return r.schema.name + snap.String()
}

// MarshalLogObject lets a record be logged with zap.Object.
func (r *Record) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("schema", r.schema.name)
	snap, err := r.Snapshot()
	if err != nil {
		return err
	}
	for _, nv := range snap {
		switch v := nv.Value.(type) {
		case string:
			enc.AddString(nv.Name, strings.TrimRight(v, "\x00"))
		case time.Time:
			enc.AddTime(nv.Name, v)
		default:
			if err := enc.AddReflected(nv.Name, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// NamedValue is one decoded field.
type NamedValue struct {
	Name  string
	Value any
}

// Snapshot is a whole-record decode in declaration order.
type Snapshot []NamedValue

// Get returns the value of the named field.
func (s Snapshot) Get(name string) (any, bool) {
	for _, nv := range s {
		if nv.Name == name {
			return nv.Value, true
		}
	}
	return nil, false
}

// Map returns the snapshot keyed by field name.
func (s Snapshot) Map() map[string]any {
	m := make(map[string]any, len(s))
	for _, nv := range s {
		m[nv.Name] = nv.Value
	}
	return m
}

func (s Snapshot) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, nv := range s {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %#v", nv.Name, nv.Value)
	}
	b.WriteByte('}')
	return b.String()
}
