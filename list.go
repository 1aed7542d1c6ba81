// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"fmt"
	"iter"
)

// List is a zero-copy sequence of same-schema records packed back to back
// in one buffer. Elements alias the buffer; trailing bytes that do not make
// up a whole element are ignored.
type List struct {
	schema *Schema
	buf    []byte
}

// List returns a view of buf as consecutive records. A buffer shorter than
// one record yields an empty list.
func (s *Schema) List(buf []byte) *List {
	return &List{schema: s, buf: buf}
}

// NewList returns a list of n zero-filled records.
func (s *Schema) NewList(n int) *List {
	return &List{schema: s, buf: make([]byte, n*s.size)}
}

// Schema returns the element schema.
func (l *List) Schema() *Schema { return l.schema }

// Len returns the number of whole records in the buffer.
func (l *List) Len() int {
	if l.schema.size == 0 {
		return 0
	}
	return len(l.buf) / l.schema.size
}

// At returns the i-th record. The record aliases the list buffer.
func (l *List) At(i int) (*Record, error) {
	if i < 0 || i >= l.Len() {
		return nil, &Error{
			Kind:   KindIndexOutOfRange,
			Schema: l.schema.name,
			Detail: fmt.Sprintf("index %d not in [0, %d)", i, l.Len()),
		}
	}
	return l.at(i), nil
}

func (l *List) at(i int) *Record {
	size := l.schema.size
	return &Record{schema: l.schema, buf: l.buf[i*size : (i+1)*size : (i+1)*size]}
}

// All iterates over the records in order. Each call starts from the first
// element.
func (l *List) All() iter.Seq2[int, *Record] {
	return func(yield func(int, *Record) bool) {
		for i := 0; i < l.Len(); i++ {
			if !yield(i, l.at(i)) {
				return
			}
		}
	}
}

// Records returns every element as a slice of views.
func (l *List) Records() []*Record {
	out := make([]*Record, l.Len())
	for i := range out {
		out[i] = l.at(i)
	}
	return out
}

// Bytes returns the part of the buffer covered by whole records.
func (l *List) Bytes() []byte {
	n := l.Len() * l.schema.size
	return l.buf[:n:n]
}
