// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// Slot is a field placed at its resolved offset.
type Slot struct {
	Name   string
	Offset int
	Format Format
}

// Schema is the immutable byte layout of a record type. It is computed once
// by NewSchema and shared by every Record and List built from it; the
// *Schema pointer is the identity of the record type.
type Schema struct {
	name   string
	slots  []Slot
	index  map[string]int
	size   int
	layout string
}

// NewSchema lays out fields in declaration order. A field without an
// explicit offset follows the previous one; an explicit offset past the
// cursor inserts padding, and one before the cursor is rejected with
// ErrSchemaDefinition.
func NewSchema(name string, fields ...Field) (*Schema, error) {
	s := &Schema{
		name:  name,
		slots: make([]Slot, 0, len(fields)),
		index: make(map[string]int, len(fields)),
	}

	var layout strings.Builder
	layout.WriteByte('<')

	cursor := 0
	for _, f := range fields {
		if f.Name == "" {
			return nil, fieldError(KindSchemaDefinition, s, "", "field name cannot be empty")
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fieldError(KindSchemaDefinition, s, f.Name, "duplicate field name")
		}
		if !f.Format.valid() {
			return nil, fieldError(KindSchemaDefinition, s, f.Name,
				fmt.Sprintf("invalid format %s", f.Format))
		}

		offset := f.Offset
		switch {
		case offset == Follow:
			offset = cursor
		case offset < cursor:
			return nil, fieldError(KindSchemaDefinition, s, f.Name,
				fmt.Sprintf("offset %d overlaps previous field ending at %d", offset, cursor))
		case offset > cursor:
			layout.WriteString(strconv.Itoa(offset - cursor))
			layout.WriteByte('x')
		}
		layout.WriteString(f.Format.code())

		s.index[f.Name] = len(s.slots)
		s.slots = append(s.slots, Slot{Name: f.Name, Offset: offset, Format: f.Format})
		cursor = offset + f.Format.size
	}

	s.size = cursor
	s.layout = layout.String()
	return s, nil
}

// MustSchema is like NewSchema but panics on an invalid declaration. It is
// meant for package-level schema variables.
func MustSchema(name string, fields ...Field) *Schema {
	s, err := NewSchema(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the record type name.
func (s *Schema) Name() string { return s.name }

// Size returns the total size in bytes, padding included.
func (s *Schema) Size() int { return s.size }

// Layout returns the packed layout string, e.g. "<i5s3xi".
func (s *Schema) Layout() string { return s.layout }

// Fields returns the slots in declaration order.
func (s *Schema) Fields() []Slot {
	out := make([]Slot, len(s.slots))
	copy(out, s.slots)
	return out
}

// Lookup returns the slot of the named field.
func (s *Schema) Lookup(name string) (Slot, bool) {
	i, ok := s.index[name]
	if !ok {
		return Slot{}, false
	}
	return s.slots[i], true
}

// Equal reports whether two schemas describe the same byte layout with the
// same field names.
func (s *Schema) Equal(o *Schema) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil || s.size != o.size || len(s.slots) != len(o.slots) {
		return false
	}
	for i := range s.slots {
		if s.slots[i] != o.slots[i] {
			return false
		}
	}
	return true
}

// String describes the schema for logs and the CLI.
func (s *Schema) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s{", s.name)
	for i, slot := range s.slots {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s @%d", slot.Name, slot.Format, slot.Offset)
	}
	fmt.Fprintf(&b, "} size=%d", s.size)
	return b.String()
}

func (s *Schema) slot(name string) (Slot, error) {
	slot, ok := s.Lookup(name)
	if !ok {
		return Slot{}, fieldError(KindUnknownField, s, name, "field is not declared")
	}
	return slot, nil
}
