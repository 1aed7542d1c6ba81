// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Unmarshal copies the fields of rec into the struct pointed to by v.
//
// A struct field is bound to the record field named by its `wire` tag, or,
// when untagged, to the record field whose name matches the Go field name
// case-insensitively. Untagged fields without a match are left alone; a tag
// naming an undeclared field is an error, and `wire:"-"` skips the field.
// On error the struct is left unchanged.
func Unmarshal(rec *Record, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return &Error{Kind: KindTypeMismatch, Schema: rec.schema.name,
			Detail: fmt.Sprintf("unmarshal target must be a non-nil struct pointer, got %T", v)}
	}
	tmp := reflect.New(rv.Elem().Type()).Elem()
	tmp.Set(rv.Elem())
	err := bindFields(rec.schema, tmp, func(slot Slot, fv reflect.Value) error {
		val, err := rec.Get(slot.Name)
		if err != nil {
			return err
		}
		if err := assign(fv, val); err != nil {
			err.Schema, err.Field = rec.schema.name, slot.Name
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	rv.Elem().Set(tmp)
	return nil
}

// Marshal encodes the struct (or struct pointer) v into rec using the same
// field binding as Unmarshal. Either every bound field is written or, on
// error, the record is left unchanged.
func Marshal(rec *Record, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return &Error{Kind: KindTypeMismatch, Schema: rec.schema.name,
			Detail: fmt.Sprintf("marshal source must be a struct, got %T", v)}
	}
	scratch := rec.Clone()
	err := bindFields(rec.schema, rv, func(slot Slot, fv reflect.Value) error {
		return scratch.Set(slot.Name, fv.Interface())
	})
	if err != nil {
		return err
	}
	copy(rec.buf, scratch.buf)
	return nil
}

func bindFields(s *Schema, sv reflect.Value, fn func(Slot, reflect.Value) error) error {
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, tagged := sf.Tag.Lookup("wire")
		if name == "-" {
			continue
		}
		var (
			slot Slot
			ok   bool
		)
		if tagged {
			if slot, ok = s.Lookup(name); !ok {
				return fieldError(KindUnknownField, s, name,
					fmt.Sprintf("tagged by %s.%s", st.Name(), sf.Name))
			}
		} else if slot, ok = lookupFold(s, sf.Name); !ok {
			continue
		}
		if err := fn(slot, sv.Field(i)); err != nil {
			return err
		}
	}
	return nil
}

func lookupFold(s *Schema, name string) (Slot, bool) {
	if slot, ok := s.Lookup(name); ok {
		return slot, true
	}
	for _, slot := range s.slots {
		if strings.EqualFold(slot.Name, name) {
			return slot, true
		}
	}
	return Slot{}, false
}

// assign stores a decoded field value into dst, converting between Go
// numeric kinds when the value fits.
func assign(dst reflect.Value, v any) *Error {
	src := reflect.ValueOf(v)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	switch {
	case isIntKind(dst.Kind()) && isIntKind(src.Kind()):
		n := src.Int()
		if dst.OverflowInt(n) {
			return bindRange(dst, v)
		}
		dst.SetInt(n)
	case isIntKind(dst.Kind()) && isUintKind(src.Kind()):
		u := src.Uint()
		if u > math.MaxInt64 || dst.OverflowInt(int64(u)) {
			return bindRange(dst, v)
		}
		dst.SetInt(int64(u))
	case isUintKind(dst.Kind()) && isIntKind(src.Kind()):
		n := src.Int()
		if n < 0 || dst.OverflowUint(uint64(n)) {
			return bindRange(dst, v)
		}
		dst.SetUint(uint64(n))
	case isUintKind(dst.Kind()) && isUintKind(src.Kind()):
		u := src.Uint()
		if dst.OverflowUint(u) {
			return bindRange(dst, v)
		}
		dst.SetUint(u)
	case isFloatKind(dst.Kind()) && isFloatKind(src.Kind()):
		dst.SetFloat(src.Float())
	case dst.Kind() == reflect.Bool && src.Kind() == reflect.Bool:
		dst.SetBool(src.Bool())
	case dst.Kind() == reflect.String && src.Kind() == reflect.String:
		dst.SetString(src.String())
	case dst.Kind() == reflect.Slice && dst.Type().Elem().Kind() == reflect.Uint8 && src.Kind() == reflect.String:
		dst.SetBytes([]byte(src.String()))
	default:
		return &Error{Kind: KindTypeMismatch,
			Detail: fmt.Sprintf("%T cannot be assigned to %s", v, dst.Type())}
	}
	return nil
}

func bindRange(dst reflect.Value, v any) *Error {
	return &Error{Kind: KindValueOutOfRange, Detail: fmt.Sprintf("%v overflows %s", v, dst.Type())}
}

func isIntKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUintKind(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
