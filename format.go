// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Follow is the Field offset meaning "directly after the previous field".
const Follow = -1

// TimestampSize is the width of a Timestamp field: a little-endian int64
// holding whole seconds since the Unix epoch.
const TimestampSize = 8

type formatKind uint8

const (
	kindInt formatKind = iota + 1
	kindUint
	kindFloat
	kindBool
	kindString
	kindTimestamp
)

// Format is the binary representation of a single field. Its size is known
// without a buffer so schemas can be laid out before any instance exists.
type Format struct {
	kind formatKind
	size int
}

// Primitive formats. Strings are built with StringFormat.
var (
	FormatInt8      = Format{kindInt, 1}
	FormatInt16     = Format{kindInt, 2}
	FormatInt32     = Format{kindInt, 4}
	FormatInt64     = Format{kindInt, 8}
	FormatUint8     = Format{kindUint, 1}
	FormatUint16    = Format{kindUint, 2}
	FormatUint32    = Format{kindUint, 4}
	FormatUint64    = Format{kindUint, 8}
	FormatFloat32   = Format{kindFloat, 4}
	FormatFloat64   = Format{kindFloat, 8}
	FormatBool      = Format{kindBool, 1}
	FormatTimestamp = Format{kindTimestamp, TimestampSize}
)

// StringFormat returns the format of a fixed-length byte string of n bytes.
func StringFormat(n int) Format {
	return Format{kindString, n}
}

// ParseFormat is the inverse of Format.String: it accepts "int8" through
// "uint64", "float32", "float64", "bool", "timestamp" and "string[N]".
func ParseFormat(s string) (Format, error) {
	if strings.HasPrefix(s, "string[") && strings.HasSuffix(s, "]") {
		n, err := strconv.Atoi(s[len("string[") : len(s)-1])
		if err != nil || n <= 0 {
			return Format{}, &Error{Kind: KindSchemaDefinition, Detail: fmt.Sprintf("invalid string length in %q", s)}
		}
		return StringFormat(n), nil
	}
	for _, f := range []Format{
		FormatInt8, FormatInt16, FormatInt32, FormatInt64,
		FormatUint8, FormatUint16, FormatUint32, FormatUint64,
		FormatFloat32, FormatFloat64, FormatBool, FormatTimestamp,
	} {
		if f.String() == s {
			return f, nil
		}
	}
	return Format{}, &Error{Kind: KindSchemaDefinition, Detail: fmt.Sprintf("unknown format %q", s)}
}

// Size returns the number of bytes the format occupies.
func (f Format) Size() int { return f.size }

// String returns a readable name such as "int32" or "string[5]".
func (f Format) String() string {
	bits := strconv.Itoa(f.size * 8)
	switch f.kind {
	case kindInt:
		return "int" + bits
	case kindUint:
		return "uint" + bits
	case kindFloat:
		return "float" + bits
	case kindBool:
		return "bool"
	case kindString:
		return "string[" + strconv.Itoa(f.size) + "]"
	case kindTimestamp:
		return "timestamp"
	default:
		return "invalid"
	}
}

// code is the packed layout code of the format, struct-module style.
func (f Format) code() string {
	switch f.kind {
	case kindInt:
		return string("bhiq"[sizeIndex(f.size)])
	case kindUint:
		return string("BHIQ"[sizeIndex(f.size)])
	case kindFloat:
		if f.size == 4 {
			return "f"
		}
		return "d"
	case kindBool:
		return "?"
	case kindString:
		return strconv.Itoa(f.size) + "s"
	case kindTimestamp:
		return "q"
	}
	return ""
}

func sizeIndex(size int) int {
	switch size {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	default:
		return 3
	}
}

func (f Format) valid() bool {
	switch f.kind {
	case kindInt, kindUint:
		return f.size == 1 || f.size == 2 || f.size == 4 || f.size == 8
	case kindFloat:
		return f.size == 4 || f.size == 8
	case kindBool:
		return f.size == 1
	case kindString:
		return f.size > 0
	case kindTimestamp:
		return f.size == TimestampSize
	}
	return false
}

// decode reads the value stored in b, which is exactly f.size bytes.
func (f Format) decode(b []byte) any {
	switch f.kind {
	case kindInt:
		switch f.size {
		case 1:
			return int8(b[0])
		case 2:
			return int16(binary.LittleEndian.Uint16(b))
		case 4:
			return int32(binary.LittleEndian.Uint32(b))
		default:
			return int64(binary.LittleEndian.Uint64(b))
		}
	case kindUint:
		switch f.size {
		case 1:
			return b[0]
		case 2:
			return binary.LittleEndian.Uint16(b)
		case 4:
			return binary.LittleEndian.Uint32(b)
		default:
			return binary.LittleEndian.Uint64(b)
		}
	case kindFloat:
		if f.size == 4 {
			return math.Float32frombits(binary.LittleEndian.Uint32(b))
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	case kindBool:
		return b[0] != 0
	case kindString:
		return string(b)
	case kindTimestamp:
		return time.Unix(int64(binary.LittleEndian.Uint64(b)), 0).UTC()
	}
	return nil
}

// encode stores v into dst, which is exactly f.size bytes. dst is only
// written once v has been fully validated.
func (f Format) encode(dst []byte, v any) error {
	if v == nil {
		return mismatch(f, v)
	}
	switch f.kind {
	case kindInt, kindUint:
		u, err := f.integer(v)
		if err != nil {
			return err
		}
		putUint(dst, u)
		return nil
	case kindFloat:
		rv := reflect.ValueOf(v)
		if k := rv.Kind(); k != reflect.Float32 && k != reflect.Float64 {
			return mismatch(f, v)
		}
		x := rv.Float()
		if f.size == 4 {
			if !math.IsInf(x, 0) && !math.IsNaN(x) && math.Abs(x) > math.MaxFloat32 {
				return outOfRange(f, v)
			}
			binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(x)))
			return nil
		}
		binary.LittleEndian.PutUint64(dst, math.Float64bits(x))
		return nil
	case kindBool:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Bool {
			return mismatch(f, v)
		}
		dst[0] = 0
		if rv.Bool() {
			dst[0] = 1
		}
		return nil
	case kindString:
		var src []byte
		rv := reflect.ValueOf(v)
		switch {
		case rv.Kind() == reflect.String:
			src = []byte(rv.String())
		case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
			src = rv.Bytes()
		default:
			return mismatch(f, v)
		}
		if len(src) > f.size {
			return &Error{Kind: KindValueOutOfRange,
				Detail: fmt.Sprintf("%d bytes do not fit %s", len(src), f)}
		}
		n := copy(dst, src)
		clear(dst[n:])
		return nil
	case kindTimestamp:
		t, ok := v.(time.Time)
		if !ok {
			return mismatch(f, v)
		}
		binary.LittleEndian.PutUint64(dst, uint64(t.Unix()))
		return nil
	}
	return mismatch(f, v)
}

// integer range-checks any Go integer against the format width and returns
// its two's complement bit pattern.
func (f Format) integer(v any) (uint64, error) {
	bits := uint(f.size * 8)
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		if f.kind == kindInt {
			if bits < 64 && (n < -1<<(bits-1) || n > 1<<(bits-1)-1) {
				return 0, outOfRange(f, v)
			}
			return uint64(n), nil
		}
		if n < 0 || (bits < 64 && uint64(n) > 1<<bits-1) {
			return 0, outOfRange(f, v)
		}
		return uint64(n), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		limit := uint64(math.MaxUint64)
		if f.kind == kindInt {
			limit = 1<<(bits-1) - 1
		} else if bits < 64 {
			limit = 1<<bits - 1
		}
		if u > limit {
			return 0, outOfRange(f, v)
		}
		return u, nil
	}
	return 0, mismatch(f, v)
}

func putUint(dst []byte, u uint64) {
	switch len(dst) {
	case 1:
		dst[0] = byte(u)
	case 2:
		binary.LittleEndian.PutUint16(dst, uint16(u))
	case 4:
		binary.LittleEndian.PutUint32(dst, uint32(u))
	default:
		binary.LittleEndian.PutUint64(dst, u)
	}
}

func mismatch(f Format, v any) *Error {
	return &Error{Kind: KindTypeMismatch, Detail: fmt.Sprintf("%T cannot be stored as %s", v, f)}
}

func outOfRange(f Format, v any) *Error {
	return &Error{Kind: KindValueOutOfRange, Detail: fmt.Sprintf("%v does not fit %s", v, f)}
}

// Field describes one named field of a schema: its format and, optionally,
// an explicit byte offset.
type Field struct {
	Name   string
	Format Format
	// Offset is the explicit byte offset, or Follow.
	Offset int
}

// At returns a copy of the field pinned to an explicit byte offset.
func (f Field) At(offset int) Field {
	f.Offset = offset
	return f
}

// Size returns the width of the field in bytes.
func (f Field) Size() int { return f.Format.size }

func Int8(name string) Field    { return Field{name, FormatInt8, Follow} }
func Int16(name string) Field   { return Field{name, FormatInt16, Follow} }
func Int32(name string) Field   { return Field{name, FormatInt32, Follow} }
func Int64(name string) Field   { return Field{name, FormatInt64, Follow} }
func Uint8(name string) Field   { return Field{name, FormatUint8, Follow} }
func Uint16(name string) Field  { return Field{name, FormatUint16, Follow} }
func Uint32(name string) Field  { return Field{name, FormatUint32, Follow} }
func Uint64(name string) Field  { return Field{name, FormatUint64, Follow} }
func Float32(name string) Field { return Field{name, FormatFloat32, Follow} }
func Float64(name string) Field { return Field{name, FormatFloat64, Follow} }
func Bool(name string) Field    { return Field{name, FormatBool, Follow} }

// String declares a fixed-length byte string of n bytes. Shorter values are
// padded with zero bytes; reads return all n bytes as stored.
func String(name string, n int) Field { return Field{name, StringFormat(n), Follow} }

// Timestamp declares a time.Time field stored as TimestampSize bytes.
func Timestamp(name string) Field { return Field{name, FormatTimestamp, Follow} }
