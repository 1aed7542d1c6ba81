// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Encode returns the wire bytes of a handler result. It accepts *Record,
// *List, []byte, nil and any value with a Bytes() []byte method. Record and
// List bytes alias their buffers.
func Encode(v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case *Record:
		return x.Bytes(), nil
	case *List:
		return x.Bytes(), nil
	case []byte:
		return x, nil
	case interface{ Bytes() []byte }:
		return x.Bytes(), nil
	}
	return nil, &Error{Kind: KindTypeMismatch, Detail: fmt.Sprintf("cannot encode %T as wire bytes", v)}
}

// BinaryCodec moves raw wire bytes. Encode accepts what the package Encode
// accepts; Decode fills a *[]byte (aliasing data) or copies data into the
// buffer of a *Record.
type BinaryCodec struct{}

func (BinaryCodec) Encode(v interface{}) ([]byte, error) {
	return Encode(v)
}

func (BinaryCodec) Decode(data []byte, v interface{}) error {
	switch x := v.(type) {
	case *[]byte:
		*x = data
		return nil
	case *Record:
		if len(data) < x.schema.size {
			return fieldError(KindBufferTooSmall, x.schema, "",
				fmt.Sprintf("need %d bytes, have %d", x.schema.size, len(data)))
		}
		copy(x.buf, data[:x.schema.size])
		return nil
	}
	return &Error{Kind: KindTypeMismatch, Detail: fmt.Sprintf("cannot decode wire bytes into %T", v)}
}

// Binary is the codec used by clients unless WithCodec says otherwise.
var Binary Codec = BinaryCodec{}

// JSONCodec is a JSON-based codec. Records encode as an object of their
// fields and lists as an array of such objects; a *Record target is filled
// field by field.
type JSONCodec struct{}

func (JSONCodec) Encode(v interface{}) ([]byte, error) {
	fields, err := snapshotFields(v)
	if err != nil {
		return nil, err
	}
	if fields != nil {
		return json.Marshal(fields)
	}
	return json.Marshal(v)
}

// snapshotFields returns the field map of a *Record or the slice of field
// maps of a *List, and nil for anything else. Non-finite floats become the
// strings "NaN", "+Inf" and "-Inf" and timestamps outside RFC 3339 become
// Unix seconds, since JSON cannot carry them otherwise.
func snapshotFields(v any) (any, error) {
	switch x := v.(type) {
	case *Record:
		return fieldMap(x)
	case *List:
		out := make([]map[string]any, 0, x.Len())
		for _, rec := range x.All() {
			m, err := fieldMap(rec)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		return out, nil
	}
	return nil, nil
}

func fieldMap(rec *Record) (map[string]any, error) {
	snap, err := rec.Snapshot()
	if err != nil {
		return nil, err
	}
	m := snap.Map()
	for name, val := range m {
		var f float64
		switch x := val.(type) {
		case float32:
			f = float64(x)
		case float64:
			f = x
		case time.Time:
			// RFC 3339 only covers years 0 through 9999
			if y := x.Year(); y < 0 || y > 9999 {
				m[name] = x.Unix()
			}
			continue
		default:
			continue
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			m[name] = strconv.FormatFloat(f, 'g', -1, 64)
		}
	}
	return m, nil
}

func (JSONCodec) Decode(data []byte, v interface{}) error {
	rec, ok := v.(*Record)
	if !ok {
		return json.Unmarshal(data, v)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	return setJSONFields(rec, fields)
}

func setJSONFields(rec *Record, fields map[string]json.RawMessage) error {
	scratch := rec.Clone()
	for name, raw := range fields {
		slot, err := rec.schema.slot(name)
		if err != nil {
			return err
		}
		val, err := jsonValue(slot.Format, raw)
		if err != nil {
			return &Error{Kind: KindTypeMismatch, Schema: rec.schema.name, Field: name,
				Detail: "invalid JSON value for " + slot.Format.String(), Cause: err}
		}
		if err := scratch.Set(name, val); err != nil {
			return err
		}
	}
	copy(rec.buf, scratch.buf)
	return nil
}

func jsonValue(f Format, raw json.RawMessage) (any, error) {
	var err error
	switch f.kind {
	case kindInt:
		var n int64
		err = json.Unmarshal(raw, &n)
		return n, err
	case kindUint:
		var n uint64
		err = json.Unmarshal(raw, &n)
		return n, err
	case kindFloat:
		var x float64
		if err = json.Unmarshal(raw, &x); err == nil {
			return x, nil
		}
		var text string
		if json.Unmarshal(raw, &text) != nil {
			return nil, err
		}
		x, perr := strconv.ParseFloat(text, 64)
		if perr != nil || (!math.IsNaN(x) && !math.IsInf(x, 0)) {
			return nil, err
		}
		return x, nil
	case kindBool:
		var b bool
		err = json.Unmarshal(raw, &b)
		return b, err
	case kindString:
		var s string
		err = json.Unmarshal(raw, &s)
		return s, err
	case kindTimestamp:
		var t time.Time
		if err = json.Unmarshal(raw, &t); err == nil {
			return t, nil
		}
		var sec int64
		if json.Unmarshal(raw, &sec) != nil {
			return nil, err
		}
		return time.Unix(sec, 0).UTC(), nil
	}
	return nil, fmt.Errorf("unsupported format %s", f)
}
