// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRoundTrip(t *testing.T) {
	ts := time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		name   string
		format Format
		in     any
		want   any
	}{
		{"int8 min", FormatInt8, int8(math.MinInt8), int8(math.MinInt8)},
		{"int16", FormatInt16, -12345, int16(-12345)},
		{"int32", FormatInt32, int32(-7), int32(-7)},
		{"int32 from int", FormatInt32, 255, int32(255)},
		{"int64 max", FormatInt64, int64(math.MaxInt64), int64(math.MaxInt64)},
		{"uint8 max", FormatUint8, 255, uint8(255)},
		{"uint16", FormatUint16, uint16(65535), uint16(65535)},
		{"uint32", FormatUint32, uint64(4000000000), uint32(4000000000)},
		{"uint64 max", FormatUint64, uint64(math.MaxUint64), uint64(math.MaxUint64)},
		{"float32", FormatFloat32, float32(1.5), float32(1.5)},
		{"float32 from float64", FormatFloat32, 0.25, float32(0.25)},
		{"float64", FormatFloat64, math.Pi, math.Pi},
		{"bool true", FormatBool, true, true},
		{"bool false", FormatBool, false, false},
		{"string exact", StringFormat(5), "Hello", "Hello"},
		{"string padded", StringFormat(5), "Hi", "Hi\x00\x00\x00"},
		{"string from bytes", StringFormat(3), []byte("abc"), "abc"},
		{"timestamp", FormatTimestamp, ts, ts},
		{"timestamp before epoch", FormatTimestamp, time.Unix(-86400, 0).UTC(), time.Unix(-86400, 0).UTC()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, tt.format.Size())
			require.NoError(t, tt.format.encode(buf, tt.in))
			assert.Equal(t, tt.want, tt.format.decode(buf))
		})
	}
}

func TestFormatZeroBuffer(t *testing.T) {
	tests := []struct {
		format Format
		want   any
	}{
		{FormatInt32, int32(0)},
		{FormatUint64, uint64(0)},
		{FormatFloat32, float32(0)},
		{FormatFloat64, float64(0)},
		{FormatBool, false},
		{StringFormat(4), "\x00\x00\x00\x00"},
		{FormatTimestamp, time.Unix(0, 0).UTC()},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.format.decode(make([]byte, tt.format.Size())))
		})
	}
}

func TestFormatEncodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		in     any
		want   error
	}{
		{"int8 overflow", FormatInt8, 128, ErrValueOutOfRange},
		{"int8 underflow", FormatInt8, -129, ErrValueOutOfRange},
		{"uint8 negative", FormatUint8, -1, ErrValueOutOfRange},
		{"uint16 overflow", FormatUint16, 70000, ErrValueOutOfRange},
		{"int64 from huge uint", FormatInt64, uint64(math.MaxUint64), ErrValueOutOfRange},
		{"float32 overflow", FormatFloat32, math.MaxFloat64, ErrValueOutOfRange},
		{"string too long", StringFormat(3), "abcd", ErrValueOutOfRange},
		{"int from string", FormatInt32, "1", ErrTypeMismatch},
		{"int from float", FormatInt32, 1.0, ErrTypeMismatch},
		{"float from int", FormatFloat64, 1, ErrTypeMismatch},
		{"bool from int", FormatBool, 1, ErrTypeMismatch},
		{"string from int", StringFormat(4), 1, ErrTypeMismatch},
		{"timestamp from int", FormatTimestamp, int64(0), ErrTypeMismatch},
		{"nil", FormatInt32, nil, ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := []byte{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}[:tt.format.Size()]
			before := append([]byte(nil), buf...)

			err := tt.format.encode(buf, tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, buf, "failed encode must not write")
		})
	}
}

func TestFormatStringAndParse(t *testing.T) {
	formats := []Format{
		FormatInt8, FormatInt16, FormatInt32, FormatInt64,
		FormatUint8, FormatUint16, FormatUint32, FormatUint64,
		FormatFloat32, FormatFloat64, FormatBool, FormatTimestamp,
		StringFormat(1), StringFormat(32),
	}
	for _, f := range formats {
		parsed, err := ParseFormat(f.String())
		require.NoError(t, err, f.String())
		assert.Equal(t, f, parsed)
	}

	for _, bad := range []string{"", "int24", "string[]", "string[-1]", "string[x]", "Int32"} {
		_, err := ParseFormat(bad)
		assert.ErrorIs(t, err, ErrSchemaDefinition, bad)
	}
}

func TestFieldConstructors(t *testing.T) {
	assert.Equal(t, 4, Int32("a").Size())
	assert.Equal(t, 8, Timestamp("a").Size())
	assert.Equal(t, 12, String("a", 12).Size())
	assert.Equal(t, Follow, Uint16("a").Offset)
	assert.Equal(t, 16, Float64("a").At(16).Offset)
}
