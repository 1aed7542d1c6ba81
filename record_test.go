// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var tradeSchema = MustSchema("Trade",
	Int32("status"),
	Float32("price"),
	Bool("buy"),
	String("sym", 5),
	Timestamp("at"),
)

func TestRecordStatusScenario(t *testing.T) {
	s := MustSchema("Status", Int32("status"))

	rec, err := s.View([]byte{0xFF, 0x00, 0x00, 0x00})
	require.NoError(t, err)

	status, err := Value[int32](rec, "status")
	require.NoError(t, err)
	assert.Equal(t, int32(255), status)
}

func TestRecordStringScenario(t *testing.T) {
	s := MustSchema("Status", String("status", 5))
	payload := []byte("Hello")

	rec, err := s.View(payload)
	require.NoError(t, err)

	v, err := rec.Get("status")
	require.NoError(t, err)
	assert.Equal(t, "Hello", v)

	out := s.New()
	require.NoError(t, out.Set("status", v))
	assert.Equal(t, payload, out.Bytes())
}

func TestRecordZeroBuffer(t *testing.T) {
	rec := tradeSchema.New()
	assert.Len(t, rec.Bytes(), tradeSchema.Size())

	snap, err := rec.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, Snapshot{
		{"status", int32(0)},
		{"price", float32(0)},
		{"buy", false},
		{"sym", "\x00\x00\x00\x00\x00"},
		{"at", time.Unix(0, 0).UTC()},
	}, snap)
}

func TestRecordReadWrite(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := tradeSchema.New()

	require.NoError(t, rec.Set("status", int32(-3)))
	require.NoError(t, rec.Set("price", float32(101.5)))
	require.NoError(t, rec.Set("buy", true))
	require.NoError(t, rec.Set("sym", "LUX"))
	require.NoError(t, rec.Set("at", at))

	status, err := Value[int32](rec, "status")
	require.NoError(t, err)
	assert.Equal(t, int32(-3), status)

	price, err := Value[float32](rec, "price")
	require.NoError(t, err)
	assert.Equal(t, float32(101.5), price)

	buy, err := Value[bool](rec, "buy")
	require.NoError(t, err)
	assert.True(t, buy)

	sym, err := Value[string](rec, "sym")
	require.NoError(t, err)
	assert.Equal(t, "LUX\x00\x00", sym)

	got, err := Value[time.Time](rec, "at")
	require.NoError(t, err)
	assert.True(t, at.Equal(got))

	_, err = Value[int64](rec, "status")
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestRecordAliasesBuffer(t *testing.T) {
	buf := make([]byte, pointSchema.Size()+4)
	rec, err := pointSchema.View(buf)
	require.NoError(t, err)

	require.NoError(t, rec.Set("y", int32(100)))
	assert.Equal(t, []byte{100, 0, 0, 0}, buf[4:8], "record writes reach the caller's buffer")

	buf[0] = 7
	x, err := Value[int32](rec, "x")
	require.NoError(t, err)
	assert.Equal(t, int32(7), x, "caller writes are visible through the record")

	assert.Len(t, rec.Bytes(), pointSchema.Size(), "Bytes excludes trailing bytes")

	clone := rec.Clone()
	require.NoError(t, clone.Set("x", int32(1)))
	assert.Equal(t, byte(7), buf[0], "clone does not alias")
}

func TestRecordErrors(t *testing.T) {
	_, err := pointSchema.View(make([]byte, 7))
	assert.ErrorIs(t, err, ErrBufferTooSmall)

	rec := pointSchema.New()
	_, err = rec.Get("z")
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.ErrorIs(t, rec.Set("z", 1), ErrUnknownField)

	err = rec.Set("x", "1")
	require.ErrorIs(t, err, ErrTypeMismatch)
	var we *Error
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "Point", we.Schema)
	assert.Equal(t, "x", we.Field)

	s := MustSchema("Short", String("sym", 3))
	short := s.New()
	require.NoError(t, short.Set("sym", "abc"))
	assert.ErrorIs(t, short.Set("sym", "abcd"), ErrValueOutOfRange)
	v, err := short.Get("sym")
	require.NoError(t, err)
	assert.Equal(t, "abc", v, "failed write leaves the field unchanged")
}

func TestRecordShortBufferField(t *testing.T) {
	// View never builds a record this short
	rec := &Record{schema: pointSchema, buf: make([]byte, 6)}

	_, err := rec.Get("x")
	assert.NoError(t, err)
	_, err = rec.Get("y")
	assert.ErrorIs(t, err, ErrBufferTooSmall)
	assert.ErrorIs(t, rec.Set("y", int32(1)), ErrBufferTooSmall)
}

func TestSnapshotReflectsBuffer(t *testing.T) {
	rec := newPoint(t, 1, 2)
	first, err := rec.Snapshot()
	require.NoError(t, err)

	require.NoError(t, rec.Set("x", int32(9)))
	second, err := rec.Snapshot()
	require.NoError(t, err)

	x, _ := first.Get("x")
	assert.Equal(t, int32(1), x)
	x, _ = second.Get("x")
	assert.Equal(t, int32(9), x)
	_, ok := second.Get("nope")
	assert.False(t, ok)

	assert.Equal(t, map[string]any{"x": int32(9), "y": int32(2)}, second.Map())
	assert.Equal(t, "Point{x: 9, y: 2}", rec.String())
}

func TestRecordLogObject(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)

	rec := tradeSchema.New()
	require.NoError(t, rec.Set("sym", "LUX"))
	require.NoError(t, rec.Set("status", int32(4)))
	log.Info("trade", zap.Object("rec", rec))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()["rec"].(map[string]any)
	assert.Equal(t, "Trade", fields["schema"])
	assert.Equal(t, "LUX", fields["sym"])
	assert.Equal(t, int32(4), fields["status"])
}
