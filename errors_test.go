// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "kind only",
			err:  &Error{Kind: KindUnknownField},
			want: "wire: unknown_field",
		},
		{
			name: "schema and field",
			err:  &Error{Kind: KindTypeMismatch, Schema: "Order", Field: "qty", Detail: "string cannot be stored as int64"},
			want: "wire: type_mismatch at Order.qty: string cannot be stored as int64",
		},
		{
			name: "schema only",
			err:  &Error{Kind: KindBufferTooSmall, Schema: "Order", Detail: "need 8 bytes, have 3"},
			want: "wire: buffer_too_small at Order: need 8 bytes, have 3",
		},
		{
			name: "code zero",
			err:  codeError(KindUnknownCode, 0, "no handler registered", nil),
			want: "wire: unknown_code (code 0): no handler registered",
		},
		{
			name: "with cause",
			err:  codeError(KindMalformedPayload, 4, "bad", errors.New("short")),
			want: "wire: malformed_payload (code 4): bad (caused by: short)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorIs(t *testing.T) {
	cause := errors.New("root")
	err := fmt.Errorf("transport: %w", codeError(KindMalformedPayload, 1, "bad", cause))

	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrUnknownCode)

	sentinels := []*Error{
		ErrSchemaDefinition, ErrBufferTooSmall, ErrTypeMismatch, ErrValueOutOfRange,
		ErrUnknownField, ErrIndexOutOfRange, ErrUnknownCode, ErrMalformedPayload,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			assert.Equal(t, i == j, errors.Is(a, b), "%s vs %s", a.Kind, b.Kind)
		}
	}
}
