// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAsyncInvokeAwaitsHandler(t *testing.T) {
	d := NewAsyncDispatcher()
	d.Register(1, OnRecordContext(pointSchema, func(ctx context.Context, rec *Record, args Args) (any, error) {
		select {
		case <-time.After(10 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return addPoint(rec, args)
	}))
	// plain handlers work on the async dispatcher too
	d.Register(2, OnRecord(pointSchema, addPoint))

	for _, code := range []int32{1, 2} {
		out, err := d.Invoke(context.Background(), code, newPoint(t, 20, 22).Bytes(), nil)
		if err != nil {
			t.Fatalf("code %d: %v", code, err)
		}
		if sum, _ := Value[int64](out.(*Record), "sum"); sum != 42 {
			t.Errorf("code %d: sum = %d", code, sum)
		}
	}
}

func TestAsyncInvokeCancellation(t *testing.T) {
	d := NewAsyncDispatcher()
	d.Register(1, OnListContext(byteSchema, func(ctx context.Context, _ *List, _ Args) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := d.Invoke(ctx, 1, nil, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
}

func TestAsyncErrors(t *testing.T) {
	d := NewAsyncDispatcher()
	d.Register(1, OnRecord(pointSchema, addPoint))

	if _, err := d.Invoke(context.Background(), 9, nil, nil); !errors.Is(err, ErrUnknownCode) {
		t.Errorf("unknown code: got %v", err)
	}
	if _, err := d.Invoke(context.Background(), 1, []byte{1}, nil); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("malformed: got %v", err)
	}
}

func TestAsyncGo(t *testing.T) {
	release := make(chan struct{})
	d := NewAsyncDispatcher()
	d.Register(1, OnRecordContext(pointSchema, func(ctx context.Context, rec *Record, args Args) (any, error) {
		<-release
		return addPoint(rec, args)
	}, "who"))

	first := d.Go(context.Background(), 1, newPoint(t, 1, 2).Bytes(), map[string]any{"who": "a"})
	second := d.Go(context.Background(), 1, newPoint(t, 3, 4).Bytes(), nil)

	// both calls are in flight at once; neither finishes before release
	select {
	case <-first.Done:
		t.Fatal("call finished before its handler returned")
	case <-time.After(10 * time.Millisecond):
	}
	close(release)

	select {
	case call := <-first.Done:
		if call != first || call.Error != nil {
			t.Fatalf("got %+v", call)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first call did not finish")
	}
	if sum, _ := Value[int64](first.Reply.(*Record), "sum"); sum != 3 {
		t.Errorf("first sum = %d", sum)
	}

	// Wait works without receiving from Done
	reply, err := second.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if sum, _ := Value[int64](reply.(*Record), "sum"); sum != 7 {
		t.Errorf("second sum = %d", sum)
	}
	if second.Code != 1 {
		t.Errorf("Code = %d", second.Code)
	}

	// and after it
	if _, err := first.Wait(); err != nil {
		t.Errorf("Wait after Done: %v", err)
	}
}

func TestAsyncGoUnknownCode(t *testing.T) {
	call := NewAsyncDispatcher().Go(context.Background(), 5, nil, nil)
	if _, err := call.Wait(); !errors.Is(err, ErrUnknownCode) {
		t.Fatalf("got %v", err)
	}
}

func TestAsyncHandleZAP(t *testing.T) {
	d := NewAsyncDispatcher()
	d.Register(1, OnRecord(pointSchema, addPoint))
	d.Register(2, OnRecord(pointSchema, func(*Record, Args) (any, error) { return 42, nil }))
	d.Register(3, OnList(byteSchema, func(*List, Args) (any, error) { return nil, nil }))

	out, err := d.HandleZAP(context.Background(), 1, newPoint(t, 1, 1).Bytes(), nil)
	if err != nil {
		t.Fatalf("HandleZAP: %v", err)
	}
	if len(out) != sumSchema.Size() || out[0] != 2 {
		t.Errorf("got %v", out)
	}

	if _, err := d.HandleZAP(context.Background(), 2, make([]byte, 8), nil); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("non-encodable result: got %v", err)
	}

	out, err = d.HandleZAP(context.Background(), 3, nil, nil)
	if err != nil || out != nil {
		t.Errorf("nil result: got %v, %v", out, err)
	}
}
