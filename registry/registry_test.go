package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/creachadair/mds/mtest"
	"github.com/thinknode/thinknode-provider-ipc-net/codec"
	"github.com/thinknode/thinknode-provider-ipc-net/registry"
)

type addArgs struct {
	A int64
	B int64
}

func TestRegisterLookup(t *testing.T) {
	reg := registry.New()
	if err := reg.Register(registry.Func1("add", func(ctx context.Context, args addArgs) (int64, error) {
		return args.A + args.B, nil
	})); err != nil {
		t.Fatalf("Register: %v", err)
	}

	d, err := reg.Lookup("add", 1)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if d.Capabilities != registry.CapNone {
		t.Errorf("Capabilities: got %v, want %v", d.Capabilities, registry.CapNone)
	}

	enc, err := codec.Encode(addArgs{A: 2, B: 3})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := d.Invoke(context.Background(), [][]byte{enc}, nil, nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	sum, err := codec.Decode[int64](out)
	if err != nil {
		t.Fatalf("Decode result: %v", err)
	}
	if sum != 5 {
		t.Errorf("sum: got %d, want 5", sum)
	}
}

func TestLookupNotFound(t *testing.T) {
	reg := registry.New()
	if _, err := reg.Lookup("missing", 0); !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("Lookup: got %v, want ErrNotFound", err)
	}
}

func TestLookupArityMismatch(t *testing.T) {
	reg := registry.New()
	if err := reg.Register(registry.Func1("add", func(ctx context.Context, args addArgs) (int64, error) {
		return args.A + args.B, nil
	})); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := reg.Lookup("add", 2); !errors.Is(err, registry.ErrArityMismatch) {
		t.Errorf("Lookup: got %v, want ErrArityMismatch", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := registry.New()
	d := registry.Func0("ping", func(ctx context.Context) (string, error) { return "pong", nil })
	if err := reg.Register(d); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(d); err == nil {
		t.Error("second Register of the same name did not fail")
	}
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	reg := registry.New()
	d := registry.Func0("ping", func(ctx context.Context) (string, error) { return "pong", nil })
	registry.MustRegister(reg, d)
	mtest.MustPanic(t, func() { registry.MustRegister(reg, d) })
}

func TestFunc1PReportsProgress(t *testing.T) {
	reg := registry.New()
	var gotFraction float32
	var gotMessage string
	err := reg.Register(registry.Func1P("slow", func(ctx context.Context, n int64, progress registry.ProgressFunc) (int64, error) {
		progress(0.5, "halfway")
		return n * 2, nil
	}))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	d, err := reg.Lookup("slow", 1)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	enc, err := codec.Encode(int64(21))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := d.Invoke(context.Background(), [][]byte{enc}, func(fraction float32, message string) {
		gotFraction, gotMessage = fraction, message
	}, func(string, string) {})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	result, err := codec.Decode[int64](out)
	if err != nil {
		t.Fatalf("Decode result: %v", err)
	}
	if result != 42 {
		t.Errorf("result: got %d, want 42", result)
	}
	if gotFraction != 0.5 || gotMessage != "halfway" {
		t.Errorf("progress: got (%v, %q), want (0.5, %q)", gotFraction, gotMessage, "halfway")
	}
}

func TestFunc0FReportsFailure(t *testing.T) {
	reg := registry.New()
	err := reg.Register(registry.Func0F("cancellable", func(ctx context.Context, failure registry.FailureFunc) (int64, error) {
		failure("Cancelled", "gave up")
		return 0, errors.New("gave up")
	}))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	d, err := reg.Lookup("cancellable", 0)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	var gotCode, gotMessage string
	_, err = d.Invoke(context.Background(), nil, func(float32, string) {}, func(code, message string) {
		gotCode, gotMessage = code, message
	})
	if err == nil {
		t.Error("Invoke: got nil error, want the raised failure")
	}
	if gotCode != "Cancelled" || gotMessage != "gave up" {
		t.Errorf("failure: got (%q, %q), want (%q, %q)", gotCode, gotMessage, "Cancelled", "gave up")
	}
}
