// Package registry defines the mapping from mnemonic function names to the
// typed computations a provider exposes to its supervisor. The set of
// registered names is not exchanged on the wire; a Function request names a
// method by its string name directly.
//
// Construct a Registry and populate it at startup:
//
//	reg := registry.New()
//	reg.Register(registry.Func1("add", func(ctx context.Context, args addArgs) (int64, error) {
//		return args.A + args.B, nil
//	}))
//
// A Registry is populated at startup and only read once the provider starts
// accepting requests. Register and Lookup are safe for concurrent use.
package registry

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/thinknode/thinknode-provider-ipc-net/codec"
)

// ErrNotFound is reported by Lookup when no method is registered under the
// requested name.
var ErrNotFound = errors.New("NotFound")

// ErrArityMismatch is reported by Lookup when a method is registered under
// the requested name, but not for the observed argument count.
var ErrArityMismatch = errors.New("ArityMismatch")

// Capability describes which reporter handles, beyond a plain value result,
// an invoker accepts.
type Capability int

const (
	// CapNone invokers accept no reporter handles.
	CapNone Capability = iota
	// CapProgress invokers accept a ProgressFunc.
	CapProgress
	// CapFailure invokers accept a FailureFunc.
	CapFailure
	// CapBoth invokers accept both a ProgressFunc and a FailureFunc.
	CapBoth
)

func (c Capability) String() string {
	switch c {
	case CapNone:
		return "none"
	case CapProgress:
		return "progress"
	case CapFailure:
		return "failure"
	case CapBoth:
		return "both"
	default:
		return fmt.Sprintf("Capability(%d)", int(c))
	}
}

// ProgressFunc reports fractional progress and an optional message for the
// request currently in flight. Calling it after the request has been
// cancelled or completed is a silent no-op.
type ProgressFunc func(fraction float32, message string)

// FailureFunc reports a failure for the request currently in flight and
// cancels it. Calling it more than once, or after the request has already
// completed, is a silent no-op.
type FailureFunc func(code, message string)

// Invoker is the typed entry point a Descriptor exposes to the dispatcher.
// args holds the still-encoded MessagePack payload for each wire argument,
// in request order; progress and failure are always non-nil, regardless of
// the descriptor's declared Capabilities, so a hand-written invoker never
// needs a nil check. The returned bytes are the MessagePack encoding of the
// method's result, ready to carry in a Result frame.
type Invoker func(ctx context.Context, args [][]byte, progress ProgressFunc, failure FailureFunc) ([]byte, error)

// Descriptor describes one registered method.
type Descriptor struct {
	Name         string
	ParamTypes   []reflect.Type
	ReturnType   reflect.Type
	Capabilities Capability
	Invoke       Invoker
}

// Registry maps method names to descriptors.
type Registry struct {
	mu      sync.RWMutex
	methods map[string]*Descriptor
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{methods: make(map[string]*Descriptor)}
}

// Register adds d to r. It reports an error if d.Name is empty, d.Invoke is
// nil, or a method is already registered under d.Name; registration
// failures are a startup-time programming error, not a runtime condition.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" {
		return errors.New("registry: empty method name")
	}
	if d.Invoke == nil {
		return fmt.Errorf("registry: method %q has no invoker", d.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.methods[d.Name]; ok {
		return fmt.Errorf("registry: method %q already registered", d.Name)
	}
	cp := d
	r.methods[d.Name] = &cp
	return nil
}

// Lookup returns the descriptor registered under name, provided argc
// matches the number of declared parameter types.
func (r *Registry) Lookup(name string, argc int) (*Descriptor, error) {
	r.mu.RLock()
	d, ok := r.methods[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("method %q: %w", name, ErrNotFound)
	}
	if len(d.ParamTypes) != argc {
		return nil, fmt.Errorf("method %q: want %d argument(s), got %d: %w", name, len(d.ParamTypes), argc, ErrArityMismatch)
	}
	return d, nil
}

// MustRegister adds d to r and panics if registration fails. It is intended
// for use at program startup, where a duplicate or malformed registration is
// a programming error rather than a runtime condition worth recovering from.
func MustRegister(r *Registry, d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func decodeArg[T any](args [][]byte, i int) (T, error) {
	return codec.Decode[T](args[i])
}

func checkArgc(args [][]byte, want int) error {
	if len(args) != want {
		return fmt.Errorf("invoker: want %d argument(s), got %d", want, len(args))
	}
	return nil
}

// Func0 adapts a nullary function with no reporter handles.
func Func0[R any](name string, f func(ctx context.Context) (R, error)) Descriptor {
	return Descriptor{
		Name:         name,
		ReturnType:   typeOf[R](),
		Capabilities: CapNone,
		Invoke: func(ctx context.Context, args [][]byte, _ ProgressFunc, _ FailureFunc) ([]byte, error) {
			if err := checkArgc(args, 0); err != nil {
				return nil, err
			}
			r, err := f(ctx)
			if err != nil {
				return nil, err
			}
			return codec.Encode(r)
		},
	}
}

// Func0P adapts a nullary function that accepts a ProgressFunc.
func Func0P[R any](name string, f func(ctx context.Context, progress ProgressFunc) (R, error)) Descriptor {
	return Descriptor{
		Name:         name,
		ReturnType:   typeOf[R](),
		Capabilities: CapProgress,
		Invoke: func(ctx context.Context, args [][]byte, progress ProgressFunc, _ FailureFunc) ([]byte, error) {
			if err := checkArgc(args, 0); err != nil {
				return nil, err
			}
			r, err := f(ctx, progress)
			if err != nil {
				return nil, err
			}
			return codec.Encode(r)
		},
	}
}

// Func0F adapts a nullary function that accepts a FailureFunc.
func Func0F[R any](name string, f func(ctx context.Context, failure FailureFunc) (R, error)) Descriptor {
	return Descriptor{
		Name:         name,
		ReturnType:   typeOf[R](),
		Capabilities: CapFailure,
		Invoke: func(ctx context.Context, args [][]byte, _ ProgressFunc, failure FailureFunc) ([]byte, error) {
			if err := checkArgc(args, 0); err != nil {
				return nil, err
			}
			r, err := f(ctx, failure)
			if err != nil {
				return nil, err
			}
			return codec.Encode(r)
		},
	}
}

// Func0PF adapts a nullary function that accepts both reporter handles.
func Func0PF[R any](name string, f func(ctx context.Context, progress ProgressFunc, failure FailureFunc) (R, error)) Descriptor {
	return Descriptor{
		Name:         name,
		ReturnType:   typeOf[R](),
		Capabilities: CapBoth,
		Invoke: func(ctx context.Context, args [][]byte, progress ProgressFunc, failure FailureFunc) ([]byte, error) {
			if err := checkArgc(args, 0); err != nil {
				return nil, err
			}
			r, err := f(ctx, progress, failure)
			if err != nil {
				return nil, err
			}
			return codec.Encode(r)
		},
	}
}

// Func1 adapts a unary function with no reporter handles.
func Func1[P1, R any](name string, f func(ctx context.Context, p1 P1) (R, error)) Descriptor {
	return Descriptor{
		Name:         name,
		ParamTypes:   []reflect.Type{typeOf[P1]()},
		ReturnType:   typeOf[R](),
		Capabilities: CapNone,
		Invoke: func(ctx context.Context, args [][]byte, _ ProgressFunc, _ FailureFunc) ([]byte, error) {
			if err := checkArgc(args, 1); err != nil {
				return nil, err
			}
			p1, err := decodeArg[P1](args, 0)
			if err != nil {
				return nil, err
			}
			r, err := f(ctx, p1)
			if err != nil {
				return nil, err
			}
			return codec.Encode(r)
		},
	}
}

// Func1P adapts a unary function that accepts a ProgressFunc.
func Func1P[P1, R any](name string, f func(ctx context.Context, p1 P1, progress ProgressFunc) (R, error)) Descriptor {
	return Descriptor{
		Name:         name,
		ParamTypes:   []reflect.Type{typeOf[P1]()},
		ReturnType:   typeOf[R](),
		Capabilities: CapProgress,
		Invoke: func(ctx context.Context, args [][]byte, progress ProgressFunc, _ FailureFunc) ([]byte, error) {
			if err := checkArgc(args, 1); err != nil {
				return nil, err
			}
			p1, err := decodeArg[P1](args, 0)
			if err != nil {
				return nil, err
			}
			r, err := f(ctx, p1, progress)
			if err != nil {
				return nil, err
			}
			return codec.Encode(r)
		},
	}
}

// Func1F adapts a unary function that accepts a FailureFunc.
func Func1F[P1, R any](name string, f func(ctx context.Context, p1 P1, failure FailureFunc) (R, error)) Descriptor {
	return Descriptor{
		Name:         name,
		ParamTypes:   []reflect.Type{typeOf[P1]()},
		ReturnType:   typeOf[R](),
		Capabilities: CapFailure,
		Invoke: func(ctx context.Context, args [][]byte, _ ProgressFunc, failure FailureFunc) ([]byte, error) {
			if err := checkArgc(args, 1); err != nil {
				return nil, err
			}
			p1, err := decodeArg[P1](args, 0)
			if err != nil {
				return nil, err
			}
			r, err := f(ctx, p1, failure)
			if err != nil {
				return nil, err
			}
			return codec.Encode(r)
		},
	}
}

// Func1PF adapts a unary function that accepts both reporter handles.
func Func1PF[P1, R any](name string, f func(ctx context.Context, p1 P1, progress ProgressFunc, failure FailureFunc) (R, error)) Descriptor {
	return Descriptor{
		Name:         name,
		ParamTypes:   []reflect.Type{typeOf[P1]()},
		ReturnType:   typeOf[R](),
		Capabilities: CapBoth,
		Invoke: func(ctx context.Context, args [][]byte, progress ProgressFunc, failure FailureFunc) ([]byte, error) {
			if err := checkArgc(args, 1); err != nil {
				return nil, err
			}
			p1, err := decodeArg[P1](args, 0)
			if err != nil {
				return nil, err
			}
			r, err := f(ctx, p1, progress, failure)
			if err != nil {
				return nil, err
			}
			return codec.Encode(r)
		},
	}
}

// Func2 adapts a binary function with no reporter handles.
func Func2[P1, P2, R any](name string, f func(ctx context.Context, p1 P1, p2 P2) (R, error)) Descriptor {
	return Descriptor{
		Name:         name,
		ParamTypes:   []reflect.Type{typeOf[P1](), typeOf[P2]()},
		ReturnType:   typeOf[R](),
		Capabilities: CapNone,
		Invoke: func(ctx context.Context, args [][]byte, _ ProgressFunc, _ FailureFunc) ([]byte, error) {
			if err := checkArgc(args, 2); err != nil {
				return nil, err
			}
			p1, err := decodeArg[P1](args, 0)
			if err != nil {
				return nil, err
			}
			p2, err := decodeArg[P2](args, 1)
			if err != nil {
				return nil, err
			}
			r, err := f(ctx, p1, p2)
			if err != nil {
				return nil, err
			}
			return codec.Encode(r)
		},
	}
}

// Func2P adapts a binary function that accepts a ProgressFunc.
func Func2P[P1, P2, R any](name string, f func(ctx context.Context, p1 P1, p2 P2, progress ProgressFunc) (R, error)) Descriptor {
	return Descriptor{
		Name:         name,
		ParamTypes:   []reflect.Type{typeOf[P1](), typeOf[P2]()},
		ReturnType:   typeOf[R](),
		Capabilities: CapProgress,
		Invoke: func(ctx context.Context, args [][]byte, progress ProgressFunc, _ FailureFunc) ([]byte, error) {
			if err := checkArgc(args, 2); err != nil {
				return nil, err
			}
			p1, err := decodeArg[P1](args, 0)
			if err != nil {
				return nil, err
			}
			p2, err := decodeArg[P2](args, 1)
			if err != nil {
				return nil, err
			}
			r, err := f(ctx, p1, p2, progress)
			if err != nil {
				return nil, err
			}
			return codec.Encode(r)
		},
	}
}

// Func2F adapts a binary function that accepts a FailureFunc.
func Func2F[P1, P2, R any](name string, f func(ctx context.Context, p1 P1, p2 P2, failure FailureFunc) (R, error)) Descriptor {
	return Descriptor{
		Name:         name,
		ParamTypes:   []reflect.Type{typeOf[P1](), typeOf[P2]()},
		ReturnType:   typeOf[R](),
		Capabilities: CapFailure,
		Invoke: func(ctx context.Context, args [][]byte, _ ProgressFunc, failure FailureFunc) ([]byte, error) {
			if err := checkArgc(args, 2); err != nil {
				return nil, err
			}
			p1, err := decodeArg[P1](args, 0)
			if err != nil {
				return nil, err
			}
			p2, err := decodeArg[P2](args, 1)
			if err != nil {
				return nil, err
			}
			r, err := f(ctx, p1, p2, failure)
			if err != nil {
				return nil, err
			}
			return codec.Encode(r)
		},
	}
}

// Func2PF adapts a binary function that accepts both reporter handles.
func Func2PF[P1, P2, R any](name string, f func(ctx context.Context, p1 P1, p2 P2, progress ProgressFunc, failure FailureFunc) (R, error)) Descriptor {
	return Descriptor{
		Name:         name,
		ParamTypes:   []reflect.Type{typeOf[P1](), typeOf[P2]()},
		ReturnType:   typeOf[R](),
		Capabilities: CapBoth,
		Invoke: func(ctx context.Context, args [][]byte, progress ProgressFunc, failure FailureFunc) ([]byte, error) {
			if err := checkArgc(args, 2); err != nil {
				return nil, err
			}
			p1, err := decodeArg[P1](args, 0)
			if err != nil {
				return nil, err
			}
			p2, err := decodeArg[P2](args, 1)
			if err != nil {
				return nil, err
			}
			r, err := f(ctx, p1, p2, progress, failure)
			if err != nil {
				return nil, err
			}
			return codec.Encode(r)
		},
	}
}
