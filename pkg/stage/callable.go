package stage

import (
	"context"

	"github.com/ib-77/stagepool/pkg/rop"
)

// Callable is the per-worker processing unit. A stage calls it from its
// owning worker only, never concurrently. A Result without a value means no
// output; failures are reported through the Result, not by panicking.
type Callable[In, Out any] interface {
	Process(ctx context.Context, in In) rop.Result[Out]
}

// FanOut is implemented by callables that emit several messages per input.
// When a callable implements it, the stage calls ProcessMany instead of
// Process and publishes every element in order.
type FanOut[In, Out any] interface {
	Callable[In, Out]
	ProcessMany(ctx context.Context, in In) rop.Result[[]Out]
}

type CallableFunc[In, Out any] func(ctx context.Context, in In) rop.Result[Out]

func (f CallableFunc[In, Out]) Process(ctx context.Context, in In) rop.Result[Out] {
	return f(ctx, in)
}

// MapFunc lifts a plain transformation.
func MapFunc[In, Out any](fn func(ctx context.Context, in In) Out) Callable[In, Out] {
	return CallableFunc[In, Out](func(ctx context.Context, in In) rop.Result[Out] {
		return rop.Success(fn(ctx, in))
	})
}

// TryFunc lifts a fallible transformation; an error becomes a failed Result.
func TryFunc[In, Out any](fn func(ctx context.Context, in In) (Out, error)) Callable[In, Out] {
	return CallableFunc[In, Out](func(ctx context.Context, in In) rop.Result[Out] {
		out, err := fn(ctx, in)
		return rop.FromError(out, err)
	})
}

// FilterFunc passes through inputs that keep returns true for.
func FilterFunc[T any](keep func(ctx context.Context, in T) bool) Callable[T, T] {
	return CallableFunc[T, T](func(ctx context.Context, in T) rop.Result[T] {
		if keep(ctx, in) {
			return rop.Success(in)
		}
		return rop.None[T]()
	})
}

type FanOutFunc[In, Out any] func(ctx context.Context, in In) rop.Result[[]Out]

func (f FanOutFunc[In, Out]) ProcessMany(ctx context.Context, in In) rop.Result[[]Out] {
	return f(ctx, in)
}

// Process returns the first emitted message. Stages never call it.
func (f FanOutFunc[In, Out]) Process(ctx context.Context, in In) rop.Result[Out] {
	res := f(ctx, in)
	switch {
	case res.IsCancel():
		return rop.CancelFrom[[]Out, Out](res)
	case !res.IsSuccess():
		return rop.Fail[Out](res.Err())
	case len(res.Result()) == 0:
		return rop.None[Out]()
	default:
		return rop.Success(res.Result()[0])
	}
}
