package stage

import "context"

// Factory builds the callables of one stage. CreateCallables is called once,
// before any worker starts, and must return exactly poolSize non-nil
// callables; callable i is bound to worker i.
type Factory[In, Out any] interface {
	CreateCallables(poolSize int) ([]Callable[In, Out], error)
}

type FactoryFunc[In, Out any] func(poolSize int) ([]Callable[In, Out], error)

func (f FactoryFunc[In, Out]) CreateCallables(poolSize int) ([]Callable[In, Out], error) {
	return f(poolSize)
}

// Partition tells a callable which share of the work it owns.
type Partition struct {
	Worker  int
	Workers int
}

// Owns reports round-robin ownership: index i belongs to worker i mod Workers.
func (p Partition) Owns(index int) bool {
	if p.Workers <= 0 {
		return false
	}
	return ((index%p.Workers)+p.Workers)%p.Workers == p.Worker
}

// Range splits [0, total) into contiguous blocks and returns this worker's
// block as [start, end). Earlier workers take the remainder.
func (p Partition) Range(total int) (start, end int) {
	if p.Workers <= 0 || total <= 0 {
		return 0, 0
	}
	step, rest := total/p.Workers, total%p.Workers
	start = p.Worker*step + min(p.Worker, rest)
	end = start + step
	if p.Worker < rest {
		end++
	}
	return start, end
}

// Replicate builds one callable per worker with fn, handing each its
// Partition.
func Replicate[In, Out any](fn func(p Partition) Callable[In, Out]) Factory[In, Out] {
	return FactoryFunc[In, Out](func(poolSize int) ([]Callable[In, Out], error) {
		callables := make([]Callable[In, Out], poolSize)
		for i := range poolSize {
			callables[i] = fn(Partition{Worker: i, Workers: poolSize})
		}
		return callables, nil
	})
}

// Each builds a fresh callable per worker with newFn, so no instance is
// seen by two workers.
func Each[In, Out any](newFn func() Callable[In, Out]) Factory[In, Out] {
	return Replicate(func(Partition) Callable[In, Out] { return newFn() })
}

// Map builds one MapFunc per worker. fn may run on several workers at once
// and must not keep unsynchronized state.
func Map[In, Out any](fn func(ctx context.Context, in In) Out) Factory[In, Out] {
	return Each(func() Callable[In, Out] { return MapFunc(fn) })
}

// Try builds one TryFunc per worker. fn follows the same rule as for Map.
func Try[In, Out any](fn func(ctx context.Context, in In) (Out, error)) Factory[In, Out] {
	return Each(func() Callable[In, Out] { return TryFunc(fn) })
}

// Filter builds one FilterFunc per worker.
func Filter[T any](keep func(ctx context.Context, in T) bool) Factory[T, T] {
	return Each(func() Callable[T, T] { return FilterFunc(keep) })
}
