// Package stage implements Stage, a worker pool that drains one pipe and
// feeds another.
//
// A stage is built from a Factory that returns one Callable per worker, so
// workers can own disjoint shares of the work (see Partition). Each worker
// loops: pop the head of the input pipe (waiting while it is empty), run its
// callable outside any lock, push the result to the output pipe. The input
// and output pipes have separate locks, so consumer-side and producer-side
// contention are independent.
//
// Key constructs:
// - New/Close/Wait: lifecycle; Close stops and joins workers, then releases callables
// - Callable, FanOut: zero-or-one and zero-or-many outputs per input
// - CallableFunc, MapFunc, TryFunc, FilterFunc: adapters for plain functions
// - Factory, Replicate, Each, Map, Try, Filter, Partition: building per-worker callables
// - Observer, Stats: per-message events and counters
//
// A failing or panicking callable produces no output and the worker moves on
// to the next message. Ordering is FIFO per pipe; with more than one worker
// outputs may be published out of input order.
package stage
