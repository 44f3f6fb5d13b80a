package stage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ib-77/stagepool/pkg/pipe"
	"github.com/ib-77/stagepool/pkg/rop"
)

// Stage runs a fixed pool of workers that move messages from in to out
// through one Callable per worker. The pipes belong to the caller and must
// outlive the stage.
type Stage[In, Out any] struct {
	name      string
	poolSize  int
	in        *pipe.Pipe[In]
	out       *pipe.Pipe[Out]
	callables []Callable[In, Out]
	logger    *slog.Logger
	observer  Observer

	// stop ends worker loops; work is the context handed to callables and
	// is not cancelled by stop, so a message in flight always completes.
	stop   context.Context
	cancel context.CancelFunc
	work   context.Context

	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
	stats     counters
}

// New validates its arguments, builds the callables through factory and
// starts poolSize workers. On error nothing has been started. Cancelling ctx
// stops the workers as Close does, without releasing the callables.
func New[In, Out any](ctx context.Context, poolSize int, in *pipe.Pipe[In], out *pipe.Pipe[Out],
	factory Factory[In, Out], opts ...Option) (*Stage[In, Out], error) {

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	switch {
	case poolSize < 1:
		return nil, configErr(o.name, "pool size", "must be >= 1, got %d", poolSize)
	case in == nil:
		return nil, configErr(o.name, "input pipe", "missing")
	case out == nil:
		return nil, configErr(o.name, "output pipe", "missing")
	case any(in) == any(out):
		return nil, configErr(o.name, "output pipe", "must differ from the input pipe")
	case factory == nil:
		return nil, configErr(o.name, "factory", "missing")
	}

	callables, err := factory.CreateCallables(poolSize)
	if err != nil {
		return nil, &ConfigurationError{Stage: o.name, Field: "callables", Reason: err.Error()}
	}
	if len(callables) != poolSize {
		return nil, configErr(o.name, "callables", "factory built %d for pool size %d", len(callables), poolSize)
	}
	for i, c := range callables {
		if c == nil {
			return nil, configErr(o.name, "callables", "callable %d is nil", i)
		}
	}

	s := &Stage[In, Out]{
		name:      o.name,
		poolSize:  poolSize,
		in:        in,
		out:       out,
		callables: callables,
		logger:    o.logger.With("stage", o.name),
		observer:  o.observer,
		work:      context.WithoutCancel(ctx),
		done:      make(chan struct{}),
	}
	s.stop, s.cancel = context.WithCancel(ctx)

	for i, c := range callables {
		s.wg.Add(1)
		go s.run(i, c)
	}
	go func() {
		s.wg.Wait()
		close(s.done)
	}()

	s.logger.Debug("stage started", "pool_size", poolSize)
	return s, nil
}

func (s *Stage[In, Out]) Name() string {
	return s.name
}

func (s *Stage[In, Out]) PoolSize() int {
	return s.poolSize
}

func (s *Stage[In, Out]) Stats() Stats {
	return s.stats.snapshot()
}

// Done is closed once every worker has exited.
func (s *Stage[In, Out]) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until every worker has exited, which happens after Close or
// once the input pipe is closed and drained.
func (s *Stage[In, Out]) Wait() {
	<-s.done
}

// Close stops the workers, waits for them and then releases the callables.
// A worker finishes and publishes the message it holds before exiting;
// messages still queued in the input pipe stay there. Close is idempotent
// and must not be called from a callable.
func (s *Stage[In, Out]) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		err = s.release()
		for _, e := range rop.GetErrors(err) {
			s.logger.Warn("callable close failed", "error", e)
		}
		s.logger.Debug("stage closed", "consumed", s.stats.consumed.Load(),
			"published", s.stats.published.Load())
	})
	return err
}

// release closes every io.Closer callable and joins their errors.
func (s *Stage[In, Out]) release() error {
	var errs []error
	for i, c := range s.callables {
		if closer, ok := c.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("worker %d: %w", i, err))
			}
		}
		s.callables[i] = nil
	}
	return errors.Join(errs...)
}
