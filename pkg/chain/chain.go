package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ib-77/stagepool/pkg/pipe"
	"github.com/ib-77/stagepool/pkg/stage"
)

type runningStage interface {
	Name() string
	PoolSize() int
	Close() error
	Done() <-chan struct{}
	Stats() stage.Stats
}

type queue interface {
	Close()
	Len() int
	Dropped() uint64
}

// Pipeline owns the pipes it created and the stages reading from them.
// pipes[i] is the input of stages[i]; pipes[len(stages)] is the tail.
type Pipeline struct {
	ctx      context.Context
	logger   *slog.Logger
	observer stage.Observer
	stages   []runningStage
	pipes    []queue
	err      error
}

// Chain is a Pipeline under construction whose current tail carries T.
type Chain[T any] struct {
	p    *Pipeline
	tail *pipe.Pipe[T]
}

type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithObserver(observer stage.Observer) Option {
	return func(p *Pipeline) {
		p.observer = observer
	}
}

// Start begins a chain reading from head. ctx bounds the life of every
// stage added later.
func Start[T any](ctx context.Context, head *pipe.Pipe[T], opts ...Option) *Chain[T] {
	p := &Pipeline{
		ctx:    ctx,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	if head == nil {
		p.err = errors.New("chain: missing head pipe")
	} else {
		p.pipes = append(p.pipes, head)
	}
	return &Chain[T]{p: p, tail: head}
}

// Then appends a stage reading the current tail and writing a new pipe built
// from cfg. After the first error further calls are no-ops.
func Then[T, U any](c *Chain[T], name string, poolSize int, factory stage.Factory[T, U], cfg pipe.Config) *Chain[U] {
	p := c.p
	if p.err != nil {
		return &Chain[U]{p: p}
	}

	out, err := pipe.New[U](cfg)
	if err != nil {
		p.err = fmt.Errorf("chain: stage %q output: %w", name, err)
		return &Chain[U]{p: p}
	}

	opts := []stage.Option{stage.WithName(name), stage.WithLogger(p.logger)}
	if p.observer != nil {
		opts = append(opts, stage.WithObserver(p.observer))
	}
	s, err := stage.New(p.ctx, poolSize, c.tail, out, factory, opts...)
	if err != nil {
		p.err = fmt.Errorf("chain: %w", err)
		return &Chain[U]{p: p}
	}

	p.stages = append(p.stages, s)
	p.pipes = append(p.pipes, out)
	return &Chain[U]{p: p, tail: out}
}

// ThenMap appends a stage whose workers share one stateless function.
func ThenMap[T, U any](c *Chain[T], name string, poolSize int, fn func(context.Context, T) U, cfg pipe.Config) *Chain[U] {
	return Then(c, name, poolSize, stage.Map(fn), cfg)
}

// Ensure runs fn on every message passing the current tail.
func (c *Chain[T]) Ensure(name string, poolSize int, fn func(context.Context, T), cfg pipe.Config) *Chain[T] {
	return ThenMap(c, name, poolSize, func(ctx context.Context, v T) T {
		fn(ctx, v)
		return v
	}, cfg)
}

func (c *Chain[T]) Err() error {
	return c.p.err
}

func (c *Chain[T]) Tail() *pipe.Pipe[T] {
	return c.tail
}

// Build returns the pipeline and its tail pipe. On error every stage that
// was already started is closed.
func (c *Chain[T]) Build() (*Pipeline, *pipe.Pipe[T], error) {
	if c.p.err != nil {
		_ = c.p.Close()
		return nil, nil, c.p.err
	}
	c.p.logger.Debug("pipeline built", "stages", len(c.p.stages))
	return c.p, c.tail, nil
}

// Close stops every stage, upstream first. Messages still queued stay in
// their pipes.
func (p *Pipeline) Close() error {
	var errs []error
	for _, s := range p.stages {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("stage %q: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Drain ends the stream: it closes the head pipe and, as each stage runs
// out of input, closes that stage's output. It returns once the tail pipe is
// closed, or with ctx's error. The tail keeps its messages for the caller.
func (p *Pipeline) Drain(ctx context.Context) error {
	if len(p.pipes) == 0 {
		return nil
	}
	p.pipes[0].Close()

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range p.stages {
		next := p.pipes[i+1]
		g.Go(func() error {
			select {
			case <-s.Done():
				next.Close()
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return p.Close()
}

// StageStats pairs a stage's counters with the depth of its input pipe.
type StageStats struct {
	Name     string
	PoolSize int
	Queued   int
	Dropped  uint64
	stage.Stats
}

func (p *Pipeline) Stats() []StageStats {
	res := make([]StageStats, 0, len(p.stages))
	for i, s := range p.stages {
		res = append(res, StageStats{
			Name:     s.Name(),
			PoolSize: s.PoolSize(),
			Queued:   p.pipes[i].Len(),
			Dropped:  p.pipes[i+1].Dropped(),
			Stats:    s.Stats(),
		})
	}
	return res
}

func (p *Pipeline) Len() int {
	return len(p.stages)
}
