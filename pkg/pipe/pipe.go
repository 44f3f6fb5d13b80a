package pipe

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrClosed        = errors.New("pipe closed")
	ErrFull          = errors.New("pipe full")
	ErrInvalidConfig = errors.New("invalid pipe config")
)

// Overflow selects what Push does when a bounded pipe is at capacity.
type Overflow int

const (
	// Unbounded pipes never refuse a push. Capacity must be 0.
	Unbounded Overflow = iota
	// Block makes the producer wait until a consumer frees a slot.
	Block
	// DropNewest discards the message being pushed.
	DropNewest
	// DropOldest evicts the head of the pipe to make room.
	DropOldest
	// Reject returns ErrFull to the producer.
	Reject
)

func (o Overflow) String() string {
	switch o {
	case Unbounded:
		return "unbounded"
	case Block:
		return "block"
	case DropNewest:
		return "drop-newest"
	case DropOldest:
		return "drop-oldest"
	case Reject:
		return "reject"
	default:
		return fmt.Sprintf("overflow(%d)", int(o))
	}
}

// ParseOverflow maps a policy name back to its Overflow value.
func ParseOverflow(s string) (Overflow, error) {
	for _, o := range []Overflow{Unbounded, Block, DropNewest, DropOldest, Reject} {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown overflow policy %q", ErrInvalidConfig, s)
}

// Config is required for every pipe: there is no implicit default capacity.
type Config struct {
	Capacity int
	Overflow Overflow
}

func (c Config) Validate() error {
	switch c.Overflow {
	case Unbounded:
		if c.Capacity != 0 {
			return fmt.Errorf("%w: unbounded pipe with capacity %d", ErrInvalidConfig, c.Capacity)
		}
	case Block, DropNewest, DropOldest, Reject:
		if c.Capacity < 1 {
			return fmt.Errorf("%w: %s pipe needs capacity >= 1, got %d", ErrInvalidConfig, c.Overflow, c.Capacity)
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidConfig, c.Overflow)
	}
	return nil
}

// Pipe is a FIFO queue shared by the producers of one stage and the
// consumers of the next. A single mutex guards it; both ends use it.
type Pipe[M any] struct {
	cfg Config

	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	buf      ring[M]
	closed   bool
	dropped  uint64
}

func New[M any](cfg Config) (*Pipe[M], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipe[M]{cfg: cfg}
	p.notEmpty = sync.NewCond(&p.mu)
	p.notFull = sync.NewCond(&p.mu)
	return p, nil
}

func MustNew[M any](cfg Config) *Pipe[M] {
	p, err := New[M](cfg)
	if err != nil {
		panic(err)
	}
	return p
}

func NewUnbounded[M any]() *Pipe[M] {
	return MustNew[M](Config{Overflow: Unbounded})
}

func (p *Pipe[M]) Config() Config {
	return p.cfg
}

func (p *Pipe[M]) full() bool {
	return p.cfg.Overflow != Unbounded && p.buf.len() >= p.cfg.Capacity
}

// wakeOnDone broadcasts on c when ctx ends so waiters can observe it. The
// returned stop must be called with p.mu held or not; it never blocks.
func (p *Pipe[M]) wakeOnDone(ctx context.Context, c *sync.Cond) func() bool {
	return context.AfterFunc(ctx, func() {
		p.mu.Lock()
		c.Broadcast()
		p.mu.Unlock()
	})
}

// Push appends m according to the pipe's overflow policy. Dropped messages
// are counted and return nil.
func (p *Pipe[M]) Push(ctx context.Context, m M) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.full() {
		switch p.cfg.Overflow {
		case DropNewest:
			p.dropped++
			return nil
		case DropOldest:
			p.buf.pop()
			p.dropped++
		case Reject:
			return ErrFull
		case Block:
			stop := p.wakeOnDone(ctx, p.notFull)
			defer stop()
			for p.full() {
				if p.closed {
					return ErrClosed
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				p.notFull.Wait()
			}
		}
	}

	p.buf.push(m)
	p.notEmpty.Signal()
	return nil
}

// Force appends m even if the pipe is at capacity.
func (p *Pipe[M]) Force(m M) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	p.buf.push(m)
	p.notEmpty.Signal()
	return nil
}

// Pop removes the head message, waiting while the pipe is empty. It returns
// ctx's error when ctx ends first, and ErrClosed once a closed pipe is empty.
func (p *Pipe[M]) Pop(ctx context.Context) (M, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.buf.len() == 0 {
		stop := p.wakeOnDone(ctx, p.notEmpty)
		defer stop()
	}
	for p.buf.len() == 0 {
		var zero M
		if p.closed {
			return zero, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		p.notEmpty.Wait()
	}

	m := p.buf.pop()
	p.notFull.Signal()
	return m, nil
}

func (p *Pipe[M]) TryPop() (M, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.buf.len() == 0 {
		var zero M
		return zero, false
	}
	m := p.buf.pop()
	p.notFull.Signal()
	return m, true
}

// Close stops further pushes and wakes every waiter. Queued messages can
// still be popped.
func (p *Pipe[M]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	p.notEmpty.Broadcast()
	p.notFull.Broadcast()
}

func (p *Pipe[M]) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pipe[M]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Cap returns the configured capacity, 0 for unbounded pipes.
func (p *Pipe[M]) Cap() int {
	return p.cfg.Capacity
}

// Dropped counts messages discarded by the DropNewest and DropOldest policies.
func (p *Pipe[M]) Dropped() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}
