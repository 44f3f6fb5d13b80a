package pipe

import (
	"context"
	"errors"
)

// Feed pushes values in order and stops at the first push error.
func Feed[M any](ctx context.Context, p *Pipe[M], values ...M) error {
	for _, v := range values {
		if err := p.Push(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

// Collect pops up to n messages. On ctx end or close it returns what it got
// together with the reason.
func Collect[M any](ctx context.Context, p *Pipe[M], n int) ([]M, error) {
	res := make([]M, 0, n)
	for len(res) < n {
		m, err := p.Pop(ctx)
		if err != nil {
			return res, err
		}
		res = append(res, m)
	}
	return res, nil
}

// CollectAll pops until the pipe is closed and empty, or ctx ends.
func CollectAll[M any](ctx context.Context, p *Pipe[M]) ([]M, error) {
	res := make([]M, 0)
	for {
		m, err := p.Pop(ctx)
		if errors.Is(err, ErrClosed) {
			return res, nil
		}
		if err != nil {
			return res, err
		}
		res = append(res, m)
	}
}

// Drain takes whatever is queued right now without waiting.
func Drain[M any](p *Pipe[M]) []M {
	res := make([]M, 0, p.Len())
	for {
		m, ok := p.TryPop()
		if !ok {
			return res
		}
		res = append(res, m)
	}
}
