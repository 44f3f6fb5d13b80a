package chain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/stagepool/pkg/pipe"
	"github.com/ib-77/stagepool/pkg/stage"
)

var unbounded = pipe.Config{Overflow: pipe.Unbounded}

func TestChain_IncrementThenNegate(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	head := pipe.NewUnbounded[int]()
	c := Start(ctx, head)
	c = ThenMap(c, "increment", 2, func(_ context.Context, n int) int { return n + 1 }, unbounded)
	c = ThenMap(c, "negate", 2, func(_ context.Context, n int) int { return -n }, unbounded)

	p, tail, err := c.Build()
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, pipe.Feed(ctx, head, 1, 2, 3))
	got, err := pipe.Collect(ctx, tail, 3)
	require.NoError(t, err)

	sort.Ints(got)
	assert.Equal(t, []int{-4, -3, -2}, got)
	assert.Equal(t, 2, p.Len())
}

func TestChain_DrainFlushesEveryStage(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	head := pipe.NewUnbounded[int]()
	c := Start(ctx, head)
	c = ThenMap(c, "square", 4, func(_ context.Context, n int) int { return n * n }, pipe.Config{Capacity: 8, Overflow: pipe.Block})
	c = Then(c, "odd", 3, stage.Filter(func(_ context.Context, n int) bool { return n%2 == 1 }), unbounded)

	p, tail, err := c.Build()
	require.NoError(t, err)

	for i := range 200 {
		require.NoError(t, head.Push(ctx, i))
	}
	require.NoError(t, p.Drain(ctx))

	assert.True(t, tail.Closed())
	got, err := pipe.CollectAll(ctx, tail)
	require.NoError(t, err)
	assert.Len(t, got, 100)

	stats := p.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "square", stats[0].Name)
	assert.Equal(t, uint64(200), stats[0].Consumed)
	assert.Equal(t, uint64(200), stats[1].Consumed)
	assert.Equal(t, uint64(100), stats[1].Empty)
	assert.Equal(t, 0, stats[1].Queued)
}

func TestChain_DrainRespectsContext(t *testing.T) {
	t.Parallel()

	head := pipe.NewUnbounded[int]()
	gate := make(chan struct{})

	c := ThenMap(Start(context.Background(), head), "stuck", 1, func(_ context.Context, n int) int {
		<-gate
		return n
	}, unbounded)
	p, _, err := c.Build()
	require.NoError(t, err)
	require.NoError(t, head.Push(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Drain(ctx), context.DeadlineExceeded)

	close(gate)
	require.NoError(t, p.Close())
}

func TestChain_BuildReportsStageErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	head := pipe.NewUnbounded[int]()
	first := ThenMap(Start(ctx, head), "ok", 1, func(_ context.Context, n int) int { return n }, unbounded)
	bad := ThenMap(first, "broken", 0, func(_ context.Context, n int) int { return n }, unbounded)
	after := ThenMap(bad, "never", 1, func(_ context.Context, n int) int { return n }, unbounded)

	p, tail, err := after.Build()
	assert.Nil(t, p)
	assert.Nil(t, tail)
	require.ErrorIs(t, err, stage.ErrConfiguration)
	assert.Contains(t, err.Error(), "broken")

	// the "ok" stage was stopped, so pushed messages stay queued
	require.NoError(t, head.Push(ctx, 1))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, head.Len())
}

func TestChain_BuildReportsPipeErrors(t *testing.T) {
	t.Parallel()

	c := ThenMap(Start(context.Background(), pipe.NewUnbounded[int]()), "bad-pipe", 1,
		func(_ context.Context, n int) int { return n }, pipe.Config{Overflow: pipe.Block})
	_, _, err := c.Build()
	assert.ErrorIs(t, err, pipe.ErrInvalidConfig)

	_, _, err = Start[int](context.Background(), nil).Build()
	assert.Error(t, err)
}

func TestChain_ParseAndFormat(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	head := pipe.NewUnbounded[string]()
	nonEmpty := Then(Start(ctx, head), "validate", 2,
		stage.Filter(func(_ context.Context, s string) bool { return strings.TrimSpace(s) != "" }), unbounded)
	parsed := Then(nonEmpty, "parse", 2, stage.Try(func(_ context.Context, s string) (int, error) {
		if s == "bad" {
			return 0, errors.New("bad")
		}
		return strconv.Atoi(s)
	}), unbounded)
	var seen []int
	formatted := ThenMap(parsed.Ensure("audit", 1, func(_ context.Context, n int) { seen = append(seen, n) }, unbounded),
		"format", 2, func(_ context.Context, n int) string { return fmt.Sprintf("val:%d", n*2) }, unbounded)

	p, tail, err := formatted.Build()
	require.NoError(t, err)

	require.NoError(t, pipe.Feed(ctx, head, "1", "2", "bad", "", "5"))
	require.NoError(t, p.Drain(ctx))

	got, err := pipe.CollectAll(ctx, tail)
	require.NoError(t, err)
	sort.Strings(got)
	assert.Equal(t, []string{"val:10", "val:2", "val:4"}, got)
	assert.Len(t, seen, 3)

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats[1].Faults)
	assert.Equal(t, uint64(1), stats[0].Empty)
}
