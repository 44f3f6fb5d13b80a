package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/stagepool/pkg/pipe"
	"github.com/ib-77/stagepool/pkg/stage"
)

func TestObserver_CountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := NewObserver(reg, "tm")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	in, out := pipe.NewUnbounded[int](), pipe.NewUnbounded[int]()
	s, err := stage.New(ctx, 2, in, out,
		stage.Filter(func(_ context.Context, n int) bool { return n > 1 }),
		stage.WithName("planning"), stage.WithObserver(obs))
	require.NoError(t, err)

	require.NoError(t, pipe.Feed(ctx, in, 1, 2, 3))
	_, err = pipe.Collect(ctx, out, 2)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Equal(t, 2.0, testutil.ToFloat64(obs.Messages.WithLabelValues("planning", "published")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.Messages.WithLabelValues("planning", "empty")))
	assert.Equal(t, 2.0, testutil.ToFloat64(obs.Outputs.WithLabelValues("planning")))
	assert.Equal(t, 0.0, testutil.ToFloat64(obs.Busy.WithLabelValues("planning")))
	assert.Equal(t, 1, testutil.CollectAndCount(obs.Latency))
}

func TestNewObserver_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewObserver(reg, "tm")
	require.NoError(t, err)

	_, err = NewObserver(reg, "tm")
	assert.Error(t, err)
}
