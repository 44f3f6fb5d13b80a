package traffic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/stagepool/internal/config"
	"github.com/ib-77/stagepool/pkg/message"
)

func smallConfig(vehicles, ticks int) *config.Config {
	cfg := config.Default()
	cfg.Simulation.Vehicles = vehicles
	cfg.Simulation.Ticks = ticks
	return &cfg
}

func TestSim_RunProducesOneCommandPerVehiclePerTick(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sim := NewSim(smallConfig(12, 5))
	rep, err := sim.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 5, rep.Ticks)
	assert.Equal(t, 60, rep.Commands)
	assert.Equal(t, uint64(5), rep.FinalTick)
	require.Len(t, rep.Stages, 4)
	for _, st := range rep.Stages {
		assert.Equalf(t, uint64(60), st.Consumed, "stage %s", st.Name)
		assert.Equalf(t, uint64(60), st.Published, "stage %s", st.Name)
		assert.Zerof(t, st.Faults, "stage %s", st.Name)
	}
	assert.Equal(t, config.StageLocalization, rep.Stages[0].Name)
}

func TestSim_DeterministicWithSingleWorkers(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	run := func() []Vehicle {
		cfg := smallConfig(9, 10)
		for i := range cfg.Pipeline.Stages {
			cfg.Pipeline.Stages[i].PoolSize = 1
		}
		sim := NewSim(cfg)
		_, err := sim.Run(ctx)
		require.NoError(t, err)
		return sim.World().Vehicles
	}

	assert.Equal(t, run(), run())
}

func TestSim_BoundedPipesDoNotStallTicks(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := smallConfig(40, 3)
	cfg.Pipeline.InputCapacity = 2
	cfg.Pipeline.InputOverflow = "block"
	for i := range cfg.Pipeline.Stages {
		cfg.Pipeline.Stages[i].Capacity = 2
		cfg.Pipeline.Stages[i].Overflow = "block"
	}

	rep, err := NewSim(cfg).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 120, rep.Commands)
}

func TestSim_MissingStage(t *testing.T) {
	t.Parallel()

	cfg := smallConfig(3, 1)
	cfg.Pipeline.Stages = cfg.Pipeline.Stages[:3]

	_, err := NewSim(cfg).Run(context.Background())
	assert.ErrorContains(t, err, config.StageMotion)
}

func TestWorld_LeaderWrapsAroundRing(t *testing.T) {
	w := &World{Vehicles: []Vehicle{
		{ID: 0, Lane: 0, Pos: 990},
		{ID: 1, Lane: 0, Pos: 5},
		{ID: 2, Lane: 1, Pos: 995},
	}}

	leader, gap := w.Leader(0)
	assert.Equal(t, 1, leader)
	assert.InDelta(t, 15, gap, 1e-9)

	leader, _ = w.Leader(2)
	assert.Equal(t, -1, leader)
}

func TestWorld_Apply(t *testing.T) {
	w := &World{Vehicles: []Vehicle{{ID: 0, Pos: 999, Speed: 10}}}
	w.Apply([]Command{{Vehicle: 0, Throttle: 1}})

	v := w.Vehicles[0]
	assert.InDelta(t, 10.25, v.Speed, 1e-9)
	assert.InDelta(t, 0.025, v.Pos, 1e-9)
	assert.Equal(t, uint64(1), w.Tick)

	w.Apply([]Command{{Vehicle: 0, Brake: 1}, {Vehicle: 0, Brake: 1}})
	assert.GreaterOrEqual(t, w.Vehicles[0].Speed, 0.0)
}

func TestRedAhead(t *testing.T) {
	red, dist := RedAhead(240, 0)
	assert.InDelta(t, 10, dist, 1e-9)
	assert.True(t, red)

	red, _ = RedAhead(240, LightPeriod)
	assert.False(t, red)
}

func TestController(t *testing.T) {
	c := controller{gain: 0.5}

	brake := c.Process(context.Background(), message.New(0, 1, 1, Hazard{Collision: true}))
	require.True(t, brake.HasResult())
	assert.Equal(t, 1.0, brake.Result().Payload.Brake)
	assert.Equal(t, ReasonCollision, brake.Result().Payload.Reason)

	slow := c.Process(context.Background(), message.New(0, 1, 2, Hazard{Localization: Localization{Speed: 10}}))
	assert.InDelta(t, 1.0, slow.Result().Payload.Throttle, 1e-9)
	assert.Equal(t, uint64(2), slow.Result().Seq)
}
