package traffic

import (
	"math"
	"math/rand"
)

const (
	RoadLength  = 1000.0
	Lanes       = 3
	LightEvery  = 250.0
	LightPeriod = 8
	TickSeconds = 0.1
	CruiseSpeed = 14.0
)

type Vehicle struct {
	ID    int
	Lane  int
	Pos   float64
	Speed float64
}

// World is the simulation state. Stages only read it during a tick; Apply
// mutates it between ticks.
type World struct {
	Tick     uint64
	Vehicles []Vehicle
}

// NewWorld spreads n vehicles over the lanes of a ring road.
func NewWorld(n int, seed int64) *World {
	rng := rand.New(rand.NewSource(seed))
	w := &World{Vehicles: make([]Vehicle, n)}
	perLane := (n + Lanes - 1) / Lanes
	for i := range w.Vehicles {
		lane := i % Lanes
		slot := i / Lanes
		w.Vehicles[i] = Vehicle{
			ID:    i,
			Lane:  lane,
			Pos:   float64(slot)*RoadLength/float64(perLane) + rng.Float64()*2,
			Speed: CruiseSpeed * (0.5 + rng.Float64()*0.5),
		}
	}
	return w
}

// Leader returns the closest vehicle ahead of v in its lane and the gap to
// it, or -1 when v is alone in the lane.
func (w *World) Leader(v int) (int, float64) {
	me := w.Vehicles[v]
	leader, gap := -1, math.Inf(1)
	for i, o := range w.Vehicles {
		if i == v || o.Lane != me.Lane {
			continue
		}
		d := math.Mod(o.Pos-me.Pos+RoadLength, RoadLength)
		if d > 0 && d < gap {
			leader, gap = i, d
		}
	}
	return leader, gap
}

// RedAhead reports whether the next light ahead of pos is red at tick and
// returns the distance to it.
func RedAhead(pos float64, tick uint64) (bool, float64) {
	next := math.Ceil(pos/LightEvery) * LightEvery
	dist := next - pos
	red := (tick/LightPeriod+uint64(next/LightEvery))%2 == 1
	return red, dist
}

// Apply integrates the commands over one tick and advances the clock.
func (w *World) Apply(cmds []Command) {
	for _, c := range cmds {
		v := &w.Vehicles[c.Vehicle]
		accel := c.Throttle*2.5 - c.Brake*6.0
		v.Speed = math.Max(0, v.Speed+accel*TickSeconds)
		v.Pos = math.Mod(v.Pos+v.Speed*TickSeconds, RoadLength)
	}
	w.Tick++
}
