package traffic

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/ib-77/stagepool/pkg/message"
	"github.com/ib-77/stagepool/pkg/rop"
	"github.com/ib-77/stagepool/pkg/stage"
)

type Localization struct {
	Vehicle int
	Lane    int
	Pos     float64
	Speed   float64
	Leader  int
	Gap     float64
}

type Hazard struct {
	Localization
	Collision bool
	TTC       float64
	RedLight  bool
	LightDist float64
}

type Command struct {
	Vehicle  int
	Throttle float64
	Brake    float64
	Reason   string
}

const (
	ReasonCollision = "collision"
	ReasonRedLight  = "red_light"
)

type (
	TickMsg         = message.Envelope[int]
	LocalizationMsg = message.Envelope[Localization]
	HazardMsg       = message.Envelope[Hazard]
	CommandMsg      = message.Envelope[Command]
)

// localizer estimates a vehicle's state with per-worker sensor noise. Each
// worker owns its own generator, which is not safe for concurrent use.
type localizer struct {
	world *World
	noise float64
	rng   *rand.Rand
}

func (l *localizer) Process(_ context.Context, in TickMsg) rop.Result[LocalizationMsg] {
	if in.Subject < 0 || in.Subject >= len(l.world.Vehicles) {
		return rop.Fail[LocalizationMsg](fmt.Errorf("unknown vehicle %d", in.Subject))
	}
	v := l.world.Vehicles[in.Subject]
	leader, gap := l.world.Leader(in.Subject)
	return rop.Success(message.Map(in, Localization{
		Vehicle: v.ID,
		Lane:    v.Lane,
		Pos:     v.Pos + l.rng.NormFloat64()*l.noise,
		Speed:   math.Max(0, v.Speed+l.rng.NormFloat64()*l.noise),
		Leader:  leader,
		Gap:     gap,
	}))
}

// LocalizationStage seeds each worker's generator from its partition so
// runs are reproducible for a given pool size.
func LocalizationStage(world *World, seed int64, noise float64) stage.Factory[TickMsg, LocalizationMsg] {
	return stage.Replicate(func(p stage.Partition) stage.Callable[TickMsg, LocalizationMsg] {
		return &localizer{
			world: world,
			noise: noise,
			rng:   rand.New(rand.NewSource(seed + int64(p.Worker))),
		}
	})
}

const (
	minGap     = 4.0
	brakingTTC = 3.0
)

// CollisionStage flags vehicles closing on their leader.
func CollisionStage(world *World) stage.Factory[LocalizationMsg, HazardMsg] {
	return stage.Map(func(_ context.Context, in LocalizationMsg) HazardMsg {
		loc := in.Payload
		h := Hazard{Localization: loc, TTC: math.Inf(1)}
		if loc.Leader >= 0 {
			closing := loc.Speed - world.Vehicles[loc.Leader].Speed
			if closing > 0 {
				h.TTC = loc.Gap / closing
			}
			h.Collision = loc.Gap < minGap || h.TTC < brakingTTC
		}
		return message.Map(in, h)
	})
}

// TrafficLightStage marks vehicles that must stop for a red light.
func TrafficLightStage() stage.Factory[HazardMsg, HazardMsg] {
	return stage.Map(func(_ context.Context, in HazardMsg) HazardMsg {
		h := in.Payload
		red, dist := RedAhead(h.Pos, in.Tick)
		stopping := h.Speed * h.Speed / (2 * 6.0)
		h.RedLight = red && dist <= stopping+minGap
		h.LightDist = dist
		return message.Map(in, h)
	})
}

// controller is a proportional speed controller.
type controller struct {
	gain float64
}

func (c controller) Process(_ context.Context, in HazardMsg) rop.Result[CommandMsg] {
	h := in.Payload
	cmd := Command{Vehicle: h.Vehicle}
	switch {
	case h.Collision:
		cmd.Brake = 1
		cmd.Reason = ReasonCollision
	case h.RedLight:
		cmd.Brake = 1
		cmd.Reason = ReasonRedLight
	default:
		errSpeed := CruiseSpeed - h.Speed
		if errSpeed >= 0 {
			cmd.Throttle = math.Min(1, errSpeed*c.gain)
		} else {
			cmd.Brake = math.Min(1, -errSpeed*c.gain)
		}
	}
	return rop.Success(message.Map(in, cmd))
}

func MotionStage(gain float64) stage.Factory[HazardMsg, CommandMsg] {
	return stage.Each(func() stage.Callable[HazardMsg, CommandMsg] {
		return controller{gain: gain}
	})
}
