package traffic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ib-77/stagepool/internal/config"
	"github.com/ib-77/stagepool/pkg/chain"
	"github.com/ib-77/stagepool/pkg/message"
	"github.com/ib-77/stagepool/pkg/pipe"
	"github.com/ib-77/stagepool/pkg/stage"
)

var ErrTickIncomplete = errors.New("tick incomplete")

const (
	sensorNoise    = 0.05
	controllerGain = 0.3
)

// Report summarizes one simulation run.
type Report struct {
	Vehicles  int
	Ticks     int
	Commands  int
	Braking   int
	RedStops  int
	Elapsed   time.Duration
	Stages    []chain.StageStats
	FinalTick uint64
}

// Sim runs the four-stage traffic pipeline over a World.
type Sim struct {
	cfg      *config.Config
	world    *World
	logger   *slog.Logger
	observer stage.Observer
	seq      message.Sequencer
}

type SimOption func(*Sim)

func WithLogger(logger *slog.Logger) SimOption {
	return func(s *Sim) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithObserver(observer stage.Observer) SimOption {
	return func(s *Sim) {
		s.observer = observer
	}
}

func NewSim(cfg *config.Config, opts ...SimOption) *Sim {
	s := &Sim{
		cfg:    cfg,
		world:  NewWorld(cfg.Simulation.Vehicles, cfg.Simulation.Seed),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sim) World() *World {
	return s.world
}

func (s *Sim) stageConfig(name string) (config.Stage, pipe.Config, error) {
	sc, ok := s.cfg.Pipeline.Stage(name)
	if !ok {
		return config.Stage{}, pipe.Config{}, fmt.Errorf("pipeline stage %q is not configured", name)
	}
	pc, err := sc.PipeConfig()
	if err != nil {
		return config.Stage{}, pipe.Config{}, fmt.Errorf("pipeline stage %q: %w", name, err)
	}
	return sc, pc, nil
}

func (s *Sim) build(ctx context.Context) (*chain.Pipeline, *pipe.Pipe[TickMsg], *pipe.Pipe[CommandMsg], error) {
	headCfg, err := s.cfg.Pipeline.InputPipeConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	head, err := pipe.New[TickMsg](headCfg)
	if err != nil {
		return nil, nil, nil, err
	}

	loc, locPipe, err := s.stageConfig(config.StageLocalization)
	if err != nil {
		return nil, nil, nil, err
	}
	col, colPipe, err := s.stageConfig(config.StageCollision)
	if err != nil {
		return nil, nil, nil, err
	}
	light, lightPipe, err := s.stageConfig(config.StageTrafficLight)
	if err != nil {
		return nil, nil, nil, err
	}
	mot, motPipe, err := s.stageConfig(config.StageMotion)
	if err != nil {
		return nil, nil, nil, err
	}

	opts := []chain.Option{chain.WithLogger(s.logger)}
	if s.observer != nil {
		opts = append(opts, chain.WithObserver(s.observer))
	}

	c1 := chain.Then(chain.Start(ctx, head, opts...), loc.Name, loc.PoolSize,
		LocalizationStage(s.world, s.cfg.Simulation.Seed, sensorNoise), locPipe)
	c2 := chain.Then(c1, col.Name, col.PoolSize, CollisionStage(s.world), colPipe)
	c3 := chain.Then(c2, light.Name, light.PoolSize, TrafficLightStage(), lightPipe)
	c4 := chain.Then(c3, mot.Name, mot.PoolSize, MotionStage(controllerGain), motPipe)

	p, tail, err := c4.Build()
	if err != nil {
		return nil, nil, nil, err
	}
	return p, head, tail, nil
}

// Run executes the configured number of ticks. Every tick pushes one
// message per vehicle, waits for every command, restores their issue order
// and applies them to the world.
func (s *Sim) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	rep := Report{Vehicles: len(s.world.Vehicles)}

	p, head, tail, err := s.build(ctx)
	if err != nil {
		return rep, err
	}
	defer func() {
		if cerr := p.Close(); cerr != nil {
			s.logger.Warn("pipeline close failed", "error", cerr)
		}
	}()

	tickTimeout := time.Duration(s.cfg.Simulation.TickTimeoutSeconds) * time.Second
	for range s.cfg.Simulation.Ticks {
		cmds, err := s.tick(ctx, head, tail, tickTimeout)
		if err != nil {
			rep.Stages = p.Stats()
			return rep, err
		}

		for _, c := range cmds {
			if c.Payload.Brake > 0 {
				rep.Braking++
			}
			if c.Payload.Reason == ReasonRedLight {
				rep.RedStops++
			}
		}
		rep.Commands += len(cmds)
		rep.Ticks++

		payloads := make([]Command, len(cmds))
		for i, c := range cmds {
			payloads[i] = c.Payload
		}
		s.world.Apply(payloads)
		s.logger.Debug("tick applied", "tick", s.world.Tick, "commands", len(cmds))
	}

	rep.Stages = p.Stats()
	rep.FinalTick = s.world.Tick
	rep.Elapsed = time.Since(start)
	return rep, nil
}

func (s *Sim) tick(ctx context.Context, head *pipe.Pipe[TickMsg], tail *pipe.Pipe[CommandMsg],
	timeout time.Duration) ([]CommandMsg, error) {

	tick := s.world.Tick
	n := len(s.world.Vehicles)

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Feed concurrently so bounded pipes downstream cannot stall the tick.
	g, gctx := errgroup.WithContext(tctx)
	g.Go(func() error {
		for i := range n {
			if err := head.Push(gctx, message.New(tick, i, s.seq.Next(), i)); err != nil {
				return fmt.Errorf("tick %d: push vehicle %d: %w", tick, i, err)
			}
		}
		return nil
	})

	cmds, err := pipe.Collect(gctx, tail, n)
	if werr := g.Wait(); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: tick %d got %d of %d commands: %w",
			ErrTickIncomplete, tick, len(cmds), n, err)
	}
	message.SortBySeq(cmds)
	return cmds, nil
}
