package main

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/worldcore/actor"
	"github.com/plus3/worldcore/config"
	"github.com/plus3/worldcore/ecs"
	"go.uber.org/zap"
)

// Spinner turns its owner around the Y axis. The angle advances on the
// async workers and is applied to the transform on the main thread.
type Spinner struct {
	ecs.ComponentBase
	Rate  float64 // radians per second
	angle float64
}

// Follower moves its owner a fraction of the way towards Target each frame.
type Follower struct {
	ecs.ComponentBase
	Target ecs.GameObjectHandle
	Gain   float64
}

// Tracker records how fast its owner moved once transforms are final.
type Tracker struct {
	ecs.ComponentBase
	MaxSpeed float64
	Distance float64
}

func (t *Tracker) Update() {
	speed := t.Owner().LinearVelocity().Len()
	t.MaxSpeed = max(t.MaxSpeed, speed)
	t.Distance += speed * t.World().Clock().TimeDiff().Seconds()
}

const churnInterval = 30

func registerComponents(w *ecs.World) {
	spinners := ecs.NewComponentManager[Spinner](w)
	spinners.RegisterUpdateFunction(ecs.UpdateFunctionDesc{
		Name:                     "Spinner::Advance",
		Phase:                    ecs.PhaseAsync,
		Granularity:              4 * ecs.BlockCapacity,
		OnlyUpdateWhenSimulating: true,
		Function: func(ctx ecs.UpdateContext) {
			dt := ctx.World.Clock().TimeDiff().Seconds()
			for s := range spinners.Range(ctx.FirstIndex, ctx.Count) {
				if s.IsActiveAndInitialized() {
					s.angle = math.Mod(s.angle+s.Rate*dt, 2*math.Pi)
				}
			}
		},
	})
	spinners.RegisterUpdateFunction(ecs.UpdateFunctionDesc{
		Name:  "Spinner::Apply",
		Phase: ecs.PhasePostAsync,
		Function: func(ctx ecs.UpdateContext) {
			for s := range spinners.Range(ctx.FirstIndex, ctx.Count) {
				if s.IsActiveAndInitialized() {
					s.Owner().SetLocalRotation(mgl64.QuatRotate(s.angle, mgl64.Vec3{0, 1, 0}))
				}
			}
		},
	})

	followers := ecs.NewComponentManager[Follower](w)
	followers.RegisterUpdateFunction(ecs.UpdateFunctionDesc{
		Name:      "Follower::Follow",
		Phase:     ecs.PhasePostAsync,
		DependsOn: []string{"Spinner::Apply"},
		Function: func(ctx ecs.UpdateContext) {
			for f := range followers.Range(ctx.FirstIndex, ctx.Count) {
				if !f.IsActiveAndInitialized() {
					continue
				}
				target, ok := ctx.World.TryGetObject(f.Target)
				if !ok {
					continue
				}
				o := f.Owner()
				step := target.GlobalPosition().Sub(o.GlobalPosition()).Mul(f.Gain)
				o.SetGlobalPosition(o.GlobalPosition().Add(step))
			}
		},
	})

	ecs.NewSimpleComponentManager[Tracker](w, ecs.WithUpdatePhase(ecs.PhasePostTransform))
}

// population remembers the objects of every hierarchy level.
type population struct {
	levels    [][]ecs.GameObjectHandle
	followers int
}

func (p *population) count() int {
	n := p.followers
	for _, l := range p.levels {
		n += len(l)
	}
	return n
}

func randomVec3(rng *rand.Rand, extent float64) mgl64.Vec3 {
	return mgl64.Vec3{
		(rng.Float64()*2 - 1) * extent,
		(rng.Float64()*2 - 1) * extent,
		(rng.Float64()*2 - 1) * extent,
	}
}

// spawn creates a dynamic spinning object below parent.
func spawn(w *ecs.World, rng *rand.Rand, parent ecs.GameObjectHandle) (ecs.GameObjectHandle, *ecs.GameObject) {
	h, obj := w.CreateObject(ecs.GameObjectDesc{
		Parent:        parent,
		Dynamic:       true,
		LocalPosition: randomVec3(rng, 100),
	})
	_, s := ecs.GetComponentManager[Spinner](w).CreateComponent(obj)
	s.Rate = 0.5 + rng.Float64()*1.5
	return h, obj
}

// populate fills w with objects spread over depth hierarchy levels. Every
// tenth object is tracked, and one follower root chases a random object
// for every twenty.
func populate(w *ecs.World, objects, depth int, rng *rand.Rand) *population {
	pop := &population{levels: make([][]ecs.GameObjectHandle, depth)}
	trackers := ecs.GetComponentManager[Tracker](w)

	for i := range objects {
		level := i % depth
		parent := ecs.InvalidGameObject
		if level > 0 {
			candidates := pop.levels[level-1]
			parent = candidates[rng.IntN(len(candidates))]
		}

		h, obj := spawn(w, rng, parent)
		pop.levels[level] = append(pop.levels[level], h)
		if i%10 == 0 {
			trackers.CreateComponent(obj)
		}
	}

	followers := ecs.GetComponentManager[Follower](w)
	for range objects / 20 {
		level := pop.levels[rng.IntN(depth)]
		if len(level) == 0 {
			continue
		}
		_, obj := w.CreateObject(ecs.GameObjectDesc{Dynamic: true, LocalPosition: randomVec3(rng, 100)})
		_, f := followers.CreateComponent(obj)
		f.Target = level[rng.IntN(len(level))]
		f.Gain = 0.1
		trackers.CreateComponent(obj)
		pop.followers++
	}
	return pop
}

// churn replaces a random object of the deepest level through the world's
// command buffer.
func (p *population) churn(w *ecs.World, rng *rand.Rand) {
	leaves := p.levels[len(p.levels)-1]
	if len(leaves) == 0 {
		return
	}
	i := rng.IntN(len(leaves))
	obj, ok := w.TryGetObject(leaves[i])
	if !ok {
		return
	}

	parent := obj.ParentHandle()
	cmds := w.Commands()
	cmds.DeleteObject(leaves[i], false)
	cmds.CreateObject(ecs.GameObjectDesc{Parent: parent, Dynamic: true}, func(o *ecs.GameObject) {
		_, s := ecs.GetComponentManager[Spinner](w).CreateComponent(o)
		s.Rate = 0.5 + rng.Float64()*1.5
		leaves[i] = o.Handle()
	})
}

// worldPlugin drives the world from the stress actor, one frame per actor
// update.
type worldPlugin struct {
	world  *ecs.World
	log    *zap.Logger
	pop    *population
	rng    *rand.Rand
	report *Report

	lastFrame time.Time
}

func (p *worldPlugin) OnActivate() {
	p.log.Info("simulation started", zap.Int("objects", p.world.ObjectCount()))
	p.lastFrame = time.Now()
}

func (p *worldPlugin) Update() {
	now := time.Now()
	dt := now.Sub(p.lastFrame)
	p.lastFrame = now

	p.world.Update(dt)
	p.report.UpdateTime.Samples = append(p.report.UpdateTime.Samples, time.Since(now))
	p.report.TotalUpdates++

	if p.report.TotalUpdates%churnInterval == 0 {
		p.pop.churn(p.world, p.rng)
	}
}

func (p *worldPlugin) OnDeactivate() {
	p.report.World = p.world.Stats()
	p.world.Close()
	p.log.Info("simulation stopped", zap.Int64("frames", p.report.TotalUpdates))
}

// run populates a world as configured and updates it until ctx is done.
func run(ctx context.Context, cfg *config.Config, log *zap.Logger, seed uint64) *Report {
	w := cfg.NewWorld(log)
	registerComponents(w)

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	log.Info("populating world", zap.Int("objects", cfg.Stress.Objects), zap.Int("depth", cfg.Stress.Depth))
	pop := populate(w, cfg.Stress.Objects, cfg.Stress.Depth, rng)

	report := &Report{
		Duration: cfg.Stress.Duration.Duration,
		Objects:  pop.count(),
		Depth:    cfg.Stress.Depth,
		Workers:  w.WorkerCount(),
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	actors := actor.NewManager(actor.WithLogger(log))
	actors.Subscribe(func(e actor.Event) {
		log.Debug("actor event", zap.Stringer("type", e.Type), zap.Stringer("actor", e.Actor))
	})

	host := actor.New("world-stress", "cli")
	host.AddPlugin(&worldPlugin{world: w, log: log, pop: pop, rng: rng, report: report})
	actors.AddActor(host)
	actors.UpdateActorStates()

	startTime := time.Now()
Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			actors.Update()
		}
	}

	actors.DestroyAllActors(nil)

	report.TotalTime = time.Since(startTime)
	report.UpdateTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)
	return report
}
