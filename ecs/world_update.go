package ecs

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UpdatePanic is raised by World.Update when an update function panicked
// on a worker goroutine.
type UpdatePanic struct {
	Function string
	Value    any
	Stack    []byte
}

func (p *UpdatePanic) Error() string {
	return fmt.Sprintf("ecs: update function %s panicked: %v\n%s", p.Function, p.Value, p.Stack)
}

func (w *World) queueUpdateFunction(f *registeredFunction) {
	w.pendingFunctions = append(w.pendingFunctions, f)
}

// registerPendingFunctions inserts queued functions after their
// dependencies, ordered by priority among the remaining functions. Functions
// whose dependencies are not registered stay queued.
func (w *World) registerPendingFunctions() {
	if len(w.pendingFunctions) == 0 {
		return
	}
	slices.SortStableFunc(w.pendingFunctions, func(a, b *registeredFunction) int {
		switch {
		case a.desc.Priority > b.desc.Priority:
			return -1
		case a.desc.Priority < b.desc.Priority:
			return 1
		default:
			return 0
		}
	})

	for {
		progress := false
		remaining := w.pendingFunctions[:0]
		for _, f := range w.pendingFunctions {
			if w.registerFunction(f) {
				progress = true
				delete(w.warnedPending, f)
			} else {
				remaining = append(remaining, f)
			}
		}
		w.pendingFunctions = remaining
		if !progress || len(remaining) == 0 {
			break
		}
	}

	for _, f := range w.pendingFunctions {
		if w.warnedPending[f] {
			continue
		}
		w.warnedPending[f] = true
		w.log.Warn("update function has unresolved dependencies",
			zap.String("function", f.desc.Name),
			zap.String("manager", f.manager.Name()),
			zap.Strings("dependsOn", f.desc.DependsOn))
	}
}

func (w *World) registerFunction(f *registeredFunction) bool {
	phase := f.desc.Phase
	list := w.functions[phase]

	insertion := 0
	for _, dep := range f.desc.DependsOn {
		i := slices.IndexFunc(list, func(other *registeredFunction) bool {
			return other.desc.Name == dep
		})
		if i < 0 {
			return false
		}
		insertion = max(insertion, i+1)
	}
	for insertion < len(list) && list[insertion].desc.Priority >= f.desc.Priority {
		insertion++
	}

	w.functions[phase] = slices.Insert(list, insertion, f)
	w.log.Debug("registered update function",
		zap.String("function", f.desc.Name),
		zap.Stringer("phase", phase),
		zap.Int("position", insertion))
	return true
}

func (w *World) removeUpdateFunction(m ComponentManagerBase, name string) {
	matches := func(f *registeredFunction) bool {
		if f.manager != m || f.desc.Name != name {
			return false
		}
		delete(w.warnedPending, f)
		return true
	}
	w.pendingFunctions = slices.DeleteFunc(w.pendingFunctions, matches)
	for phase := range w.functions {
		w.functions[phase] = slices.DeleteFunc(w.functions[phase], matches)
	}
	w.log.Debug("deregistered update function",
		zap.String("function", name),
		zap.String("manager", m.Name()))
}

// UpdateFunctionNames returns the registered functions of a phase in
// execution order.
func (w *World) UpdateFunctionNames(phase UpdatePhase) []string {
	names := make([]string, 0, len(w.functions[phase]))
	for _, f := range w.functions[phase] {
		names = append(names, f.desc.Name)
	}
	return names
}

// Update advances the world by one frame of dt.
func (w *World) Update(dt time.Duration) {
	w.checkWriteAccess()

	if w.simulating {
		w.clock.advance(dt)
	} else {
		w.clock.advance(0)
	}

	w.registerPendingFunctions()
	w.processInitialization()
	w.messages.deliver(w, QueueNextFrame)

	w.runMainThreadPhase(PhasePreAsync)
	w.runAsyncPhase()
	w.runMainThreadPhase(PhasePostAsync)
	w.messages.deliver(w, QueuePostAsync)
	w.commands.Flush(w)

	w.deleteDeadObjects()

	invDt := 0.0
	if dt := w.clock.TimeDiff(); dt > 0 {
		invDt = 1 / dt.Seconds()
	}
	w.hierarchy.updateGlobalTransforms(invDt, w.workerCount)

	w.messages.deliver(w, QueuePostTransform)
	w.runMainThreadPhase(PhasePostTransform)

	w.processInitialization()
	w.frameCount++
}

const defaultRunInterval = time.Second / 60

// Run updates the world at the given interval until ctx is cancelled. A
// non-positive interval falls back to the clock's fixed step, or to 60
// updates per second without one.
func (w *World) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = w.clock.FixedStep()
		if interval <= 0 {
			interval = defaultRunInterval
		}
		w.log.Debug("run interval defaulted", zap.Duration("interval", interval))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(lastTime)
			lastTime = now
			w.Update(dt)
		}
	}
}

func (w *World) shouldRun(f *registeredFunction) bool {
	return w.simulating || !f.desc.OnlyUpdateWhenSimulating
}

func (w *World) runMainThreadPhase(phase UpdatePhase) {
	for _, f := range w.functions[phase] {
		if !w.shouldRun(f) {
			continue
		}
		w.callUpdateFunction(f, 0, f.manager.StorageLen())
	}
}

// runAsyncPhase splits every async function into batches of its
// granularity and runs all batches on a bounded set of goroutines. The last
// batch of a function extends to the end of its storage.
func (w *World) runAsyncPhase() {
	functions := w.functions[PhaseAsync]
	if len(functions) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(w.workerCount)

	w.asyncPhase.Store(true)
	for _, f := range functions {
		if !w.shouldRun(f) {
			continue
		}
		total := f.manager.StorageLen()
		if total == 0 {
			continue
		}
		granularity := f.desc.Granularity
		if granularity == 0 {
			granularity = total
		}
		for first := uint32(0); first < total; first += granularity {
			count := granularity
			if first+granularity >= total {
				count = total - first
			}
			g.Go(func() error {
				return w.callUpdateFunctionSafe(f, first, count)
			})
		}
	}
	err := g.Wait()
	w.asyncPhase.Store(false)

	if err != nil {
		w.log.Error("async update failed", zap.Error(err))
		panic(err)
	}
}

func (w *World) callUpdateFunctionSafe(f *registeredFunction, first, count uint32) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &UpdatePanic{Function: f.desc.Name, Value: r, Stack: debug.Stack()}
		}
	}()
	w.callUpdateFunction(f, first, count)
	return nil
}

func (w *World) callUpdateFunction(f *registeredFunction, first, count uint32) {
	start := time.Now()
	f.desc.Function(UpdateContext{
		World:      w,
		Manager:    f.manager,
		FirstIndex: first,
		Count:      count,
	})
	f.record(time.Since(start))
}

// processInitialization initializes queued components, activates them and
// starts their simulation. Components created while doing so are processed
// in the same call unless the world's initialization budget runs out, in
// which case the rest stay queued for the next call. Components of inactive
// objects are initialized too; they are activated once their owner is.
func (w *World) processInitialization() {
	if w.startSimulation {
		w.startSimulation = false
		for _, m := range w.managers {
			for c := range m.Components() {
				if c.base().IsActiveAndInitialized() {
					w.simulationQueue = append(w.simulationQueue, c.base().handle)
				}
			}
		}
	}

	start := time.Now()
	for len(w.initQueue) > 0 {
		queue := w.initQueue
		w.initQueue = nil

		initialized := make([]ComponentHandle, 0, len(queue))
		for i, h := range queue {
			if w.maxInitTime > 0 && len(initialized) > 0 && time.Since(start) >= w.maxInitTime {
				w.initQueue = append(slices.Clone(queue[i:]), w.initQueue...)
				break
			}
			c, ok := w.TryGetComponent(h)
			if !ok {
				continue
			}
			b := c.base()
			if b.flags.has(componentInitialized) {
				continue
			}
			b.owner.UpdateGlobalTransform()
			b.flags |= componentInitializing
			c.Initialize()
			b.flags &^= componentInitializing
			b.flags |= componentInitialized
			initialized = append(initialized, h)
		}

		for _, h := range initialized {
			c, ok := w.TryGetComponent(h)
			if !ok {
				continue
			}
			b := c.base()
			if !b.IsActiveAndInitialized() {
				continue
			}
			c.OnActivated()
			if w.simulating {
				w.simulationQueue = append(w.simulationQueue, h)
			}
		}

		if w.maxInitTime > 0 && time.Since(start) >= w.maxInitTime {
			break
		}
	}

	if len(w.initQueue) == 0 {
		w.messages.deliver(w, QueueAfterInitialized)
	}

	if !w.simulating {
		w.simulationQueue = w.simulationQueue[:0]
		return
	}
	for len(w.simulationQueue) > 0 {
		queue := w.simulationQueue
		w.simulationQueue = nil
		for _, h := range queue {
			c, ok := w.TryGetComponent(h)
			if !ok {
				continue
			}
			b := c.base()
			if !b.IsActiveAndInitialized() || b.flags.has(componentSimulationStarted) {
				continue
			}
			b.flags |= componentSimulationStarted
			c.OnSimulationStarted()
		}
	}
}
