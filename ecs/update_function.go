package ecs

import (
	"sync"
	"time"
)

// UpdatePhase orders update functions within a frame. All phases before
// PhasePostTransform run before transforms are propagated.
type UpdatePhase int

const (
	// PhasePreAsync runs on the calling goroutine before the async phase.
	PhasePreAsync UpdatePhase = iota
	// PhaseAsync splits each function into block-aligned batches that run
	// concurrently on worker goroutines.
	PhaseAsync
	// PhasePostAsync runs on the calling goroutine after all async batches
	// have finished.
	PhasePostAsync
	// PhasePostTransform runs after global transforms have been updated.
	PhasePostTransform

	phaseCount
)

func (p UpdatePhase) String() string {
	switch p {
	case PhasePreAsync:
		return "PreAsync"
	case PhaseAsync:
		return "Async"
	case PhasePostAsync:
		return "PostAsync"
	case PhasePostTransform:
		return "PostTransform"
	default:
		return "Unknown"
	}
}

// Threading returns how functions registered for the phase are executed.
func (p UpdatePhase) Threading() Threading {
	if p == PhaseAsync {
		return Parallel
	}
	return MainThreadOnly
}

// IsPreTransform reports whether the phase runs before transform propagation.
func (p UpdatePhase) IsPreTransform() bool {
	return p < PhasePostTransform
}

// Threading describes where an update function may run.
type Threading int

const (
	MainThreadOnly Threading = iota
	Parallel
)

func (t Threading) String() string {
	if t == Parallel {
		return "Parallel"
	}
	return "MainThreadOnly"
}

// UpdateContext describes the storage range an update function call is
// responsible for.
type UpdateContext struct {
	World      *World
	Manager    ComponentManagerBase
	FirstIndex uint32
	Count      uint32
}

// UpdateFunction processes the components in ctx's range.
type UpdateFunction func(ctx UpdateContext)

// UpdateFunctionDesc describes an update function registered with a
// component manager.
type UpdateFunctionDesc struct {
	// Name must be unique within a phase; other functions refer to it in
	// DependsOn.
	Name     string
	Function UpdateFunction
	Phase    UpdatePhase

	// Granularity is the number of storage slots handed to a single async
	// batch. It is rounded up to a multiple of BlockCapacity. Zero processes
	// the whole manager in one batch.
	Granularity uint32

	// DependsOn lists functions of the same phase that must run first.
	DependsOn []string

	// Priority orders functions without a dependency between them. Higher
	// runs first.
	Priority float32

	OnlyUpdateWhenSimulating bool
}

type registeredFunction struct {
	desc    UpdateFunctionDesc
	manager ComponentManagerBase

	mu             sync.Mutex
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

func newRegisteredFunction(desc UpdateFunctionDesc, manager ComponentManagerBase) *registeredFunction {
	return &registeredFunction{
		desc:        desc,
		manager:     manager,
		minDuration: time.Duration(1<<63 - 1),
	}
}

func (f *registeredFunction) record(duration time.Duration) {
	f.mu.Lock()
	f.executionCount++
	f.lastDuration = duration
	f.totalDuration += duration
	if duration < f.minDuration {
		f.minDuration = duration
	}
	if duration > f.maxDuration {
		f.maxDuration = duration
	}
	f.mu.Unlock()
}

func (f *registeredFunction) stats() UpdateFunctionStats {
	f.mu.Lock()
	defer f.mu.Unlock()

	avgDuration := time.Duration(0)
	minDuration := f.minDuration
	if f.executionCount > 0 {
		avgDuration = f.totalDuration / time.Duration(f.executionCount)
	} else {
		minDuration = 0
	}

	return UpdateFunctionStats{
		Name:           f.desc.Name,
		Manager:        f.manager.Name(),
		Phase:          f.desc.Phase,
		ExecutionCount: f.executionCount,
		MinDuration:    minDuration,
		MaxDuration:    f.maxDuration,
		AvgDuration:    avgDuration,
		LastDuration:   f.lastDuration,
		TotalDuration:  f.totalDuration,
	}
}

func roundUpToBlock(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return (n + BlockCapacity - 1) / BlockCapacity * BlockCapacity
}
