package ecs

import "time"

// WorldStats is a snapshot of a world's storage and update statistics.
type WorldStats struct {
	Name               string
	FrameCount         uint64
	ObjectCount        int
	StaticObjectCount  int
	DynamicObjectCount int
	HierarchyLevels    int
	ComponentCount     int
	Modules            []string
	Managers           []ManagerStats
	UpdateFunctions    []UpdateFunctionStats
	TotalExecutions    int64
}

// ManagerStats describes the storage of a single component manager.
type ManagerStats struct {
	Name           string
	TypeId         uint16
	ComponentCount int
	BlockCount     int
	StorageType    StorageType
	Functions      []string
}

// UpdateFunctionStats provides execution statistics for a single update
// function. Async functions record one execution per batch.
type UpdateFunctionStats struct {
	Name           string
	Manager        string
	Phase          UpdatePhase
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

// Stats collects statistics about the world. Update functions are listed in
// execution order.
func (w *World) Stats() *WorldStats {
	stats := &WorldStats{
		Name:               w.name,
		FrameCount:         w.frameCount,
		ObjectCount:        w.ObjectCount(),
		StaticObjectCount:  w.hierarchy.count(false),
		DynamicObjectCount: w.hierarchy.count(true),
		HierarchyLevels:    w.hierarchy.levelCount(),
		ComponentCount:     w.ComponentCount(),
		Modules:            w.ModuleTypes(),
		Managers:           make([]ManagerStats, 0, len(w.managers)),
	}

	for _, m := range w.managers {
		stats.Managers = append(stats.Managers, ManagerStats{
			Name:           m.Name(),
			TypeId:         m.TypeId(),
			ComponentCount: m.Count(),
			BlockCount:     m.BlockCount(),
			StorageType:    m.StorageType(),
			Functions:      append([]string(nil), m.core().functions...),
		})
	}

	for phase := range phaseCount {
		for _, f := range w.functions[phase] {
			fs := f.stats()
			stats.UpdateFunctions = append(stats.UpdateFunctions, fs)
			stats.TotalExecutions += fs.ExecutionCount
		}
	}

	return stats
}
