package ecs

import (
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"
)

// HierarchicalData is the per-object transform record. Records are stored
// per hierarchy level so the transform pass can walk each level as a flat
// array; parent records are reached through a direct pointer.
type HierarchicalData struct {
	object *GameObject
	parent *HierarchicalData

	local      Transform
	global     Transform
	lastGlobal Transform
	velocity   mgl64.Vec3
}

// Object returns the game object the record belongs to.
func (d *HierarchicalData) Object() *GameObject {
	return d.object
}

func (d *HierarchicalData) updateGlobalTransform() {
	if d.parent == nil {
		d.global = d.local
	} else {
		d.global = d.parent.global.Mul(d.local)
	}
}

// updateGlobalTransformWithVelocity derives the velocity from the global
// position of the previous transform pass.
func (d *HierarchicalData) updateGlobalTransformWithVelocity(invDt float64) {
	d.updateGlobalTransform()
	if invDt > 0 {
		d.velocity = d.global.Position.Sub(d.lastGlobal.Position).Mul(invDt)
	} else {
		d.velocity = mgl64.Vec3{}
	}
	d.lastGlobal = d.global
}

type hierarchyLocation struct {
	dynamic bool
	level   uint32
	index   uint32
}

// hierarchy holds the transform records of a world split by static/dynamic
// and by level. Free-list storage keeps records in place until they are
// released, so parent pointers stay valid.
type hierarchy struct {
	levels [2][]*BlockStorage[HierarchicalData]
}

func storageSlot(dynamic bool) int {
	if dynamic {
		return 1
	}
	return 0
}

func (h *hierarchy) allocate(dynamic bool, level uint32) (*HierarchicalData, hierarchyLocation) {
	slot := storageSlot(dynamic)
	for uint32(len(h.levels[slot])) <= level {
		h.levels[slot] = append(h.levels[slot], NewBlockStorage[HierarchicalData](StorageFreeList))
	}
	data, index := h.levels[slot][level].Allocate()
	return data, hierarchyLocation{dynamic: dynamic, level: level, index: index}
}

// release frees the record at loc and drops trailing levels that became
// empty.
func (h *hierarchy) release(loc hierarchyLocation) {
	slot := storageSlot(loc.dynamic)
	h.levels[slot][loc.level].Deallocate(loc.index)

	levels := h.levels[slot]
	for len(levels) > 0 && levels[len(levels)-1].Count() == 0 {
		levels[len(levels)-1] = nil
		levels = levels[:len(levels)-1]
	}
	h.levels[slot] = levels
}

func (h *hierarchy) levelCount() int {
	return max(len(h.levels[0]), len(h.levels[1]))
}

func (h *hierarchy) count(dynamic bool) int {
	n := 0
	for _, level := range h.levels[storageSlot(dynamic)] {
		n += level.Count()
	}
	return n
}

// updateGlobalTransforms recomputes all dynamic records level by level.
// Levels with more than one block are processed in parallel, one block per
// goroutine; a level only starts once the previous one is complete.
func (h *hierarchy) updateGlobalTransforms(invDt float64, workers int) {
	for _, level := range h.levels[1] {
		if level.BlockCount() <= 1 {
			for _, data := range level.All() {
				data.updateGlobalTransformWithVelocity(invDt)
			}
			continue
		}

		var g errgroup.Group
		g.SetLimit(workers)
		for first := uint32(0); first < level.Len(); first += BlockCapacity {
			g.Go(func() error {
				for _, data := range level.Range(first, BlockCapacity) {
					data.updateGlobalTransformWithVelocity(invDt)
				}
				return nil
			})
		}
		_ = g.Wait()
	}
}
