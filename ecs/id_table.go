package ecs

import "iter"

type idSlot[T any] struct {
	value      T
	generation uint16
	occupied   bool
}

// IdTable maps generational ids to values. Removing an id bumps the
// generation of its slot, so ids handed out before the removal never
// resolve again even after the slot is reused.
type IdTable[T any] struct {
	slots     []idSlot[T]
	freeSlots []uint32
	typeId    uint16
	count     int
}

// NewIdTable creates an empty table whose ids carry the given type id.
func NewIdTable[T any](typeId uint16) *IdTable[T] {
	return &IdTable[T]{typeId: typeId}
}

// Insert stores v in a free slot and returns its id.
func (t *IdTable[T]) Insert(v T) Id {
	var index uint32
	if n := len(t.freeSlots); n > 0 {
		index = t.freeSlots[n-1]
		t.freeSlots = t.freeSlots[:n-1]
	} else {
		index = uint32(len(t.slots))
		t.slots = append(t.slots, idSlot[T]{})
	}

	slot := &t.slots[index]
	if slot.generation == 0 {
		slot.generation = 1
	}
	slot.value = v
	slot.occupied = true
	t.count++

	return NewId(index, slot.generation, t.typeId)
}

func (t *IdTable[T]) slot(id Id) *idSlot[T] {
	index := id.Index()
	if !id.IsValid() || id.TypeId() != t.typeId || int(index) >= len(t.slots) {
		return nil
	}
	slot := &t.slots[index]
	if !slot.occupied || slot.generation != id.Generation() {
		return nil
	}
	return slot
}

// Remove frees the slot referenced by id. It returns false if id is stale.
func (t *IdTable[T]) Remove(id Id) bool {
	slot := t.slot(id)
	if slot == nil {
		return false
	}

	var zero T
	slot.value = zero
	slot.occupied = false
	slot.generation++
	if slot.generation == 0 {
		// wrapped around, skip the invalid generation
		slot.generation = 1
	}
	t.freeSlots = append(t.freeSlots, id.Index())
	t.count--
	return true
}

// TryGet returns the value stored for id.
func (t *IdTable[T]) TryGet(id Id) (T, bool) {
	slot := t.slot(id)
	if slot == nil {
		var zero T
		return zero, false
	}
	return slot.value, true
}

// Set replaces the value stored for a live id.
func (t *IdTable[T]) Set(id Id, v T) bool {
	slot := t.slot(id)
	if slot == nil {
		return false
	}
	slot.value = v
	return true
}

// Contains reports whether id is live.
func (t *IdTable[T]) Contains(id Id) bool {
	return t.slot(id) != nil
}

// Count returns the number of live ids.
func (t *IdTable[T]) Count() int {
	return t.count
}

// All iterates over every live id and its value in slot order.
func (t *IdTable[T]) All() iter.Seq2[Id, T] {
	return func(yield func(Id, T) bool) {
		for i := range t.slots {
			slot := &t.slots[i]
			if !slot.occupied {
				continue
			}
			if !yield(NewId(uint32(i), slot.generation, t.typeId), slot.value) {
				return
			}
		}
	}
}
