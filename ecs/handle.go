package ecs

import "fmt"

// Id identifies a pooled record. It packs a slot index, the generation of the
// slot at the time the id was handed out and the type id of the owning pool.
//
//	bits  0-31: index
//	bits 32-47: generation
//	bits 48-63: type id
//
// The zero Id is never handed out and is used as the invalid id.
type Id uint64

const (
	idIndexBits      = 32
	idGenerationBits = 16

	idGenerationShift = idIndexBits
	idTypeShift       = idIndexBits + idGenerationBits
)

// InvalidId is the zero id; it never resolves.
const InvalidId Id = 0

// NewId packs the given parts into an Id.
func NewId(index uint32, generation uint16, typeId uint16) Id {
	return Id(uint64(index) | uint64(generation)<<idGenerationShift | uint64(typeId)<<idTypeShift)
}

// Index returns the slot index.
func (id Id) Index() uint32 {
	return uint32(id)
}

// Generation returns the slot generation captured by this id.
func (id Id) Generation() uint16 {
	return uint16(id >> idGenerationShift)
}

// TypeId returns the type id of the pool this id belongs to.
func (id Id) TypeId() uint16 {
	return uint16(id >> idTypeShift)
}

// IsValid reports whether the id could refer to a live record. Live
// generations start at 1, so any id with generation 0 is invalid.
func (id Id) IsValid() bool {
	return id.Generation() != 0
}

func (id Id) String() string {
	return fmt.Sprintf("%d:%d@%d", id.Index(), id.Generation(), id.TypeId())
}

// GameObjectHandle refers to a game object in a World.
type GameObjectHandle struct {
	Id
}

// ComponentHandle refers to a component owned by a component manager. The
// type id of the embedded Id selects the manager.
type ComponentHandle struct {
	Id
}

// InvalidGameObject is the zero game object handle.
var InvalidGameObject = GameObjectHandle{}

// InvalidComponent is the zero component handle.
var InvalidComponent = ComponentHandle{}
