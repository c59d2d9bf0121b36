package ecs

import (
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

type objectFlags uint8

const (
	objectActive objectFlags = 1 << iota
	objectActiveState
	objectDynamic
	objectDead
)

func (f objectFlags) has(flag objectFlags) bool {
	return f&flag != 0
}

// TransformPreservation selects which transform survives a re-parenting.
type TransformPreservation int

const (
	// PreserveGlobal keeps the object where it is in the world and
	// recomputes its local transform relative to the new parent.
	PreserveGlobal TransformPreservation = iota
	// PreserveLocal keeps the local transform, moving the object along with
	// its new parent.
	PreserveLocal
)

// GameObjectDesc describes a game object to create.
type GameObjectDesc struct {
	Name      string
	Parent    GameObjectHandle
	GlobalKey string

	LocalPosition mgl64.Vec3
	// LocalRotation defaults to the identity rotation when zero.
	LocalRotation mgl64.Quat
	// LocalScaling defaults to (1, 1, 1) when zero.
	LocalScaling mgl64.Vec3

	// Dynamic objects have their global transform recomputed every frame.
	// Children of dynamic objects are always dynamic.
	Dynamic  bool
	Inactive bool

	// PersistentId is generated when zero.
	PersistentId uuid.UUID
}

// GameObject is a node in a world's object tree. It owns components through
// handles and its transform through a HierarchicalData record.
//
// Pointers to game objects stay valid until the end of the frame in which
// the object is deleted; keep a GameObjectHandle to refer to an object across
// frames.
type GameObject struct {
	world        *World
	handle       GameObjectHandle
	storageIndex uint32
	persistentId uuid.UUID
	name         string
	flags        objectFlags

	parent      GameObjectHandle
	firstChild  GameObjectHandle
	lastChild   GameObjectHandle
	prevSibling GameObjectHandle
	nextSibling GameObjectHandle
	childCount  uint32

	components []ComponentHandle

	data    *HierarchicalData
	dataLoc hierarchyLocation
}

// Handle returns the object's handle.
func (o *GameObject) Handle() GameObjectHandle {
	return o.handle
}

// World returns the world the object lives in.
func (o *GameObject) World() *World {
	return o.world
}

// IsValid reports whether the object has not been deleted.
func (o *GameObject) IsValid() bool {
	return o.world != nil && !o.flags.has(objectDead)
}

func (o *GameObject) String() string {
	return fmt.Sprintf("%q (%s)", o.name, o.handle)
}

func (o *GameObject) Name() string {
	return o.name
}

func (o *GameObject) SetName(name string) {
	o.name = name
}

// PersistentId returns the id that identifies the object across
// serialization.
func (o *GameObject) PersistentId() uuid.UUID {
	return o.persistentId
}

// GlobalKey returns the object's world-unique key, if it has one.
func (o *GameObject) GlobalKey() string {
	key, _ := o.world.keysByObject.Get(o.handle.Index())
	return key
}

// SetGlobalKey assigns a world-unique key to the object. An empty key
// removes the current one. Assigning a key owned by another object panics.
func (o *GameObject) SetGlobalKey(key string) {
	o.world.setGlobalKey(o, key)
}

// HierarchyLevel returns the depth of the object in the tree; roots are at
// level 0.
func (o *GameObject) HierarchyLevel() uint32 {
	return o.dataLoc.level
}

// HierarchicalData returns the object's transform record.
func (o *GameObject) HierarchicalData() *HierarchicalData {
	return o.data
}

func (o *GameObject) IsDynamic() bool {
	return o.flags.has(objectDynamic)
}

func (o *GameObject) IsStatic() bool {
	return !o.flags.has(objectDynamic)
}

// MakeDynamic marks the object and its whole subtree as dynamic.
func (o *GameObject) MakeDynamic() {
	o.world.checkWriteAccess()
	if o.IsDynamic() {
		return
	}
	o.flags |= objectDynamic
	o.recreateHierarchyData(true, o.dataLoc.level)
	for child := range o.Children() {
		child.MakeDynamic()
	}
}

// MakeStatic marks the object as static. Objects below a dynamic parent
// cannot be static.
func (o *GameObject) MakeStatic() {
	o.world.checkWriteAccess()
	if o.IsStatic() {
		return
	}
	if p := o.Parent(); p != nil && p.IsDynamic() {
		panic(fmt.Sprintf("ecs: cannot make %s static, its parent %s is dynamic", o, p))
	}
	o.flags &^= objectDynamic
	o.recreateHierarchyData(false, o.dataLoc.level)
	o.data.velocity = mgl64.Vec3{}
}

// recreateHierarchyData moves the object's record into the storage for the
// given kind and level, then fixes up the parent pointers of its children.
// Children whose level changes are moved as well.
func (o *GameObject) recreateHierarchyData(dynamic bool, level uint32) {
	w := o.world
	old, oldLoc := o.data, o.dataLoc

	data, loc := w.hierarchy.allocate(dynamic, level)
	*data = *old
	w.hierarchy.release(oldLoc)
	o.data, o.dataLoc = data, loc

	for child := range o.Children() {
		if child.dataLoc.level != level+1 {
			child.recreateHierarchyData(child.dataLoc.dynamic, level+1)
		}
		child.data.parent = data
	}
}

// ActiveFlag returns the object's own active flag.
func (o *GameObject) ActiveFlag() bool {
	return o.flags.has(objectActive)
}

// IsActive reports whether the object and all of its ancestors are active.
func (o *GameObject) IsActive() bool {
	return o.flags.has(objectActiveState)
}

// SetActiveFlag changes the object's own active flag and propagates the
// resulting active state to its components and children.
func (o *GameObject) SetActiveFlag(active bool) {
	if o.ActiveFlag() == active {
		return
	}
	if active {
		o.flags |= objectActive
	} else {
		o.flags &^= objectActive
	}

	parentActive := true
	if p := o.Parent(); p != nil {
		parentActive = p.IsActive()
	}
	o.updateActiveState(parentActive)
}

func (o *GameObject) updateActiveState(parentActive bool) {
	state := o.flags.has(objectActive) && parentActive
	if state == o.IsActive() {
		return
	}
	if state {
		o.flags |= objectActiveState
	} else {
		o.flags &^= objectActiveState
	}

	for _, h := range slices.Clone(o.components) {
		if c, ok := o.world.TryGetComponent(h); ok {
			o.world.updateComponentActiveState(c, state)
		}
	}
	for child := range o.Children() {
		child.updateActiveState(state)
	}
}

// Parent returns the parent object, or nil for a root object.
func (o *GameObject) Parent() *GameObject {
	return o.world.object(o.parent)
}

// ParentHandle returns the parent's handle.
func (o *GameObject) ParentHandle() GameObjectHandle {
	return o.parent
}

// ChildCount returns the number of direct children.
func (o *GameObject) ChildCount() uint32 {
	return o.childCount
}

// Children iterates over the direct children in insertion order. The next
// sibling is resolved before yielding, so the current child may be
// re-parented or deleted during iteration.
func (o *GameObject) Children() iter.Seq[*GameObject] {
	return func(yield func(*GameObject) bool) {
		child := o.world.object(o.firstChild)
		for child != nil {
			next := o.world.object(child.nextSibling)
			if !yield(child) {
				return
			}
			child = next
		}
	}
}

// IsDescendantOf reports whether ancestor is above o in the tree.
func (o *GameObject) IsDescendantOf(ancestor *GameObject) bool {
	for p := o.Parent(); p != nil; p = p.Parent() {
		if p == ancestor {
			return true
		}
	}
	return false
}

// SetParent moves the object below parent, or makes it a root object if
// parent is invalid. The object keeps its handle; its transform record and
// those of its descendants move to their new hierarchy levels.
func (o *GameObject) SetParent(parent GameObjectHandle, preserve TransformPreservation) {
	w := o.world
	w.checkWriteAccess()

	newParent := w.object(parent)
	if newParent == o.Parent() {
		return
	}
	if newParent != nil {
		if newParent == o || newParent.IsDescendantOf(o) {
			panic(fmt.Sprintf("ecs: cannot attach %s below its own descendant %s", o, newParent))
		}
		if o.IsStatic() && newParent.IsDynamic() {
			panic(fmt.Sprintf("ecs: cannot attach static object %s to dynamic parent %s", o, newParent))
		}
	}

	global := o.computeGlobalTransform()

	if oldParent := o.Parent(); oldParent != nil {
		oldParent.unlinkChild(o)
	}

	level := uint32(0)
	parentGlobal := IdentityTransform()
	var parentData *HierarchicalData
	if newParent != nil {
		newParent.linkChild(o)
		level = newParent.dataLoc.level + 1
		parentGlobal = newParent.computeGlobalTransform()
		parentData = newParent.data
	}

	if level != o.dataLoc.level {
		o.recreateHierarchyData(o.dataLoc.dynamic, level)
	}
	o.data.parent = parentData

	if preserve == PreserveGlobal {
		o.data.local = global.LocalTo(parentGlobal)
	}
	o.updateGlobalTransformRecursive()

	parentActive := newParent == nil || newParent.IsActive()
	o.updateActiveState(parentActive)
}

// AddChild attaches child below o.
func (o *GameObject) AddChild(child GameObjectHandle, preserve TransformPreservation) {
	if c := o.world.object(child); c != nil {
		c.SetParent(o.handle, preserve)
	}
}

// DetachChild makes child a root object if it is a child of o.
func (o *GameObject) DetachChild(child GameObjectHandle, preserve TransformPreservation) {
	if c := o.world.object(child); c != nil && c.parent == o.handle {
		c.SetParent(InvalidGameObject, preserve)
	}
}

func (o *GameObject) linkChild(child *GameObject) {
	child.parent = o.handle
	child.prevSibling = o.lastChild
	child.nextSibling = InvalidGameObject
	if last := o.world.object(o.lastChild); last != nil {
		last.nextSibling = child.handle
	} else {
		o.firstChild = child.handle
	}
	o.lastChild = child.handle
	o.childCount++
}

func (o *GameObject) unlinkChild(child *GameObject) {
	if prev := o.world.object(child.prevSibling); prev != nil {
		prev.nextSibling = child.nextSibling
	} else {
		o.firstChild = child.nextSibling
	}
	if next := o.world.object(child.nextSibling); next != nil {
		next.prevSibling = child.prevSibling
	} else {
		o.lastChild = child.prevSibling
	}
	child.parent = InvalidGameObject
	child.prevSibling = InvalidGameObject
	child.nextSibling = InvalidGameObject
	o.childCount--
}

// Components returns the handles of the object's components.
func (o *GameObject) Components() []ComponentHandle {
	return slices.Clone(o.components)
}

// ComponentCount returns the number of components attached to the object.
func (o *GameObject) ComponentCount() int {
	return len(o.components)
}

func (o *GameObject) removeComponent(h ComponentHandle) {
	if i := slices.Index(o.components, h); i >= 0 {
		o.components = slices.Delete(o.components, i, i+1)
	}
}

// TryGetComponentOfType returns the first component of type T attached to o.
func TryGetComponentOfType[T any, PT componentPtr[T]](o *GameObject) (PT, bool) {
	m := GetComponentManager[T, PT](o.world)
	if m == nil {
		return nil, false
	}
	for _, h := range o.components {
		if h.TypeId() != m.TypeId() {
			continue
		}
		if c, ok := m.TryGetComponent(h); ok {
			return c, true
		}
	}
	return nil, false
}

func (o *GameObject) LocalPosition() mgl64.Vec3 { return o.data.local.Position }
func (o *GameObject) LocalRotation() mgl64.Quat { return o.data.local.Rotation }
func (o *GameObject) LocalScaling() mgl64.Vec3  { return o.data.local.Scale }

// LocalTransform returns the transform relative to the parent.
func (o *GameObject) LocalTransform() Transform {
	return o.data.local
}

func (o *GameObject) SetLocalPosition(p mgl64.Vec3) {
	o.data.local.Position = p
	o.localTransformChanged()
}

func (o *GameObject) SetLocalRotation(q mgl64.Quat) {
	o.data.local.Rotation = q.Normalize()
	o.localTransformChanged()
}

func (o *GameObject) SetLocalScaling(s mgl64.Vec3) {
	o.data.local.Scale = s
	o.localTransformChanged()
}

// SetLocalTransform replaces the transform relative to the parent.
func (o *GameObject) SetLocalTransform(t Transform) {
	o.data.local = t
	o.localTransformChanged()
}

// GlobalTransform returns the world-space transform. For dynamic objects it
// reflects the last transform pass plus any change made to the object
// itself since then.
func (o *GameObject) GlobalTransform() Transform {
	return o.data.global
}

func (o *GameObject) GlobalPosition() mgl64.Vec3 { return o.data.global.Position }
func (o *GameObject) GlobalRotation() mgl64.Quat { return o.data.global.Rotation }
func (o *GameObject) GlobalScaling() mgl64.Vec3  { return o.data.global.Scale }

// SetGlobalTransform sets the local transform so that the object ends up at
// t in world space.
func (o *GameObject) SetGlobalTransform(t Transform) {
	parentGlobal := IdentityTransform()
	if p := o.Parent(); p != nil {
		parentGlobal = p.computeGlobalTransform()
	}
	o.data.local = t.LocalTo(parentGlobal)
	o.localTransformChanged()
}

func (o *GameObject) SetGlobalPosition(p mgl64.Vec3) {
	t := o.computeGlobalTransform()
	t.Position = p
	o.SetGlobalTransform(t)
}

func (o *GameObject) SetGlobalRotation(q mgl64.Quat) {
	t := o.computeGlobalTransform()
	t.Rotation = q.Normalize()
	o.SetGlobalTransform(t)
}

func (o *GameObject) SetGlobalScaling(s mgl64.Vec3) {
	t := o.computeGlobalTransform()
	t.Scale = s
	o.SetGlobalTransform(t)
}

// LinearVelocity returns the velocity derived from the last two transform
// passes. Static objects report zero.
func (o *GameObject) LinearVelocity() mgl64.Vec3 {
	return o.data.velocity
}

// UpdateGlobalTransform recomputes the global transform of the object and
// its ancestors right away instead of waiting for the transform pass.
func (o *GameObject) UpdateGlobalTransform() {
	o.computeGlobalTransform()
}

func (o *GameObject) computeGlobalTransform() Transform {
	if p := o.Parent(); p != nil {
		p.computeGlobalTransform()
	}
	o.data.updateGlobalTransform()
	return o.data.global
}

func (o *GameObject) localTransformChanged() {
	if o.IsStatic() {
		o.updateGlobalTransformRecursive()
		return
	}
	o.data.updateGlobalTransform()
}

func (o *GameObject) updateGlobalTransformRecursive() {
	o.data.updateGlobalTransform()
	for child := range o.Children() {
		child.updateGlobalTransformRecursive()
	}
}

// SendMessage delivers msg to the object's components according to
// routing. See World.SendMessage.
func (o *GameObject) SendMessage(msg Message, routing MessageRouting) bool {
	return o.world.SendMessage(o.handle, msg, routing)
}

// PostMessage queues msg for the object. See World.PostMessage.
func (o *GameObject) PostMessage(msg Message, routing MessageRouting, queue MessageQueueType, delay time.Duration) {
	o.world.PostMessage(o.handle, msg, routing, queue, delay)
}
