package ecs

import (
	"fmt"
	"iter"
	"reflect"
	"runtime"
	"slices"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/kamstrup/intmap"
	"go.uber.org/zap"
)

// WorldDesc configures a new World.
type WorldDesc struct {
	Name   string
	Logger *zap.Logger

	// WorkerCount bounds the number of goroutines running async update
	// batches and long-running tasks. Defaults to GOMAXPROCS.
	WorkerCount int

	// Paused creates the world with simulation disabled.
	Paused bool

	// MaxInitializationTime bounds the time spent initializing queued
	// components per initialization step. At least one component is
	// initialized per step; the rest wait for the next one. Zero means no
	// limit.
	MaxInitializationTime time.Duration
}

// World owns game objects, their transform data and all component managers,
// and advances them frame by frame.
//
// A World is driven from a single goroutine. Only the async update phase
// runs user code concurrently, and only PostMessage may be called from it.
type World struct {
	name        string
	log         *zap.Logger
	workerCount int

	objects   *BlockStorage[GameObject]
	objectIds *IdTable[*GameObject]
	hierarchy hierarchy

	globalKeys    map[string]GameObjectHandle
	keysByObject  *intmap.Map[uint32, string]
	persistentIds map[uuid.UUID]GameObjectHandle
	deadObjects   []uint32

	managers      []ComponentManagerBase
	managerByType map[reflect.Type]ComponentManagerBase
	managerByName map[string]ComponentManagerBase

	uniqueIds    *intmap.Map[uint32, ComponentHandle]
	nextUniqueId uint32

	singletons map[reflect.Type]any

	modules      []WorldModule
	moduleByType map[reflect.Type]WorldModule

	pendingFunctions []*registeredFunction
	functions        [phaseCount][]*registeredFunction
	warnedPending    map[*registeredFunction]bool

	initQueue       []ComponentHandle
	maxInitTime     time.Duration
	simulationQueue []ComponentHandle
	startSimulation bool
	simulating      bool
	asyncPhase      atomic.Bool

	messages messageQueues
	commands Commands
	tasks    *TaskSystem
	clock    Clock

	frameCount uint64
	closed     bool
}

// NewWorld creates an empty world.
func NewWorld(desc WorldDesc) *World {
	log := desc.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := desc.WorkerCount
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log = log.With(zap.String("world", desc.Name))

	return &World{
		name:          desc.Name,
		log:           log,
		workerCount:   workers,
		objects:       NewBlockStorage[GameObject](StorageFreeList),
		objectIds:     NewIdTable[*GameObject](0),
		globalKeys:    make(map[string]GameObjectHandle),
		keysByObject:  intmap.New[uint32, string](64),
		persistentIds: make(map[uuid.UUID]GameObjectHandle),
		managerByType: make(map[reflect.Type]ComponentManagerBase),
		managerByName: make(map[string]ComponentManagerBase),
		uniqueIds:     intmap.New[uint32, ComponentHandle](256),
		warnedPending: make(map[*registeredFunction]bool),
		simulating:    !desc.Paused,
		maxInitTime:   desc.MaxInitializationTime,
		tasks:         NewTaskSystem(workers, log),
		clock:         newClock(),
	}
}

func (w *World) Name() string {
	return w.name
}

// Logger returns the world's logger.
func (w *World) Logger() *zap.Logger {
	return w.log
}

// WorkerCount returns the number of worker goroutines used for async
// batches.
func (w *World) WorkerCount() int {
	return w.workerCount
}

// Tasks returns the task system for long-running work.
func (w *World) Tasks() *TaskSystem {
	return w.tasks
}

// Clock returns the world clock.
func (w *World) Clock() *Clock {
	return &w.clock
}

// FrameCount returns the number of completed updates.
func (w *World) FrameCount() uint64 {
	return w.frameCount
}

func (w *World) checkWriteAccess() {
	if w.asyncPhase.Load() {
		panic("ecs: the world cannot be modified during the async update phase")
	}
	if w.closed {
		panic("ecs: the world has been closed")
	}
}

// CreateObject creates a game object. A stale Parent handle creates a root
// object.
func (w *World) CreateObject(desc GameObjectDesc) (GameObjectHandle, *GameObject) {
	w.checkWriteAccess()
	if existing, ok := w.globalKeys[desc.GlobalKey]; ok && desc.GlobalKey != "" {
		panic(fmt.Sprintf("ecs: global key %q is already used by object %s", desc.GlobalKey, existing))
	}

	parent := w.object(desc.Parent)
	if desc.Parent.IsValid() && parent == nil {
		w.log.Warn("parent object does not exist, creating a root object",
			zap.String("name", desc.Name), zap.Stringer("parent", desc.Parent))
	}

	obj, index := w.objects.Allocate()
	h := GameObjectHandle{w.objectIds.Insert(obj)}

	obj.world = w
	obj.handle = h
	obj.storageIndex = index
	obj.name = desc.Name
	obj.persistentId = desc.PersistentId
	if obj.persistentId == uuid.Nil {
		obj.persistentId = uuid.New()
	}
	w.persistentIds[obj.persistentId] = h

	dynamic := desc.Dynamic || (parent != nil && parent.IsDynamic())
	if dynamic {
		obj.flags |= objectDynamic
	}
	if !desc.Inactive {
		obj.flags |= objectActive
		if parent == nil || parent.IsActive() {
			obj.flags |= objectActiveState
		}
	}

	level := uint32(0)
	if parent != nil {
		level = parent.dataLoc.level + 1
	}
	data, loc := w.hierarchy.allocate(dynamic, level)
	obj.data, obj.dataLoc = data, loc

	data.object = obj
	data.local = Transform{
		Position: desc.LocalPosition,
		Rotation: desc.LocalRotation,
		Scale:    desc.LocalScaling,
	}
	if data.local.Rotation == (mgl64.Quat{}) {
		data.local.Rotation = mgl64.QuatIdent()
	} else {
		data.local.Rotation = data.local.Rotation.Normalize()
	}
	if data.local.Scale == (mgl64.Vec3{}) {
		data.local.Scale = mgl64.Vec3{1, 1, 1}
	}

	if parent != nil {
		parent.linkChild(obj)
		data.parent = parent.data
	}
	data.updateGlobalTransform()
	data.lastGlobal = data.global

	if desc.GlobalKey != "" {
		w.setGlobalKey(obj, desc.GlobalKey)
	}

	return h, obj
}

func (w *World) object(h GameObjectHandle) *GameObject {
	obj, ok := w.objectIds.TryGet(h.Id)
	if !ok {
		return nil
	}
	return obj
}

// TryGetObject resolves h.
func (w *World) TryGetObject(h GameObjectHandle) (*GameObject, bool) {
	obj := w.object(h)
	return obj, obj != nil
}

// IsValidObject reports whether h refers to a live object.
func (w *World) IsValidObject(h GameObjectHandle) bool {
	return w.objectIds.Contains(h.Id)
}

// TryGetObjectWithGlobalKey looks an object up by its global key.
func (w *World) TryGetObjectWithGlobalKey(key string) (*GameObject, bool) {
	h, ok := w.globalKeys[key]
	if !ok {
		return nil, false
	}
	return w.TryGetObject(h)
}

// TryGetObjectWithPersistentId looks an object up by its persistent id.
func (w *World) TryGetObjectWithPersistentId(id uuid.UUID) (*GameObject, bool) {
	h, ok := w.persistentIds[id]
	if !ok {
		return nil, false
	}
	return w.TryGetObject(h)
}

// ObjectCount returns the number of live objects.
func (w *World) ObjectCount() int {
	return w.objectIds.Count()
}

// Objects iterates over all live objects.
func (w *World) Objects() iter.Seq[*GameObject] {
	return func(yield func(*GameObject) bool) {
		for _, obj := range w.objectIds.All() {
			if !yield(obj) {
				return
			}
		}
	}
}

// RootObjects iterates over all live objects without a parent.
func (w *World) RootObjects() iter.Seq[*GameObject] {
	return func(yield func(*GameObject) bool) {
		for obj := range w.Objects() {
			if obj.parent.IsValid() {
				continue
			}
			if !yield(obj) {
				return
			}
		}
	}
}

func (w *World) setGlobalKey(obj *GameObject, key string) {
	if existing, ok := w.globalKeys[key]; ok && key != "" {
		if existing == obj.handle {
			return
		}
		panic(fmt.Sprintf("ecs: global key %q is already used by object %s", key, existing))
	}

	if old, ok := w.keysByObject.Get(obj.handle.Index()); ok {
		delete(w.globalKeys, old)
		w.keysByObject.Del(obj.handle.Index())
	}
	if key == "" {
		return
	}
	w.globalKeys[key] = obj.handle
	w.keysByObject.Put(obj.handle.Index(), key)
}

// DeleteObjectNow deletes the object, its children and all their
// components. Handles become invalid immediately; the memory is reclaimed at
// the end of the frame. With deleteEmptyParents, ancestors left without
// children and components are deleted as well.
func (w *World) DeleteObjectNow(h GameObjectHandle, deleteEmptyParents bool) {
	obj := w.object(h)
	if obj == nil {
		return
	}
	w.checkWriteAccess()

	parent := obj.Parent()
	if parent != nil {
		parent.unlinkChild(obj)
	}
	w.deleteObjectRecursive(obj)

	if !deleteEmptyParents {
		return
	}
	for parent != nil && parent.childCount == 0 && len(parent.components) == 0 {
		next := parent.Parent()
		if next != nil {
			next.unlinkChild(parent)
		}
		w.deleteObjectRecursive(parent)
		parent = next
	}
}

func (w *World) deleteObjectRecursive(obj *GameObject) {
	for child := range obj.Children() {
		w.deleteObjectRecursive(child)
	}

	for _, ch := range slices.Clone(obj.components) {
		if m := w.managerFor(ch); m != nil {
			m.DeleteComponent(ch)
		}
	}

	w.setGlobalKey(obj, "")
	delete(w.persistentIds, obj.persistentId)
	w.hierarchy.release(obj.dataLoc)
	w.objectIds.Remove(obj.handle.Id)

	obj.flags = objectDead
	obj.data = nil
	w.deadObjects = append(w.deadObjects, obj.storageIndex)
}

func (w *World) deleteDeadObjects() {
	for _, index := range w.deadObjects {
		w.objects.Deallocate(index)
	}
	w.deadObjects = w.deadObjects[:0]

	for _, m := range w.managers {
		m.deleteDeadComponents()
	}
}

// DeleteObjectDelayed deletes the object at the start of the next frame.
func (w *World) DeleteObjectDelayed(h GameObjectHandle, deleteEmptyParents bool) {
	w.PostMessage(h, &deleteObjectMessage{deleteEmptyParents: deleteEmptyParents}, RouteDirect, QueueNextFrame, 0)
}

func (w *World) registerManager(m ComponentManagerBase) uint16 {
	if w.closed {
		panic("ecs: the world has been closed")
	}
	t := m.ComponentType()
	if _, ok := w.managerByType[t]; ok {
		panic(fmt.Sprintf("ecs: a component manager for %s is already registered", t))
	}
	if _, ok := w.managerByName[m.Name()]; ok {
		panic(fmt.Sprintf("ecs: a component manager named %q is already registered", m.Name()))
	}
	if len(w.managers) >= 1<<16-1 {
		panic("ecs: too many component managers")
	}

	w.managers = append(w.managers, m)
	w.managerByType[t] = m
	w.managerByName[m.Name()] = m

	typeId := uint16(len(w.managers))
	w.log.Debug("registered component manager", zap.String("manager", m.Name()), zap.Uint16("typeId", typeId))
	return typeId
}

// Managers returns all registered component managers in registration order.
func (w *World) Managers() []ComponentManagerBase {
	return slices.Clone(w.managers)
}

// ManagerByName returns the manager registered under name.
func (w *World) ManagerByName(name string) (ComponentManagerBase, bool) {
	m, ok := w.managerByName[name]
	return m, ok
}

func (w *World) managerFor(h ComponentHandle) ComponentManagerBase {
	typeId := int(h.TypeId())
	if typeId == 0 || typeId > len(w.managers) {
		return nil
	}
	return w.managers[typeId-1]
}

// TryGetComponent resolves a component handle of any type.
func (w *World) TryGetComponent(h ComponentHandle) (Component, bool) {
	m := w.managerFor(h)
	if m == nil {
		return nil, false
	}
	return m.TryGetComponentBase(h)
}

// TryGetComponentAs resolves h and converts the component to PT. It
// returns false for stale handles and for handles of another type.
func TryGetComponentAs[PT Component](w *World, h ComponentHandle) (PT, bool) {
	var zero PT
	c, ok := w.TryGetComponent(h)
	if !ok {
		return zero, false
	}
	typed, ok := c.(PT)
	if !ok {
		return zero, false
	}
	return typed, true
}

// DeleteComponent deletes the component referred to by h.
func (w *World) DeleteComponent(h ComponentHandle) {
	if m := w.managerFor(h); m != nil {
		m.DeleteComponent(h)
	}
}

// TryGetComponentByUniqueId looks a component up by its unique id.
func (w *World) TryGetComponentByUniqueId(id uint32) (Component, bool) {
	h, ok := w.uniqueIds.Get(id)
	if !ok {
		return nil, false
	}
	return w.TryGetComponent(h)
}

func (w *World) registerUniqueId(h ComponentHandle) uint32 {
	w.nextUniqueId++
	w.uniqueIds.Put(w.nextUniqueId, h)
	return w.nextUniqueId
}

func (w *World) unregisterUniqueId(id uint32) {
	w.uniqueIds.Del(id)
}

// ComponentCount returns the number of live components across all
// managers.
func (w *World) ComponentCount() int {
	return w.uniqueIds.Len()
}

// IsSimulating reports whether the world simulates.
func (w *World) IsSimulating() bool {
	return w.simulating
}

// SetSimulationEnabled toggles simulation. While disabled the clock stands
// still, simulation-only update functions are skipped and components do not
// get OnSimulationStarted. Enabling it starts simulation for all active
// components on the next update.
func (w *World) SetSimulationEnabled(enabled bool) {
	if w.simulating == enabled {
		return
	}
	w.simulating = enabled
	w.startSimulation = enabled
	w.log.Debug("simulation toggled", zap.Bool("enabled", enabled))
}

func (w *World) updateComponentActiveState(c Component, ownerActive bool) {
	b := c.base()
	state := b.flags.has(componentActive) && ownerActive
	if state == b.flags.has(componentActiveState) {
		return
	}

	if state {
		b.flags |= componentActiveState
		// uninitialized components are still queued and get activated
		// right after their initialization
		if b.flags.has(componentInitialized) {
			c.OnActivated()
			if w.simulating {
				w.simulationQueue = append(w.simulationQueue, b.handle)
			}
		}
		return
	}

	b.flags &^= componentActiveState
	if b.flags.has(componentInitialized) {
		c.OnDeactivated()
	}
	b.flags &^= componentSimulationStarted
}

func (w *World) deinitializeComponent(c Component) {
	b := c.base()
	if !b.flags.has(componentInitialized) {
		b.flags &^= componentActiveState
		return
	}
	if b.flags.has(componentActiveState) {
		c.OnDeactivated()
		b.flags &^= componentActiveState | componentSimulationStarted
	}
	c.Deinitialize()
	b.flags &^= componentInitialized
}

// Close waits for outstanding tasks, deletes every object and component,
// deinitializes the world modules and releases all storage. The world
// cannot be used afterwards.
func (w *World) Close() {
	if w.closed {
		return
	}
	w.tasks.WaitForAll()

	for obj := range w.RootObjects() {
		w.DeleteObjectNow(obj.handle, false)
	}
	w.deleteDeadObjects()
	w.deinitializeModules()
	w.closed = true
	w.log.Debug("world closed", zap.Uint64("frames", w.frameCount))
}

// SetTimeStep makes every update advance the clock by step regardless of
// the time passed to Update. Zero restores variable steps.
func (w *World) SetTimeStep(step time.Duration) {
	w.clock.fixedStep = max(step, 0)
}

// Clock tracks world time. It only advances while the world simulates.
type Clock struct {
	accumulated time.Duration
	diff        time.Duration
	fixedStep   time.Duration
	speed       float64
}

func newClock() Clock {
	return Clock{speed: 1}
}

// AccumulatedTime returns the total simulated time.
func (c *Clock) AccumulatedTime() time.Duration {
	return c.accumulated
}

// TimeDiff returns the simulated time of the last frame.
func (c *Clock) TimeDiff() time.Duration {
	return c.diff
}

func (c *Clock) Speed() float64 {
	return c.speed
}

// SetSpeed scales the time passed to subsequent updates.
func (c *Clock) SetSpeed(speed float64) {
	c.speed = max(speed, 0)
}

// FixedStep returns the step set with World.SetTimeStep.
func (c *Clock) FixedStep() time.Duration {
	return c.fixedStep
}

func (c *Clock) advance(dt time.Duration) {
	if c.fixedStep > 0 && dt > 0 {
		dt = c.fixedStep
	}
	c.diff = time.Duration(float64(dt) * c.speed)
	c.accumulated += c.diff
}
