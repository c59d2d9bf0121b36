package ecs

import (
	"fmt"
	"iter"
	"reflect"
	"slices"
)

// ComponentManagerBase is the type-erased view of a component manager the
// World works with.
type ComponentManagerBase interface {
	World() *World
	TypeId() uint16
	Name() string
	ComponentType() reflect.Type
	StorageType() StorageType
	TypeVersion() uint32

	// Count returns the number of live components.
	Count() int
	// StorageLen returns the size of the storage index space update
	// functions are partitioned over.
	StorageLen() uint32
	BlockCount() int

	TryGetComponentBase(h ComponentHandle) (Component, bool)
	DeleteComponent(h ComponentHandle)
	RegisterUpdateFunction(desc UpdateFunctionDesc)
	DeregisterUpdateFunction(name string) bool
	Components() iter.Seq[Component]

	core() *managerCore
	createComponentBase(owner *GameObject) (ComponentHandle, Component)
	deleteDeadComponents()
}

// ManagerOption configures a component manager at creation.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	name           string
	storageType    StorageType
	typeVersion    uint32
	phase          UpdatePhase
	granularity    uint32
	priority       float32
	simulationOnly bool
}

// WithName overrides the manager name, which defaults to the component type
// name. Serialized data refers to managers by name.
func WithName(name string) ManagerOption {
	return func(o *managerOptions) { o.name = name }
}

// WithStorageType selects how the manager stores its components.
func WithStorageType(t StorageType) ManagerOption {
	return func(o *managerOptions) { o.storageType = t }
}

// WithTypeVersion sets the version written next to serialized components.
func WithTypeVersion(version uint32) ManagerOption {
	return func(o *managerOptions) { o.typeVersion = version }
}

// WithUpdatePhase sets the phase of a simple manager's update function.
func WithUpdatePhase(p UpdatePhase) ManagerOption {
	return func(o *managerOptions) { o.phase = p }
}

// WithGranularity sets the batch size of a simple manager's update function.
// It only has an effect in PhaseAsync.
func WithGranularity(n uint32) ManagerOption {
	return func(o *managerOptions) { o.granularity = n }
}

// WithPriority sets the priority of a simple manager's update function.
func WithPriority(p float32) ManagerOption {
	return func(o *managerOptions) { o.priority = p }
}

// WithSimulationOnly restricts a simple manager's update function to frames
// where the world simulates.
func WithSimulationOnly() ManagerOption {
	return func(o *managerOptions) { o.simulationOnly = true }
}

type managerCore struct {
	world         *World
	typeId        uint16
	componentType reflect.Type
	options       managerOptions
	serializable  bool
	functions     []string
}

type componentPtr[T any] interface {
	*T
	Component
}

// ComponentManager owns all components of type T. Components live in block
// storage and are referred to from the outside through handles.
type ComponentManager[T any, PT componentPtr[T]] struct {
	managerCore
	storage *BlockStorage[T]
	ids     *IdTable[uint32]
	dead    []uint32

	handlesMessages  bool
	handlesUnhandled bool
}

// NewComponentManager creates the manager for component type T and
// registers it with w. Each component type can only have one manager per
// world.
func NewComponentManager[T any, PT componentPtr[T]](w *World, opts ...ManagerOption) *ComponentManager[T, PT] {
	t := reflect.TypeFor[T]()
	options := managerOptions{
		name:        t.String(),
		storageType: StorageCompact,
	}
	for _, opt := range opts {
		opt(&options)
	}

	ptrType := reflect.TypeFor[PT]()
	m := &ComponentManager[T, PT]{
		managerCore: managerCore{
			world:         w,
			componentType: t,
			options:       options,
			serializable:  ptrType.Implements(reflect.TypeFor[Serializable]()),
		},
		storage:          NewBlockStorage[T](options.storageType),
		handlesMessages:  ptrType.Implements(reflect.TypeFor[MessageHandler]()),
		handlesUnhandled: ptrType.Implements(reflect.TypeFor[UnhandledMessageHandler]()),
	}
	m.typeId = w.registerManager(m)
	m.ids = NewIdTable[uint32](m.typeId)
	return m
}

// GetComponentManager returns the manager registered for T, or nil.
func GetComponentManager[T any, PT componentPtr[T]](w *World) *ComponentManager[T, PT] {
	m, ok := w.managerByType[reflect.TypeFor[T]()]
	if !ok {
		return nil
	}
	typed, _ := m.(*ComponentManager[T, PT])
	return typed
}

func (m *managerCore) core() *managerCore          { return m }
func (m *managerCore) World() *World               { return m.world }
func (m *managerCore) TypeId() uint16              { return m.typeId }
func (m *managerCore) Name() string                { return m.options.name }
func (m *managerCore) ComponentType() reflect.Type { return m.componentType }
func (m *managerCore) StorageType() StorageType    { return m.options.storageType }
func (m *managerCore) TypeVersion() uint32         { return m.options.typeVersion }

// CreateComponent creates a component attached to owner. The component
// starts uninitialized and is initialized during the next world update,
// whether or not its owner is active.
func (m *ComponentManager[T, PT]) CreateComponent(owner *GameObject) (ComponentHandle, PT) {
	if owner == nil || !owner.IsValid() {
		panic("ecs: cannot create a component without a live owner")
	}
	m.world.checkWriteAccess()

	ptr, index := m.storage.Allocate()
	h := ComponentHandle{m.ids.Insert(index)}

	c := PT(ptr)
	b := c.base()
	b.flags = componentActive
	if m.handlesUnhandled {
		b.flags |= componentUnhandledMessageHandler
	}
	b.owner = owner
	b.manager = m
	b.handle = h
	b.uniqueId = m.world.registerUniqueId(h)

	owner.components = append(owner.components, h)
	m.world.initQueue = append(m.world.initQueue, h)
	m.world.updateComponentActiveState(c, owner.IsActive())

	return h, c
}

func (m *ComponentManager[T, PT]) createComponentBase(owner *GameObject) (ComponentHandle, Component) {
	return m.CreateComponent(owner)
}

// DeleteComponent deactivates and deinitializes the component, detaches it
// from its owner and invalidates h. The storage slot is released at the end
// of the frame. Stale handles are ignored.
func (m *ComponentManager[T, PT]) DeleteComponent(h ComponentHandle) {
	c, ok := m.TryGetComponent(h)
	if !ok {
		return
	}
	m.world.checkWriteAccess()

	b := c.base()
	if b.flags.has(componentInitializing) {
		panic(fmt.Sprintf("ecs: component %s deleted while initializing", h))
	}

	m.world.deinitializeComponent(c)
	if b.owner != nil {
		b.owner.removeComponent(h)
	}

	index, _ := m.ids.TryGet(h.Id)
	m.ids.Remove(h.Id)
	m.world.unregisterUniqueId(b.uniqueId)

	b.flags = componentDead
	b.owner = nil
	m.dead = append(m.dead, index)
}

func (m *ComponentManager[T, PT]) deleteDeadComponents() {
	if len(m.dead) == 0 {
		return
	}
	for _, index := range m.dead {
		m.storage.Deallocate(index)
	}
	m.dead = m.dead[:0]

	for _, to := range m.storage.Compact() {
		c := PT(m.storage.Get(to))
		m.ids.Set(c.base().handle.Id, to)
	}
}

// GetComponent resolves h. It returns nil for a stale handle and panics if
// h belongs to a different component type.
func (m *ComponentManager[T, PT]) GetComponent(h ComponentHandle) PT {
	if h.IsValid() && h.TypeId() != m.typeId {
		panic(fmt.Sprintf("ecs: handle %s does not belong to manager %s", h, m.Name()))
	}
	c, _ := m.TryGetComponent(h)
	return c
}

// TryGetComponent resolves h.
func (m *ComponentManager[T, PT]) TryGetComponent(h ComponentHandle) (PT, bool) {
	index, ok := m.ids.TryGet(h.Id)
	if !ok {
		return nil, false
	}
	return PT(m.storage.Get(index)), true
}

func (m *ComponentManager[T, PT]) TryGetComponentBase(h ComponentHandle) (Component, bool) {
	c, ok := m.TryGetComponent(h)
	if !ok {
		return nil, false
	}
	return c, true
}

// Count returns the number of live components.
func (m *ComponentManager[T, PT]) Count() int {
	return m.ids.Count()
}

func (m *ComponentManager[T, PT]) StorageLen() uint32 {
	return m.storage.Len()
}

func (m *ComponentManager[T, PT]) BlockCount() int {
	return m.storage.BlockCount()
}

// Range iterates over the live components stored in [first, first+count).
// Update functions use it to walk the range they were handed.
func (m *ComponentManager[T, PT]) Range(first, count uint32) iter.Seq[PT] {
	return func(yield func(PT) bool) {
		for _, ptr := range m.storage.Range(first, count) {
			c := PT(ptr)
			if c.base().flags.has(componentDead) {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// All iterates over every live component.
func (m *ComponentManager[T, PT]) All() iter.Seq[PT] {
	return m.Range(0, m.storage.Len())
}

func (m *ComponentManager[T, PT]) Components() iter.Seq[Component] {
	return func(yield func(Component) bool) {
		for c := range m.All() {
			if !yield(c) {
				return
			}
		}
	}
}

// RegisterUpdateFunction queues desc for registration. Functions are
// registered at the start of the next world update, once their
// dependencies are known.
func (m *ComponentManager[T, PT]) RegisterUpdateFunction(desc UpdateFunctionDesc) {
	if desc.Function == nil {
		panic("ecs: update function " + desc.Name + " has no function")
	}
	if desc.Phase.Threading() == Parallel {
		if len(desc.DependsOn) > 0 {
			panic("ecs: async update function " + desc.Name + " cannot have dependencies")
		}
		desc.Granularity = roundUpToBlock(desc.Granularity)
	} else if desc.Granularity != 0 {
		panic("ecs: granularity is only supported for async update functions, " + desc.Name)
	}
	if desc.Name == "" {
		desc.Name = fmt.Sprintf("%s::Update%d", m.Name(), len(m.functions))
	}

	m.functions = append(m.functions, desc.Name)
	m.world.queueUpdateFunction(newRegisteredFunction(desc, m))
}

// DeregisterUpdateFunction removes the manager's function called name,
// whether it is registered or still queued. It reports whether a function
// was removed.
func (m *ComponentManager[T, PT]) DeregisterUpdateFunction(name string) bool {
	m.world.checkWriteAccess()
	i := slices.Index(m.functions, name)
	if i < 0 {
		return false
	}
	m.functions = slices.Delete(m.functions, i, i+1)
	m.world.removeUpdateFunction(m, name)
	return true
}
