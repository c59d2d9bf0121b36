package ecs

type componentFlags uint16

const (
	componentActive componentFlags = 1 << iota
	componentActiveState
	componentInitialized
	componentInitializing
	componentSimulationStarted
	componentUnhandledMessageHandler
	componentDead
)

func (f componentFlags) has(flag componentFlags) bool {
	return f&flag != 0
}

// Component is implemented by every type stored in a ComponentManager. It is
// satisfied by embedding ComponentBase; the lifecycle hooks can be
// overridden on the embedding type.
type Component interface {
	base() *ComponentBase

	Handle() ComponentHandle
	Owner() *GameObject
	Manager() ComponentManagerBase

	// Initialize is called once before the component is activated for the
	// first time.
	Initialize()
	// Deinitialize is called when the component is deleted or its world is
	// closed. It is only called on initialized components.
	Deinitialize()
	// OnActivated is called whenever the component becomes active.
	OnActivated()
	// OnDeactivated is called whenever the component stops being active.
	OnDeactivated()
	// OnSimulationStarted is called once the component is active in a
	// simulating world.
	OnSimulationStarted()
}

// Updatable is implemented by components driven by a simple component
// manager.
type Updatable interface {
	Component
	Update()
}

// MessageHandler is implemented by components that receive messages. It
// reports whether the message was handled.
type MessageHandler interface {
	HandleMessage(msg Message) bool
}

// UnhandledMessageHandler receives the messages a component did not handle
// through MessageHandler.
type UnhandledMessageHandler interface {
	HandleUnhandledMessage(msg Message) bool
}

// Serializable components can be written with World.WriteObjects.
type Serializable interface {
	SerializeComponent(w *StreamWriter) error
	DeserializeComponent(r *StreamReader) error
}

// ComponentBase carries the bookkeeping every component needs. Embed it by
// value as the first field of a component type.
type ComponentBase struct {
	flags    componentFlags
	owner    *GameObject
	manager  ComponentManagerBase
	handle   ComponentHandle
	uniqueId uint32
}

func (b *ComponentBase) base() *ComponentBase { return b }

func (b *ComponentBase) Initialize()          {}
func (b *ComponentBase) Deinitialize()        {}
func (b *ComponentBase) OnActivated()         {}
func (b *ComponentBase) OnDeactivated()       {}
func (b *ComponentBase) OnSimulationStarted() {}

// Handle returns the handle of the component.
func (b *ComponentBase) Handle() ComponentHandle {
	return b.handle
}

// Owner returns the game object the component is attached to.
func (b *ComponentBase) Owner() *GameObject {
	return b.owner
}

// Manager returns the manager that stores the component.
func (b *ComponentBase) Manager() ComponentManagerBase {
	return b.manager
}

// World returns the world the component lives in.
func (b *ComponentBase) World() *World {
	if b.manager == nil {
		return nil
	}
	return b.manager.World()
}

// UniqueId returns an id that is unique among the live components of the
// world. It is meant for tracking and debugging.
func (b *ComponentBase) UniqueId() uint32 {
	return b.uniqueId
}

// ActiveFlag returns the component's own active flag.
func (b *ComponentBase) ActiveFlag() bool {
	return b.flags.has(componentActive)
}

// IsActive reports whether the component and its owner are active.
func (b *ComponentBase) IsActive() bool {
	return b.flags.has(componentActiveState)
}

// IsInitialized reports whether Initialize has completed.
func (b *ComponentBase) IsInitialized() bool {
	return b.flags.has(componentInitialized)
}

// IsActiveAndInitialized reports whether the component can receive updates
// and messages.
func (b *ComponentBase) IsActiveAndInitialized() bool {
	return b.flags&(componentActiveState|componentInitialized) == componentActiveState|componentInitialized
}

// IsActiveAndSimulating reports whether OnSimulationStarted has been called
// since the last activation.
func (b *ComponentBase) IsActiveAndSimulating() bool {
	return b.flags&(componentActiveState|componentInitialized|componentSimulationStarted) ==
		componentActiveState|componentInitialized|componentSimulationStarted
}

// SetActiveFlag changes the component's own active flag. The component is
// only active while its owner is active as well.
func (b *ComponentBase) SetActiveFlag(active bool) {
	if b.flags.has(componentActive) == active {
		return
	}
	if active {
		b.flags |= componentActive
	} else {
		b.flags &^= componentActive
	}

	c, ok := b.manager.TryGetComponentBase(b.handle)
	if !ok {
		return
	}
	ownerActive := b.owner != nil && b.owner.IsActive()
	b.manager.World().updateComponentActiveState(c, ownerActive)
}
