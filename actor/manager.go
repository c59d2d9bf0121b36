package actor

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// EventType identifies an actor lifecycle event.
type EventType int

const (
	// AfterActivation is sent once an actor and its plugins are active.
	AfterActivation EventType = iota
	// BeforeDeactivation is sent right before an actor is deactivated.
	BeforeDeactivation
)

func (t EventType) String() string {
	switch t {
	case AfterActivation:
		return "AfterActivation"
	case BeforeDeactivation:
		return "BeforeDeactivation"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is passed to subscribers of a Manager.
type Event struct {
	Type  EventType
	Actor *Actor
}

// SubscriptionId identifies an event subscription.
type SubscriptionId uint64

type subscription struct {
	id SubscriptionId
	fn func(Event)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for lifecycle diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// Manager owns a set of actors and moves them through their lifecycle.
// Every public method takes the manager's mutex. Event subscribers are
// called with the mutex held and must not call back into the manager;
// plugin updates are called without it.
type Manager struct {
	mu     sync.Mutex
	log    *zap.Logger
	actors []*Actor

	subscribers []subscription
	nextSubId   SubscriptionId
}

// NewManager creates an empty manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{log: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mutex returns the mutex guarding the manager. Hold it to inspect actor
// states consistently from another goroutine.
func (m *Manager) Mutex() *sync.Mutex {
	return &m.mu
}

// AddActor takes ownership of a and queues it for activation on the next
// state update. The actor must be new.
func (m *Manager) AddActor(a *Actor) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.manager != nil {
		panic(fmt.Sprintf("actor: %s is already owned by a manager", a))
	}
	if a.state != StateNone {
		panic(fmt.Sprintf("actor: cannot add %s, it is not in state None", a))
	}

	a.manager = m
	a.state = StateActivate
	m.actors = append(m.actors, a)
	m.log.Debug("actor added", zap.String("actor", a.name))
}

// DestroyActor queues an active actor for deactivation. It is removed from
// the manager by the next state update.
func (m *Manager) DestroyActor(a *Actor) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.manager != m || a.state != StateActive {
		panic(fmt.Sprintf("actor: cannot destroy %s, it is not active in this manager", a))
	}
	a.state = StateDeactivate
}

// DestroyAllActors deactivates and removes every actor created by
// createdBy, or every actor when createdBy is nil. Actors that were never
// activated are removed without events.
func (m *Manager) DestroyAllActors(createdBy any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matches := func(a *Actor) bool {
		return createdBy == nil || a.createdBy == createdBy
	}

	for _, a := range m.actors {
		if !matches(a) {
			continue
		}
		if a.state == StateActive || a.state == StateDeactivate {
			m.deactivate(a)
		}
		a.state = StateDeactivated
	}
	m.removeDeactivated()

	if createdBy == nil && len(m.actors) != 0 {
		panic(fmt.Sprintf("actor: %d actors survived DestroyAllActors", len(m.actors)))
	}
}

// UpdateActorStates deactivates actors queued for deactivation, removes
// deactivated actors and then activates queued actors, in that order.
func (m *Manager) UpdateActorStates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateActorStates()
}

func (m *Manager) updateActorStates() {
	for _, a := range m.actors {
		if a.state == StateDeactivate {
			m.deactivate(a)
		}
	}

	m.removeDeactivated()

	for _, a := range m.actors {
		if a.state == StateActivate {
			a.activate()
			m.log.Debug("actor activated", zap.String("actor", a.name))
			m.broadcast(Event{Type: AfterActivation, Actor: a})
		}
	}
}

func (m *Manager) deactivate(a *Actor) {
	m.broadcast(Event{Type: BeforeDeactivation, Actor: a})
	a.deactivate()
	m.log.Debug("actor deactivated", zap.String("actor", a.name))
}

func (m *Manager) removeDeactivated() {
	m.actors = slices.DeleteFunc(m.actors, func(a *Actor) bool {
		if a.state != StateDeactivated {
			return false
		}
		a.manager = nil
		return true
	})
}

// Update applies pending state changes and then updates the plugins of
// every active actor. Plugins run without the mutex held, so they may add,
// destroy or look up actors of this manager. An actor destroyed during the
// update is skipped if its turn has not come yet.
func (m *Manager) Update() {
	m.mu.Lock()
	m.updateActorStates()
	actors := slices.Clone(m.actors)
	m.mu.Unlock()

	for _, a := range actors {
		if m.isActive(a) {
			a.update()
		}
	}
}

func (m *Manager) isActive(a *Actor) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return a.manager == m && a.state == StateActive
}

// FindActor returns the first actor with the given name. A nil createdBy
// matches actors of any creator.
func (m *Manager) FindActor(name string, createdBy any) *Actor {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.actors {
		if a.name == name && (createdBy == nil || a.createdBy == createdBy) {
			return a
		}
	}
	return nil
}

// Actors returns a snapshot of all owned actors.
func (m *Manager) Actors() []*Actor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.actors)
}

// Subscribe registers fn for lifecycle events.
func (m *Manager) Subscribe(fn func(Event)) SubscriptionId {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSubId++
	m.subscribers = append(m.subscribers, subscription{id: m.nextSubId, fn: fn})
	return m.nextSubId
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (m *Manager) Unsubscribe(id SubscriptionId) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subscribers = slices.DeleteFunc(m.subscribers, func(s subscription) bool {
		return s.id == id
	})
}

func (m *Manager) broadcast(e Event) {
	for _, s := range m.subscribers {
		s.fn(e)
	}
}
