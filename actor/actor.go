// Package actor manages coarse-grained, long-lived objects such as windows
// or application services. Actors are activated and deactivated in batches
// by a Manager, outside of the per-frame component update.
package actor

import "fmt"

// State is the lifecycle state of an actor.
type State int

const (
	// StateNone is the state of an actor that has not been added to a
	// manager.
	StateNone State = iota
	// StateActivate means the actor is queued for activation.
	StateActivate
	StateActive
	// StateDeactivate means the actor is queued for deactivation.
	StateDeactivate
	// StateDeactivated actors are removed on the next state update.
	StateDeactivated
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "None"
	case StateActivate:
		return "Activate"
	case StateActive:
		return "Active"
	case StateDeactivate:
		return "Deactivate"
	case StateDeactivated:
		return "Deactivated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Actor is a named object owned by at most one Manager. Its behavior comes
// from the plugins attached to it.
type Actor struct {
	name      string
	createdBy any
	state     State
	manager   *Manager
	plugins   []Plugin
}

// New creates an actor. createdBy is an opaque tag identifying whoever
// created the actor; it is used to look up and destroy actors by owner and
// must be comparable, typically a pointer.
func New(name string, createdBy any) *Actor {
	return &Actor{name: name, createdBy: createdBy}
}

func (a *Actor) Name() string {
	return a.name
}

// CreatedBy returns the tag passed to New.
func (a *Actor) CreatedBy() any {
	return a.createdBy
}

// State returns the lifecycle state. Read it while holding the manager's
// mutex if other goroutines drive the manager.
func (a *Actor) State() State {
	return a.state
}

// AddPlugin attaches p. Plugins added after activation are not activated.
func (a *Actor) AddPlugin(p Plugin) {
	a.plugins = append(a.plugins, p)
}

// Plugins returns the attached plugins in the order they were added.
func (a *Actor) Plugins() []Plugin {
	return a.plugins
}

func (a *Actor) String() string {
	return fmt.Sprintf("%s (%s)", a.name, a.state)
}

func (a *Actor) activate() {
	for _, p := range a.plugins {
		if act, ok := p.(Activator); ok {
			act.OnActivate()
		}
	}
	a.state = StateActive
}

func (a *Actor) deactivate() {
	for i := len(a.plugins) - 1; i >= 0; i-- {
		if d, ok := a.plugins[i].(Deactivator); ok {
			d.OnDeactivate()
		}
	}
	a.state = StateDeactivated
}

func (a *Actor) update() {
	for _, p := range a.plugins {
		p.Update()
	}
}
