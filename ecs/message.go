package ecs

import (
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// Message is any value sent to components. Messages are passed by pointer
// so handlers can write results back into them.
type Message any

// MessageBase can be embedded into messages to opt into routing
// diagnostics.
type MessageBase struct {
	// DebugRouting logs a warning when the message is not handled by any
	// component.
	DebugRouting bool
}

func (m *MessageBase) debugRouting() bool {
	return m.DebugRouting
}

type debugRoutable interface {
	debugRouting() bool
}

// MessageRouting selects which objects a message is delivered to.
type MessageRouting int

const (
	// RouteDirect delivers to the components of the target object only.
	RouteDirect MessageRouting = iota
	// RouteToParent delivers to the target object and walks up its
	// ancestors until a component handles the message.
	RouteToParent
	// RouteToChildren delivers to the target object and all its
	// descendants.
	RouteToChildren
	// RouteBroadcast delivers to every object of the world.
	RouteBroadcast
)

func (r MessageRouting) String() string {
	switch r {
	case RouteDirect:
		return "Direct"
	case RouteToParent:
		return "ToParent"
	case RouteToChildren:
		return "ToChildren"
	case RouteBroadcast:
		return "Broadcast"
	default:
		return "Unknown"
	}
}

// deleteObjectMessage is handled by the world itself.
type deleteObjectMessage struct {
	deleteEmptyParents bool
}

// SendMessage delivers msg to the components of the object h according to
// routing. Only active, initialized components receive messages. It returns
// false if no component handled the message or h is stale.
func (w *World) SendMessage(h GameObjectHandle, msg Message, routing MessageRouting) bool {
	obj := w.object(h)
	if obj == nil {
		return false
	}

	handled := false
	switch routing {
	case RouteDirect:
		handled = w.deliverToObject(obj, msg)
	case RouteToParent:
		for o := obj; o != nil; o = o.Parent() {
			if w.deliverToObject(o, msg) {
				handled = true
				break
			}
		}
	case RouteToChildren:
		handled = w.deliverRecursive(obj, msg)
	case RouteBroadcast:
		for o := range w.Objects() {
			if w.deliverToObject(o, msg) {
				handled = true
			}
		}
	}

	if !handled {
		w.reportUnhandled(msg, fmt.Sprintf("object %s", obj), routing)
	}
	return handled
}

// SendMessageToComponent delivers msg to a single component.
func (w *World) SendMessageToComponent(h ComponentHandle, msg Message) bool {
	c, ok := w.TryGetComponent(h)
	if !ok {
		return false
	}
	handled := w.deliverToComponent(c, msg)
	if !handled {
		w.reportUnhandled(msg, fmt.Sprintf("component %s", h), RouteDirect)
	}
	return handled
}

func (w *World) deliverRecursive(obj *GameObject, msg Message) bool {
	handled := w.deliverToObject(obj, msg)
	for child := range obj.Children() {
		if w.deliverRecursive(child, msg) {
			handled = true
		}
	}
	return handled
}

func (w *World) deliverToObject(obj *GameObject, msg Message) bool {
	handled := false
	for _, h := range slices.Clone(obj.components) {
		c, ok := w.TryGetComponent(h)
		if !ok {
			continue
		}
		if w.deliverToComponent(c, msg) {
			handled = true
		}
	}
	return handled
}

func (w *World) deliverToComponent(c Component, msg Message) bool {
	b := c.base()
	if !b.IsActiveAndInitialized() {
		return false
	}
	if mh, ok := c.(MessageHandler); ok && mh.HandleMessage(msg) {
		return true
	}
	if b.flags.has(componentUnhandledMessageHandler) {
		return c.(UnhandledMessageHandler).HandleUnhandledMessage(msg)
	}
	return false
}

func (w *World) reportUnhandled(msg Message, target string, routing MessageRouting) {
	dr, ok := msg.(debugRoutable)
	if !ok || !dr.debugRouting() {
		return
	}
	w.log.Warn("message was not handled",
		zap.String("message", fmt.Sprintf("%T", msg)),
		zap.String("target", target),
		zap.Stringer("routing", routing))
}
