package ecs_test

import (
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/worldcore/ecs"
)

// Common test component types

type Health struct {
	ecs.ComponentBase
	Current int
	Max     int
}

type Mover struct {
	ecs.ComponentBase
	Speed   float64
	Updates int
}

func (m *Mover) Update() {
	m.Updates++
	if o := m.Owner(); o != nil && o.IsDynamic() {
		o.SetLocalPosition(o.LocalPosition().Add(mgl64.Vec3{m.Speed, 0, 0}))
	}
}

// Counter counts async updates; Update may run on any worker goroutine.
type Counter struct {
	ecs.ComponentBase
	Updates atomic.Int32
}

func (c *Counter) Update() {
	c.Updates.Add(1)
}

// Lifecycle records the hooks called on it.
type Lifecycle struct {
	ecs.ComponentBase
	Initialized       int
	Deinitialized     int
	Activated         int
	Deactivated       int
	SimulationStarted int
	Events            []string

	OnInit   func(l *Lifecycle)
	OnDeinit func()
}

func (l *Lifecycle) Initialize() {
	l.Initialized++
	l.Events = append(l.Events, "init")
	if l.OnInit != nil {
		l.OnInit(l)
	}
}

func (l *Lifecycle) Deinitialize() {
	l.Deinitialized++
	l.Events = append(l.Events, "deinit")
	if l.OnDeinit != nil {
		l.OnDeinit()
	}
}

func (l *Lifecycle) OnActivated() {
	l.Activated++
	l.Events = append(l.Events, "activated")
}

func (l *Lifecycle) OnDeactivated() {
	l.Deactivated++
	l.Events = append(l.Events, "deactivated")
}

func (l *Lifecycle) OnSimulationStarted() {
	l.SimulationStarted++
	l.Events = append(l.Events, "simulation")
}

type Damage struct {
	ecs.MessageBase
	Amount int
}

type Ping struct {
	Received []string
}

// Receiver handles Damage and Ping messages.
type Receiver struct {
	ecs.ComponentBase
	Label    string
	Damage   int
	Messages int
}

func (r *Receiver) HandleMessage(msg ecs.Message) bool {
	switch m := msg.(type) {
	case *Damage:
		r.Damage += m.Amount
		r.Messages++
		return true
	case *Ping:
		m.Received = append(m.Received, r.Label)
		r.Messages++
		return true
	}
	return false
}

// CatchAll accepts every message it is offered.
type CatchAll struct {
	ecs.ComponentBase
	Unhandled int
}

func (c *CatchAll) HandleUnhandledMessage(msg ecs.Message) bool {
	c.Unhandled++
	return true
}

// Marker is a serializable component.
type Marker struct {
	ecs.ComponentBase
	Label string
	Value int32
	Color mgl64.Vec3
}

func (m *Marker) SerializeComponent(w *ecs.StreamWriter) error {
	w.WriteString(m.Label)
	w.WriteInt32(m.Value)
	w.WriteVec3(m.Color)
	return nil
}

func (m *Marker) DeserializeComponent(r *ecs.StreamReader) error {
	m.Label = r.ReadString()
	m.Value = r.ReadInt32()
	if r.TypeVersion() >= 1 {
		m.Color = r.ReadVec3()
	}
	return nil
}

func newTestWorld() *ecs.World {
	return ecs.NewWorld(ecs.WorldDesc{Name: "test", WorkerCount: 3})
}

const frame = 16 * time.Millisecond
