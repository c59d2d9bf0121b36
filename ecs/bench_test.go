package ecs_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/worldcore/ecs"
)

func BenchmarkCreateObject(b *testing.B) {
	w := ecs.NewWorld(ecs.WorldDesc{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.CreateObject(ecs.GameObjectDesc{LocalPosition: mgl64.Vec3{1, 2, 3}})
	}
}

func BenchmarkCreateComponent(b *testing.B) {
	w := ecs.NewWorld(ecs.WorldDesc{})
	m := ecs.NewComponentManager[Health](w)
	_, obj := w.CreateObject(ecs.GameObjectDesc{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.CreateComponent(obj)
	}
}

func BenchmarkDeleteObject(b *testing.B) {
	w := ecs.NewWorld(ecs.WorldDesc{})
	handles := make([]ecs.GameObjectHandle, b.N)
	for i := range handles {
		handles[i], _ = w.CreateObject(ecs.GameObjectDesc{})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.DeleteObjectNow(handles[i], false)
	}
}

func BenchmarkGetComponent(b *testing.B) {
	w := ecs.NewWorld(ecs.WorldDesc{})
	m := ecs.NewComponentManager[Health](w)
	_, obj := w.CreateObject(ecs.GameObjectDesc{})
	h, _ := m.CreateComponent(obj)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.TryGetComponent(h)
	}
}

func BenchmarkSendMessage(b *testing.B) {
	w := ecs.NewWorld(ecs.WorldDesc{})
	m := ecs.NewComponentManager[Receiver](w)
	h, obj := w.CreateObject(ecs.GameObjectDesc{})
	m.CreateComponent(obj)
	w.Update(frame)

	msg := &Damage{Amount: 1}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.SendMessage(h, msg, ecs.RouteDirect)
	}
}

func benchmarkUpdate(b *testing.B, phase ecs.UpdatePhase, count int) {
	w := ecs.NewWorld(ecs.WorldDesc{})
	m := ecs.NewSimpleComponentManager[Mover](w,
		ecs.WithUpdatePhase(phase),
		ecs.WithGranularity(4*ecs.BlockCapacity))

	for range count {
		_, obj := w.CreateObject(ecs.GameObjectDesc{Dynamic: phase != ecs.PhaseAsync})
		_, c := m.CreateComponent(obj)
		c.Speed = 1
	}
	w.Update(frame)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Update(frame)
	}
}

func BenchmarkUpdateMainThread1k(b *testing.B) {
	benchmarkUpdate(b, ecs.PhasePreAsync, 1000)
}

func BenchmarkUpdateMainThread10k(b *testing.B) {
	benchmarkUpdate(b, ecs.PhasePreAsync, 10000)
}

func BenchmarkUpdateAsync10k(b *testing.B) {
	benchmarkUpdate(b, ecs.PhaseAsync, 10000)
}

func BenchmarkTransformPass(b *testing.B) {
	w := ecs.NewWorld(ecs.WorldDesc{})
	root, rootObj := w.CreateObject(ecs.GameObjectDesc{Dynamic: true})
	parent := root
	for depth := range 8 {
		for range 500 {
			w.CreateObject(ecs.GameObjectDesc{Parent: parent, LocalPosition: mgl64.Vec3{float64(depth), 0, 0}})
		}
		parent, _ = w.CreateObject(ecs.GameObjectDesc{Parent: parent})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rootObj.SetLocalPosition(mgl64.Vec3{float64(i), 0, 0})
		w.Update(frame)
	}
}
