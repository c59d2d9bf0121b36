package debugui

import "github.com/plus3/worldcore/ecs"

// RegisterDebugUIComponents creates the managers of the inspector panels.
// Managers that already exist are kept.
func RegisterDebugUIComponents(w *ecs.World) {
	Register(w)
	ecs.NewSingleton[Selection](w)
	registerPanel[ObjectBrowser](w, 3)
	registerPanel[ComponentInspector](w, 2)
	registerPanel[ManagerViewer](w, 1)
	registerPanel[PerformanceStats](w, 0)
}

func registerPanel[T any, PT interface {
	*T
	ecs.Component
	Update()
}](w *ecs.World, priority float32) {
	if ecs.GetComponentManager[T, PT](w) != nil {
		return
	}
	ecs.NewSimpleComponentManager[T, PT](w,
		ecs.WithUpdatePhase(ecs.PhasePostTransform),
		ecs.WithPriority(priority))
}

// SpawnDebugUI creates a "Debug UI" game object carrying every inspector
// panel and returns its handle.
func SpawnDebugUI(w *ecs.World) ecs.GameObjectHandle {
	RegisterDebugUIComponents(w)

	h, obj := w.CreateObject(ecs.GameObjectDesc{Name: "Debug UI"})
	ecs.GetComponentManager[ObjectBrowser](w).CreateComponent(obj)
	ecs.GetComponentManager[ComponentInspector](w).CreateComponent(obj)
	ecs.GetComponentManager[ManagerViewer](w).CreateComponent(obj)
	ecs.GetComponentManager[PerformanceStats](w).CreateComponent(obj)
	return h
}
