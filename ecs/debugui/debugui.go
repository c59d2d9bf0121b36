// Package debugui provides Dear ImGui inspector panels for worlds.
// Panels are ordinary components: their managers render them in
// PhasePostTransform, after transforms of the frame are final.
package debugui

import (
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/worldcore/ecs"
)

// ImguiItem is a component that holds a Dear ImGui render function.
// Attach it to game objects that should draw widgets each frame.
type ImguiItem struct {
	ecs.ComponentBase
	Render func()
}

func (i *ImguiItem) Update() {
	if i.Render != nil {
		i.Render()
	}
}

// ImguiInputState tracks whether Dear ImGui is consuming input. It is kept
// as a world singleton and refreshed at the start of every frame.
type ImguiInputState struct {
	WantCaptureMouse    bool
	WantCaptureKeyboard bool
}

// Selection is the game object the inspector panels focus on.
type Selection struct {
	Object ecs.GameObjectHandle
}

// CaptureInput copies Dear ImGui's input capture flags into the world's
// ImguiInputState. Backends call it once a frame after starting the ImGui
// frame.
func CaptureInput(w *ecs.World) {
	io := imgui.CurrentIO()
	ecs.NewSingleton[ImguiInputState](w).Set(ImguiInputState{
		WantCaptureMouse:    io.WantCaptureMouse(),
		WantCaptureKeyboard: io.WantCaptureKeyboard(),
	})
}

// Register creates the ImguiItem manager for w. Calling it again returns
// the existing manager.
func Register(w *ecs.World) *ecs.ComponentManager[ImguiItem, *ImguiItem] {
	if m := ecs.GetComponentManager[ImguiItem](w); m != nil {
		return m
	}

	ecs.NewSingleton[ImguiInputState](w)
	items := ecs.NewSimpleComponentManager[ImguiItem](w,
		ecs.WithName("debugui.ImguiItem"),
		ecs.WithUpdatePhase(ecs.PhasePostTransform))
	return items.ComponentManager
}
