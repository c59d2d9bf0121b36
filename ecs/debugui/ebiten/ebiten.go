// Package ebiten provides Dear ImGui backend integration for the Ebiten game engine.
package ebiten

import (
	"time"

	ebitenbackend "github.com/AllenDang/cimgui-go/backend/ebiten-backend"
	"github.com/plus3/worldcore/ecs"
	"github.com/plus3/worldcore/ecs/debugui"
)

// ImguiBackend wraps the Ebiten-specific Dear ImGui backend implementation.
// Use this to integrate Dear ImGui rendering into Ebiten game loops.
type ImguiBackend struct {
	*ebitenbackend.EbitenBackend
}

// UpdateWorld runs one world frame inside an ImGui frame. Debug UI panels
// and ImguiItem components render during the world's post-transform phase.
func (b *ImguiBackend) UpdateWorld(w *ecs.World, dt time.Duration) {
	b.BeginFrame()
	debugui.CaptureInput(w)
	w.Update(dt)
	b.EndFrame()
}
