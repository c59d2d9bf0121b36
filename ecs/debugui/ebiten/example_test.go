package ebiten_test

import (
	"time"

	ebitenbackend "github.com/AllenDang/cimgui-go/backend/ebiten-backend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/plus3/worldcore/ecs"
	"github.com/plus3/worldcore/ecs/debugui"
	debugui_ebiten "github.com/plus3/worldcore/ecs/debugui/ebiten"
)

// Game implements ebiten.Game and drives the world with ImGui rendering.
type Game struct {
	world        *ecs.World
	imguiBackend *ecs.Singleton[debugui_ebiten.ImguiBackend]
}

func (g *Game) Update() error {
	// Runs the world frame between BeginFrame and EndFrame
	g.imguiBackend.Get().UpdateWorld(g.world, time.Second/60)

	if input, ok := ecs.LookupSingleton[debugui.ImguiInputState](g.world); ok && !input.WantCaptureKeyboard {
		// Handle game keyboard input
		// ...
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	// Draw game content to screen
	// ...

	// Draw ImGui overlay on top
	g.imguiBackend.Get().Draw(screen)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.imguiBackend.Get().Layout(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}

func Example() {
	// Create Ebiten window and ImGui backend
	imguiBackend := ebitenbackend.NewEbitenBackend()
	imguiBackend.CreateWindow("World ImGui Example", 1280, 720)
	imgui.CurrentIO().SetIniFilename("") // Disable imgui.ini

	w := ecs.NewWorld(ecs.WorldDesc{Name: "example"})

	// Keep the backend as a world singleton
	backend := ecs.NewSingleton(w, debugui_ebiten.ImguiBackend{
		EbitenBackend: imguiBackend,
	})

	// Game objects with ImGui render functions
	items := debugui.Register(w)
	_, obj := w.CreateObject(ecs.GameObjectDesc{Name: "hello"})
	_, item := items.CreateComponent(obj)
	item.Render = func() {
		imgui.Begin("Debug Window")
		imgui.Text("Hello from the world!")
		imgui.End()
	}

	// Object browser, component inspector, manager viewer and frame stats
	debugui.SpawnDebugUI(w)

	game := &Game{
		world:        w,
		imguiBackend: backend,
	}

	if err := ebiten.RunGame(game); err != nil {
		panic(err)
	}
}
