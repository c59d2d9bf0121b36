package debugui

import (
	"fmt"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"
)

const defaultHistoryFrames = 120

func (ps *PerformanceStats) Initialize() {
	if ps.historyFrames <= 0 {
		ps.historyFrames = defaultHistoryFrames
	}
	ps.frameHistory = make([]float32, ps.historyFrames)
	ps.timer = NewFrameTimer()
}

// record stores the frame time in milliseconds and returns the average over
// the history.
func (ps *PerformanceStats) record(delta time.Duration) float32 {
	ps.frameHistory[ps.frameIndex] = float32(delta.Seconds() * 1000)
	ps.frameIndex = (ps.frameIndex + 1) % ps.historyFrames

	var avg float32
	for _, ft := range ps.frameHistory {
		avg += ft
	}
	return avg / float32(ps.historyFrames)
}

func (ps *PerformanceStats) Update() {
	w := ps.World()
	avgFrameTime := ps.record(ps.timer.GetDeltaTime())

	if !imgui.BeginV("Performance Stats", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	stats := w.Stats()
	clock := w.Clock()

	imgui.Text(fmt.Sprintf("Frame: %d", stats.FrameCount))
	imgui.Text(fmt.Sprintf("World Time: %s (x%.2f)", clock.AccumulatedTime().Round(time.Millisecond), clock.Speed()))
	imgui.Text(fmt.Sprintf("Objects: %d (%d static, %d dynamic, %d levels)",
		stats.ObjectCount, stats.StaticObjectCount, stats.DynamicObjectCount, stats.HierarchyLevels))
	imgui.Text(fmt.Sprintf("Components: %d in %d managers", stats.ComponentCount, len(stats.Managers)))

	simulating := w.IsSimulating()
	if imgui.Checkbox("Simulate", &simulating) {
		w.SetSimulationEnabled(simulating)
	}

	if avgFrameTime > 0 {
		imgui.Text(fmt.Sprintf("Avg Frame Time: %.2f ms (%.0f FPS)", avgFrameTime, 1000.0/avgFrameTime))
	}

	imgui.Separator()
	imgui.Text("Frame Time Graph (ms)")
	imgui.PlotLinesFloatPtr("##frametime", &ps.frameHistory[0], int32(len(ps.frameHistory)))

	if imgui.TreeNodeStr("Update Functions") {
		const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
		if imgui.BeginTableV("FunctionStatsTable", 5, tableFlags, imgui.NewVec2(0, 0), 0) {
			imgui.TableSetupColumn("Function")
			imgui.TableSetupColumn("Phase")
			imgui.TableSetupColumn("Calls")
			imgui.TableSetupColumn("Avg")
			imgui.TableSetupColumn("Max")
			imgui.TableHeadersRow()

			for _, fs := range stats.UpdateFunctions {
				imgui.TableNextRow()
				imgui.TableNextColumn()
				imgui.Text(fs.Name)
				imgui.TableNextColumn()
				imgui.Text(fs.Phase.String())
				imgui.TableNextColumn()
				imgui.Text(fmt.Sprintf("%d", fs.ExecutionCount))
				imgui.TableNextColumn()
				imgui.Text(fs.AvgDuration.String())
				imgui.TableNextColumn()
				imgui.Text(fs.MaxDuration.String())
			}

			imgui.EndTable()
		}
		imgui.TreePop()
	}

	if imgui.TreeNodeStr("Singletons") {
		for _, name := range w.SingletonTypes() {
			imgui.BulletText(name)
		}
		imgui.TreePop()
	}

	imgui.End()
}

type FrameTimer struct {
	lastFrameTime time.Time
}

func NewFrameTimer() *FrameTimer {
	return &FrameTimer{
		lastFrameTime: time.Now(),
	}
}

func (ft *FrameTimer) GetDeltaTime() time.Duration {
	now := time.Now()
	delta := now.Sub(ft.lastFrameTime)
	ft.lastFrameTime = now
	return delta
}
