package debugui

import (
	"github.com/plus3/worldcore/ecs"
)

// ObjectBrowser lists the world's game objects and selects one for the
// component inspector.
type ObjectBrowser struct {
	ecs.ComponentBase

	cache             *objectBrowserCache
	filterText        string
	maxObjectsPerPage int
	currentPage       int
}

// ComponentInspector edits the exported fields of the selected object's
// components.
type ComponentInspector struct {
	ecs.ComponentBase
}

// ManagerViewer shows the component managers of the world together with
// their storage and update functions.
type ManagerViewer struct {
	ecs.ComponentBase

	rows           []managerRow
	selectedTypeId uint16
	sortColumn     int
	sortAscending  bool
}

// PerformanceStats plots frame times and update function timings.
type PerformanceStats struct {
	ecs.ComponentBase

	timer         *FrameTimer
	historyFrames int
	frameHistory  []float32
	frameIndex    int
}
