package debugui

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/worldcore/ecs"
)

type managerRow struct {
	TypeId         uint16
	Name           string
	StorageType    ecs.StorageType
	ComponentCount int
	BlockCount     int
	Functions      []string
}

func (mv *ManagerViewer) Initialize() {
	mv.sortColumn = 3
}

func (mv *ManagerViewer) Update() {
	w := mv.World()
	if !imgui.BeginV("Manager Viewer", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	stats := w.Stats()
	mv.refresh(stats)

	maxCount := 0
	for _, row := range mv.rows {
		maxCount = max(maxCount, row.ComponentCount)
	}

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("ManagerTable", 4, tableFlags, imgui.NewVec2(0, 300), 0) {
		imgui.TableSetupColumn("Type")
		imgui.TableSetupColumn("Name")
		imgui.TableSetupColumn("Blocks")
		imgui.TableSetupColumn("Components")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			mv.sortColumn = int(spec.ColumnIndex())
			mv.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			mv.sortRows()
			sortSpecs.SetSpecsDirty(false)
		}

		for _, row := range mv.rows {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			if imgui.SelectableBoolV(fmt.Sprintf("%d", row.TypeId), mv.selectedTypeId == row.TypeId, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				mv.selectedTypeId = row.TypeId
			}

			imgui.TableNextColumn()
			imgui.Text(row.Name)

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d (%s)", row.BlockCount, row.StorageType))

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", row.ComponentCount))

			if maxCount > 0 {
				barWidth := float32(row.ComponentCount) / float32(maxCount) * 80.0
				imgui.SameLine()
				drawList := imgui.WindowDrawList()
				pos := imgui.CursorScreenPos()
				color := imgui.ColorU32Vec4(imgui.NewVec4(0.2, 0.6, 0.8, 0.6))
				drawList.AddRectFilled(pos, imgui.NewVec2(pos.X+barWidth, pos.Y+10), color)
			}
		}

		imgui.EndTable()
	}

	if row, ok := mv.selected(); ok {
		imgui.Separator()
		imgui.Text(fmt.Sprintf("Update functions of %s", row.Name))
		if len(row.Functions) == 0 {
			imgui.BulletText("none")
		}
		for _, name := range row.Functions {
			imgui.BulletText(name)
		}
	}

	if imgui.TreeNodeStr("Execution Order") {
		for phase := ecs.PhasePreAsync; phase <= ecs.PhasePostTransform; phase++ {
			names := w.UpdateFunctionNames(phase)
			imgui.Text(fmt.Sprintf("%s (%s): %s", phase, phase.Threading(), strings.Join(names, " -> ")))
		}
		imgui.TreePop()
	}

	imgui.End()
}

func (mv *ManagerViewer) refresh(stats *ecs.WorldStats) {
	mv.rows = mv.rows[:0]
	for _, m := range stats.Managers {
		mv.rows = append(mv.rows, managerRow{
			TypeId:         m.TypeId,
			Name:           m.Name,
			StorageType:    m.StorageType,
			ComponentCount: m.ComponentCount,
			BlockCount:     m.BlockCount,
			Functions:      m.Functions,
		})
	}
	mv.sortRows()
}

func (mv *ManagerViewer) selected() (managerRow, bool) {
	for _, row := range mv.rows {
		if row.TypeId == mv.selectedTypeId {
			return row, true
		}
	}
	return managerRow{}, false
}

func (mv *ManagerViewer) sortRows() {
	slices.SortStableFunc(mv.rows, func(a, b managerRow) int {
		var c int
		switch mv.sortColumn {
		case 0:
			c = cmp.Compare(a.TypeId, b.TypeId)
		case 1:
			c = strings.Compare(a.Name, b.Name)
		case 2:
			c = cmp.Compare(a.BlockCount, b.BlockCount)
		default:
			c = cmp.Compare(a.ComponentCount, b.ComponentCount)
		}

		if !mv.sortAscending {
			return -c
		}
		return c
	})
}
