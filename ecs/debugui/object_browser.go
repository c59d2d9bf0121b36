package debugui

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/worldcore/ecs"
)

const defaultObjectsPerPage = 100

type objectRow struct {
	Handle     ecs.GameObjectHandle
	Name       string
	Level      uint32
	Dynamic    bool
	Active     bool
	Components []string
}

type objectBrowserCache struct {
	rows           []objectRow
	objectCount    int
	componentCount int
	sortColumn     int
	sortAscending  bool
}

func (ob *ObjectBrowser) Initialize() {
	if ob.cache == nil {
		ob.cache = &objectBrowserCache{sortAscending: true}
	}
	if ob.maxObjectsPerPage <= 0 {
		ob.maxObjectsPerPage = defaultObjectsPerPage
	}
}

func (ob *ObjectBrowser) Update() {
	w := ob.World()
	selection := ecs.NewSingleton[Selection](w).Get()

	if !imgui.BeginV("Object Browser", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	ob.rebuildCacheIfNeeded(w)

	imgui.InputTextWithHint("##search", "Search...", &ob.filterText, imgui.InputTextFlagsNone, nil)
	imgui.SameLine()
	if imgui.Button("Clear Filter") {
		ob.filterText = ""
		ob.currentPage = 0
	}

	rows := ob.filteredRows()

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("ObjectTable", 4, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Handle")
		imgui.TableSetupColumn("Name")
		imgui.TableSetupColumn("Level")
		imgui.TableSetupColumn("Components")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			ob.cache.sortColumn = int(spec.ColumnIndex())
			ob.cache.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			ob.sortRows()
			sortSpecs.SetSpecsDirty(false)
		}

		start, end := ob.pageBounds(len(rows))
		for _, row := range rows[start:end] {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			if imgui.SelectableBoolV(row.Handle.String(), selection.Object == row.Handle, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				selection.Object = row.Handle
			}

			imgui.TableNextColumn()
			if row.Active {
				imgui.Text(row.Name)
			} else {
				imgui.Text(row.Name + " (inactive)")
			}

			imgui.TableNextColumn()
			kind := "static"
			if row.Dynamic {
				kind = "dynamic"
			}
			imgui.Text(fmt.Sprintf("%d (%s)", row.Level, kind))

			imgui.TableNextColumn()
			imgui.Text(strings.Join(row.Components, ", "))
		}

		imgui.EndTable()
	}

	if len(rows) > ob.maxObjectsPerPage {
		totalPages := ob.pageCount(len(rows))
		imgui.Text(fmt.Sprintf("Page %d / %d (%d objects)", ob.currentPage+1, totalPages, len(rows)))
		imgui.SameLine()
		if imgui.Button("Prev") && ob.currentPage > 0 {
			ob.currentPage--
		}
		imgui.SameLine()
		if imgui.Button("Next") && ob.currentPage < totalPages-1 {
			ob.currentPage++
		}
	} else {
		imgui.Text(fmt.Sprintf("Total: %d objects", len(rows)))
	}

	imgui.End()
}

func (ob *ObjectBrowser) pageCount(rows int) int {
	return (rows + ob.maxObjectsPerPage - 1) / ob.maxObjectsPerPage
}

func (ob *ObjectBrowser) pageBounds(rows int) (int, int) {
	if pages := ob.pageCount(rows); ob.currentPage >= pages {
		ob.currentPage = max(pages-1, 0)
	}
	start := ob.currentPage * ob.maxObjectsPerPage
	return start, min(start+ob.maxObjectsPerPage, rows)
}

func (ob *ObjectBrowser) rebuildCacheIfNeeded(w *ecs.World) {
	if ob.cache.rows != nil &&
		ob.cache.objectCount == w.ObjectCount() &&
		ob.cache.componentCount == w.ComponentCount() {
		return
	}
	ob.rebuildCache(w)
}

func (ob *ObjectBrowser) rebuildCache(w *ecs.World) {
	ob.cache.objectCount = w.ObjectCount()
	ob.cache.componentCount = w.ComponentCount()
	ob.cache.rows = make([]objectRow, 0, ob.cache.objectCount)

	for obj := range w.Objects() {
		row := objectRow{
			Handle:  obj.Handle(),
			Name:    obj.Name(),
			Level:   obj.HierarchyLevel(),
			Dynamic: obj.IsDynamic(),
			Active:  obj.IsActive(),
		}
		for _, h := range obj.Components() {
			if c, ok := w.TryGetComponent(h); ok {
				row.Components = append(row.Components, c.Manager().Name())
			}
		}
		ob.cache.rows = append(ob.cache.rows, row)
	}

	ob.sortRows()
}

func (ob *ObjectBrowser) sortRows() {
	slices.SortStableFunc(ob.cache.rows, func(a, b objectRow) int {
		var c int
		switch ob.cache.sortColumn {
		case 1:
			c = strings.Compare(a.Name, b.Name)
		case 2:
			c = cmp.Compare(a.Level, b.Level)
		case 3:
			c = cmp.Compare(len(a.Components), len(b.Components))
		default:
			c = cmp.Compare(a.Handle.Index(), b.Handle.Index())
		}

		if !ob.cache.sortAscending {
			return -c
		}
		return c
	})
}

func (ob *ObjectBrowser) filteredRows() []objectRow {
	if ob.filterText == "" {
		return ob.cache.rows
	}

	filter := strings.ToLower(ob.filterText)
	filtered := make([]objectRow, 0, len(ob.cache.rows))
	for _, row := range ob.cache.rows {
		if strings.Contains(strings.ToLower(row.Name), filter) ||
			strings.Contains(row.Handle.String(), filter) ||
			strings.Contains(strings.ToLower(strings.Join(row.Components, " ")), filter) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}
