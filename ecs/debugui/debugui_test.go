package debugui

import (
	"reflect"
	"testing"
	"time"

	"github.com/plus3/worldcore/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probe struct {
	ecs.ComponentBase
	Speed   float64
	Label   string
	hidden  int
	Tags    []string
	Nested  *probe
	Enabled bool
}

func TestReflectionCache(t *testing.T) {
	rc := NewReflectionCache()
	fields := rc.GetFields(reflect.TypeFor[probe]())

	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Speed", "Label", "Tags", "Nested", "Enabled"}, names)

	nested := fields[3]
	assert.True(t, nested.Pointer)
	assert.Equal(t, FieldStruct, nested.Kind)
	assert.Equal(t, reflect.TypeFor[probe](), nested.Type)
	assert.Equal(t, FieldSlice, fields[2].Kind)
	assert.Equal(t, FieldScalar, fields[0].Kind)

	assert.Same(t, &fields[0], &rc.GetFields(reflect.TypeFor[probe]())[0], "fields are cached")
	assert.Empty(t, rc.GetFields(reflect.TypeFor[int]()))
}

func TestSpawnDebugUI(t *testing.T) {
	w := ecs.NewWorld(ecs.WorldDesc{})
	h := SpawnDebugUI(w)

	obj, ok := w.TryGetObject(h)
	require.True(t, ok)
	assert.Equal(t, "Debug UI", obj.Name())
	assert.Equal(t, 4, obj.ComponentCount())

	RegisterDebugUIComponents(w)
	assert.Len(t, w.Managers(), 5, "registering twice keeps the managers")
	assert.Same(t, Register(w), ecs.GetComponentManager[ImguiItem](w))

	_, ok = ecs.LookupSingleton[Selection](w)
	assert.True(t, ok)
	_, ok = ecs.LookupSingleton[ImguiInputState](w)
	assert.True(t, ok)
}

func TestImguiItem(t *testing.T) {
	w := ecs.NewWorld(ecs.WorldDesc{})
	items := Register(w)
	_, obj := w.CreateObject(ecs.GameObjectDesc{})

	calls := 0
	_, item := items.CreateComponent(obj)
	item.Render = func() { calls++ }
	items.CreateComponent(obj)

	w.Update(time.Millisecond)
	w.Update(time.Millisecond)
	assert.Equal(t, 2, calls, "items without a render function are skipped")
}

func browserWorld() *ecs.World {
	w := ecs.NewWorld(ecs.WorldDesc{})
	probes := ecs.NewComponentManager[probe](w)

	root, rootObj := w.CreateObject(ecs.GameObjectDesc{Name: "zeta"})
	probes.CreateComponent(rootObj)
	probes.CreateComponent(rootObj)
	_, player := w.CreateObject(ecs.GameObjectDesc{Name: "Player", Parent: root, Dynamic: true})
	probes.CreateComponent(player)
	w.CreateObject(ecs.GameObjectDesc{Name: "alpha"})
	return w
}

func TestObjectBrowser(t *testing.T) {
	w := browserWorld()
	ob := &ObjectBrowser{}
	ob.Initialize()
	ob.rebuildCacheIfNeeded(w)

	require.Len(t, ob.cache.rows, 3)
	assert.Equal(t, []string{"debugui.probe", "debugui.probe"}, ob.cache.rows[0].Components)

	t.Run("sorting", func(t *testing.T) {
		ob.cache.sortColumn, ob.cache.sortAscending = 1, true
		ob.sortRows()
		assert.Equal(t, "Player", ob.cache.rows[0].Name)
		assert.Equal(t, "zeta", ob.cache.rows[2].Name)

		ob.cache.sortColumn, ob.cache.sortAscending = 2, false
		ob.sortRows()
		assert.Equal(t, "Player", ob.cache.rows[0].Name)
		assert.True(t, ob.cache.rows[0].Dynamic)
	})

	t.Run("filtering", func(t *testing.T) {
		ob.filterText = "PLAY"
		rows := ob.filteredRows()
		require.Len(t, rows, 1)
		assert.Equal(t, "Player", rows[0].Name)

		ob.filterText = "probe"
		assert.Len(t, ob.filteredRows(), 2)
		ob.filterText = ""
		assert.Len(t, ob.filteredRows(), 3)
	})

	t.Run("cache follows the world", func(t *testing.T) {
		w.CreateObject(ecs.GameObjectDesc{Name: "late"})
		ob.rebuildCacheIfNeeded(w)
		assert.Len(t, ob.cache.rows, 4)
	})

	t.Run("paging", func(t *testing.T) {
		ob.maxObjectsPerPage = 3
		assert.Equal(t, 2, ob.pageCount(4))
		ob.currentPage = 5
		start, end := ob.pageBounds(4)
		assert.Equal(t, 1, ob.currentPage)
		assert.Equal(t, 3, start)
		assert.Equal(t, 4, end)

		start, end = ob.pageBounds(0)
		assert.Equal(t, 0, start)
		assert.Equal(t, 0, end)
	})
}

func TestManagerViewer(t *testing.T) {
	w := browserWorld()
	RegisterDebugUIComponents(w)

	mv := &ManagerViewer{}
	mv.Initialize()
	mv.refresh(w.Stats())

	require.Len(t, mv.rows, 6)
	assert.Equal(t, "debugui.probe", mv.rows[0].Name, "largest managers sort first by default")
	assert.Equal(t, 3, mv.rows[0].ComponentCount)

	mv.sortAscending = true
	mv.sortRows()
	assert.Equal(t, "debugui.probe", mv.rows[len(mv.rows)-1].Name)

	mv.selectedTypeId = mv.rows[len(mv.rows)-1].TypeId
	row, ok := mv.selected()
	require.True(t, ok)
	assert.Equal(t, "debugui.probe", row.Name)

	mv.selectedTypeId = 999
	_, ok = mv.selected()
	assert.False(t, ok)
}

func TestPerformanceStatsHistory(t *testing.T) {
	ps := &PerformanceStats{historyFrames: 4}
	ps.Initialize()

	assert.InDelta(t, 2.5, ps.record(10*time.Millisecond), 1e-4)
	assert.InDelta(t, 5.0, ps.record(10*time.Millisecond), 1e-4)
	for range 4 {
		ps.record(20 * time.Millisecond)
	}
	assert.InDelta(t, 20.0, ps.record(20*time.Millisecond), 1e-4)
	assert.Equal(t, 3, ps.frameIndex)
}

func TestFrameTimer(t *testing.T) {
	ft := NewFrameTimer()
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, ft.GetDeltaTime(), 2*time.Millisecond)
	assert.Less(t, ft.GetDeltaTime(), time.Second)
}
