package ecs_test

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/worldcore/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamPrimitives(t *testing.T) {
	var buf bytes.Buffer
	w := ecs.NewStreamWriter(&buf)
	w.WriteUint8(7)
	w.WriteBool(true)
	w.WriteInt32(-12)
	w.WriteUint64(1 << 40)
	w.WriteFloat64(3.25)
	w.WriteString("hello")
	w.WriteQuat(mgl64.QuatIdent())
	require.NoError(t, w.Err())

	r := ecs.NewStreamReader(&buf)
	assert.Equal(t, uint8(7), r.ReadUint8())
	assert.True(t, r.ReadBool())
	assert.Equal(t, int32(-12), r.ReadInt32())
	assert.Equal(t, uint64(1<<40), r.ReadUint64())
	assert.Equal(t, 3.25, r.ReadFloat64())
	assert.Equal(t, "hello", r.ReadString())
	assert.Equal(t, mgl64.QuatIdent(), r.ReadQuat())
	require.NoError(t, r.Err())

	r.ReadUint32()
	assert.Error(t, r.Err(), "reading past the end sets the error")
	assert.Zero(t, r.ReadUint32())
}

func TestWorldSerialization(t *testing.T) {
	source := newTestWorld()
	markers := ecs.NewComponentManager[Marker](source, ecs.WithTypeVersion(1))
	ecs.NewComponentManager[Health](source)

	root, rootObj := source.CreateObject(ecs.GameObjectDesc{Name: "root", GlobalKey: "root"})
	_, childObj := source.CreateObject(ecs.GameObjectDesc{
		Name:          "child",
		Parent:        root,
		LocalPosition: mgl64.Vec3{1, 2, 3},
		Inactive:      true,
	})
	_, m := markers.CreateComponent(childObj)
	m.Label, m.Value, m.Color = "flag", 42, mgl64.Vec3{1, 0, 0}
	ecs.GetComponentManager[Health](source).CreateComponent(rootObj)

	var buf bytes.Buffer
	require.NoError(t, source.WriteObjects(&buf))
	data := buf.Bytes()

	t.Run("round trip", func(t *testing.T) {
		target := newTestWorld()
		ecs.NewComponentManager[Marker](target)

		roots, err := target.ReadObjects(bytes.NewReader(data), ecs.InvalidGameObject)
		require.NoError(t, err)
		require.Len(t, roots, 1)

		restored, ok := target.TryGetObject(roots[0])
		require.True(t, ok)
		assert.Equal(t, "root", restored.Name())
		assert.Equal(t, rootObj.PersistentId(), restored.PersistentId())
		assert.Equal(t, "root", restored.GlobalKey())
		assert.Equal(t, 0, restored.ComponentCount(), "health is not serializable")

		var child *ecs.GameObject
		for c := range restored.Children() {
			child = c
		}
		require.NotNil(t, child)
		assert.False(t, child.ActiveFlag())
		assert.Equal(t, mgl64.Vec3{1, 2, 3}, child.LocalPosition())

		got, ok := ecs.TryGetComponentOfType[Marker](child)
		require.True(t, ok)
		assert.Equal(t, "flag", got.Label)
		assert.Equal(t, int32(42), got.Value)
		assert.Equal(t, mgl64.Vec3{1, 0, 0}, got.Color)
	})

	t.Run("unknown component types are skipped", func(t *testing.T) {
		target := newTestWorld()
		roots, err := target.ReadObjects(bytes.NewReader(data), ecs.InvalidGameObject)
		require.NoError(t, err)
		require.Len(t, roots, 1)
		assert.Equal(t, 2, target.ObjectCount())
		assert.Equal(t, 0, target.ComponentCount())
	})

	t.Run("loading twice drops duplicate ids", func(t *testing.T) {
		target := newTestWorld()
		ecs.NewComponentManager[Marker](target)
		first, err := target.ReadObjects(bytes.NewReader(data), ecs.InvalidGameObject)
		require.NoError(t, err)
		second, err := target.ReadObjects(bytes.NewReader(data), ecs.InvalidGameObject)
		require.NoError(t, err)

		a, _ := target.TryGetObject(first[0])
		b, _ := target.TryGetObject(second[0])
		assert.NotEqual(t, a.PersistentId(), b.PersistentId())
		assert.Equal(t, "root", a.GlobalKey())
		assert.Empty(t, b.GlobalKey())
	})

	t.Run("older type versions", func(t *testing.T) {
		old := newTestWorld()
		legacy := ecs.NewComponentManager[legacyMarker](old, ecs.WithName("ecs_test.Marker"))
		_, obj := old.CreateObject(ecs.GameObjectDesc{})
		_, m := legacy.CreateComponent(obj)
		m.Label, m.Value = "legacy", 1

		var buf bytes.Buffer
		require.NoError(t, old.WriteObjects(&buf))

		target := newTestWorld()
		ecs.NewComponentManager[Marker](target, ecs.WithTypeVersion(1))
		roots, err := target.ReadObjects(&buf, ecs.InvalidGameObject)
		require.NoError(t, err)

		restored, _ := target.TryGetObject(roots[0])
		got, ok := ecs.TryGetComponentOfType[Marker](restored)
		require.True(t, ok)
		assert.Equal(t, "legacy", got.Label)
		assert.Equal(t, mgl64.Vec3{}, got.Color)
	})

	t.Run("loading below a parent", func(t *testing.T) {
		target := newTestWorld()
		parent, _ := target.CreateObject(ecs.GameObjectDesc{Name: "level"})
		roots, err := target.ReadObjects(bytes.NewReader(data), parent)
		require.NoError(t, err)

		obj, _ := target.TryGetObject(roots[0])
		assert.Equal(t, parent, obj.ParentHandle())
		assert.Equal(t, uint32(2), func() uint32 {
			for c := range obj.Children() {
				return c.HierarchyLevel()
			}
			return 0
		}())
	})

	t.Run("corrupt streams fail", func(t *testing.T) {
		target := newTestWorld()
		_, err := target.ReadObjects(bytes.NewReader([]byte("nope")), ecs.InvalidGameObject)
		assert.Error(t, err)
		_, err = target.ReadObjects(bytes.NewReader(data[:len(data)-3]), ecs.InvalidGameObject)
		assert.Error(t, err)
	})

	t.Run("oversized object counts are rejected", func(t *testing.T) {
		var header bytes.Buffer
		hw := ecs.NewStreamWriter(&header)
		hw.WriteUint32(0x444c5257)
		hw.WriteUint32(1)
		hw.WriteUint32(0xFFFFFFFF)
		require.NoError(t, hw.Err())

		target := newTestWorld()
		roots, err := target.ReadObjects(&header, ecs.InvalidGameObject)
		assert.ErrorContains(t, err, "limit")
		assert.Nil(t, roots)
	})

	t.Run("truncated streams leave the world untouched", func(t *testing.T) {
		target := newTestWorld()
		ecs.NewComponentManager[Marker](target)
		parent, _ := target.CreateObject(ecs.GameObjectDesc{Name: "level"})

		roots, err := target.ReadObjects(bytes.NewReader(data[:len(data)-30]), parent)
		require.Error(t, err)
		assert.Nil(t, roots)
		assert.Equal(t, 1, target.ObjectCount())
		assert.Equal(t, 0, target.ComponentCount())
		_, ok := target.TryGetObjectWithGlobalKey("root")
		assert.False(t, ok)
		_, ok = target.TryGetObjectWithPersistentId(rootObj.PersistentId())
		assert.False(t, ok)

		roots, err = target.ReadObjects(bytes.NewReader(data), parent)
		require.NoError(t, err, "keys and ids are free again")
		assert.Len(t, roots, 1)
	})
}

// legacyMarker is the version 0 layout of Marker, without a color.
type legacyMarker struct {
	ecs.ComponentBase
	Label string
	Value int32
}

func (m *legacyMarker) SerializeComponent(w *ecs.StreamWriter) error {
	w.WriteString(m.Label)
	w.WriteInt32(m.Value)
	return nil
}

func (m *legacyMarker) DeserializeComponent(r *ecs.StreamReader) error {
	m.Label = r.ReadString()
	m.Value = r.ReadInt32()
	return nil
}
