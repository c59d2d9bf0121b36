package ecs_test

import (
	"fmt"
	"testing"

	"github.com/plus3/worldcore/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdEncoding(t *testing.T) {
	tests := []struct {
		index      uint32
		generation uint16
		typeId     uint16
	}{
		{0, 1, 0},
		{0xFFFFFFFF, 0xFFFF, 0xFFFF},
		{1, 1, 1},
		{0x12345678, 0x9ABC, 0xDEF0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("index=%d,gen=%d,type=%d", tt.index, tt.generation, tt.typeId), func(t *testing.T) {
			id := ecs.NewId(tt.index, tt.generation, tt.typeId)
			assert.Equal(t, tt.index, id.Index())
			assert.Equal(t, tt.generation, id.Generation())
			assert.Equal(t, tt.typeId, id.TypeId())
			assert.True(t, id.IsValid())
		})
	}

	assert.False(t, ecs.InvalidId.IsValid())
	assert.False(t, ecs.InvalidGameObject.IsValid())
	assert.False(t, ecs.InvalidComponent.IsValid())
	assert.False(t, ecs.NewId(5, 0, 3).IsValid())
}

func TestIdTable(t *testing.T) {
	t.Run("insert and resolve", func(t *testing.T) {
		table := ecs.NewIdTable[string](7)
		a := table.Insert("a")
		b := table.Insert("b")

		assert.Equal(t, uint16(7), a.TypeId())
		assert.NotEqual(t, a, b)
		assert.Equal(t, 2, table.Count())

		v, ok := table.TryGet(a)
		require.True(t, ok)
		assert.Equal(t, "a", v)
	})

	t.Run("removed ids never resolve again", func(t *testing.T) {
		table := ecs.NewIdTable[int](1)
		old := table.Insert(1)
		require.True(t, table.Remove(old))
		assert.False(t, table.Remove(old))

		reused := table.Insert(2)
		assert.Equal(t, old.Index(), reused.Index(), "slot should be reused")
		assert.NotEqual(t, old.Generation(), reused.Generation())

		_, ok := table.TryGet(old)
		assert.False(t, ok)
		assert.False(t, table.Contains(old))
		assert.True(t, table.Contains(reused))
		assert.False(t, table.Set(old, 5))
	})

	t.Run("ids of another type do not resolve", func(t *testing.T) {
		table := ecs.NewIdTable[int](1)
		id := table.Insert(1)
		foreign := ecs.NewId(id.Index(), id.Generation(), 2)
		assert.False(t, table.Contains(foreign))
		assert.False(t, table.Contains(ecs.InvalidId))
	})

	t.Run("iteration skips removed slots", func(t *testing.T) {
		table := ecs.NewIdTable[int](1)
		ids := make([]ecs.Id, 5)
		for i := range ids {
			ids[i] = table.Insert(i)
		}
		table.Remove(ids[1])
		table.Remove(ids[3])

		var values []int
		for id, v := range table.All() {
			assert.True(t, table.Contains(id))
			values = append(values, v)
		}
		assert.Equal(t, []int{0, 2, 4}, values)
	})
}

type record struct {
	Value int
}

func TestBlockStorage(t *testing.T) {
	t.Run("pointers stay valid while growing", func(t *testing.T) {
		s := ecs.NewBlockStorage[record](ecs.StorageFreeList)
		first, index := s.Allocate()
		first.Value = 42
		for range ecs.BlockCapacity * 4 {
			s.Allocate()
		}

		assert.Same(t, first, s.Get(index))
		assert.Equal(t, 42, first.Value)
		assert.Equal(t, 5, s.BlockCount())
	})

	t.Run("deallocate never moves records", func(t *testing.T) {
		s := ecs.NewBlockStorage[record](ecs.StorageCompact)
		ptrs := make([]*record, 10)
		for i := range ptrs {
			ptrs[i], _ = s.Allocate()
			ptrs[i].Value = i
		}
		s.Deallocate(3)
		s.Deallocate(5)

		assert.Nil(t, s.Get(3))
		assert.False(t, s.Has(5))
		assert.Same(t, ptrs[9], s.Get(9))
		assert.Equal(t, 8, s.Count())
		assert.Equal(t, uint32(10), s.Len())
	})

	t.Run("free list reuses slots", func(t *testing.T) {
		s := ecs.NewBlockStorage[record](ecs.StorageFreeList)
		for range 4 {
			s.Allocate()
		}
		s.Deallocate(1)
		r, index := s.Allocate()
		assert.Equal(t, uint32(1), index)
		assert.Equal(t, 0, r.Value, "reused record should be zeroed")
		assert.Empty(t, s.Compact(), "free-list storage is never compacted")
	})

	t.Run("compact fills holes from the tail", func(t *testing.T) {
		s := ecs.NewBlockStorage[record](ecs.StorageCompact)
		for i := range 8 {
			r, _ := s.Allocate()
			r.Value = i
		}
		s.Deallocate(1)
		s.Deallocate(2)
		s.Deallocate(6)

		moves := s.Compact()
		assert.Equal(t, map[uint32]uint32{7: 1, 5: 2}, moves)
		assert.Equal(t, uint32(5), s.Len())

		var values []int
		for _, r := range s.All() {
			values = append(values, r.Value)
		}
		assert.Equal(t, []int{0, 7, 5, 3, 4}, values)
	})

	t.Run("trailing empty blocks are dropped", func(t *testing.T) {
		s := ecs.NewBlockStorage[record](ecs.StorageCompact)
		for range ecs.BlockCapacity + 1 {
			s.Allocate()
		}
		require.Equal(t, 2, s.BlockCount())
		s.Deallocate(ecs.BlockCapacity)
		assert.Equal(t, 1, s.BlockCount())
		assert.Equal(t, uint32(ecs.BlockCapacity), s.Len())
	})

	t.Run("range is clamped to the storage", func(t *testing.T) {
		s := ecs.NewBlockStorage[record](ecs.StorageCompact)
		for range 100 {
			s.Allocate()
		}
		n := 0
		for index := range s.Range(64, 1000) {
			assert.GreaterOrEqual(t, index, uint32(64))
			n++
		}
		assert.Equal(t, 36, n)
	})
}
