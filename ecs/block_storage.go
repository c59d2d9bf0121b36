package ecs

import "iter"

// BlockCapacity is the number of records held by a single storage block.
// Update granularities are rounded up to a multiple of it.
const BlockCapacity = 64

// StorageType selects how a BlockStorage deals with holes.
type StorageType int

const (
	// StorageCompact fills holes from the tail when Compact is called, keeping
	// live records densely packed. Records may move.
	StorageCompact StorageType = iota
	// StorageFreeList never moves records; freed slots are reused.
	StorageFreeList
)

func (t StorageType) String() string {
	switch t {
	case StorageCompact:
		return "Compact"
	case StorageFreeList:
		return "FreeList"
	default:
		return "Unknown"
	}
}

type dataBlock[T any] struct {
	items  [BlockCapacity]T
	filled [BlockCapacity]bool
	count  int
}

// BlockStorage stores records of type T in fixed-size blocks. Every block is
// allocated on its own, so pointers into a block stay valid while storage
// grows. Records only move when Compact is called.
type BlockStorage[T any] struct {
	storageType StorageType
	blocks      []*dataBlock[T]
	freeSlots   []uint32
	length      uint32
	count       int
}

// NewBlockStorage creates an empty storage of the given type.
func NewBlockStorage[T any](storageType StorageType) *BlockStorage[T] {
	return &BlockStorage[T]{storageType: storageType}
}

// Type returns the storage type.
func (s *BlockStorage[T]) Type() StorageType {
	return s.storageType
}

// Allocate reserves a zeroed record and returns a pointer to it along with
// its index.
func (s *BlockStorage[T]) Allocate() (*T, uint32) {
	for len(s.freeSlots) > 0 {
		index := s.freeSlots[len(s.freeSlots)-1]
		s.freeSlots = s.freeSlots[:len(s.freeSlots)-1]
		if index >= s.length {
			continue
		}
		return s.fill(index), index
	}

	index := s.length
	s.length++
	if int(index/BlockCapacity) >= len(s.blocks) {
		s.blocks = append(s.blocks, &dataBlock[T]{})
	}
	return s.fill(index), index
}

func (s *BlockStorage[T]) fill(index uint32) *T {
	block := s.blocks[index/BlockCapacity]
	slot := index % BlockCapacity
	block.filled[slot] = true
	block.count++
	s.count++
	return &block.items[slot]
}

// Deallocate releases the record at index. Surviving records are not moved.
func (s *BlockStorage[T]) Deallocate(index uint32) {
	if index >= s.length {
		return
	}
	block := s.blocks[index/BlockCapacity]
	slot := index % BlockCapacity
	if !block.filled[slot] {
		return
	}

	var zero T
	block.items[slot] = zero
	block.filled[slot] = false
	block.count--
	s.count--

	if index == s.length-1 {
		s.trimTail()
	} else {
		s.freeSlots = append(s.freeSlots, index)
	}
}

// trimTail shrinks the index space past trailing holes and drops empty blocks.
func (s *BlockStorage[T]) trimTail() {
	for s.length > 0 && !s.has(s.length-1) {
		s.length--
	}
	used := int((s.length + BlockCapacity - 1) / BlockCapacity)
	for len(s.blocks) > used {
		s.blocks[len(s.blocks)-1] = nil
		s.blocks = s.blocks[:len(s.blocks)-1]
	}
}

func (s *BlockStorage[T]) has(index uint32) bool {
	return s.blocks[index/BlockCapacity].filled[index%BlockCapacity]
}

// Get returns the record at index, or nil if the slot is free or out of
// range.
func (s *BlockStorage[T]) Get(index uint32) *T {
	if index >= s.length {
		return nil
	}
	block := s.blocks[index/BlockCapacity]
	slot := index % BlockCapacity
	if !block.filled[slot] {
		return nil
	}
	return &block.items[slot]
}

// Has reports whether a live record exists at index.
func (s *BlockStorage[T]) Has(index uint32) bool {
	return index < s.length && s.has(index)
}

// Compact moves records from the tail into holes until the live records
// occupy [0, Count()). It returns the moves as old index to new index.
// Free-list storages are never compacted.
func (s *BlockStorage[T]) Compact() map[uint32]uint32 {
	moves := make(map[uint32]uint32)
	if s.storageType != StorageCompact {
		return moves
	}

	write := uint32(0)
	read := s.length
	for {
		for write < read && s.has(write) {
			write++
		}
		for read > write && !s.has(read-1) {
			read--
		}
		if write >= read-1 || read == 0 {
			break
		}

		from := read - 1
		dst := s.blocks[write/BlockCapacity]
		src := s.blocks[from/BlockCapacity]
		dst.items[write%BlockCapacity] = src.items[from%BlockCapacity]
		dst.filled[write%BlockCapacity] = true
		dst.count++

		var zero T
		src.items[from%BlockCapacity] = zero
		src.filled[from%BlockCapacity] = false
		src.count--

		moves[from] = write
		read--
	}

	s.freeSlots = s.freeSlots[:0]
	s.trimTail()
	return moves
}

// Len returns the size of the index space, including holes.
func (s *BlockStorage[T]) Len() uint32 {
	return s.length
}

// Count returns the number of live records.
func (s *BlockStorage[T]) Count() int {
	return s.count
}

// BlockCount returns the number of allocated blocks.
func (s *BlockStorage[T]) BlockCount() int {
	return len(s.blocks)
}

// Range iterates over the live records in [first, first+count).
func (s *BlockStorage[T]) Range(first, count uint32) iter.Seq2[uint32, *T] {
	return func(yield func(uint32, *T) bool) {
		end := first + count
		if end > s.length || end < first {
			end = s.length
		}
		for i := first; i < end; {
			block := s.blocks[i/BlockCapacity]
			if block.count == 0 {
				i = (i/BlockCapacity + 1) * BlockCapacity
				continue
			}
			slot := i % BlockCapacity
			if block.filled[slot] {
				if !yield(i, &block.items[slot]) {
					return
				}
			}
			i++
		}
	}
}

// All iterates over every live record.
func (s *BlockStorage[T]) All() iter.Seq2[uint32, *T] {
	return s.Range(0, s.length)
}
