package securemem

import (
	"fmt"
	"slices"
)

const (
	// headerSize is the bookkeeping overhead charged to every chunk.
	headerSize = 16

	// allocAlignment is the granularity of every allocation.
	allocAlignment = 16

	// shrinkThreshold is the minimum reduction for which Reallocate keeps
	// the existing chunk instead of moving the data.
	shrinkThreshold = 256
)

type chunkFlag uint8

const (
	chunkAvailable chunkFlag = iota + 1
	chunkAllocated
)

func (f chunkFlag) String() string {
	switch f {
	case chunkAvailable:
		return "available"
	case chunkAllocated:
		return "allocated"
	default:
		return fmt.Sprintf("chunkFlag(%d)", uint8(f))
	}
}

// chunk is one region of the arena. It occupies headerSize+length bytes
// starting at offset; its data starts at offset+headerSize. The next chunk
// always starts at end().
type chunk struct {
	offset int
	length int
	flag   chunkFlag
}

func (c chunk) data() int { return c.offset + headerSize }
func (c chunk) end() int  { return c.offset + headerSize + c.length }

// chunkList is the first-fit free list of an arena, kept in address order.
type chunkList struct {
	chunks      []chunk
	total       int
	allocated   int
	allocations int
}

func newChunkList(total int) *chunkList {
	return &chunkList{
		chunks: []chunk{{offset: 0, length: total - headerSize, flag: chunkAvailable}},
		total:  total,
	}
}

func alignUp(n, alignment int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}

// allocate claims the first available chunk able to hold length bytes. The
// unused remainder is split off as a new available chunk when it is larger
// than one header.
func (l *chunkList) allocate(length int) (chunk, bool) {
	size := alignUp(length, allocAlignment)
	for i := range l.chunks {
		c := &l.chunks[i]
		if c.flag != chunkAvailable || c.length < size {
			continue
		}
		c.flag = chunkAllocated
		rest := c.length - size
		if rest > headerSize {
			c.length = size
			split := chunk{offset: c.end(), length: rest - headerSize, flag: chunkAvailable}
			l.chunks = slices.Insert(l.chunks, i+1, split)
			l.merge(i + 1)
		}
		l.allocated += l.chunks[i].length
		l.allocations++
		return l.chunks[i], true
	}
	return chunk{}, false
}

// find returns the index of the chunk starting at offset.
func (l *chunkList) find(offset int) (int, bool) {
	return slices.BinarySearchFunc(l.chunks, offset, func(c chunk, target int) int {
		return c.offset - target
	})
}

// lookup returns the allocated chunk starting at offset.
func (l *chunkList) lookup(offset int) (chunk, bool) {
	i, ok := l.find(offset)
	if !ok || l.chunks[i].flag != chunkAllocated {
		return chunk{}, false
	}
	return l.chunks[i], true
}

// release marks the allocated chunk at offset available and coalesces it
// with both neighbours.
func (l *chunkList) release(offset int) bool {
	i, ok := l.find(offset)
	if !ok || l.chunks[i].flag != chunkAllocated {
		return false
	}
	l.chunks[i].flag = chunkAvailable
	l.allocated -= l.chunks[i].length
	l.allocations--
	l.merge(i)
	l.merge(i - 1)
	return true
}

// merge folds chunk i+1 into chunk i when both are available.
func (l *chunkList) merge(i int) {
	if i < 0 || i+1 >= len(l.chunks) {
		return
	}
	if l.chunks[i].flag != chunkAvailable || l.chunks[i+1].flag != chunkAvailable {
		return
	}
	l.chunks[i].length += headerSize + l.chunks[i+1].length
	l.chunks = slices.Delete(l.chunks, i+1, i+2)
}

func (l *chunkList) free() int {
	free := 0
	for _, c := range l.chunks {
		if c.flag == chunkAvailable {
			free += c.length
		}
	}
	return free
}

// verify walks the list and reports the first broken invariant.
func (l *chunkList) verify() error {
	offset, allocated, allocations := 0, 0, 0
	for i, c := range l.chunks {
		if c.offset != offset {
			return fmt.Errorf("chunk %d starts at %d, want %d", i, c.offset, offset)
		}
		if c.length < 0 || c.length%allocAlignment != 0 {
			return fmt.Errorf("chunk %d has unaligned length %d", i, c.length)
		}
		if c.flag != chunkAvailable && c.flag != chunkAllocated {
			return fmt.Errorf("chunk %d has flag %v", i, c.flag)
		}
		if i > 0 && c.flag == chunkAvailable && l.chunks[i-1].flag == chunkAvailable {
			return fmt.Errorf("chunks %d and %d are both available and not coalesced", i-1, i)
		}
		if c.flag == chunkAllocated {
			allocated += c.length
			allocations++
		}
		offset = c.end()
	}
	if offset != l.total {
		return fmt.Errorf("chunks cover %d bytes, want %d", offset, l.total)
	}
	if allocated != l.allocated || allocations != l.allocations {
		return fmt.Errorf("counters report %d bytes in %d allocations, chunks hold %d in %d",
			l.allocated, l.allocations, allocated, allocations)
	}
	return nil
}
