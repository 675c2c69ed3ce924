package olc

import (
	"sync"
	"sync/atomic"
)

// ref is a generation-tagged index of a node in an arena. Zero ref means no
// node.
type ref uint64

const (
	genBits   = 24
	genShift  = 64 - genBits
	genMask   = 1<<genBits - 1
	indexMask = 1<<genShift - 1

	chunkBits = 12
	chunkSize = 1 << chunkBits
	maxChunks = 1 << 16
)

type chunk [chunkSize]node

// arena allocates nodes for a single build. Nodes are never freed
// individually, the whole arena is reset and put back to the pool when the
// build is over. Every reset changes the generation, so refs obtained
// before are rejected.
type arena struct {
	gen    uint64
	next   atomic.Uint64
	mu     sync.Mutex
	chunks [maxChunks]atomic.Pointer[chunk]
}

var (
	arenaGen  atomic.Uint64
	arenaPool = sync.Pool{
		New: func() any { return new(arena) },
	}
)

// getArena returns an empty arena with a fresh generation.
func getArena() *arena {
	a := arenaPool.Get().(*arena)
	a.gen = arenaGen.Add(1) & genMask
	return a
}

// putArena clears a and returns it to the pool.
func putArena(a *arena) {
	used := a.next.Load()
	for i := range (used + chunkSize - 1) >> chunkBits {
		if c := a.chunks[i].Load(); c != nil {
			clear(c[:])
		}
	}
	a.next.Store(0)
	arenaPool.Put(a)
}

// alloc returns a new zeroed node and its ref. The node is not visible to
// other goroutines until its ref is published.
func (a *arena) alloc() (ref, *node) {
	i := a.next.Add(1) - 1
	ci := i >> chunkBits
	if ci >= maxChunks {
		panic("olc: arena is full")
	}
	c := a.chunks[ci].Load()
	if c == nil {
		a.mu.Lock()
		if c = a.chunks[ci].Load(); c == nil {
			c = new(chunk)
			a.chunks[ci].Store(c)
		}
		a.mu.Unlock()
	}
	return ref(a.gen<<genShift | (i + 1)), &c[i&(chunkSize-1)]
}

// get resolves r, it panics if r was allocated by another build.
func (a *arena) get(r ref) *node {
	if uint64(r)>>genShift != a.gen || r&indexMask == 0 {
		panic("olc: stale node reference")
	}
	i := uint64(r&indexMask) - 1
	return &a.chunks[i>>chunkBits].Load()[i&(chunkSize-1)]
}

// size returns the number of allocated nodes.
func (a *arena) size() int {
	return int(a.next.Load())
}
