package systems

import (
	"cmp"
	"encoding/binary"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/engine/internal/core/scene"
)

const defaultShardCount = 16

// liveIndex is the set of live game objects keyed by id. Construction
// signals may arrive from loader goroutines, so each shard carries its own
// lock.
type liveIndex struct {
	shards []indexShard
	mask   uint64
}

type indexShard struct {
	mu      sync.RWMutex
	objects map[uint64]*scene.GameObject
}

func newLiveIndex(shardCount int) *liveIndex {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	if shardCount&(shardCount-1) != 0 {
		shardCount = nextPowerOf2(shardCount)
	}

	idx := &liveIndex{
		shards: make([]indexShard, shardCount),
		mask:   uint64(shardCount - 1),
	}
	for i := range idx.shards {
		idx.shards[i].objects = make(map[uint64]*scene.GameObject)
	}
	return idx
}

func (idx *liveIndex) shard(id uint64) *indexShard {
	var key [8]byte
	binary.LittleEndian.PutUint64(key[:], id)
	return &idx.shards[xxhash.Sum64(key[:])&idx.mask]
}

func (idx *liveIndex) add(g *scene.GameObject) {
	sh := idx.shard(g.ID())
	sh.mu.Lock()
	sh.objects[g.ID()] = g
	sh.mu.Unlock()
}

func (idx *liveIndex) remove(id uint64) {
	sh := idx.shard(id)
	sh.mu.Lock()
	delete(sh.objects, id)
	sh.mu.Unlock()
}

func (idx *liveIndex) get(id uint64) (*scene.GameObject, bool) {
	sh := idx.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	g, ok := sh.objects[id]
	return g, ok
}

func (idx *liveIndex) len() int {
	n := 0
	for i := range idx.shards {
		sh := &idx.shards[i]
		sh.mu.RLock()
		n += len(sh.objects)
		sh.mu.RUnlock()
	}
	return n
}

// snapshot returns every indexed object ordered by id, which is also
// construction order.
func (idx *liveIndex) snapshot() []*scene.GameObject {
	out := make([]*scene.GameObject, 0, idx.len())
	for i := range idx.shards {
		sh := &idx.shards[i]
		sh.mu.RLock()
		for _, g := range sh.objects {
			out = append(out, g)
		}
		sh.mu.RUnlock()
	}
	slices.SortFunc(out, func(a, b *scene.GameObject) int {
		return cmp.Compare(a.ID(), b.ID())
	})
	return out
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
