package referenceframe

import (
	"sync"
	"sync/atomic"

	"github.com/tectonics/platerecon/logging"
	"github.com/tectonics/platerecon/utils"
)

// DefaultTreeCacheSize is the number of trees a TreeCache keeps when built with a non-positive capacity.
const DefaultTreeCacheSize = 32

// TreeCache keeps recently built reconstruction trees keyed by (time, anchor). Entries built from
// an older generation of the rotation context are discarded on lookup. Safe for concurrent use.
type TreeCache struct {
	rc       *RotationContext
	capacity int
	epsilon  float64
	logger   logging.Logger

	mu sync.Mutex
	// entries are ordered most recently used first.
	entries []*ReconstructionTree

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// TreeCacheStats is a snapshot of cache counters.
type TreeCacheStats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

// NewTreeCache returns a cache over rc. Times within epsilon of each other share an entry.
func NewTreeCache(rc *RotationContext, capacity int, epsilon float64, logger logging.Logger) *TreeCache {
	if capacity <= 0 {
		capacity = DefaultTreeCacheSize
	}
	if epsilon <= 0 {
		epsilon = utils.DefaultTimeEpsilon
	}
	return &TreeCache{rc: rc, capacity: capacity, epsilon: epsilon, logger: logger}
}

// Get returns the tree of every plate in the rotation context at time t relative to anchor,
// building it on a miss. Trees are built outside the lock so concurrent misses do not serialize;
// two callers missing on the same key may both build it.
func (c *TreeCache) Get(t float64, anchor PlateID) *ReconstructionTree {
	generation := c.rc.Generation()
	if tree := c.lookup(t, anchor, generation); tree != nil {
		c.hits.Add(1)
		return tree
	}
	c.misses.Add(1)
	tree := BuildReconstructionTree(c.rc, t, anchor, nil, c.logger)
	c.put(tree)
	return tree
}

func (c *TreeCache) lookup(t float64, anchor PlateID, generation uint64) *ReconstructionTree {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, tree := range c.entries {
		if tree.anchor != anchor || !utils.RealEqual(tree.time, t, c.epsilon) {
			continue
		}
		if tree.generation != generation {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			c.evictions.Add(1)
			return nil
		}
		copy(c.entries[1:i+1], c.entries[:i])
		c.entries[0] = tree
		return tree
	}
	return nil
}

func (c *TreeCache) put(tree *ReconstructionTree) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.entries {
		if existing.anchor == tree.anchor && utils.RealEqual(existing.time, tree.time, c.epsilon) {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			break
		}
	}
	c.entries = append([]*ReconstructionTree{tree}, c.entries...)
	if n := len(c.entries); n > c.capacity {
		c.entries = c.entries[:c.capacity]
		c.evictions.Add(int64(n - c.capacity))
		c.logger.Debugw("tree cache eviction", "entries_removed", n-c.capacity)
	}
}

// Invalidate drops every cached tree.
func (c *TreeCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictions.Add(int64(len(c.entries)))
	c.entries = nil
}

// Stats returns current cache statistics.
func (c *TreeCache) Stats() TreeCacheStats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()
	return TreeCacheStats{
		Entries:   n,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
