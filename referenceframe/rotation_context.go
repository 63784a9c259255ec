package referenceframe

import (
	"sync"

	"github.com/samber/lo"
)

// RotationContext owns the rotation histories of a loaded project. It is passed explicitly to
// resolvers and caches. Every mutation bumps the generation so that cached trees built from an
// older state are recognised as stale.
type RotationContext struct {
	mu         sync.RWMutex
	histories  map[PlateID]*RotationHistory
	generation uint64
}

// NewRotationContext returns a context holding the given sequences.
func NewRotationContext(sequences ...*RotationSequence) *RotationContext {
	rc := &RotationContext{histories: map[PlateID]*RotationHistory{}}
	rc.AddSequences(sequences...)
	return rc
}

// AddSequences adds sequences to the histories of their moving plates.
func (rc *RotationContext) AddSequences(sequences ...*RotationSequence) {
	if len(sequences) == 0 {
		return
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for moving, seqs := range lo.GroupBy(sequences, func(s *RotationSequence) PlateID { return s.MovingPlate() }) {
		h, ok := rc.histories[moving]
		if !ok {
			h = &RotationHistory{movingPlate: moving}
		}
		rc.histories[moving] = h.with(seqs...)
	}
	rc.generation++
}

// ReplaceSequences drops every history and loads the given sequences instead.
func (rc *RotationContext) ReplaceSequences(sequences ...*RotationSequence) {
	rc.mu.Lock()
	rc.histories = map[PlateID]*RotationHistory{}
	rc.generation++
	rc.mu.Unlock()
	rc.AddSequences(sequences...)
}

// RemovePlate drops the history of a moving plate.
func (rc *RotationContext) RemovePlate(id PlateID) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if _, ok := rc.histories[id]; ok {
		delete(rc.histories, id)
		rc.generation++
	}
}

// History returns the history of a moving plate.
func (rc *RotationContext) History(id PlateID) (*RotationHistory, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	h, ok := rc.histories[id]
	return h, ok
}

// PlateIDs returns the moving plates with a history, sorted.
func (rc *RotationContext) PlateIDs() []PlateID {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return SortPlateIDs(lo.Keys(rc.histories))
}

// Len returns the number of moving plates with a history.
func (rc *RotationContext) Len() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return len(rc.histories)
}

// Generation returns a counter which changes whenever the context is mutated.
func (rc *RotationContext) Generation() uint64 {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.generation
}

// snapshot is a frozen view of the context for one resolve pass. Histories are immutable, so a
// shallow copy of the map suffices.
type snapshot struct {
	histories  map[PlateID]*RotationHistory
	generation uint64
}

func (rc *RotationContext) snapshot() snapshot {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return snapshot{histories: lo.Assign(rc.histories), generation: rc.generation}
}
