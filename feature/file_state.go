package feature

import (
	"sync"

	"github.com/samber/lo"
)

type loaded[T any] struct {
	collection T
	active     bool
}

// FileState tracks the loaded feature and rotation collections, each keyed by filename, and
// whether each one is active. Only active collections take part in a reconstruction. Safe for
// concurrent use.
type FileState struct {
	mu        sync.RWMutex
	features  map[string]*loaded[*FeatureCollection]
	rotations map[string]*loaded[*RotationCollection]
	// order keeps collections in load order so reconstructions are deterministic.
	featureOrder  []string
	rotationOrder []string
}

// NewFileState returns an empty FileState.
func NewFileState() *FileState {
	return &FileState{
		features:  map[string]*loaded[*FeatureCollection]{},
		rotations: map[string]*loaded[*RotationCollection]{},
	}
}

// AddFeatureCollection loads or replaces an active feature collection.
func (fs *FileState) AddFeatureCollection(fc *FeatureCollection) {
	if fc == nil {
		panic("feature: nil feature collection")
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.features[fc.Filename]; !ok {
		fs.featureOrder = append(fs.featureOrder, fc.Filename)
	}
	fs.features[fc.Filename] = &loaded[*FeatureCollection]{collection: fc, active: true}
}

// AddRotationCollection loads or replaces an active rotation collection.
func (fs *FileState) AddRotationCollection(rc *RotationCollection) {
	if rc == nil {
		panic("feature: nil rotation collection")
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.rotations[rc.Filename]; !ok {
		fs.rotationOrder = append(fs.rotationOrder, rc.Filename)
	}
	fs.rotations[rc.Filename] = &loaded[*RotationCollection]{collection: rc, active: true}
}

// SetActive activates or deactivates the collection loaded from filename. It returns false if
// nothing was loaded from filename.
func (fs *FileState) SetActive(filename string, active bool) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	found := false
	if l, ok := fs.features[filename]; ok {
		l.active = active
		found = true
	}
	if l, ok := fs.rotations[filename]; ok {
		l.active = active
		found = true
	}
	return found
}

// Unload forgets the collections loaded from filename.
func (fs *FileState) Unload(filename string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.features, filename)
	delete(fs.rotations, filename)
	fs.featureOrder = lo.Without(fs.featureOrder, filename)
	fs.rotationOrder = lo.Without(fs.rotationOrder, filename)
}

// ActiveReconstructableCollections returns the active feature collections in load order.
func (fs *FileState) ActiveReconstructableCollections() []*FeatureCollection {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return activeIn(fs.featureOrder, fs.features)
}

// ActiveRotationCollections returns the active rotation collections in load order.
func (fs *FileState) ActiveRotationCollections() []*RotationCollection {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return activeIn(fs.rotationOrder, fs.rotations)
}

func activeIn[T any](order []string, collections map[string]*loaded[T]) []T {
	out := []T{}
	for _, name := range order {
		if l := collections[name]; l.active {
			out = append(out, l.collection)
		}
	}
	return out
}
