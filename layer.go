package slm

import "fmt"

// LoadFunc reads the geometry block stored at filePosition. Readers attach
// one to every layer they leave deferred.
type LoadFunc func(filePosition int64) ([]*LayerGeometry, error)

// Layer is one height slice of a build.
//
// A layer created by NewLayer is loaded. A layer created by NewDeferredLayer
// keeps its geometry on disk until the first geometry access; see Load.
type Layer struct {
	ID         uint32
	Z          uint64
	Attributes map[string]string

	geometry     []*LayerGeometry
	loaded       bool
	filePosition int64
	load         LoadFunc
}

func NewLayer(id uint32, z uint64) *Layer {
	return &Layer{ID: id, Z: z, loaded: true, filePosition: -1}
}

// NewDeferredLayer returns an unloaded layer whose geometry is read by load
// from filePosition on first access.
func NewDeferredLayer(id uint32, z uint64, filePosition int64, load LoadFunc) *Layer {
	return &Layer{ID: id, Z: z, filePosition: filePosition, load: load}
}

func (l *Layer) IsLoaded() bool { return l.loaded }

// FilePosition is the byte offset of the layer's geometry block in its
// source, or -1 for layers that were never on disk.
func (l *Layer) FilePosition() int64 { return l.filePosition }

// Load hydrates a deferred layer. Loaded items are placed before any item
// appended while the layer was deferred. On failure the layer stays
// unloaded and a later call retries.
func (l *Layer) Load() error {
	if l.loaded {
		return nil
	}
	if l.load == nil {
		return fmt.Errorf("%w: layer %d has no loader", ErrIO, l.ID)
	}
	items, err := l.load(l.filePosition)
	if err != nil {
		return fmt.Errorf("layer %d at offset %d: %w", l.ID, l.filePosition, err)
	}
	l.geometry = append(items, l.geometry...)
	l.loaded = true
	l.load = nil
	return nil
}

// AppendGeometry adds g to the end of the layer. References are not checked
// here; writers validate them.
func (l *Layer) AppendGeometry(g *LayerGeometry) {
	l.geometry = append(l.geometry, g)
}

// SetGeometry replaces the layer's geometry and marks it loaded.
func (l *Layer) SetGeometry(items []*LayerGeometry) {
	l.geometry = append([]*LayerGeometry(nil), items...)
	l.loaded = true
	l.load = nil
}

// Len returns the number of items currently held, which for a deferred
// layer only counts appended items.
func (l *Layer) Len() int { return len(l.geometry) }

// Geometry returns the layer's items ordered by mode.
func (l *Layer) Geometry(mode ScanMode) ([]*LayerGeometry, error) {
	if err := l.Load(); err != nil {
		return nil, err
	}
	return orderGeometry(l.geometry, mode)
}

func (l *Layer) PointsGeometry() ([]*LayerGeometry, error) {
	return l.filter(GeometryPoints)
}

func (l *Layer) HatchGeometry() ([]*LayerGeometry, error) {
	return l.filter(GeometryHatch)
}

func (l *Layer) ContourGeometry() ([]*LayerGeometry, error) {
	return l.filter(GeometryContour)
}

func (l *Layer) filter(t GeometryType) ([]*LayerGeometry, error) {
	if err := l.Load(); err != nil {
		return nil, err
	}
	return filterGeometry(l.geometry, t), nil
}
