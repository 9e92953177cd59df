package slm

// Limits bounds the counts and sizes a reader accepts before allocating, and
// the counts a writer will emit. Zero fields take the defaults.
type Limits struct {
	MaxModels            int
	MaxBuildStyles       int // per model
	MaxLayers            int
	MaxGeometryPerLayer  int
	MaxCoordsPerGeometry int
	MaxSectionLen        uint64 // stored (possibly compressed) block length
	MaxUncompressed      uint64 // block length after decompression
}

func DefaultLimits() Limits {
	return Limits{
		MaxModels:            1 << 16,
		MaxBuildStyles:       1 << 16,
		MaxLayers:            1 << 20,
		MaxGeometryPerLayer:  1 << 22,
		MaxCoordsPerGeometry: 1 << 24,
		MaxSectionLen:        1 << 30, // 1 GiB
		MaxUncompressed:      2 << 30, // 2 GiB
	}
}

// WithDefaults returns l with every zero field replaced by its default.
func (l Limits) WithDefaults() Limits {
	d := DefaultLimits()
	if l.MaxModels == 0 {
		l.MaxModels = d.MaxModels
	}
	if l.MaxBuildStyles == 0 {
		l.MaxBuildStyles = d.MaxBuildStyles
	}
	if l.MaxLayers == 0 {
		l.MaxLayers = d.MaxLayers
	}
	if l.MaxGeometryPerLayer == 0 {
		l.MaxGeometryPerLayer = d.MaxGeometryPerLayer
	}
	if l.MaxCoordsPerGeometry == 0 {
		l.MaxCoordsPerGeometry = d.MaxCoordsPerGeometry
	}
	if l.MaxSectionLen == 0 {
		l.MaxSectionLen = d.MaxSectionLen
	}
	if l.MaxUncompressed == 0 {
		l.MaxUncompressed = d.MaxUncompressed
	}
	return l
}
