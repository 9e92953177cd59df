package slm

import "fmt"

// ScanMode selects the order in which a layer's geometry is returned.
type ScanMode uint8

const (
	// ScanDefault keeps insertion order.
	ScanDefault ScanMode = iota
	// ScanContourFirst returns contours, then everything else.
	ScanContourFirst
	// ScanHatchFirst returns hatches, then everything else.
	ScanHatchFirst
)

func (m ScanMode) String() string {
	switch m {
	case ScanDefault:
		return "default"
	case ScanContourFirst:
		return "contour-first"
	case ScanHatchFirst:
		return "hatch-first"
	default:
		return "unknown"
	}
}

func orderGeometry(items []*LayerGeometry, mode ScanMode) ([]*LayerGeometry, error) {
	switch mode {
	case ScanDefault:
		out := make([]*LayerGeometry, len(items))
		copy(out, items)
		return out, nil
	case ScanContourFirst:
		return partition(items, GeometryContour), nil
	case ScanHatchFirst:
		return partition(items, GeometryHatch), nil
	default:
		return nil, fmt.Errorf("%w: scan mode %d", ErrValidation, mode)
	}
}

// partition moves items of type first to the front. Both groups keep their
// relative order; nil items stay in the second group.
func partition(items []*LayerGeometry, first GeometryType) []*LayerGeometry {
	out := make([]*LayerGeometry, 0, len(items))
	for _, g := range items {
		if isType(g, first) {
			out = append(out, g)
		}
	}
	for _, g := range items {
		if !isType(g, first) {
			out = append(out, g)
		}
	}
	return out
}

func isType(g *LayerGeometry, t GeometryType) bool { return g != nil && g.Type() == t }

func filterGeometry(items []*LayerGeometry, t GeometryType) []*LayerGeometry {
	var out []*LayerGeometry
	for _, g := range items {
		if isType(g, t) {
			out = append(out, g)
		}
	}
	return out
}
