package slm

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// LayerMinMax returns the lowest and highest stored z of layers.
func LayerMinMax(layers []*Layer) (minZ, maxZ uint64, err error) {
	if len(layers) == 0 {
		return 0, 0, ErrEmptyLayerSet
	}
	minZ, maxZ = layers[0].Z, layers[0].Z
	for _, l := range layers[1:] {
		minZ = min(minZ, l.Z)
		maxZ = max(maxZ, l.Z)
	}
	return minZ, maxZ, nil
}

// TotalNumHatches sums the hatch segment counts of every item in layers.
// Deferred layers are hydrated. A hatch with an odd row count fails with a
// *ValidationError.
func TotalNumHatches(layers []*Layer) (int, error) {
	n := 0
	for _, l := range layers {
		if err := l.Load(); err != nil {
			return 0, err
		}
		for i, g := range l.geometry {
			if g == nil || g.Type() != GeometryHatch {
				continue
			}
			if len(g.Coords)%2 != 0 {
				return 0, &ValidationError{LayerID: l.ID, HasLayer: true, Index: i, ModelID: g.MID, BuildStyleID: g.BID,
					Field: "coords", Reason: fmt.Sprintf("hatch has odd row count %d", len(g.Coords))}
			}
			n += g.NumHatches()
		}
	}
	return n, nil
}

// TotalNumContours counts the contour items in layers. Deferred layers are
// hydrated.
func TotalNumContours(layers []*Layer) (int, error) {
	n := 0
	for _, l := range layers {
		if err := l.Load(); err != nil {
			return 0, err
		}
		for _, g := range l.geometry {
			if g != nil && g.Type() == GeometryContour {
				n++
			}
		}
	}
	return n, nil
}

// BoundingBox returns the extent of every coordinate in layers. X and Y come
// from the coordinates; Z spans the stored z of the layers that hold at
// least one coordinate.
func BoundingBox(layers []*Layer) (r3.Box, error) {
	if len(layers) == 0 {
		return r3.Box{}, ErrEmptyLayerSet
	}
	lo := r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	found := false
	for _, l := range layers {
		if err := l.Load(); err != nil {
			return r3.Box{}, err
		}
		for _, g := range l.geometry {
			if g == nil {
				continue
			}
			for _, c := range g.Coords {
				x, y := float64(c[0]), float64(c[1])
				lo.X, hi.X = math.Min(lo.X, x), math.Max(hi.X, x)
				lo.Y, hi.Y = math.Min(lo.Y, y), math.Max(hi.Y, y)
				z := float64(l.Z)
				lo.Z, hi.Z = math.Min(lo.Z, z), math.Max(hi.Z, z)
				found = true
			}
		}
	}
	if !found {
		return r3.Box{}, ErrNoGeometry
	}
	return r3.Box{Min: lo, Max: hi}, nil
}

// OrderLayers returns layers in emission order: ascending z with ties
// broken by ascending id when sortLayers is set, the given order otherwise.
// The input slice is not modified.
func OrderLayers(layers []*Layer, sortLayers bool) []*Layer {
	out := slices.Clone(layers)
	if sortLayers {
		slices.SortStableFunc(out, func(a, b *Layer) int {
			return cmp.Or(cmp.Compare(a.Z, b.Z), cmp.Compare(a.ID, b.ID))
		})
	}
	return out
}

// NominalLayerThickness returns the smallest positive gap between distinct
// layer heights, converted to millimetres with zUnit steps per mm. It is 0
// when fewer than two distinct heights exist or zUnit is 0.
func NominalLayerThickness(layers []*Layer, zUnit uint32) float64 {
	if zUnit == 0 {
		return 0
	}
	zs := make([]uint64, 0, len(layers))
	for _, l := range layers {
		zs = append(zs, l.Z)
	}
	slices.Sort(zs)
	zs = slices.Compact(zs)
	var step uint64
	for i := 1; i < len(zs); i++ {
		d := zs[i] - zs[i-1]
		if step == 0 || d < step {
			step = d
		}
	}
	return float64(step) / float64(zUnit)
}
