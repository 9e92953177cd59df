package slm

import (
	"fmt"
	"math"
)

type GeometryType uint8

const (
	GeometryInvalid GeometryType = 0
	GeometryPoints  GeometryType = 1
	GeometryContour GeometryType = 2
	GeometryHatch   GeometryType = 3
)

func (t GeometryType) String() string {
	switch t {
	case GeometryPoints:
		return "points"
	case GeometryContour:
		return "contour"
	case GeometryHatch:
		return "hatch"
	default:
		return "invalid"
	}
}

// Valid reports whether t is one of the three geometry variants.
func (t GeometryType) Valid() bool {
	return t == GeometryPoints || t == GeometryContour || t == GeometryHatch
}

// LayerGeometry is one scan-path record of a layer. Its variant is fixed by
// the constructor and exposed through Type:
//   - Points: every row of Coords is an independent exposure point
//   - Contour: Coords is a closed polyline, the last point joins the first
//   - Hatch: rows 2i and 2i+1 form one line segment, so the row count is even
//
// MID and BID name the owning Model and the BuildStyle within that model.
type LayerGeometry struct {
	typ        GeometryType
	MID        uint32
	BID        uint32
	Coords     [][2]float32
	Attributes map[string]string
}

func NewPointsGeometry(mid, bid uint32, coords [][2]float32) *LayerGeometry {
	return &LayerGeometry{typ: GeometryPoints, MID: mid, BID: bid, Coords: coords}
}

func NewContourGeometry(mid, bid uint32, coords [][2]float32) *LayerGeometry {
	return &LayerGeometry{typ: GeometryContour, MID: mid, BID: bid, Coords: coords}
}

func NewHatchGeometry(mid, bid uint32, coords [][2]float32) *LayerGeometry {
	return &LayerGeometry{typ: GeometryHatch, MID: mid, BID: bid, Coords: coords}
}

// NewGeometry builds an item of type t. Decoders use it when the variant is
// only known at run time; it returns an error for GeometryInvalid and
// unknown tags.
func NewGeometry(t GeometryType, mid, bid uint32, coords [][2]float32) (*LayerGeometry, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: geometry type %d", ErrFormat, t)
	}
	return &LayerGeometry{typ: t, MID: mid, BID: bid, Coords: coords}, nil
}

func (g *LayerGeometry) Type() GeometryType { return g.typ }

// NumHatches returns the number of hatch segments, rows/2, for a Hatch item
// and 0 for every other variant. The count is only meaningful for an even
// row count; TotalNumHatches reports odd ones as validation errors.
func (g *LayerGeometry) NumHatches() int {
	if g.typ != GeometryHatch {
		return 0
	}
	return len(g.Coords) / 2
}

// Segments returns the line segments traced by the item: consecutive pairs
// for a hatch, every edge including the closing one for a contour with at
// least two points, and nothing for exposure points.
func (g *LayerGeometry) Segments() [][2][2]float32 {
	switch g.typ {
	case GeometryHatch:
		out := make([][2][2]float32, 0, len(g.Coords)/2)
		for i := 0; i+1 < len(g.Coords); i += 2 {
			out = append(out, [2][2]float32{g.Coords[i], g.Coords[i+1]})
		}
		return out
	case GeometryContour:
		if len(g.Coords) < 2 {
			return nil
		}
		out := make([][2][2]float32, 0, len(g.Coords))
		for i := range g.Coords {
			out = append(out, [2][2]float32{g.Coords[i], g.Coords[(i+1)%len(g.Coords)]})
		}
		return out
	default:
		return nil
	}
}

// firstNonFinite returns the row of the first NaN or infinite coordinate,
// or -1.
func (g *LayerGeometry) firstNonFinite() int {
	for i, c := range g.Coords {
		for _, v := range c {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return i
			}
		}
	}
	return -1
}
