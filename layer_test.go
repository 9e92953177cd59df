package slm

import (
	"errors"
	"reflect"
	"testing"
)

func geometryTypes(items []*LayerGeometry) []GeometryType {
	out := make([]GeometryType, len(items))
	for i, g := range items {
		out[i] = g.Type()
	}
	return out
}

func mixedLayer() *Layer {
	l := NewLayer(3, 90)
	l.AppendGeometry(NewHatchGeometry(1, 1, [][2]float32{{0, 0}, {1, 0}}))
	l.AppendGeometry(NewContourGeometry(1, 1, [][2]float32{{0, 0}, {1, 0}, {1, 1}}))
	l.AppendGeometry(NewPointsGeometry(1, 1, [][2]float32{{5, 5}}))
	l.AppendGeometry(NewContourGeometry(1, 2, nil))
	l.AppendGeometry(NewHatchGeometry(1, 2, nil))
	return l
}

func TestScanModes(t *testing.T) {
	l := mixedLayer()
	cases := []struct {
		mode ScanMode
		want []GeometryType
	}{
		{ScanDefault, []GeometryType{GeometryHatch, GeometryContour, GeometryPoints, GeometryContour, GeometryHatch}},
		{ScanContourFirst, []GeometryType{GeometryContour, GeometryContour, GeometryHatch, GeometryPoints, GeometryHatch}},
		{ScanHatchFirst, []GeometryType{GeometryHatch, GeometryHatch, GeometryContour, GeometryPoints, GeometryContour}},
	}
	for _, tc := range cases {
		got, err := l.Geometry(tc.mode)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(geometryTypes(got), tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.mode, geometryTypes(got), tc.want)
		}
	}

	// Stable within a group.
	got, _ := l.Geometry(ScanContourFirst)
	if got[0].BID != 1 || got[1].BID != 2 {
		t.Fatal("contours reordered")
	}

	if _, err := l.Geometry(ScanMode(9)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if ScanMode(9).String() != "unknown" || ScanHatchFirst.String() != "hatch-first" {
		t.Fatal("unexpected scan mode names")
	}
}

func TestScanWithNilItem(t *testing.T) {
	l := mixedLayer()
	l.AppendGeometry(nil)
	got, err := l.Geometry(ScanContourFirst)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 6 || got[5] != nil {
		t.Fatalf("nil item must stay last, got %v", got)
	}
	if got, _ := l.Geometry(ScanHatchFirst); len(got) != 6 || got[0].Type() != GeometryHatch {
		t.Fatalf("unexpected order %v", got)
	}
	if pts, err := l.PointsGeometry(); err != nil || len(pts) != 1 {
		t.Fatalf("points: %v %d", err, len(pts))
	}
}

func TestGeometryReturnsCopy(t *testing.T) {
	l := mixedLayer()
	got, _ := l.Geometry(ScanDefault)
	got[0] = nil
	again, _ := l.Geometry(ScanDefault)
	if again[0] == nil {
		t.Fatal("caller mutated the layer")
	}
}

func TestFilters(t *testing.T) {
	l := mixedLayer()
	pts, err := l.PointsGeometry()
	if err != nil || len(pts) != 1 {
		t.Fatalf("points: %v %d", err, len(pts))
	}
	hatches, _ := l.HatchGeometry()
	contours, _ := l.ContourGeometry()
	if len(hatches) != 2 || len(contours) != 2 {
		t.Fatalf("got %d hatches, %d contours", len(hatches), len(contours))
	}

	empty := NewLayer(0, 0)
	if pts, _ := empty.PointsGeometry(); len(pts) != 0 {
		t.Fatal("expected no points")
	}
}

func TestDeferredLayerHydration(t *testing.T) {
	calls := 0
	var gotPos int64
	loaded := []*LayerGeometry{NewContourGeometry(1, 1, nil), NewHatchGeometry(1, 1, nil)}
	l := NewDeferredLayer(4, 120, 4096, func(pos int64) ([]*LayerGeometry, error) {
		calls++
		gotPos = pos
		return loaded, nil
	})
	if l.IsLoaded() || l.FilePosition() != 4096 {
		t.Fatal("expected deferred layer")
	}

	l.AppendGeometry(NewPointsGeometry(1, 1, nil))
	if l.Len() != 1 {
		t.Fatalf("expected only the appended item, got %d", l.Len())
	}

	items, err := l.Geometry(ScanDefault)
	if err != nil {
		t.Fatal(err)
	}
	want := []GeometryType{GeometryContour, GeometryHatch, GeometryPoints}
	if !reflect.DeepEqual(geometryTypes(items), want) {
		t.Fatalf("got %v, want %v", geometryTypes(items), want)
	}
	if !l.IsLoaded() || gotPos != 4096 {
		t.Fatal("expected hydrated layer")
	}

	if _, err := l.HatchGeometry(); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("loader called %d times", calls)
	}
	if l.FilePosition() != 4096 {
		t.Fatal("file position must survive hydration")
	}
}

func TestDeferredLayerRetry(t *testing.T) {
	fail := true
	l := NewDeferredLayer(0, 10, 64, func(int64) ([]*LayerGeometry, error) {
		if fail {
			return nil, ErrIO
		}
		return []*LayerGeometry{NewPointsGeometry(1, 1, nil)}, nil
	})
	if _, err := l.Geometry(ScanDefault); !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if l.IsLoaded() {
		t.Fatal("failed load must leave the layer deferred")
	}
	fail = false
	if err := l.Load(); err != nil {
		t.Fatal(err)
	}
	if l.Len() != 1 {
		t.Fatalf("expected 1 item, got %d", l.Len())
	}
}

func TestDeferredLayerWithoutLoader(t *testing.T) {
	l := NewDeferredLayer(2, 10, 0, nil)
	if err := l.Load(); !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestSetGeometry(t *testing.T) {
	l := NewDeferredLayer(1, 10, 8, func(int64) ([]*LayerGeometry, error) {
		t.Fatal("loader must not run after SetGeometry")
		return nil, nil
	})
	items := []*LayerGeometry{NewPointsGeometry(1, 1, nil)}
	l.SetGeometry(items)
	items[0] = nil
	got, err := l.Geometry(ScanDefault)
	if err != nil || got[0] == nil {
		t.Fatal("SetGeometry must copy its input")
	}
}

func TestGeometryConstructors(t *testing.T) {
	if _, err := NewGeometry(GeometryInvalid, 0, 0, nil); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
	if _, err := NewGeometry(GeometryType(7), 0, 0, nil); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
	g, err := NewGeometry(GeometryHatch, 3, 4, [][2]float32{{0, 0}, {1, 1}, {2, 2}, {3, 3}})
	if err != nil {
		t.Fatal(err)
	}
	if g.MID != 3 || g.BID != 4 || g.NumHatches() != 2 {
		t.Fatalf("unexpected %+v", g)
	}
	if NewPointsGeometry(0, 0, [][2]float32{{1, 1}}).NumHatches() != 0 {
		t.Fatal("points have no hatches")
	}
	if GeometryType(7).String() != "invalid" || GeometryContour.String() != "contour" {
		t.Fatal("unexpected type names")
	}
}

func TestSegments(t *testing.T) {
	square := NewContourGeometry(0, 0, [][2]float32{{0, 0}, {1, 0}, {1, 1}})
	segs := square.Segments()
	if len(segs) != 3 || segs[2] != [2][2]float32{{1, 1}, {0, 0}} {
		t.Fatalf("unexpected contour segments %v", segs)
	}
	hatch := NewHatchGeometry(0, 0, [][2]float32{{0, 0}, {1, 0}, {0, 1}, {1, 1}})
	if got := hatch.Segments(); len(got) != 2 || got[1] != [2][2]float32{{0, 1}, {1, 1}} {
		t.Fatalf("unexpected hatch segments %v", got)
	}
	if NewContourGeometry(0, 0, [][2]float32{{0, 0}}).Segments() != nil {
		t.Fatal("single point contour has no segments")
	}
	if NewPointsGeometry(0, 0, [][2]float32{{0, 0}, {1, 1}}).Segments() != nil {
		t.Fatal("points have no segments")
	}
}

func TestModelBuildStyles(t *testing.T) {
	m := NewModel(2, 0)
	a := &BuildStyle{ID: 1, Name: "a"}
	b := &BuildStyle{ID: 1, Name: "b"}
	m.SetBuildStyles([]*BuildStyle{a, b})
	got, err := m.BuildStyleByID(1)
	if err != nil || got != a {
		t.Fatal("expected the first style with the id")
	}
	m.SetBuildStyles([]*BuildStyle{nil, a})
	if got, err := m.BuildStyleByID(1); err != nil || got != a {
		t.Fatal("nil styles must be skipped")
	}
	m.SetBuildStyles([]*BuildStyle{a, b})

	var nf *NotFoundError
	if _, err := m.BuildStyleByID(9); !errors.As(err, &nf) || nf.ID != 9 || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	styles := m.BuildStyles()
	styles[0] = nil
	if m.BuildStyles()[0] == nil {
		t.Fatal("BuildStyles must return a copy")
	}
	if m.Len() != 2 {
		t.Fatalf("expected 2 styles, got %d", m.Len())
	}
}

func TestSetStyle(t *testing.T) {
	var bs BuildStyle
	bs.SetStyle(7, 0.25, 180, 50, 40)
	if bs.ID != 7 || bs.LaserFocus != 0.25 || bs.LaserPower != 180 || bs.PointExposureTime != 50 || bs.PointDistance != 40 {
		t.Fatalf("unexpected %+v", bs)
	}
	if bs.LaserSpeed != 0 || bs.LaserID != 1 || bs.LaserMode != LaserModePulse {
		t.Fatalf("unexpected defaults %+v", bs)
	}

	bs.SetStyle(7, 0, 100, 10, 10, WithSpeed(950), WithLaserID(3), WithLaserMode(LaserModeCW))
	if bs.LaserSpeed != 950 || bs.LaserID != 3 || bs.LaserMode != LaserModeCW {
		t.Fatalf("options not applied: %+v", bs)
	}
	if LaserMode(5).String() != "unknown" || LaserModeCW.String() != "cw" || LaserMode(5).Valid() || !LaserModeCW.Valid() {
		t.Fatal("unexpected laser mode names")
	}
}

func TestEffectiveZUnit(t *testing.T) {
	if (Header{}).EffectiveZUnit() != DefaultZUnit {
		t.Fatal("expected default z unit")
	}
	if (Header{ZUnit: 100}).EffectiveZUnit() != 100 {
		t.Fatal("expected explicit z unit")
	}
}
