package slm

import (
	"errors"
	"math"
	"strings"
	"testing"
)

// sampleDoc returns a small valid document: one model with styles 1 and 2
// and two layers holding every geometry variant.
func sampleDoc() (Header, []*Model, []*Layer) {
	m := NewModel(5, 1)
	m.Name = "part"
	s1 := &BuildStyle{}
	s1.SetStyle(1, 0, 200, 70, 60)
	s2 := &BuildStyle{}
	s2.SetStyle(2, 0.5, 150, 80, 50, WithSpeed(700), WithLaserMode(LaserModeCW))
	m.SetBuildStyles([]*BuildStyle{s1, s2})

	l0 := NewLayer(0, 30)
	l0.AppendGeometry(NewContourGeometry(5, 1, [][2]float32{{0, 0}, {4, 0}, {4, 3}}))
	l0.AppendGeometry(NewHatchGeometry(5, 2, [][2]float32{{0, 1}, {4, 1}}))
	l1 := NewLayer(1, 60)
	l1.AppendGeometry(NewPointsGeometry(5, 2, [][2]float32{{-1, 7}}))
	return Header{FileName: "part.bin", ZUnit: 1000}, []*Model{m}, []*Layer{l0, l1}
}

func TestLimitsWithDefaults(t *testing.T) {
	l := (Limits{}).WithDefaults()
	if l != DefaultLimits() {
		t.Fatalf("expected defaults, got %+v", l)
	}

	custom := (Limits{MaxLayers: 7}).WithDefaults()
	if custom.MaxLayers != 7 {
		t.Fatalf("expected custom MaxLayers, got %d", custom.MaxLayers)
	}
	if custom.MaxModels != DefaultLimits().MaxModels {
		t.Fatal("expected default MaxModels")
	}
}

func TestValidateOK(t *testing.T) {
	h, models, layers := sampleDoc()
	if err := Validate(h, models, layers, Limits{}); err != nil {
		t.Fatal(err)
	}
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(models []*Model, layers []*Layer) ([]*Model, []*Layer)
		field string
	}{
		{"dangling model", func(m []*Model, l []*Layer) ([]*Model, []*Layer) {
			l[0].AppendGeometry(NewPointsGeometry(9, 1, nil))
			return m, l
		}, "mid"},
		{"dangling style", func(m []*Model, l []*Layer) ([]*Model, []*Layer) {
			l[1].AppendGeometry(NewPointsGeometry(5, 3, nil))
			return m, l
		}, "bid"},
		{"odd hatch", func(m []*Model, l []*Layer) ([]*Model, []*Layer) {
			l[0].AppendGeometry(NewHatchGeometry(5, 1, [][2]float32{{0, 0}, {1, 1}, {2, 2}}))
			return m, l
		}, "coords"},
		{"nan", func(m []*Model, l []*Layer) ([]*Model, []*Layer) {
			l[1].AppendGeometry(NewPointsGeometry(5, 1, [][2]float32{{0, 0}, {float32(math.NaN()), 0}}))
			return m, l
		}, "coords"},
		{"infinity", func(m []*Model, l []*Layer) ([]*Model, []*Layer) {
			l[1].AppendGeometry(NewContourGeometry(5, 1, [][2]float32{{0, float32(math.Inf(-1))}}))
			return m, l
		}, "coords"},
		{"duplicate model", func(m []*Model, l []*Layer) ([]*Model, []*Layer) {
			return append(m, NewModel(5, 0)), l
		}, "mid"},
		{"duplicate style", func(m []*Model, l []*Layer) ([]*Model, []*Layer) {
			m[0].AppendBuildStyle(&BuildStyle{ID: 2})
			return m, l
		}, "bid"},
		{"nil model", func(m []*Model, l []*Layer) ([]*Model, []*Layer) {
			return append(m, nil), l
		}, "models"},
		{"nil layer", func(m []*Model, l []*Layer) ([]*Model, []*Layer) {
			return m, append(l, nil)
		}, "layers"},
		{"nil geometry", func(m []*Model, l []*Layer) ([]*Model, []*Layer) {
			l[0].AppendGeometry(nil)
			return m, l
		}, "geometry"},
		{"nil build style", func(m []*Model, l []*Layer) ([]*Model, []*Layer) {
			m[0].AppendBuildStyle(nil)
			l[1].AppendGeometry(NewPointsGeometry(5, 42, [][2]float32{{1, 1}}))
			return m, l
		}, "buildStyles"},
		{"laser mode", func(m []*Model, l []*Layer) ([]*Model, []*Layer) {
			m[0].AppendBuildStyle(&BuildStyle{ID: 3, LaserMode: LaserMode(7)})
			return m, l
		}, "laserMode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, models, layers := sampleDoc()
			models, layers = tc.edit(models, layers)
			err := Validate(h, models, layers, Limits{})
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if ve.Field != tc.field {
				t.Fatalf("expected field %q, got %q (%v)", tc.field, ve.Field, ve)
			}
		})
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	h, models, layers := sampleDoc()
	layers[0].AppendGeometry(NewPointsGeometry(8, 0, nil))
	layers[1].AppendGeometry(NewHatchGeometry(5, 4, [][2]float32{{0, 0}}))
	err := Validate(h, models, layers, Limits{})
	if err == nil {
		t.Fatal("expected error")
	}
	// The hatch is both dangling and odd.
	if !strings.HasPrefix(err.Error(), "3 violations: ") {
		t.Fatalf("unexpected message %q", err)
	}
	if !strings.Contains(err.Error(), "layer 1 geometry 1: bid") {
		t.Fatalf("expected location in %q", err)
	}
}

func TestValidateEmptyLayerSet(t *testing.T) {
	h, models, _ := sampleDoc()
	err := Validate(h, models, nil, Limits{})
	if !errors.Is(err, ErrEmptyLayerSet) || !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrEmptyLayerSet, got %v", err)
	}
}

func TestValidateLimits(t *testing.T) {
	h, models, layers := sampleDoc()
	cases := []Limits{
		{MaxLayers: 1},
		{MaxModels: 1, MaxBuildStyles: 1},
		{MaxGeometryPerLayer: 1},
		{MaxCoordsPerGeometry: 2},
	}
	for _, l := range cases {
		err := Validate(h, models, layers, l)
		if !errors.Is(err, ErrLimitExceeded) {
			t.Fatalf("%+v: expected ErrLimitExceeded, got %v", l, err)
		}
	}
}

func TestValidateHydrationFailure(t *testing.T) {
	h, models, layers := sampleDoc()
	boom := errors.New("boom")
	layers = append(layers, NewDeferredLayer(2, 90, 128, func(int64) ([]*LayerGeometry, error) {
		return nil, boom
	}))
	err := Validate(h, models, layers, Limits{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
	if errors.Is(err, ErrValidation) {
		t.Fatal("hydration failure must not read as a violation")
	}
}
