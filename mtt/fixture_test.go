package mtt

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/logicossoftware/go-slm"
	"github.com/stretchr/testify/require"
)

// buildDocument returns a two-layer build with one model and two styles.
// Layer 1 is listed before layer 0 so sorting is observable.
func buildDocument() (slm.Header, []*slm.Model, []*slm.Layer) {
	header := slm.Header{
		FileName:   "bracket.mtt",
		Creator:    "go-slm tests",
		Version:    slm.Version{Major: 1, Minor: 2},
		ZUnit:      1000,
		Attributes: map[string]string{"machine": "m290"},
	}

	m := slm.NewModel(7, 1)
	m.Name = "bracket"
	m.BuildStyleName = "core"
	m.BuildStyleDescription = "core and skin"
	core := &slm.BuildStyle{Name: "core"}
	core.SetStyle(1, 0.5, 200, 80, 60, slm.WithSpeed(750))
	skin := &slm.BuildStyle{Name: "skin", PointDelay: 2, JumpDelay: 10, JumpSpeed: 5000}
	skin.SetStyle(2, 0, 120.5, 50, 40, slm.WithLaserID(2), slm.WithLaserMode(slm.LaserModeCW))
	m.SetBuildStyles([]*slm.BuildStyle{core, skin})

	l1 := slm.NewLayer(1, 60)
	l1.AppendGeometry(slm.NewHatchGeometry(7, 1, [][2]float32{{0, 0}, {10, 0}, {0, 1}, {10, 1}}))
	l1.AppendGeometry(slm.NewContourGeometry(7, 2, [][2]float32{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}))

	l0 := slm.NewLayer(0, 30)
	l0.AppendGeometry(slm.NewContourGeometry(7, 2, [][2]float32{{-1.25, -1.25}, {11.5, -1.25}, {11.5, 11.5}, {-1.25, -1.25}}))
	l0.AppendGeometry(slm.NewPointsGeometry(7, 1, [][2]float32{{0.1, 0.2}, {3.3, 4.4}}))
	l0.AppendGeometry(slm.NewHatchGeometry(7, 1, [][2]float32{{0, 0.5}, {10, 0.5}}))

	return header, []*slm.Model{m}, []*slm.Layer{l1, l0}
}

func writeDocument(t *testing.T, path string, opts ...slm.Option) {
	t.Helper()
	w, err := NewWriter(opts...)
	require.NoError(t, err)
	w.SetFilePath(path)
	h, models, layers := buildDocument()
	require.NoError(t, w.Write(h, models, layers))
}

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "build.mtt")
}

func snapshotOf(t *testing.T, h slm.Header, models []*slm.Model, layers []*slm.Layer) *slm.DocumentSnapshot {
	t.Helper()
	s, err := slm.TakeSnapshot(h, models, layers)
	require.NoError(t, err)
	return s
}

func requireSameDocument(t *testing.T, want, got *slm.DocumentSnapshot) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}
}
