package eos

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/logicossoftware/go-slm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDocument() (slm.Header, []*slm.Model, []*slm.Layer) {
	header := slm.Header{Version: slm.Version{Major: 2, Minor: 5}, ZUnit: 1000}

	part := slm.NewModel(3, 1)
	part.Name = "lattice cube"
	bs := &slm.BuildStyle{}
	bs.SetStyle(0, 0, 200, 80, 60)
	part.AppendBuildStyle(bs)

	support := slm.NewModel(9, 0)
	support.Name = "support"
	support.AppendBuildStyle(&slm.BuildStyle{ID: 0})

	l0 := slm.NewLayer(0, 30)
	l0.AppendGeometry(slm.NewContourGeometry(3, 0, [][2]float32{{0.1, 0.2}, {10.3, 0.2}, {10.3, 7.7}, {0.1, 0.2}}))
	l0.AppendGeometry(slm.NewHatchGeometry(3, 0, [][2]float32{{1e-7, -0}, {3.4e38, -1.5}}))
	l0.AppendGeometry(slm.NewPointsGeometry(9, 0, [][2]float32{{float32(math.Pi), float32(math.E)}}))
	l1 := slm.NewLayer(1, 60)
	l1.AppendGeometry(slm.NewHatchGeometry(3, 0, [][2]float32{{0, 0}, {1, 1}, {2, 2}, {3, 3}}))
	return header, []*slm.Model{part, support}, []*slm.Layer{l0, l1}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func parse(t *testing.T, path string, opts ...slm.Option) (*Reader, error) {
	t.Helper()
	r, err := NewReader(opts...)
	require.NoError(t, err)
	r.SetFilePath(path)
	return r, r.Parse()
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.cli")
	w, err := NewWriter()
	require.NoError(t, err)
	w.SetFilePath(path)
	h, models, layers := buildDocument()
	require.NoError(t, w.Write(h, models, layers))

	r, err := parse(t, path)
	require.NoError(t, err)
	assert.Equal(t, "cube.cli", r.Header().FileName)
	assert.Equal(t, h.Version, r.Header().Version)
	assert.InDelta(t, 0.03, r.LayerThickness(), 1e-12)

	gotModels := r.Models()
	require.Len(t, gotModels, 2)
	for i, m := range gotModels {
		assert.Equal(t, models[i].ID, m.ID)
		assert.Equal(t, models[i].Name, m.Name)
		assert.Equal(t, models[i].TopLayerID, m.TopLayerID)
		assert.Zero(t, m.Len())
	}

	gotLayers := r.Layers()
	require.Len(t, gotLayers, len(layers))
	for i, l := range gotLayers {
		assert.Equal(t, layers[i].ID, l.ID)
		assert.Equal(t, layers[i].Z, l.Z)
		want, err := layers[i].Geometry(slm.ScanDefault)
		require.NoError(t, err)
		got, err := l.Geometry(slm.ScanDefault)
		require.NoError(t, err)
		require.Len(t, got, len(want))
		for j := range want {
			assert.Equal(t, want[j].Type(), got[j].Type())
			assert.Equal(t, want[j].MID, got[j].MID)
			require.Len(t, got[j].Coords, len(want[j].Coords))
			for k := range want[j].Coords {
				for c := range 2 {
					assert.Equal(t, math.Float32bits(want[j].Coords[k][c]), math.Float32bits(got[j].Coords[k][c]),
						"layer %d item %d row %d", i, j, k)
				}
			}
		}
	}
}

func TestReadLeavesBidsDangling(t *testing.T) {
	path := writeFile(t, "part.cli", `$$HEADERSTART
$$ASCII
$$LABEL/1,part
$$HEADEREND
$$GEOMETRYSTART
$$LAYER/0.05
$$HATCHES/1,1,0,0,1,0
$$GEOMETRYEND
`)
	r, err := parse(t, path)
	require.NoError(t, err)
	require.Len(t, r.Layers(), 1)

	err = slm.Validate(r.Header(), r.Models(), r.Layers(), slm.Limits{})
	require.ErrorIs(t, err, slm.ErrValidation)
	var ve *slm.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "bid", ve.Field)
}

func TestReadUnitsAndZUnit(t *testing.T) {
	path := writeFile(t, "scaled.cli", `// written by hand
$$HEADERSTART
$$ASCII
$$UNITS/0.5
$$DATE/191019
$$DIMENSION/0,0,0,10,10,1
$$LAYERS/2
$$HEADEREND
$$GEOMETRYSTART
$$LAYER/0.1
$$POINTS/4,2,2,4,6,8
$$LAYER/0.2
$$POLYLINE/5,1,2,0,0,2,2
$$GEOMETRYEND
`)
	r, err := parse(t, path, slm.WithZUnit(100))
	require.NoError(t, err)
	assert.Equal(t, uint32(100), r.Header().ZUnit)
	assert.InDelta(t, 0.1, r.LayerThickness(), 1e-12)

	layers := r.Layers()
	require.Len(t, layers, 2)
	assert.Equal(t, uint64(10), layers[0].Z)
	assert.Equal(t, uint64(20), layers[1].Z)

	points, err := layers[0].PointsGeometry()
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, [][2]float32{{1, 2}, {3, 4}}, points[0].Coords)

	models := r.Models()
	require.Len(t, models, 2)
	assert.Equal(t, uint32(4), models[0].ID)
	assert.Equal(t, uint32(5), models[1].ID)
	assert.Equal(t, uint32(1), models[1].TopLayerID)
}

func TestParseErrors(t *testing.T) {
	const head = "$$HEADERSTART\n$$ASCII\n$$HEADEREND\n$$GEOMETRYSTART\n"
	tests := []struct {
		name string
		body string
		want string
	}{
		{"before layer", head + "$$HATCHES/1,1,0,0,1,1\n$$GEOMETRYEND\n", "before the first"},
		{"count mismatch", head + "$$LAYER/1\n$$HATCHES/1,2,0,0,1,1\n$$GEOMETRYEND\n", "declares 2 entries"},
		{"unknown command", head + "$$LAYER/1\n$$CIRCLE/1,0,0,5\n$$GEOMETRYEND\n", "unknown geometry command"},
		{"bad direction", head + "$$LAYER/1\n$$POLYLINE/1,5,1,0,0\n$$GEOMETRYEND\n", "direction"},
		{"text coordinate", head + "$$LAYER/1\n$$POINTS/1,1,x,0\n$$GEOMETRYEND\n", "expected a number"},
		{"negative height", head + "$$LAYER/-1\n$$GEOMETRYEND\n", "out of range"},
		{"binary", "$$HEADERSTART\n$$BINARY\n$$HEADEREND\n$$GEOMETRYSTART\n$$GEOMETRYEND\n", "binary"},
		{"layer count", "$$HEADERSTART\n$$LAYERS/3\n$$HEADEREND\n$$GEOMETRYSTART\n$$LAYER/1\n$$GEOMETRYEND\n", "$$LAYERS says 3"},
		{"unterminated", head + "$$LAYER/1\n", "line"},
		{"no header", "$$GEOMETRYSTART\n$$GEOMETRYEND\n", "line 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := parse(t, writeFile(t, "bad.cli", tt.body))
			require.ErrorIs(t, err, slm.ErrFormat)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, slm.StateFailed, r.State())
			assert.Nil(t, r.Layers())
		})
	}
}

func TestParseIOErrors(t *testing.T) {
	_, err := parse(t, filepath.Join(t.TempDir(), "missing.cli"))
	require.ErrorIs(t, err, slm.ErrIO)

	orig := readFile
	defer func() { readFile = orig }()
	readFile = func(string) ([]byte, error) { return nil, os.ErrPermission }
	_, err = parse(t, writeFile(t, "x.cli", "$$HEADERSTART\n$$HEADEREND\n$$GEOMETRYSTART\n$$GEOMETRYEND\n"))
	require.ErrorIs(t, err, slm.ErrIO)
}

func TestWriteOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.cli")
	w, err := NewWriter(slm.WithSortLayers(true))
	require.NoError(t, err)
	w.SetFilePath(path)

	m := slm.NewModel(1, 0)
	m.Name = `say "hi"`
	m.AppendBuildStyle(&slm.BuildStyle{ID: 2})
	l := slm.NewLayer(0, 1500)
	l.AppendGeometry(slm.NewHatchGeometry(1, 2, [][2]float32{{0, 0.5}, {10, 0.5}}))
	require.NoError(t, w.Write(slm.Header{Version: slm.Version{Major: 1}}, []*slm.Model{m}, []*slm.Layer{l}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	assert.Equal(t, []string{
		"$$HEADERSTART",
		"$$ASCII",
		"$$UNITS/1",
		"$$VERSION/100",
		"$$LAYERS/1",
		`$$LABEL/1,"say \"hi\""`,
		"$$HEADEREND",
		"$$GEOMETRYSTART",
		"$$LAYER/1.5",
		"$$HATCHES/1,1,0,0.5,10,0.5",
		"$$GEOMETRYEND",
	}, lines)

	r, err := parse(t, path)
	require.NoError(t, err)
	assert.Equal(t, `say "hi"`, r.Models()[0].Name)
}

func TestWriteUnknownModelLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cube.cli")
	h, models, layers := buildDocument()
	layers[1].AppendGeometry(slm.NewContourGeometry(99, 0, [][2]float32{{0, 0}, {1, 0}, {1, 1}}))

	w, err := NewWriter()
	require.NoError(t, err)
	w.SetFilePath(path)
	err = w.Write(h, models, layers)
	require.ErrorIs(t, err, slm.ErrValidation)
	assert.Contains(t, err.Error(), "model 99 not found")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteRejectsWideMinorVersion(t *testing.T) {
	w, err := NewWriter()
	require.NoError(t, err)
	w.SetFilePath(filepath.Join(t.TempDir(), "v.cli"))
	h, models, layers := buildDocument()
	h.Version.Minor = 100
	require.ErrorIs(t, w.Write(h, models, layers), slm.ErrFormat)
}

func TestRegistered(t *testing.T) {
	f, err := slm.FormatForPath("build.CLI")
	require.NoError(t, err)
	assert.Equal(t, FormatName, f.Name)
}
