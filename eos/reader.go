package eos

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/logicossoftware/go-slm"
	"github.com/sirupsen/logrus"
)

// Function variables for testing injection.
var (
	readFile = os.ReadFile
)

// Reader reads ASCII CLI files.
//
// The format has no build styles, so every geometry item comes back with
// bid 0 and every model with an empty style list. Heights are converted to
// stored z with the configured z unit.
type Reader struct {
	slm.ReaderBase
	cfg       slm.Config
	logger    logrus.FieldLogger
	thickness float64
}

func NewReader(opts ...slm.Option) (*Reader, error) {
	cfg := slm.NewConfig(opts...)
	return &Reader{cfg: cfg, logger: cfg.Logger.WithField("format", FormatName)}, nil
}

// LayerThickness is the smallest gap between consecutive layer heights, in
// mm, or 0 for fewer than two distinct heights.
func (r *Reader) LayerThickness() float64 { return r.thickness }

func (r *Reader) Parse() error {
	if err := r.BeginParse(); err != nil {
		return err
	}
	path := r.FilePath()
	size, err := r.FileSize()
	if err != nil {
		return r.FailParse(err)
	}
	if uint64(size) > r.cfg.Limits.MaxUncompressed {
		return r.FailParse(fmt.Errorf("%w: file of %d bytes", slm.ErrLimitExceeded, size))
	}
	data, err := readFile(path)
	if err != nil {
		return r.FailParse(slm.IOError("read", path, err))
	}
	ast, err := cliParser.ParseBytes(path, data)
	if err != nil {
		r.logger.WithError(err).WithField("path", path).Warn("parse failed")
		return r.FailParse(syntaxError(err))
	}

	b := newBuilder(r.cfg, r.logger)
	if err := b.header(ast.Header); err != nil {
		return r.FailParse(err)
	}
	if err := b.geometry(ast.Geometry); err != nil {
		return r.FailParse(err)
	}
	if b.declaredLayers >= 0 && b.declaredLayers != len(b.layers) {
		return r.FailParse(&slm.FormatError{Format: FormatName, Offset: -1,
			Reason: fmt.Sprintf("$$LAYERS says %d, file holds %d", b.declaredLayers, len(b.layers))})
	}

	b.hdr.FileName = filepath.Base(path)
	r.thickness = slm.NominalLayerThickness(b.layers, b.zUnit)
	r.CompleteParse(b.hdr, b.models, b.layers)
	r.logger.WithFields(logrus.Fields{"path": path, "models": len(b.models), "layers": len(b.layers)}).Debug("parsed build file")
	return nil
}

func syntaxError(err error) error {
	fe := &slm.FormatError{Format: FormatName, Offset: -1, Reason: "syntax", Err: err}
	var perr participle.Error
	if errors.As(err, &perr) {
		fe.Offset = int64(perr.Position().Offset)
		fe.Reason = fmt.Sprintf("line %d: %s", perr.Position().Line, perr.Message())
		fe.Err = nil
	}
	return fe
}

// builder turns the command lists into a document.
type builder struct {
	limits         slm.Limits
	logger         logrus.FieldLogger
	zUnit          uint32
	units          float64
	declaredLayers int

	hdr      slm.Header
	models   []*slm.Model
	modelIdx map[uint32]*slm.Model
	layers   []*slm.Layer
	current  *slm.Layer
}

func newBuilder(cfg slm.Config, logger logrus.FieldLogger) *builder {
	zUnit := cfg.ZUnit
	if zUnit == 0 {
		zUnit = slm.DefaultZUnit
	}
	return &builder{
		limits:         cfg.Limits,
		logger:         logger,
		zUnit:          zUnit,
		units:          1,
		declaredLayers: -1,
		hdr:            slm.Header{ZUnit: zUnit},
		modelIdx:       map[uint32]*slm.Model{},
	}
}

func fail(pos lexer.Position, format string, args ...any) error {
	return &slm.FormatError{
		Format: FormatName,
		Offset: int64(pos.Offset),
		Reason: fmt.Sprintf("line %d: ", pos.Line) + fmt.Sprintf(format, args...),
	}
}

func (b *builder) header(cmds []*command) error {
	for _, c := range cmds {
		switch c.Name {
		case "$$ASCII":
		case "$$BINARY":
			return fail(c.Pos, "binary CLI is not supported")
		case "$$UNITS":
			v, err := b.floats(c, 1)
			if err != nil {
				return err
			}
			if !(v[0] > 0) || math.IsInf(v[0], 0) {
				return fail(c.Pos, "units must be positive, got %v", v[0])
			}
			b.units = v[0]
		case "$$VERSION":
			v, err := b.integers(c, 1)
			if err != nil {
				return err
			}
			if v[0] > math.MaxUint16*100 {
				return fail(c.Pos, "version %d out of range", v[0])
			}
			b.hdr.Version = slm.Version{Major: uint16(v[0] / 100), Minor: uint16(v[0] % 100)}
		case "$$LAYERS":
			v, err := b.integers(c, 1)
			if err != nil {
				return err
			}
			if v[0] > uint32(b.limits.MaxLayers) {
				return fmt.Errorf("%w: %d layers", slm.ErrLimitExceeded, v[0])
			}
			b.declaredLayers = int(v[0])
		case "$$LABEL":
			if len(c.Args) != 2 {
				return fail(c.Pos, "$$LABEL takes an id and a name")
			}
			id, err := b.integer(c.Args[0])
			if err != nil {
				return err
			}
			if _, dup := b.modelIdx[id]; dup {
				return fail(c.Pos, "duplicate label %d", id)
			}
			m, err := b.model(id)
			if err != nil {
				return err
			}
			m.Name = c.Args[1].value()
		default:
			b.logger.WithField("command", c.Name).Debug("ignoring header command")
		}
	}
	return nil
}

func (b *builder) geometry(cmds []*command) error {
	for _, c := range cmds {
		if c.Name == "$$LAYER" {
			if err := b.layer(c); err != nil {
				return err
			}
			continue
		}
		if b.current == nil {
			return fail(c.Pos, "%s before the first $$LAYER", c.Name)
		}
		var (
			g   *slm.LayerGeometry
			err error
		)
		switch c.Name {
		case "$$POLYLINE":
			g, err = b.polyline(c)
		case "$$HATCHES":
			g, err = b.item(c, slm.GeometryHatch, 2)
		case "$$POINTS":
			g, err = b.item(c, slm.GeometryPoints, 1)
		default:
			return fail(c.Pos, "unknown geometry command %s", c.Name)
		}
		if err != nil {
			return err
		}
		if b.current.Len() >= b.limits.MaxGeometryPerLayer {
			return fmt.Errorf("%w: layer %d has more than %d geometry items", slm.ErrLimitExceeded, b.current.ID, b.limits.MaxGeometryPerLayer)
		}
		m, err := b.model(g.MID)
		if err != nil {
			return err
		}
		m.TopLayerID = b.current.ID
		b.current.AppendGeometry(g)
	}
	return nil
}

func (b *builder) layer(c *command) error {
	v, err := b.floats(c, 1)
	if err != nil {
		return err
	}
	z := v[0] * float64(b.zUnit)
	if z < 0 || math.IsInf(z, 0) || z >= math.MaxUint64 {
		return fail(c.Pos, "layer height %v out of range", v[0])
	}
	if len(b.layers) >= b.limits.MaxLayers {
		return fmt.Errorf("%w: more than %d layers", slm.ErrLimitExceeded, b.limits.MaxLayers)
	}
	b.current = slm.NewLayer(uint32(len(b.layers)), uint64(math.Round(z)))
	b.layers = append(b.layers, b.current)
	return nil
}

// polyline reads $$POLYLINE/id,dir,n,x1,y1,...,xn,yn.
func (b *builder) polyline(c *command) (*slm.LayerGeometry, error) {
	if len(c.Args) < 3 {
		return nil, fail(c.Pos, "$$POLYLINE needs id, direction and count")
	}
	dir, err := b.integer(c.Args[1])
	if err != nil {
		return nil, err
	}
	if dir > 2 {
		return nil, fail(c.Pos, "polyline direction %d", dir)
	}
	id, err := b.integer(c.Args[0])
	if err != nil {
		return nil, err
	}
	coords, err := b.coords(c, c.Args[2], c.Args[3:], 1)
	if err != nil {
		return nil, err
	}
	return slm.NewContourGeometry(id, 0, coords), nil
}

// item reads $$HATCHES/id,n,... and $$POINTS/id,n,...; each of the n
// entries holds perEntry points.
func (b *builder) item(c *command, t slm.GeometryType, perEntry int) (*slm.LayerGeometry, error) {
	if len(c.Args) < 2 {
		return nil, fail(c.Pos, "%s needs id and count", c.Name)
	}
	id, err := b.integer(c.Args[0])
	if err != nil {
		return nil, err
	}
	coords, err := b.coords(c, c.Args[1], c.Args[2:], perEntry)
	if err != nil {
		return nil, err
	}
	return slm.NewGeometry(t, id, 0, coords)
}

func (b *builder) coords(c *command, count *argument, args []*argument, perEntry int) ([][2]float32, error) {
	n, err := b.integer(count)
	if err != nil {
		return nil, err
	}
	rows := uint64(n) * uint64(perEntry)
	if rows > uint64(b.limits.MaxCoordsPerGeometry) {
		return nil, fmt.Errorf("%w: line %d has %d coordinates", slm.ErrLimitExceeded, c.Pos.Line, rows)
	}
	if uint64(len(args)) != rows*2 {
		return nil, fail(c.Pos, "%s declares %d entries but has %d values", c.Name, n, len(args))
	}
	out := make([][2]float32, rows)
	for i := range out {
		for j := range 2 {
			v, err := b.coord(args[2*i+j])
			if err != nil {
				return nil, err
			}
			out[i][j] = v
		}
	}
	return out, nil
}

func (b *builder) coord(a *argument) (float32, error) {
	if a.Number == nil {
		return 0, fail(a.Pos, "expected a number, got %q", a.value())
	}
	v, err := strconv.ParseFloat(*a.Number, 32)
	if err != nil {
		return 0, fail(a.Pos, "coordinate %s: %v", *a.Number, err)
	}
	if b.units != 1 {
		v *= b.units
	}
	return float32(v), nil
}

func (b *builder) integer(a *argument) (uint32, error) {
	if a.Number == nil {
		return 0, fail(a.Pos, "expected an integer, got %q", a.value())
	}
	v, err := strconv.ParseUint(*a.Number, 10, 32)
	if err != nil {
		return 0, fail(a.Pos, "integer %s: %v", *a.Number, err)
	}
	return uint32(v), nil
}

func (b *builder) integers(c *command, n int) ([]uint32, error) {
	if len(c.Args) != n {
		return nil, fail(c.Pos, "%s takes %d argument(s)", c.Name, n)
	}
	out := make([]uint32, n)
	for i, a := range c.Args {
		v, err := b.integer(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (b *builder) floats(c *command, n int) ([]float64, error) {
	if len(c.Args) != n {
		return nil, fail(c.Pos, "%s takes %d argument(s)", c.Name, n)
	}
	out := make([]float64, n)
	for i, a := range c.Args {
		if a.Number == nil {
			return nil, fail(a.Pos, "expected a number, got %q", a.value())
		}
		v, err := strconv.ParseFloat(*a.Number, 64)
		if err != nil {
			return nil, fail(a.Pos, "number %s: %v", *a.Number, err)
		}
		out[i] = v
	}
	return out, nil
}

// model returns the model with id, creating it on first use.
func (b *builder) model(id uint32) (*slm.Model, error) {
	if m, ok := b.modelIdx[id]; ok {
		return m, nil
	}
	if len(b.models) >= b.limits.MaxModels {
		return nil, fmt.Errorf("%w: more than %d models", slm.ErrLimitExceeded, b.limits.MaxModels)
	}
	m := slm.NewModel(id, 0)
	b.modelIdx[id] = m
	b.models = append(b.models, m)
	return m, nil
}
