package realizer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/logicossoftware/go-slm"
	"github.com/sirupsen/logrus"
)

// Function variables for testing injection.
var (
	readFile = os.ReadFile
)

// Reader reads realizer files. The whole file is read and checked during
// Parse, so every layer comes back loaded.
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

// LayerThickness returns the thickness recorded by the writer, in mm.
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

	d := &decoder{limits: r.cfg.Limits}
	header, models, layers, err := d.decode(data)
	if err != nil {
		r.logger.WithError(err).WithField("path", path).Warn("parse failed")
		return r.FailParse(err)
	}
	r.thickness = d.thickness
	r.CompleteParse(header, models, layers)
	r.logger.WithFields(logrus.Fields{"path": path, "models": len(models), "layers": len(layers)}).Debug("parsed build file")
	return nil
}

type decoder struct {
	limits    slm.Limits
	r         *bytes.Reader
	size      int64
	thickness float64
}

func (d *decoder) offset() int64 { return d.size - int64(d.r.Len()) }

func (d *decoder) fail(reason string, err error) error {
	return &slm.FormatError{Format: FormatName, Offset: d.offset(), Reason: reason, Err: err}
}

func (d *decoder) read(reason string, v any) error {
	if err := binary.Read(d.r, byteOrder, v); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return d.fail(reason, err)
	}
	return nil
}

func (d *decoder) string(reason string) (string, error) {
	var n uint16
	if err := d.read(reason, &n); err != nil {
		return "", err
	}
	if int(n) > d.r.Len() {
		return "", d.fail(reason, io.ErrUnexpectedEOF)
	}
	b := make([]byte, n)
	_, _ = io.ReadFull(d.r, b)
	return string(b), nil
}

// need fails unless count records of size bytes each fit in the rest of the
// input.
func (d *decoder) need(reason string, count uint32, size int64) error {
	if int64(count)*size > int64(d.r.Len()) {
		return d.fail(fmt.Sprintf("%s: %d records do not fit", reason, count), io.ErrUnexpectedEOF)
	}
	return nil
}

func (d *decoder) decode(data []byte) (slm.Header, []*slm.Model, []*slm.Layer, error) {
	var h slm.Header
	if len(data) < binary.Size(fileHeader{})+checksumSize {
		return h, nil, nil, &slm.FormatError{Format: FormatName, Reason: "file too short"}
	}
	body := data[:len(data)-checksumSize]
	stored := byteOrder.Uint32(data[len(body):])
	if got := crc32.ChecksumIEEE(body); got != stored {
		return h, nil, nil, &slm.FormatError{Format: FormatName, Offset: int64(len(body)),
			Reason: fmt.Sprintf("checksum %08x, computed %08x", stored, got)}
	}
	d.r = bytes.NewReader(body)
	d.size = int64(len(body))

	var fh fileHeader
	if err := d.read("file header", &fh); err != nil {
		return h, nil, nil, err
	}
	if fh.Magic != Magic {
		return h, nil, nil, &slm.FormatError{Format: FormatName, Reason: "bad magic"}
	}
	if fh.Version != VersionV1 {
		return h, nil, nil, fmt.Errorf("%w: realizer version %d", slm.ErrUnsupportedVersion, fh.Version)
	}
	if fh.Flags != 0 {
		return h, nil, nil, &slm.FormatError{Format: FormatName, Offset: 6, Reason: "flags must be zero"}
	}
	if fh.ModelCount > uint32(d.limits.MaxModels) {
		return h, nil, nil, fmt.Errorf("%w: %d models", slm.ErrLimitExceeded, fh.ModelCount)
	}
	d.thickness = fh.LayerThickness
	h.ZUnit = fh.ZUnit
	h.Version = slm.Version{Major: fh.VersionMajor, Minor: fh.VersionMinor}
	var err error
	if h.FileName, err = d.string("file name"); err != nil {
		return h, nil, nil, err
	}
	if h.Creator, err = d.string("creator"); err != nil {
		return h, nil, nil, err
	}

	if err := d.need("models", fh.ModelCount, modelRecordSize); err != nil {
		return h, nil, nil, err
	}
	models := make([]*slm.Model, 0, fh.ModelCount)
	for range fh.ModelCount {
		m, err := d.model()
		if err != nil {
			return h, nil, nil, err
		}
		models = append(models, m)
	}

	var layerCount uint32
	if err := d.read("layer count", &layerCount); err != nil {
		return h, nil, nil, err
	}
	if layerCount > uint32(d.limits.MaxLayers) {
		return h, nil, nil, fmt.Errorf("%w: %d layers", slm.ErrLimitExceeded, layerCount)
	}
	if err := d.need("layers", layerCount, layerRecordSize); err != nil {
		return h, nil, nil, err
	}
	layers := make([]*slm.Layer, 0, layerCount)
	for range layerCount {
		l, err := d.layer()
		if err != nil {
			return h, nil, nil, err
		}
		layers = append(layers, l)
	}
	if d.r.Len() != 0 {
		return h, nil, nil, d.fail(fmt.Sprintf("%d trailing bytes", d.r.Len()), nil)
	}
	return h, models, layers, nil
}

func (d *decoder) model() (*slm.Model, error) {
	var rec modelRecord
	if err := d.read("model", &rec); err != nil {
		return nil, err
	}
	if rec.StyleCount > uint32(d.limits.MaxBuildStyles) {
		return nil, fmt.Errorf("%w: model %d has %d build styles", slm.ErrLimitExceeded, rec.ID, rec.StyleCount)
	}
	m := slm.NewModel(rec.ID, rec.TopLayerID)
	var err error
	if m.Name, err = d.string("model name"); err != nil {
		return nil, err
	}
	if m.BuildStyleName, err = d.string("build style name"); err != nil {
		return nil, err
	}
	if m.BuildStyleDescription, err = d.string("build style description"); err != nil {
		return nil, err
	}
	if err := d.need("build styles", rec.StyleCount, styleRecordSize); err != nil {
		return nil, err
	}
	for range rec.StyleCount {
		var sr styleRecord
		if err := d.read("build style", &sr); err != nil {
			return nil, err
		}
		mode := slm.LaserMode(sr.LaserMode)
		if !mode.Valid() {
			return nil, &slm.FormatError{Format: FormatName, Offset: d.offset() - styleRecordSize,
				Reason: fmt.Sprintf("build style %d has laser mode %d", sr.ID, sr.LaserMode)}
		}
		bs := &slm.BuildStyle{
			ID:                sr.ID,
			LaserPower:        sr.LaserPower,
			LaserSpeed:        sr.LaserSpeed,
			LaserFocus:        sr.LaserFocus,
			PointDistance:     sr.PointDistance,
			PointExposureTime: sr.PointExposureTime,
			LaserID:           sr.LaserID,
			LaserMode:         mode,
			PointDelay:        sr.PointDelay,
			JumpDelay:         sr.JumpDelay,
			JumpSpeed:         sr.JumpSpeed,
		}
		if bs.Name, err = d.string("build style name"); err != nil {
			return nil, err
		}
		if bs.Description, err = d.string("build style description"); err != nil {
			return nil, err
		}
		m.AppendBuildStyle(bs)
	}
	return m, nil
}

func (d *decoder) layer() (*slm.Layer, error) {
	var rec layerRecord
	if err := d.read("layer", &rec); err != nil {
		return nil, err
	}
	if rec.ItemCount > uint32(d.limits.MaxGeometryPerLayer) {
		return nil, fmt.Errorf("%w: layer %d has %d geometry items", slm.ErrLimitExceeded, rec.ID, rec.ItemCount)
	}
	if err := d.need("geometry", rec.ItemCount, itemRecordSize); err != nil {
		return nil, err
	}
	l := slm.NewLayer(rec.ID, uint64(rec.Z))
	items := make([]*slm.LayerGeometry, 0, rec.ItemCount)
	for i := range rec.ItemCount {
		var ir itemRecord
		if err := d.read("geometry", &ir); err != nil {
			return nil, err
		}
		if ir.Rows > uint32(d.limits.MaxCoordsPerGeometry) {
			return nil, fmt.Errorf("%w: layer %d geometry %d has %d coordinates", slm.ErrLimitExceeded, rec.ID, i, ir.Rows)
		}
		if err := d.need("coordinates", ir.Rows, 8); err != nil {
			return nil, err
		}
		coords := make([][2]float32, ir.Rows)
		if ir.Rows > 0 {
			if err := d.read("coordinates", coords); err != nil {
				return nil, err
			}
		}
		g, err := slm.NewGeometry(slm.GeometryType(ir.Type), ir.MID, ir.BID, coords)
		if err != nil {
			return nil, d.fail(fmt.Sprintf("layer %d geometry %d", rec.ID, i), err)
		}
		items = append(items, g)
	}
	l.SetGeometry(items)
	return l, nil
}
