package realizer

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/logicossoftware/go-slm"
	"github.com/sirupsen/logrus"
)

// Writer writes realizer files.
//
// Build styles with a zero laser speed and a non-zero point exposure time
// are written with the speed derived by DeriveSpeed. The styles passed to
// Write are not modified.
type Writer struct {
	slm.WriterBase
	logger logrus.FieldLogger
}

func NewWriter(opts ...slm.Option) (*Writer, error) {
	cfg := slm.NewConfig(opts...)
	w := &Writer{logger: cfg.Logger.WithField("format", FormatName)}
	w.SetSortLayers(cfg.SortLayers)
	w.SetLimits(cfg.Limits)
	return w, nil
}

func (w *Writer) Write(header slm.Header, models []*slm.Model, layers []*slm.Layer) error {
	ordered, err := w.Prepare(header, models, layers)
	if err != nil {
		w.logger.WithError(err).WithField("path", w.FilePath()).Warn("document rejected")
		return err
	}
	for _, l := range ordered {
		if l.Z > math.MaxUint32 {
			return fmt.Errorf("%w: layer %d z %d does not fit in 32 bits", slm.ErrFormat, l.ID, l.Z)
		}
	}
	zUnit := header.EffectiveZUnit()

	derived := 0
	err = w.Commit(func(out io.Writer) error {
		sum := crc32.NewIEEE()
		mw := io.MultiWriter(out, sum)
		fh := fileHeader{
			Magic:          Magic,
			Version:        VersionV1,
			ZUnit:          zUnit,
			LayerThickness: slm.NominalLayerThickness(ordered, zUnit),
			VersionMajor:   header.Version.Major,
			VersionMinor:   header.Version.Minor,
			ModelCount:     uint32(len(models)),
		}
		if err := binary.Write(mw, byteOrder, fh); err != nil {
			return err
		}
		if err := writeStrings(mw, header.FileName, header.Creator); err != nil {
			return err
		}
		for _, m := range models {
			n, err := writeModel(mw, m)
			if err != nil {
				return err
			}
			derived += n
		}
		if err := binary.Write(mw, byteOrder, uint32(len(ordered))); err != nil {
			return err
		}
		for _, l := range ordered {
			if err := writeLayer(mw, l); err != nil {
				return err
			}
		}
		return binary.Write(out, byteOrder, sum.Sum32())
	})
	if err != nil {
		w.logger.WithError(err).WithField("path", w.FilePath()).Error("write failed")
		return err
	}
	w.logger.WithFields(logrus.Fields{
		"path":           w.FilePath(),
		"layers":         len(ordered),
		"models":         len(models),
		"derived_speeds": derived,
	}).Info("wrote build file")
	return nil
}

// writeModel writes m and its styles and reports how many speeds it
// derived.
func writeModel(w io.Writer, m *slm.Model) (int, error) {
	styles := m.BuildStyles()
	rec := modelRecord{ID: m.ID, TopLayerID: m.TopLayerID, StyleCount: uint32(len(styles))}
	if err := binary.Write(w, byteOrder, rec); err != nil {
		return 0, err
	}
	if err := writeStrings(w, m.Name, m.BuildStyleName, m.BuildStyleDescription); err != nil {
		return 0, err
	}
	derived := 0
	for _, bs := range styles {
		speed := bs.LaserSpeed
		if speed == 0 && bs.PointExposureTime > 0 {
			speed = DeriveSpeed(bs.PointDistance, bs.PointExposureTime)
			derived++
		}
		sr := styleRecord{
			ID:                bs.ID,
			LaserPower:        bs.LaserPower,
			LaserSpeed:        speed,
			LaserFocus:        bs.LaserFocus,
			PointDistance:     bs.PointDistance,
			PointExposureTime: bs.PointExposureTime,
			LaserID:           bs.LaserID,
			LaserMode:         uint8(bs.LaserMode),
			PointDelay:        bs.PointDelay,
			JumpDelay:         bs.JumpDelay,
			JumpSpeed:         bs.JumpSpeed,
		}
		if err := binary.Write(w, byteOrder, sr); err != nil {
			return 0, err
		}
		if err := writeStrings(w, bs.Name, bs.Description); err != nil {
			return 0, err
		}
	}
	return derived, nil
}

func writeLayer(w io.Writer, l *slm.Layer) error {
	items, err := l.Geometry(slm.ScanDefault)
	if err != nil {
		return err
	}
	rec := layerRecord{ID: l.ID, Z: uint32(l.Z), ItemCount: uint32(len(items))}
	if err := binary.Write(w, byteOrder, rec); err != nil {
		return err
	}
	for _, g := range items {
		ir := itemRecord{Type: uint8(g.Type()), MID: g.MID, BID: g.BID, Rows: uint32(len(g.Coords))}
		if err := binary.Write(w, byteOrder, ir); err != nil {
			return err
		}
		if len(g.Coords) == 0 {
			continue
		}
		if err := binary.Write(w, byteOrder, g.Coords); err != nil {
			return err
		}
	}
	return nil
}
