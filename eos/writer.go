package eos

import (
	"fmt"
	"io"
	"strconv"

	"github.com/logicossoftware/go-slm"
	"github.com/sirupsen/logrus"
)

// Writer writes ASCII CLI files. Coordinates are written in mm
// ($$UNITS/1) with the shortest text that reads back to the same float32.
// Build style ids are validated like every other writer but are not part of
// the output.
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
	if header.Version.Minor > 99 {
		return fmt.Errorf("%w: version minor %d does not fit $$VERSION", slm.ErrFormat, header.Version.Minor)
	}
	zUnit := float64(header.EffectiveZUnit())

	err = w.Commit(func(out io.Writer) error {
		lw := &lineWriter{w: out}
		lw.line("$$HEADERSTART")
		lw.line("$$ASCII")
		lw.line("$$UNITS/1")
		lw.line("$$VERSION/" + strconv.Itoa(int(header.Version.Major)*100+int(header.Version.Minor)))
		lw.line("$$LAYERS/" + strconv.Itoa(len(ordered)))
		for _, m := range models {
			lw.line("$$LABEL/" + strconv.FormatUint(uint64(m.ID), 10) + "," + strconv.Quote(m.Name))
		}
		lw.line("$$HEADEREND")
		lw.line("$$GEOMETRYSTART")
		for _, l := range ordered {
			items, err := l.Geometry(slm.ScanDefault)
			if err != nil {
				return err
			}
			lw.line("$$LAYER/" + strconv.FormatFloat(float64(l.Z)/zUnit, 'g', -1, 64))
			for _, g := range items {
				lw.item(g)
			}
		}
		lw.line("$$GEOMETRYEND")
		return lw.err
	})
	if err != nil {
		w.logger.WithError(err).WithField("path", w.FilePath()).Error("write failed")
		return err
	}
	w.logger.WithFields(logrus.Fields{"path": w.FilePath(), "layers": len(ordered), "models": len(models)}).Info("wrote build file")
	return nil
}

// lineWriter keeps the first write error and skips everything after it.
type lineWriter struct {
	w   io.Writer
	buf []byte
	err error
}

func (lw *lineWriter) line(s string) {
	if lw.err != nil {
		return
	}
	_, lw.err = io.WriteString(lw.w, s+"\n")
}

func (lw *lineWriter) item(g *slm.LayerGeometry) {
	if lw.err != nil {
		return
	}
	b := lw.buf[:0]
	switch g.Type() {
	case slm.GeometryContour:
		b = append(b, "$$POLYLINE/"...)
		b = strconv.AppendUint(b, uint64(g.MID), 10)
		b = append(b, ",0,"...)
		b = strconv.AppendInt(b, int64(len(g.Coords)), 10)
	case slm.GeometryHatch:
		b = append(b, "$$HATCHES/"...)
		b = strconv.AppendUint(b, uint64(g.MID), 10)
		b = append(b, ',')
		b = strconv.AppendInt(b, int64(g.NumHatches()), 10)
	case slm.GeometryPoints:
		b = append(b, "$$POINTS/"...)
		b = strconv.AppendUint(b, uint64(g.MID), 10)
		b = append(b, ',')
		b = strconv.AppendInt(b, int64(len(g.Coords)), 10)
	}
	for _, c := range g.Coords {
		b = append(b, ',')
		b = strconv.AppendFloat(b, float64(c[0]), 'g', -1, 32)
		b = append(b, ',')
		b = strconv.AppendFloat(b, float64(c[1]), 'g', -1, 32)
	}
	b = append(b, '\n')
	_, lw.err = lw.w.Write(b)
	lw.buf = b
}
