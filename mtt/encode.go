package mtt

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/logicossoftware/go-slm"
	"github.com/sirupsen/logrus"
)

// Function variables for testing injection.
var (
	encodeModels = func(models []slm.ModelSnapshot) ([]byte, error) {
		var buf bytes.Buffer
		err := gob.NewEncoder(&buf).Encode(modelsBlock{Models: models})
		return buf.Bytes(), err
	}
)

// modelsBlock is the gob payload of the models section.
type modelsBlock struct {
	Models []slm.ModelSnapshot
}

// Writer writes MTT files.
type Writer struct {
	slm.WriterBase
	comp   Compression
	logger logrus.FieldLogger
}

// NewWriter returns a Writer configured by opts. The compression name is
// checked here, so an unknown name fails before any document is seen.
func NewWriter(opts ...slm.Option) (*Writer, error) {
	cfg := slm.NewConfig(opts...)
	comp, err := ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	w := &Writer{comp: comp, logger: cfg.Logger.WithField("format", FormatName)}
	w.SetSortLayers(cfg.SortLayers)
	w.SetLimits(cfg.Limits)
	return w, nil
}

// Write validates the document and writes it to the configured path.
//
// The file holds, in order: the fixed header, the metadata JSON, the models
// section (gob encoded model snapshots), one section per layer, the layer
// index section and the trailer pointing at the index.
func (w *Writer) Write(header slm.Header, models []*slm.Model, layers []*slm.Layer) error {
	ordered, err := w.Prepare(header, models, layers)
	if err != nil {
		w.logger.WithError(err).WithField("path", w.FilePath()).Warn("document rejected")
		return err
	}
	meta, err := buildMetadata(header, ordered)
	if err != nil {
		return err
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("%w: metadata: %w", slm.ErrFormat, err)
	}
	if uint64(len(metaBytes)) > math.MaxUint32 {
		return fmt.Errorf("%w: metadata too large", slm.ErrLimitExceeded)
	}
	snaps := make([]slm.ModelSnapshot, len(models))
	for i, m := range models {
		snaps[i] = m.Snapshot()
	}
	modelBytes, err := encodeModels(snaps)
	if err != nil {
		return fmt.Errorf("%w: models: %w", slm.ErrFormat, err)
	}

	codec := newBlockCodec(w.comp)
	defer codec.Close()

	err = w.Commit(func(out io.Writer) error {
		cw := &countingWriter{w: out}
		h := fixedHeaderV1{
			Magic:          Magic,
			Version:        VersionV1,
			HeaderFlags:    HeaderFlagMetadataJSON,
			FixedHdrSize:   fixedHeaderSizeV1,
			MetadataLength: uint32(len(metaBytes)),
			LayerCount:     uint32(len(ordered)),
		}
		if err := writeFixedHeader(cw, h); err != nil {
			return err
		}
		if _, err := cw.Write(metaBytes); err != nil {
			return err
		}
		if err := writeSection(cw, codec, SectionModels, modelBytes); err != nil {
			return err
		}
		index := make([]indexEntry, 0, len(ordered))
		for _, l := range ordered {
			items, err := l.Geometry(slm.ScanDefault)
			if err != nil {
				return err
			}
			index = append(index, indexEntry{LayerID: l.ID, Z: l.Z, Offset: uint64(cw.n)})
			if err := writeSection(cw, codec, SectionLayer, encodeLayer(l, items)); err != nil {
				return err
			}
		}
		indexOffset := uint64(cw.n)
		if err := writeRawSection(cw, SectionLayerIndex, encodeIndex(index)); err != nil {
			return err
		}
		return writeTrailer(cw, trailerV1{IndexOffset: indexOffset, Magic: TrailerMagic})
	})
	if err != nil {
		w.logger.WithError(err).WithField("path", w.FilePath()).Error("write failed")
		return err
	}
	w.logger.WithFields(logrus.Fields{
		"path":        w.FilePath(),
		"layers":      len(ordered),
		"models":      len(models),
		"hatches":     meta.Summary.Hatches,
		"contours":    meta.Summary.Contours,
		"compression": w.comp.String(),
	}).Info("wrote build file")
	return nil
}

func buildMetadata(header slm.Header, layers []*slm.Layer) (*metadata, error) {
	minZ, maxZ, err := slm.LayerMinMax(layers)
	if err != nil {
		return nil, err
	}
	hatches, err := slm.TotalNumHatches(layers)
	if err != nil {
		return nil, err
	}
	contours, err := slm.TotalNumContours(layers)
	if err != nil {
		return nil, err
	}
	s := &summary{MinZ: minZ, MaxZ: maxZ, Hatches: hatches, Contours: contours}
	box, err := slm.BoundingBox(layers)
	switch {
	case err == nil:
		s.BoundingBox = [6]float64{box.Min.X, box.Min.Y, box.Min.Z, box.Max.X, box.Max.Y, box.Max.Z}
	case !errors.Is(err, slm.ErrNoGeometry):
		return nil, err
	}
	zUnit := header.EffectiveZUnit()
	return &metadata{
		FileName:       header.FileName,
		Creator:        header.Creator,
		VersionMajor:   header.Version.Major,
		VersionMinor:   header.Version.Minor,
		ZUnit:          zUnit,
		LayerThickness: slm.NominalLayerThickness(layers, zUnit),
		Attributes:     header.Attributes,
		Summary:        s,
	}, nil
}

func writeSection(w io.Writer, codec *blockCodec, typ SectionType, raw []byte) error {
	flags, payload, err := codec.pack(raw)
	if err != nil {
		return err
	}
	sh := sectionHeaderV1{SectionType: uint16(typ), SectionFlags: flags, PayloadLen: uint64(len(payload))}
	if err := writeSectionHeader(w, sh); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// writeRawSection writes an uncompressed section. The layer index is always
// stored this way so it can be read without a codec.
func writeRawSection(w io.Writer, typ SectionType, raw []byte) error {
	sh := sectionHeaderV1{SectionType: uint16(typ), SectionFlags: uint16(CompNone), PayloadLen: uint64(len(raw))}
	if err := writeSectionHeader(w, sh); err != nil {
		return err
	}
	_, err := w.Write(raw)
	return err
}

// countingWriter tracks the file offset of the next byte.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
