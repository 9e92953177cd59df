package mtt

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/logicossoftware/go-slm"
	"github.com/sirupsen/logrus"
)

// Function variables for testing injection.
var (
	openFile     = func(path string) (file, error) { return os.Open(path) }
	decodeModels = func(b []byte) ([]slm.ModelSnapshot, error) {
		var blk modelsBlock
		err := gob.NewDecoder(bytes.NewReader(b)).Decode(&blk)
		return blk.Models, err
	}
)

// file is the part of *os.File the reader needs.
type file interface {
	io.ReaderAt
	io.Closer
	Stat() (os.FileInfo, error)
}

// Reader reads MTT files.
//
// With lazy loading on (the default) Parse reads only the header, the
// models and the layer index; each layer's geometry is read from its
// indexed offset the first time it is accessed.
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

// Parse reads the file set by SetFilePath.
//
// The decoding process:
//  1. Reads and validates the 40-byte fixed header
//  2. Reads the metadata JSON
//  3. Reads and decompresses the models section
//  4. Reads the trailer and the layer index it points at
//  5. Creates one layer per index entry, deferred or loaded
func (r *Reader) Parse() error {
	if err := r.BeginParse(); err != nil {
		return err
	}
	path := r.FilePath()
	f, err := openFile(path)
	if err != nil {
		return r.FailParse(slm.IOError("open", path, err))
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return r.FailParse(slm.IOError("stat", path, err))
	}

	doc, err := r.decode(f, fi.Size())
	if err != nil {
		r.logger.WithError(err).WithField("path", path).Warn("parse failed")
		return r.FailParse(err)
	}
	r.thickness = doc.meta.LayerThickness
	r.CompleteParse(doc.header, doc.models, doc.layers)
	r.logger.WithFields(logrus.Fields{
		"path":   path,
		"models": len(doc.models),
		"layers": len(doc.layers),
		"lazy":   r.cfg.LazyLoading,
	}).Debug("parsed build file")
	return nil
}

type document struct {
	meta   metadata
	header slm.Header
	models []*slm.Model
	layers []*slm.Layer
}

func (r *Reader) decode(f io.ReaderAt, size int64) (*document, error) {
	limits := r.cfg.Limits
	if size < int64(fixedHeaderSizeV1)+trailerSize {
		return nil, formatErr(0, "file too short", nil)
	}

	h, err := readFixedHeader(io.NewSectionReader(f, 0, int64(fixedHeaderSizeV1)))
	if err != nil {
		return nil, formatErr(0, "fixed header", err)
	}
	if h.Magic != Magic {
		return nil, formatErr(0, "bad magic", nil)
	}
	if h.FixedHdrSize != fixedHeaderSizeV1 {
		return nil, formatErr(12, fmt.Sprintf("fixed header size %d", h.FixedHdrSize), nil)
	}
	if h.Version != VersionV1 {
		return nil, fmt.Errorf("%w: mtt version %d", slm.ErrUnsupportedVersion, h.Version)
	}
	if h.Reserved0 != 0 || h.Reserved1 != 0 {
		return nil, formatErr(24, "reserved must be zero", nil)
	}
	if h.HeaderFlags&HeaderFlagMetadataJSON == 0 {
		return nil, formatErr(10, "METADATA_JSON flag not set", nil)
	}
	if uint64(h.MetadataLength) > limits.MaxSectionLen {
		return nil, fmt.Errorf("%w: metadata length %d", slm.ErrLimitExceeded, h.MetadataLength)
	}
	if uint64(h.LayerCount) > uint64(limits.MaxLayers) {
		return nil, fmt.Errorf("%w: %d layers", slm.ErrLimitExceeded, h.LayerCount)
	}

	doc := &document{}
	off := int64(fixedHeaderSizeV1)
	mb, err := readAt(f, off, int64(h.MetadataLength), size)
	if err != nil {
		return nil, formatErr(off, "metadata", err)
	}
	if err := json.Unmarshal(mb, &doc.meta); err != nil {
		return nil, formatErr(off, "metadata JSON", err)
	}
	doc.header = slm.Header{
		FileName:   doc.meta.FileName,
		Creator:    doc.meta.Creator,
		Version:    slm.Version{Major: doc.meta.VersionMajor, Minor: doc.meta.VersionMinor},
		ZUnit:      doc.meta.ZUnit,
		Attributes: doc.meta.Attributes,
	}
	off += int64(h.MetadataLength)

	codec := newBlockCodec(CompNone)
	defer codec.Close()

	raw, next, err := readSection(f, codec, off, size, SectionModels, limits)
	if err != nil {
		return nil, err
	}
	snaps, err := decodeModels(raw)
	if err != nil {
		return nil, formatErr(off, "models section", err)
	}
	if len(snaps) > limits.MaxModels {
		return nil, fmt.Errorf("%w: %d models", slm.ErrLimitExceeded, len(snaps))
	}
	for _, s := range snaps {
		if len(s.BuildStyles) > limits.MaxBuildStyles {
			return nil, fmt.Errorf("%w: model %d has %d build styles", slm.ErrLimitExceeded, s.ID, len(s.BuildStyles))
		}
		for _, bs := range s.BuildStyles {
			if !bs.LaserMode.Valid() {
				return nil, formatErr(off, fmt.Sprintf("model %d build style %d has laser mode %d", s.ID, bs.ID, bs.LaserMode), nil)
			}
		}
		doc.models = append(doc.models, s.Restore())
	}
	layersStart := next

	trailerOff := size - trailerSize
	tb, err := readAt(f, trailerOff, trailerSize, size)
	if err != nil {
		return nil, formatErr(trailerOff, "trailer", err)
	}
	t, err := readTrailer(bytes.NewReader(tb))
	if err != nil {
		return nil, formatErr(trailerOff, "trailer", err)
	}
	if t.Magic != TrailerMagic {
		return nil, formatErr(trailerOff, "bad trailer magic", nil)
	}
	indexOff := int64(t.IndexOffset)
	if t.IndexOffset > uint64(trailerOff) || indexOff < layersStart {
		return nil, formatErr(trailerOff, fmt.Sprintf("index offset %d out of range", t.IndexOffset), nil)
	}
	ib, end, err := readSection(f, codec, indexOff, trailerOff, SectionLayerIndex, limits)
	if err != nil {
		return nil, err
	}
	if end != trailerOff {
		return nil, formatErr(end, "bytes between layer index and trailer", nil)
	}
	index, err := decodeIndex(ib, limits.MaxLayers)
	if err != nil {
		return nil, formatErr(indexOff, "layer index", err)
	}
	if uint32(len(index)) != h.LayerCount {
		return nil, formatErr(indexOff, fmt.Sprintf("index holds %d layers, header says %d", len(index), h.LayerCount), nil)
	}

	for _, e := range index {
		pos := int64(e.Offset)
		if e.Offset > uint64(indexOff) || pos < layersStart {
			return nil, formatErr(indexOff, fmt.Sprintf("layer %d offset %d out of range", e.LayerID, e.Offset), nil)
		}
		if r.cfg.LazyLoading {
			doc.layers = append(doc.layers, slm.NewDeferredLayer(e.LayerID, e.Z, pos, r.loader(e, indexOff)))
			continue
		}
		items, err := loadLayer(f, codec, e, indexOff, limits)
		if err != nil {
			return nil, err
		}
		l := slm.NewLayer(e.LayerID, e.Z)
		l.SetGeometry(items)
		doc.layers = append(doc.layers, l)
	}
	return doc, nil
}

// loader returns the LoadFunc of a deferred layer. Every call reopens the
// file and closes it before returning.
func (r *Reader) loader(e indexEntry, end int64) slm.LoadFunc {
	path := r.FilePath()
	limits := r.cfg.Limits
	logger := r.logger
	return func(pos int64) ([]*slm.LayerGeometry, error) {
		f, err := openFile(path)
		if err != nil {
			return nil, slm.IOError("open", path, err)
		}
		defer f.Close()
		codec := newBlockCodec(CompNone)
		defer codec.Close()
		e.Offset = uint64(pos)
		items, err := loadLayer(f, codec, e, end, limits)
		if err != nil {
			return nil, err
		}
		logger.WithFields(logrus.Fields{"layer_id": e.LayerID, "offset": pos, "items": len(items)}).Debug("hydrated layer")
		return items, nil
	}
}

func loadLayer(f io.ReaderAt, codec *blockCodec, e indexEntry, end int64, limits slm.Limits) ([]*slm.LayerGeometry, error) {
	off := int64(e.Offset)
	raw, _, err := readSection(f, codec, off, end, SectionLayer, limits)
	if err != nil {
		return nil, err
	}
	items, err := decodeLayer(raw, e, limits)
	if err != nil {
		return nil, formatErr(off, fmt.Sprintf("layer %d", e.LayerID), err)
	}
	return items, nil
}

// readSection reads the section starting at off, which must end at or
// before end, and returns its unpacked payload and the offset just past it.
func readSection(f io.ReaderAt, codec *blockCodec, off, end int64, want SectionType, limits slm.Limits) ([]byte, int64, error) {
	hb, err := readAt(f, off, sectionHeaderSize, end)
	if err != nil {
		return nil, 0, formatErr(off, "section header", err)
	}
	sh, err := readSectionHeader(bytes.NewReader(hb))
	if err != nil {
		return nil, 0, formatErr(off, "section header", err)
	}
	if err := validateSectionHeader(sh, want); err != nil {
		return nil, 0, formatErr(off, "section header", err)
	}
	if sh.PayloadLen > limits.MaxSectionLen {
		return nil, 0, fmt.Errorf("%w: section at offset %d has payload length %d", slm.ErrLimitExceeded, off, sh.PayloadLen)
	}
	payloadOff := off + sectionHeaderSize
	payload, err := readAt(f, payloadOff, int64(sh.PayloadLen), end)
	if err != nil {
		return nil, 0, formatErr(payloadOff, "section payload", err)
	}
	raw, err := codec.unpack(sh, payload, limits.MaxUncompressed)
	if err != nil {
		return nil, 0, formatErr(payloadOff, "section payload", err)
	}
	return raw, payloadOff + int64(sh.PayloadLen), nil
}

// readAt reads n bytes at off, refusing to read past end.
func readAt(f io.ReaderAt, off, n, end int64) ([]byte, error) {
	if n < 0 || off < 0 || off > end || n > end-off {
		return nil, io.ErrUnexpectedEOF
	}
	buf := make([]byte, n)
	got, err := f.ReadAt(buf, off)
	if int64(got) == n {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, err
}

func formatErr(off int64, reason string, err error) error {
	return &slm.FormatError{Format: FormatName, Offset: off, Reason: reason, Err: err}
}
