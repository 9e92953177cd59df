package slm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"
)

// Writer serializes a Header, its Models and its Layers to one machine file.
//
// Write validates the whole document before staging any output and fails
// with ErrValidation if a reference dangles, a hatch has an odd row count or
// a coordinate is not finite. Output is committed atomically: on any error
// the destination is left as it was.
type Writer interface {
	SetFilePath(path string)
	FilePath() string
	// SetSortLayers makes Write emit layers by ascending z (then id) instead
	// of in the order given.
	SetSortLayers(sort bool)
	SortLayers() bool
	Write(header Header, models []*Model, layers []*Layer) error
}

// Function variables for testing injection.
var (
	createTemp = os.CreateTemp
	renameFile = os.Rename
	syncFile   = func(f *os.File) error { return f.Sync() }
)

// WriterBase implements the configuration and the format independent steps
// of Write. Formats embed it.
type WriterBase struct {
	path       string
	sortLayers bool
	limits     Limits
}

func (w *WriterBase) SetFilePath(path string) { w.path = path }

func (w *WriterBase) FilePath() string { return w.path }

func (w *WriterBase) SetSortLayers(sort bool) { w.sortLayers = sort }

func (w *WriterBase) SortLayers() bool { return w.sortLayers }

// SetLimits sets the limits Prepare validates against.
func (w *WriterBase) SetLimits(l Limits) { w.limits = l }

func (w *WriterBase) LayerMinMax(layers []*Layer) (uint64, uint64, error) {
	return LayerMinMax(layers)
}

func (w *WriterBase) TotalNumHatches(layers []*Layer) (int, error) {
	return TotalNumHatches(layers)
}

func (w *WriterBase) TotalNumContours(layers []*Layer) (int, error) {
	return TotalNumContours(layers)
}

func (w *WriterBase) BoundingBox(layers []*Layer) (r3.Box, error) {
	return BoundingBox(layers)
}

// Prepare hydrates and validates the document and returns its layers in
// emission order.
func (w *WriterBase) Prepare(header Header, models []*Model, layers []*Layer) ([]*Layer, error) {
	if err := Validate(header, models, layers, w.limits); err != nil {
		return nil, err
	}
	return OrderLayers(layers, w.sortLayers), nil
}

// Commit stages the bytes produced by emit in a temporary file in the
// destination directory and renames it over the destination once emit and
// all flushing succeed. On failure the temporary file is removed.
func (w *WriterBase) Commit(emit func(io.Writer) error) (err error) {
	if w.path == "" {
		return fmt.Errorf("%w: no file path set", ErrIO)
	}
	dir, base := filepath.Split(w.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := createTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return IOError("create", w.path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := emit(bw); err != nil {
		if errors.Is(err, ErrFormat) || errors.Is(err, ErrValidation) || errors.Is(err, ErrIO) {
			return err
		}
		return IOError("write", w.path, err)
	}
	if err := bw.Flush(); err != nil {
		return IOError("write", w.path, err)
	}
	if err := syncFile(tmp); err != nil {
		return IOError("sync", w.path, err)
	}
	if err := tmp.Close(); err != nil {
		return IOError("close", w.path, err)
	}
	if err := renameFile(tmp.Name(), w.path); err != nil {
		return IOError("rename", w.path, err)
	}
	return nil
}
