package slm

import (
	"fmt"
	"os"
)

// ParseState tracks a Reader through Unparsed -> Parsing -> Parsed | Failed.
type ParseState uint8

const (
	StateUnparsed ParseState = iota
	StateParsing
	StateParsed
	StateFailed
)

func (s ParseState) String() string {
	switch s {
	case StateUnparsed:
		return "unparsed"
	case StateParsing:
		return "parsing"
	case StateParsed:
		return "parsed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Reader parses one machine file into a Header, its Models and its Layers.
//
// Parse returns nil on success. An unreadable source fails with ErrIO and a
// malformed one with ErrFormat; in both cases Models and Layers stay nil.
// Parsing twice requires an explicit reset by the implementation.
type Reader interface {
	SetFilePath(path string)
	FilePath() string
	Parse() error
	State() ParseState
	FileSize() (int64, error)
	// LayerThickness is the nominal layer thickness in mm.
	LayerThickness() float64
	Header() Header
	ModelByID(mid uint32) (*Model, error)
	Models() []*Model
	Layers() []*Layer
}

// ReaderBase implements the bookkeeping every Reader shares. Formats embed
// it and wrap their decoding between BeginParse and CompleteParse or
// FailParse.
type ReaderBase struct {
	path   string
	state  ParseState
	header Header
	models []*Model
	layers []*Layer
}

// SetFilePath sets the source path. No I/O happens until Parse.
func (r *ReaderBase) SetFilePath(path string) { r.path = path }

func (r *ReaderBase) FilePath() string { return r.path }

func (r *ReaderBase) State() ParseState { return r.state }

// FileSize returns the size in bytes of the source file.
func (r *ReaderBase) FileSize() (int64, error) {
	fi, err := os.Stat(r.path)
	if err != nil {
		return 0, IOError("stat", r.path, err)
	}
	return fi.Size(), nil
}

func (r *ReaderBase) Header() Header { return r.header }

// Models returns the parsed models in file order, or nil before a
// successful parse.
func (r *ReaderBase) Models() []*Model {
	if r.state != StateParsed {
		return nil
	}
	out := make([]*Model, len(r.models))
	copy(out, r.models)
	return out
}

// Layers returns the parsed layers in file order, or nil before a
// successful parse.
func (r *ReaderBase) Layers() []*Layer {
	if r.state != StateParsed {
		return nil
	}
	out := make([]*Layer, len(r.layers))
	copy(out, r.layers)
	return out
}

func (r *ReaderBase) ModelByID(mid uint32) (*Model, error) {
	if r.state == StateParsed {
		for _, m := range r.models {
			if m.ID == mid {
				return m, nil
			}
		}
	}
	return nil, &NotFoundError{Kind: "model", ID: mid}
}

// BeginParse moves an unparsed reader to Parsing.
func (r *ReaderBase) BeginParse() error {
	if r.state != StateUnparsed {
		return fmt.Errorf("%w: state is %s", ErrParseState, r.state)
	}
	if r.path == "" {
		r.state = StateFailed
		return fmt.Errorf("%w: no file path set", ErrIO)
	}
	r.state = StateParsing
	return nil
}

// CompleteParse publishes a fully decoded document.
func (r *ReaderBase) CompleteParse(header Header, models []*Model, layers []*Layer) {
	r.header = header
	r.models = models
	r.layers = layers
	r.state = StateParsed
}

// FailParse discards any document and records the failure. It returns err
// for convenience.
func (r *ReaderBase) FailParse(err error) error {
	r.header = Header{}
	r.models = nil
	r.layers = nil
	r.state = StateFailed
	return err
}

// Reset returns the reader to Unparsed, dropping any document, so that
// Parse may run again.
func (r *ReaderBase) Reset() {
	r.header = Header{}
	r.models = nil
	r.layers = nil
	r.state = StateUnparsed
}
