package slm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIO                 = errors.New("slm: i/o failure")
	ErrFormat             = errors.New("slm: invalid format")
	ErrValidation         = errors.New("slm: validation failed")
	ErrNotFound           = errors.New("slm: not found")
	ErrParseState         = errors.New("slm: reader is not in a parsable state")
	ErrUnknownFormat      = errors.New("slm: unknown format")
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported version", ErrFormat)
	ErrLimitExceeded      = fmt.Errorf("%w: limit exceeded", ErrFormat)
	ErrEmptyLayerSet      = fmt.Errorf("%w: layer set is empty", ErrValidation)
	ErrNoGeometry         = fmt.Errorf("%w: no coordinates in layer set", ErrValidation)
)

// ValidationError describes a single integrity violation found before a
// document is written. Zero-valued location fields are omitted from the
// message unless they are known to be set.
type ValidationError struct {
	LayerID      uint32
	HasLayer     bool
	Index        int // geometry index within the layer, -1 if not applicable
	ModelID      uint32
	BuildStyleID uint32
	Field        string
	Reason       string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(ErrValidation.Error())
	if e.HasLayer {
		fmt.Fprintf(&b, ": layer %d", e.LayerID)
		if e.Index >= 0 {
			fmt.Fprintf(&b, " geometry %d", e.Index)
		}
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s", e.Field)
	}
	fmt.Fprintf(&b, ": %s", e.Reason)
	return b.String()
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// FormatError reports a structural problem in a source or an unsupported
// construct in a document being written. Offset is the byte offset of the
// offending structure, or -1 when it has none.
type FormatError struct {
	Format string
	Offset int64
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString(ErrFormat.Error())
	if e.Format != "" {
		fmt.Fprintf(&b, ": %s", e.Format)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, ": offset %d", e.Offset)
	}
	fmt.Fprintf(&b, ": %s", e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *FormatError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFormat, e.Err}
	}
	return []error{ErrFormat}
}

// NotFoundError is returned by id lookups.
type NotFoundError struct {
	Kind string
	ID   uint32
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: %s %d", ErrNotFound, e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IOError wraps an operating system failure while opening, reading or
// writing path.
func IOError(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrIO, op, path, err)
}
