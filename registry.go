package slm

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Format is a registered Reader/Writer pair.
type Format struct {
	Name        string
	Description string
	// Extensions are lower-case file suffixes including the dot, the first
	// one being the default for new files.
	Extensions []string
	NewReader  func(opts ...Option) (Reader, error)
	NewWriter  func(opts ...Option) (Writer, error)
}

var (
	formatsMu sync.RWMutex
	formats   = map[string]Format{}
)

// RegisterFormat makes a format available by name. Format packages call it
// from init. It panics if the name is empty, already taken, or either
// constructor is missing.
func RegisterFormat(f Format) {
	formatsMu.Lock()
	defer formatsMu.Unlock()
	if f.Name == "" {
		panic("slm: RegisterFormat with empty name")
	}
	if f.NewReader == nil || f.NewWriter == nil {
		panic("slm: RegisterFormat " + f.Name + " without reader or writer")
	}
	if _, dup := formats[f.Name]; dup {
		panic("slm: RegisterFormat called twice for " + f.Name)
	}
	formats[f.Name] = f
}

func LookupFormat(name string) (Format, error) {
	formatsMu.RLock()
	defer formatsMu.RUnlock()
	f, ok := formats[name]
	if !ok {
		return Format{}, fmt.Errorf("%w: %q (valid formats: %s)", ErrUnknownFormat, name, strings.Join(formatNamesLocked(), ", "))
	}
	return f, nil
}

// FormatForPath picks a format by the extension of path.
func FormatForPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	formatsMu.RLock()
	defer formatsMu.RUnlock()
	for _, name := range formatNamesLocked() {
		if slices.Contains(formats[name].Extensions, ext) {
			return formats[name], nil
		}
	}
	return Format{}, fmt.Errorf("%w: no format for extension %q", ErrUnknownFormat, ext)
}

// Formats returns every registered format sorted by name.
func Formats() []Format {
	formatsMu.RLock()
	defer formatsMu.RUnlock()
	names := formatNamesLocked()
	out := make([]Format, len(names))
	for i, n := range names {
		out[i] = formats[n]
	}
	return out
}

func formatNamesLocked() []string {
	names := make([]string, 0, len(formats))
	for n := range formats {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
