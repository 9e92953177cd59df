package slm

import (
	"encoding/gob"
	"fmt"
	"io"
	"maps"
)

// SnapshotVersion is the version written into every DocumentSnapshot.
const SnapshotVersion uint16 = 1

// The snapshot types list every field needed to rebuild an entity exactly.
// Capture and restore share them, so both sides always agree on the field
// set.

type HeaderSnapshot struct {
	FileName     string
	Creator      string
	VersionMajor uint16
	VersionMinor uint16
	ZUnit        uint32
	Attributes   map[string]string
}

type BuildStyleSnapshot struct {
	ID                uint32
	Name              string
	Description       string
	LaserPower        float64
	LaserSpeed        float64
	LaserFocus        float64
	PointDistance     uint32
	PointExposureTime uint32
	LaserID           uint32
	LaserMode         LaserMode
	PointDelay        uint32
	JumpDelay         uint32
	JumpSpeed         uint32
	Attributes        map[string]string
}

type ModelSnapshot struct {
	ID                    uint32
	Name                  string
	BuildStyleName        string
	BuildStyleDescription string
	TopLayerID            uint32
	BuildStyles           []BuildStyleSnapshot
	Attributes            map[string]string
}

type GeometrySnapshot struct {
	Type       GeometryType
	MID        uint32
	BID        uint32
	Coords     [][2]float32
	Attributes map[string]string
}

type LayerSnapshot struct {
	ID         uint32
	Z          uint64
	Geometry   []GeometrySnapshot
	Attributes map[string]string
}

type DocumentSnapshot struct {
	Version uint16
	Header  HeaderSnapshot
	Models  []ModelSnapshot
	Layers  []LayerSnapshot
}

func (h Header) Snapshot() HeaderSnapshot {
	return HeaderSnapshot{
		FileName:     h.FileName,
		Creator:      h.Creator,
		VersionMajor: h.Version.Major,
		VersionMinor: h.Version.Minor,
		ZUnit:        h.ZUnit,
		Attributes:   maps.Clone(h.Attributes),
	}
}

func (s HeaderSnapshot) Restore() Header {
	return Header{
		FileName:   s.FileName,
		Creator:    s.Creator,
		Version:    Version{Major: s.VersionMajor, Minor: s.VersionMinor},
		ZUnit:      s.ZUnit,
		Attributes: maps.Clone(s.Attributes),
	}
}

func (b *BuildStyle) Snapshot() BuildStyleSnapshot {
	return BuildStyleSnapshot{
		ID:                b.ID,
		Name:              b.Name,
		Description:       b.Description,
		LaserPower:        b.LaserPower,
		LaserSpeed:        b.LaserSpeed,
		LaserFocus:        b.LaserFocus,
		PointDistance:     b.PointDistance,
		PointExposureTime: b.PointExposureTime,
		LaserID:           b.LaserID,
		LaserMode:         b.LaserMode,
		PointDelay:        b.PointDelay,
		JumpDelay:         b.JumpDelay,
		JumpSpeed:         b.JumpSpeed,
		Attributes:        maps.Clone(b.Attributes),
	}
}

func (s BuildStyleSnapshot) Restore() *BuildStyle {
	return &BuildStyle{
		ID:                s.ID,
		Name:              s.Name,
		Description:       s.Description,
		LaserPower:        s.LaserPower,
		LaserSpeed:        s.LaserSpeed,
		LaserFocus:        s.LaserFocus,
		PointDistance:     s.PointDistance,
		PointExposureTime: s.PointExposureTime,
		LaserID:           s.LaserID,
		LaserMode:         s.LaserMode,
		PointDelay:        s.PointDelay,
		JumpDelay:         s.JumpDelay,
		JumpSpeed:         s.JumpSpeed,
		Attributes:        maps.Clone(s.Attributes),
	}
}

func (m *Model) Snapshot() ModelSnapshot {
	s := ModelSnapshot{
		ID:                    m.ID,
		Name:                  m.Name,
		BuildStyleName:        m.BuildStyleName,
		BuildStyleDescription: m.BuildStyleDescription,
		TopLayerID:            m.TopLayerID,
		Attributes:            maps.Clone(m.Attributes),
	}
	for _, bs := range m.buildStyles {
		s.BuildStyles = append(s.BuildStyles, bs.Snapshot())
	}
	return s
}

func (s ModelSnapshot) Restore() *Model {
	m := NewModel(s.ID, s.TopLayerID)
	m.Name = s.Name
	m.BuildStyleName = s.BuildStyleName
	m.BuildStyleDescription = s.BuildStyleDescription
	m.Attributes = maps.Clone(s.Attributes)
	for _, bs := range s.BuildStyles {
		m.AppendBuildStyle(bs.Restore())
	}
	return m
}

func (g *LayerGeometry) Snapshot() GeometrySnapshot {
	coords := make([][2]float32, len(g.Coords))
	copy(coords, g.Coords)
	return GeometrySnapshot{Type: g.typ, MID: g.MID, BID: g.BID, Coords: coords, Attributes: maps.Clone(g.Attributes)}
}

func (s GeometrySnapshot) Restore() (*LayerGeometry, error) {
	coords := make([][2]float32, len(s.Coords))
	copy(coords, s.Coords)
	g, err := NewGeometry(s.Type, s.MID, s.BID, coords)
	if err != nil {
		return nil, err
	}
	g.Attributes = maps.Clone(s.Attributes)
	return g, nil
}

// Snapshot captures the layer, hydrating it first if it is deferred.
func (l *Layer) Snapshot() (LayerSnapshot, error) {
	if err := l.Load(); err != nil {
		return LayerSnapshot{}, err
	}
	s := LayerSnapshot{ID: l.ID, Z: l.Z, Attributes: maps.Clone(l.Attributes)}
	for _, g := range l.geometry {
		s.Geometry = append(s.Geometry, g.Snapshot())
	}
	return s, nil
}

func (s LayerSnapshot) Restore() (*Layer, error) {
	l := NewLayer(s.ID, s.Z)
	l.Attributes = maps.Clone(s.Attributes)
	for i, gs := range s.Geometry {
		g, err := gs.Restore()
		if err != nil {
			return nil, fmt.Errorf("layer %d geometry %d: %w", s.ID, i, err)
		}
		l.AppendGeometry(g)
	}
	return l, nil
}

// TakeSnapshot captures a whole document. Deferred layers are hydrated.
func TakeSnapshot(header Header, models []*Model, layers []*Layer) (*DocumentSnapshot, error) {
	s := &DocumentSnapshot{Version: SnapshotVersion, Header: header.Snapshot()}
	for _, m := range models {
		s.Models = append(s.Models, m.Snapshot())
	}
	for _, l := range layers {
		ls, err := l.Snapshot()
		if err != nil {
			return nil, err
		}
		s.Layers = append(s.Layers, ls)
	}
	return s, nil
}

// Restore rebuilds the document held by s.
func (s *DocumentSnapshot) Restore() (Header, []*Model, []*Layer, error) {
	if s.Version != SnapshotVersion {
		return Header{}, nil, nil, fmt.Errorf("%w: snapshot version %d", ErrUnsupportedVersion, s.Version)
	}
	models := make([]*Model, 0, len(s.Models))
	for _, ms := range s.Models {
		models = append(models, ms.Restore())
	}
	layers := make([]*Layer, 0, len(s.Layers))
	for _, ls := range s.Layers {
		l, err := ls.Restore()
		if err != nil {
			return Header{}, nil, nil, err
		}
		layers = append(layers, l)
	}
	return s.Header.Restore(), models, layers, nil
}

// EncodeSnapshot writes s to w with encoding/gob.
func EncodeSnapshot(w io.Writer, s *DocumentSnapshot) error {
	if s == nil {
		return fmt.Errorf("%w: snapshot is nil", ErrValidation)
	}
	return gob.NewEncoder(w).Encode(s)
}

// DecodeSnapshot reads a snapshot written by EncodeSnapshot.
func DecodeSnapshot(r io.Reader) (*DocumentSnapshot, error) {
	var s DocumentSnapshot
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: snapshot: %w", ErrFormat, err)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: snapshot version %d", ErrUnsupportedVersion, s.Version)
	}
	return &s, nil
}
