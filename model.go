package slm

// Model is one part of a build. It owns the build styles its geometry
// refers to.
type Model struct {
	ID                    uint32
	Name                  string
	BuildStyleName        string
	BuildStyleDescription string
	// TopLayerID is the id of the last layer holding geometry of this model.
	TopLayerID  uint32
	Attributes  map[string]string
	buildStyles []*BuildStyle
}

func NewModel(mid, topLayerID uint32) *Model {
	return &Model{ID: mid, TopLayerID: topLayerID}
}

// BuildStyles returns the owned styles in order. The slice is a copy; the
// styles are not.
func (m *Model) BuildStyles() []*BuildStyle {
	out := make([]*BuildStyle, len(m.buildStyles))
	copy(out, m.buildStyles)
	return out
}

// SetBuildStyles replaces the style sequence. Ids are kept as given; the
// caller is responsible for their uniqueness.
func (m *Model) SetBuildStyles(styles []*BuildStyle) {
	m.buildStyles = append([]*BuildStyle(nil), styles...)
}

func (m *Model) AppendBuildStyle(bs *BuildStyle) {
	m.buildStyles = append(m.buildStyles, bs)
}

// BuildStyleByID returns the first style with id bid. Nil entries are
// skipped.
func (m *Model) BuildStyleByID(bid uint32) (*BuildStyle, error) {
	for _, bs := range m.buildStyles {
		if bs != nil && bs.ID == bid {
			return bs, nil
		}
	}
	return nil, &NotFoundError{Kind: "build style", ID: bid}
}

// Len returns the number of owned build styles.
func (m *Model) Len() int { return len(m.buildStyles) }
