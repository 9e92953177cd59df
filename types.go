package slm

// DefaultZUnit is the z unit writers assume when Header.ZUnit is zero:
// stored layer heights are in micrometres.
const DefaultZUnit uint32 = 1000

type Version struct {
	Major uint16
	Minor uint16
}

// Header is the file-level metadata of a build.
//
// ZUnit is the number of stored z steps per millimetre, so a layer with
// Z = 30 and ZUnit = 1000 sits at 0.03 mm.
type Header struct {
	FileName   string
	Creator    string
	Version    Version
	ZUnit      uint32
	Attributes map[string]string
}

// EffectiveZUnit returns ZUnit, or DefaultZUnit when it is unset.
func (h Header) EffectiveZUnit() uint32 {
	if h.ZUnit == 0 {
		return DefaultZUnit
	}
	return h.ZUnit
}

type LaserMode uint8

const (
	LaserModePulse LaserMode = 0
	LaserModeCW    LaserMode = 1
)

// Valid reports whether m is Pulse or CW.
func (m LaserMode) Valid() bool { return m == LaserModePulse || m == LaserModeCW }

func (m LaserMode) String() string {
	switch m {
	case LaserModePulse:
		return "pulse"
	case LaserModeCW:
		return "cw"
	default:
		return "unknown"
	}
}

// BuildStyle is a named set of laser parameters. Its ID is unique within the
// owning Model.
//
// Powers are in W, speeds in mm/s, focus in mm, point distances in µm and
// times and delays in µs.
type BuildStyle struct {
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

type styleConfig struct {
	speed     float64
	laserID   uint32
	laserMode LaserMode
}

type StyleOption func(*styleConfig)

// WithSpeed sets the laser speed. A speed of zero asks the writing format to
// derive it from the point exposure time and distance.
func WithSpeed(speed float64) StyleOption {
	return func(c *styleConfig) { c.speed = speed }
}

func WithLaserID(id uint32) StyleOption {
	return func(c *styleConfig) { c.laserID = id }
}

func WithLaserMode(mode LaserMode) StyleOption {
	return func(c *styleConfig) { c.laserMode = mode }
}

// SetStyle assigns the main exposure parameters in one call. Unless
// overridden by options the speed is 0, the laser id is 1 and the mode is
// pulsed.
func (b *BuildStyle) SetStyle(bid uint32, focus, power float64, pointExposureTime, pointDistance uint32, opts ...StyleOption) {
	cfg := styleConfig{laserID: 1, laserMode: LaserModePulse}
	for _, opt := range opts {
		opt(&cfg)
	}
	b.ID = bid
	b.LaserFocus = focus
	b.LaserPower = power
	b.PointExposureTime = pointExposureTime
	b.PointDistance = pointDistance
	b.LaserSpeed = cfg.speed
	b.LaserID = cfg.laserID
	b.LaserMode = cfg.laserMode
}
