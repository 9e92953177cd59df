package realizer

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/logicossoftware/go-slm"
)

// FormatName is the registry name of the format.
const FormatName = "realizer"

const (
	VersionV1    uint16 = 1
	checksumSize        = 4
)

// Magic opens every realizer file.
var Magic = [4]byte{'R', 'L', 'Z', 'R'}

var byteOrder = binary.LittleEndian

// The records below are written with encoding/binary in field order.
// Strings follow their record as u16 length-prefixed UTF-8.

// fileHeader is followed by the file name and creator strings.
type fileHeader struct {
	Magic          [4]byte
	Version        uint16
	Flags          uint16
	ZUnit          uint32
	LayerThickness float64
	VersionMajor   uint16
	VersionMinor   uint16
	ModelCount     uint32
}

// modelRecord is followed by the name, build style name and build style
// description strings, then StyleCount style records.
type modelRecord struct {
	ID         uint32
	TopLayerID uint32
	StyleCount uint32
}

// styleRecord is followed by the name and description strings.
type styleRecord struct {
	ID                uint32
	LaserPower        float64
	LaserSpeed        float64
	LaserFocus        float64
	PointDistance     uint32
	PointExposureTime uint32
	LaserID           uint32
	LaserMode         uint8
	_                 [3]byte
	PointDelay        uint32
	JumpDelay         uint32
	JumpSpeed         uint32
}

// layerRecord is followed by ItemCount item records.
type layerRecord struct {
	ID        uint32
	Z         uint32
	ItemCount uint32
}

// itemRecord is followed by Rows (f32 x, f32 y) pairs.
type itemRecord struct {
	Type uint8
	_    [3]byte
	MID  uint32
	BID  uint32
	Rows uint32
}

var (
	modelRecordSize = int64(binary.Size(modelRecord{}))
	styleRecordSize = int64(binary.Size(styleRecord{}))
	layerRecordSize = int64(binary.Size(layerRecord{}))
	itemRecordSize  = int64(binary.Size(itemRecord{}))
)

// DeriveSpeed returns the speed implied by a point distance in µm and a
// point exposure time in µs, in mm/s. It is 0 when the exposure time is 0.
func DeriveSpeed(pointDistance, pointExposureTime uint32) float64 {
	if pointExposureTime == 0 {
		return 0
	}
	return float64(pointDistance) / float64(pointExposureTime) * 1000
}

func writeString(w io.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("%w: string of %d bytes", slm.ErrFormat, len(s))
	}
	if err := binary.Write(w, byteOrder, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func writeStrings(w io.Writer, ss ...string) error {
	for _, s := range ss {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	return nil
}
