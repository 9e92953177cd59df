package mtt

import (
	"fmt"
	"strings"

	"github.com/logicossoftware/go-slm"
)

const (
	VersionV1 uint16 = 1

	fixedHeaderSizeV1        uint32 = 40
	sectionHeaderSize               = 16
	trailerSize                     = 16
	indexEntrySize                  = 24
	geometryRecordHeaderSize        = 16
	layerRecordHeaderSize           = 16
)

// Magic is the 8-byte MTT file signature.
var Magic = [8]byte{'S', 'L', 'M', 'T', 'T', '\r', '\n', 0x1A}

// TrailerMagic closes every MTT file, after the index offset.
var TrailerMagic = [8]byte{'M', 'T', 'T', 'I', 'N', 'D', 'E', 'X'}

const (
	HeaderFlagMetadataJSON uint16 = 0x0001
)

type SectionType uint16

const (
	SectionModels     SectionType = 1
	SectionLayer      SectionType = 2
	SectionLayerIndex SectionType = 3
)

type Compression uint16

const (
	CompNone Compression = 0x0
	CompZIP  Compression = 0x1
	CompZSTD Compression = 0x2
	CompLZ4  Compression = 0x3
	CompBR   Compression = 0x4
)

const (
	sectionFlagCompressionMask    uint16 = 0x000F
	sectionFlagHasUncompressedLen uint16 = 0x0010
)

var ErrUnknownCompression = fmt.Errorf("%w: unknown compression", slm.ErrFormat)

// ParseCompression maps a compression name to its code. The empty string
// selects zstd.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "zstd":
		return CompZSTD, nil
	case "none":
		return CompNone, nil
	case "zip":
		return CompZIP, nil
	case "lz4":
		return CompLZ4, nil
	case "br", "brotli":
		return CompBR, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownCompression, name)
	}
}

func compressionName(c Compression) string {
	switch c {
	case CompNone:
		return "none"
	case CompZIP:
		return "zip"
	case CompZSTD:
		return "zstd"
	case CompLZ4:
		return "lz4"
	case CompBR:
		return "brotli"
	default:
		return "unknown"
	}
}

func (c Compression) String() string { return compressionName(c) }

// metadata is the JSON block following the fixed header.
type metadata struct {
	FileName       string            `json:"file_name"`
	Creator        string            `json:"creator"`
	VersionMajor   uint16            `json:"version_major"`
	VersionMinor   uint16            `json:"version_minor"`
	ZUnit          uint32            `json:"z_unit"`
	LayerThickness float64           `json:"layer_thickness"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	Summary        *summary          `json:"summary,omitempty"`
}

// summary records the aggregates computed while writing.
type summary struct {
	MinZ        uint64     `json:"min_z"`
	MaxZ        uint64     `json:"max_z"`
	Hatches     int        `json:"hatches"`
	Contours    int        `json:"contours"`
	BoundingBox [6]float64 `json:"bounding_box"`
}
