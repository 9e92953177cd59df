package mtt

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/logicossoftware/go-slm"
)

type fixedHeaderV1 struct {
	Magic          [8]byte
	Version        uint16
	HeaderFlags    uint16
	FixedHdrSize   uint32
	MetadataLength uint32
	LayerCount     uint32
	Reserved0      uint64
	Reserved1      uint64
}

type sectionHeaderV1 struct {
	SectionType  uint16
	SectionFlags uint16
	PayloadLen   uint64
	Reserved     uint32
}

type trailerV1 struct {
	IndexOffset uint64
	Magic       [8]byte
}

type indexEntry struct {
	LayerID uint32
	Z       uint64
	Offset  uint64 // offset of the layer's section header
}

func readFixedHeader(r io.Reader) (fixedHeaderV1, error) {
	var buf [fixedHeaderSizeV1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return fixedHeaderV1{}, err
	}
	var h fixedHeaderV1
	copy(h.Magic[:], buf[0:8])
	h.Version = binary.LittleEndian.Uint16(buf[8:10])
	h.HeaderFlags = binary.LittleEndian.Uint16(buf[10:12])
	h.FixedHdrSize = binary.LittleEndian.Uint32(buf[12:16])
	h.MetadataLength = binary.LittleEndian.Uint32(buf[16:20])
	h.LayerCount = binary.LittleEndian.Uint32(buf[20:24])
	h.Reserved0 = binary.LittleEndian.Uint64(buf[24:32])
	h.Reserved1 = binary.LittleEndian.Uint64(buf[32:40])
	return h, nil
}

func writeFixedHeader(w io.Writer, h fixedHeaderV1) error {
	var buf [fixedHeaderSizeV1]byte
	copy(buf[0:8], h.Magic[:])
	binary.LittleEndian.PutUint16(buf[8:10], h.Version)
	binary.LittleEndian.PutUint16(buf[10:12], h.HeaderFlags)
	binary.LittleEndian.PutUint32(buf[12:16], h.FixedHdrSize)
	binary.LittleEndian.PutUint32(buf[16:20], h.MetadataLength)
	binary.LittleEndian.PutUint32(buf[20:24], h.LayerCount)
	binary.LittleEndian.PutUint64(buf[24:32], h.Reserved0)
	binary.LittleEndian.PutUint64(buf[32:40], h.Reserved1)
	_, err := w.Write(buf[:])
	return err
}

func readSectionHeader(r io.Reader) (sectionHeaderV1, error) {
	var buf [sectionHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return sectionHeaderV1{}, err
	}
	var sh sectionHeaderV1
	sh.SectionType = binary.LittleEndian.Uint16(buf[0:2])
	sh.SectionFlags = binary.LittleEndian.Uint16(buf[2:4])
	sh.PayloadLen = binary.LittleEndian.Uint64(buf[4:12])
	sh.Reserved = binary.LittleEndian.Uint32(buf[12:16])
	return sh, nil
}

func writeSectionHeader(w io.Writer, sh sectionHeaderV1) error {
	var buf [sectionHeaderSize]byte
	binary.LittleEndian.PutUint16(buf[0:2], sh.SectionType)
	binary.LittleEndian.PutUint16(buf[2:4], sh.SectionFlags)
	binary.LittleEndian.PutUint64(buf[4:12], sh.PayloadLen)
	binary.LittleEndian.PutUint32(buf[12:16], sh.Reserved)
	_, err := w.Write(buf[:])
	return err
}

func readTrailer(r io.Reader) (trailerV1, error) {
	var buf [trailerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return trailerV1{}, err
	}
	var t trailerV1
	t.IndexOffset = binary.LittleEndian.Uint64(buf[0:8])
	copy(t.Magic[:], buf[8:16])
	return t, nil
}

func writeTrailer(w io.Writer, t trailerV1) error {
	var buf [trailerSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], t.IndexOffset)
	copy(buf[8:16], t.Magic[:])
	_, err := w.Write(buf[:])
	return err
}

func (sh sectionHeaderV1) compression() Compression {
	return Compression(sh.SectionFlags & sectionFlagCompressionMask)
}

func (sh sectionHeaderV1) hasUncompressedLen() bool {
	return (sh.SectionFlags & sectionFlagHasUncompressedLen) != 0
}

func validateSectionHeader(sh sectionHeaderV1, expected SectionType) error {
	if sh.Reserved != 0 {
		return fmt.Errorf("%w: section reserved must be 0", slm.ErrFormat)
	}
	if SectionType(sh.SectionType) != expected {
		return fmt.Errorf("%w: expected section type %d got %d", slm.ErrFormat, expected, sh.SectionType)
	}
	comp := sh.compression()
	switch comp {
	case CompNone, CompZIP, CompZSTD, CompLZ4, CompBR:
	default:
		return fmt.Errorf("%w %d", ErrUnknownCompression, comp)
	}
	if comp == CompNone {
		if sh.hasUncompressedLen() {
			return fmt.Errorf("%w: COMP_NONE must not set HAS_UNCOMPRESSED_LEN", slm.ErrFormat)
		}
	} else {
		if !sh.hasUncompressedLen() {
			return fmt.Errorf("%w: compressed payload must set HAS_UNCOMPRESSED_LEN", slm.ErrFormat)
		}
	}
	return nil
}

func encodeIndex(entries []indexEntry) []byte {
	buf := make([]byte, 4+len(entries)*indexEntrySize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(entries)))
	for i, e := range entries {
		b := buf[4+i*indexEntrySize:]
		binary.LittleEndian.PutUint32(b[0:4], e.LayerID)
		binary.LittleEndian.PutUint64(b[8:16], e.Z)
		binary.LittleEndian.PutUint64(b[16:24], e.Offset)
	}
	return buf
}

func decodeIndex(buf []byte, maxLayers int) ([]indexEntry, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("%w: layer index too short", slm.ErrFormat)
	}
	n := binary.LittleEndian.Uint32(buf[0:4])
	if uint64(n) > uint64(maxLayers) {
		return nil, fmt.Errorf("%w: %d layers", slm.ErrLimitExceeded, n)
	}
	if uint64(len(buf)) != 4+uint64(n)*indexEntrySize {
		return nil, fmt.Errorf("%w: layer index length %d does not hold %d entries", slm.ErrFormat, len(buf), n)
	}
	entries := make([]indexEntry, n)
	for i := range entries {
		b := buf[4+i*indexEntrySize:]
		if binary.LittleEndian.Uint32(b[4:8]) != 0 {
			return nil, fmt.Errorf("%w: layer index entry %d reserved must be 0", slm.ErrFormat, i)
		}
		entries[i] = indexEntry{
			LayerID: binary.LittleEndian.Uint32(b[0:4]),
			Z:       binary.LittleEndian.Uint64(b[8:16]),
			Offset:  binary.LittleEndian.Uint64(b[16:24]),
		}
	}
	return entries, nil
}

// encodeLayer serializes a layer block payload:
//
//	u32 layer id | u32 item count | u64 z
//	per item: u8 type | 3 reserved | u32 mid | u32 bid | u32 rows | rows x (f32 x, f32 y)
func encodeLayer(l *slm.Layer, items []*slm.LayerGeometry) []byte {
	size := layerRecordHeaderSize
	for _, g := range items {
		size += geometryRecordHeaderSize + 8*len(g.Coords)
	}
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], l.ID)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(items)))
	binary.LittleEndian.PutUint64(buf[8:16], l.Z)
	off := layerRecordHeaderSize
	for _, g := range items {
		b := buf[off:]
		b[0] = byte(g.Type())
		binary.LittleEndian.PutUint32(b[4:8], g.MID)
		binary.LittleEndian.PutUint32(b[8:12], g.BID)
		binary.LittleEndian.PutUint32(b[12:16], uint32(len(g.Coords)))
		off += geometryRecordHeaderSize
		for _, c := range g.Coords {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(c[0]))
			binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(c[1]))
			off += 8
		}
	}
	return buf
}

// decodeLayer parses a layer block payload. The id and z recorded in the
// block must match the index entry that pointed at it.
func decodeLayer(buf []byte, want indexEntry, limits slm.Limits) ([]*slm.LayerGeometry, error) {
	if len(buf) < layerRecordHeaderSize {
		return nil, fmt.Errorf("%w: layer block too short", slm.ErrFormat)
	}
	id := binary.LittleEndian.Uint32(buf[0:4])
	n := binary.LittleEndian.Uint32(buf[4:8])
	z := binary.LittleEndian.Uint64(buf[8:16])
	if id != want.LayerID || z != want.Z {
		return nil, fmt.Errorf("%w: layer block holds layer %d at z %d, index says layer %d at z %d",
			slm.ErrFormat, id, z, want.LayerID, want.Z)
	}
	if uint64(n) > uint64(limits.MaxGeometryPerLayer) {
		return nil, fmt.Errorf("%w: layer %d has %d geometry items", slm.ErrLimitExceeded, id, n)
	}
	items := make([]*slm.LayerGeometry, 0, min(int(n), (len(buf)-layerRecordHeaderSize)/geometryRecordHeaderSize))
	off := layerRecordHeaderSize
	for i := uint32(0); i < n; i++ {
		if len(buf)-off < geometryRecordHeaderSize {
			return nil, fmt.Errorf("%w: layer %d geometry %d truncated", slm.ErrFormat, id, i)
		}
		b := buf[off:]
		typ := slm.GeometryType(b[0])
		if b[1] != 0 || b[2] != 0 || b[3] != 0 {
			return nil, fmt.Errorf("%w: layer %d geometry %d reserved must be 0", slm.ErrFormat, id, i)
		}
		mid := binary.LittleEndian.Uint32(b[4:8])
		bid := binary.LittleEndian.Uint32(b[8:12])
		rows := binary.LittleEndian.Uint32(b[12:16])
		off += geometryRecordHeaderSize
		if uint64(rows) > uint64(limits.MaxCoordsPerGeometry) {
			return nil, fmt.Errorf("%w: layer %d geometry %d has %d coordinates", slm.ErrLimitExceeded, id, i, rows)
		}
		if uint64(len(buf)-off) < uint64(rows)*8 {
			return nil, fmt.Errorf("%w: layer %d geometry %d coordinates truncated", slm.ErrFormat, id, i)
		}
		coords := make([][2]float32, rows)
		for r := range coords {
			coords[r][0] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
			coords[r][1] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:]))
			off += 8
		}
		g, err := slm.NewGeometry(typ, mid, bid, coords)
		if err != nil {
			return nil, fmt.Errorf("layer %d geometry %d: %w", id, i, err)
		}
		items = append(items, g)
	}
	if off != len(buf) {
		return nil, fmt.Errorf("%w: layer %d block has %d trailing bytes", slm.ErrFormat, id, len(buf)-off)
	}
	return items, nil
}
