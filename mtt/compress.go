package mtt

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/logicossoftware/go-slm"
	"github.com/pierrec/lz4/v4"
)

// zipEntryName is the single entry of a ZIP compressed block.
const zipEntryName = "block.bin"

// Function variables for testing injection.
var (
	newZstdEncoder = func() (*zstd.Encoder, error) { return zstd.NewWriter(nil) }
	newZstdDecoder = func() (*zstd.Decoder, error) { return zstd.NewReader(nil) }
	zipOpen        = func(zf *zip.File) (io.ReadCloser, error) { return zf.Open() }
	readAll        = io.ReadAll
)

// blockCodec packs and unpacks section payloads. The zstd encoder and
// decoder are created on first use and reused for every later block, so one
// codec serves a whole file. A codec is not safe for concurrent use.
type blockCodec struct {
	comp Compression
	zenc *zstd.Encoder
	zdec *zstd.Decoder
}

func newBlockCodec(comp Compression) *blockCodec {
	return &blockCodec{comp: comp}
}

func (c *blockCodec) Close() {
	if c.zenc != nil {
		_ = c.zenc.Close()
		c.zenc = nil
	}
	if c.zdec != nil {
		c.zdec.Close()
		c.zdec = nil
	}
}

// pack compresses raw with the codec's algorithm and returns the section
// flags to store with it. Compressed payloads start with the uncompressed
// length as a little-endian u64.
func (c *blockCodec) pack(raw []byte) (uint16, []byte, error) {
	return c.packWith(c.comp, raw)
}

func (c *blockCodec) packWith(comp Compression, raw []byte) (uint16, []byte, error) {
	if comp == CompNone {
		return uint16(CompNone), raw, nil
	}
	var prefix [8]byte
	binary.LittleEndian.PutUint64(prefix[:], uint64(len(raw)))
	out := bytes.NewBuffer(prefix[:])

	var err error
	switch comp {
	case CompZIP:
		err = zipPack(out, raw)
	case CompZSTD:
		if err = c.ensureEncoder(); err == nil {
			out.Write(c.zenc.EncodeAll(raw, nil))
		}
	case CompLZ4:
		err = streamPack(out, raw, func(w io.Writer) io.WriteCloser { return lz4.NewWriter(w) })
	case CompBR:
		err = streamPack(out, raw, func(w io.Writer) io.WriteCloser { return brotli.NewWriter(w) })
	default:
		return 0, nil, fmt.Errorf("%w %d", ErrUnknownCompression, comp)
	}
	if err != nil {
		return 0, nil, fmt.Errorf("%s compress: %w", comp, err)
	}
	return uint16(comp) | sectionFlagHasUncompressedLen, out.Bytes(), nil
}

// unpack returns the raw bytes of a payload stored under sh. Output longer
// than maxUncompressed is refused before it is produced.
func (c *blockCodec) unpack(sh sectionHeaderV1, payload []byte, maxUncompressed uint64) ([]byte, error) {
	comp := sh.compression()
	if comp == CompNone {
		if sh.hasUncompressedLen() {
			return nil, fmt.Errorf("%w: COMP_NONE with HAS_UNCOMPRESSED_LEN", slm.ErrFormat)
		}
		if uint64(len(payload)) > maxUncompressed {
			return nil, fmt.Errorf("%w: block length %d", slm.ErrLimitExceeded, len(payload))
		}
		return payload, nil
	}
	if !sh.hasUncompressedLen() {
		return nil, fmt.Errorf("%w: missing HAS_UNCOMPRESSED_LEN", slm.ErrFormat)
	}
	if len(payload) < 8 {
		return nil, fmt.Errorf("%w: payload too short for uncompressed length", slm.ErrFormat)
	}
	want := binary.LittleEndian.Uint64(payload[:8])
	if want > maxUncompressed {
		return nil, fmt.Errorf("%w: uncompressed length %d", slm.ErrLimitExceeded, want)
	}
	body := payload[8:]

	var out []byte
	var err error
	switch comp {
	case CompZIP:
		out, err = zipUnpack(body, want)
	case CompZSTD:
		if err = c.ensureDecoder(); err == nil {
			out, err = c.zdec.DecodeAll(body, make([]byte, 0, want))
		}
	case CompLZ4:
		out, err = streamUnpack(lz4.NewReader(bytes.NewReader(body)), want)
	case CompBR:
		out, err = streamUnpack(brotli.NewReader(bytes.NewReader(body)), want)
	default:
		return nil, fmt.Errorf("%w %d", ErrUnknownCompression, comp)
	}
	if err != nil {
		if errors.Is(err, slm.ErrFormat) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s payload: %w", slm.ErrFormat, comp, err)
	}
	if uint64(len(out)) != want {
		return nil, fmt.Errorf("%w: %s payload expanded to %d bytes, header says %d", slm.ErrFormat, comp, len(out), want)
	}
	return out, nil
}

func (c *blockCodec) ensureEncoder() error {
	if c.zenc != nil {
		return nil
	}
	enc, err := newZstdEncoder()
	if err != nil {
		return err
	}
	c.zenc = enc
	return nil
}

func (c *blockCodec) ensureDecoder() error {
	if c.zdec != nil {
		return nil
	}
	dec, err := newZstdDecoder()
	if err != nil {
		return err
	}
	c.zdec = dec
	return nil
}

func streamPack(dst io.Writer, raw []byte, newWriter func(io.Writer) io.WriteCloser) error {
	w := newWriter(dst)
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// streamUnpack reads at most want+1 bytes so that an over-long stream is
// detected without expanding it completely.
func streamUnpack(r io.Reader, want uint64) ([]byte, error) {
	b, err := readAll(io.LimitReader(r, int64(want)+1))
	if err != nil {
		return nil, err
	}
	if uint64(len(b)) > want {
		return nil, fmt.Errorf("%w: stream expanded beyond %d bytes", slm.ErrFormat, want)
	}
	return b, nil
}

func zipPack(dst io.Writer, raw []byte) error {
	zw := zip.NewWriter(dst)
	entry, err := zw.Create(zipEntryName)
	if err != nil {
		_ = zw.Close()
		return err
	}
	if _, err := entry.Write(raw); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

// zipUnpack requires exactly one regular entry named zipEntryName whose
// recorded size is want.
func zipUnpack(body []byte, want uint64) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, err
	}
	if len(zr.File) != 1 {
		return nil, fmt.Errorf("%w: zip block must contain exactly one entry", slm.ErrFormat)
	}
	zf := zr.File[0]
	if zf.Name != zipEntryName || zf.FileInfo().IsDir() {
		return nil, fmt.Errorf("%w: zip block entry must be a file named %s", slm.ErrFormat, zipEntryName)
	}
	if zf.UncompressedSize64 != want {
		return nil, fmt.Errorf("%w: zip entry size %d, header says %d", slm.ErrFormat, zf.UncompressedSize64, want)
	}
	rc, err := zipOpen(zf)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return streamUnpack(rc, want)
}
