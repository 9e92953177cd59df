// Package mtt reads and writes MTT build files.
//
// # File Structure
//
// An MTT file consists of:
//   - Fixed header (40 bytes): magic, version, flags, metadata length, layer count
//   - Metadata (JSON): header fields, layer thickness and a summary of the build
//   - Models section: every model and its build styles
//   - Layer sections: one per layer, in emission order
//   - Layer index section: layer id, z and section offset of every layer
//   - Trailer (16 bytes): offset of the layer index and the closing magic
//
// All integers are little-endian. Every section starts with a 16-byte header
// giving its type, flags and payload length.
//
// # Compression
//
// Model and layer sections are compressed with one of:
//   - none
//   - zip (a single entry archive)
//   - zstd (default)
//   - lz4
//   - brotli
//
// Compressed payloads are prefixed with their uncompressed length as a u64.
// The layer index is never compressed.
//
// # Layer Blocks
//
// A layer payload holds
//
//	u32 layer id | u32 item count | u64 z
//
// followed by one record per geometry item
//
//	u8 type | 3 reserved | u32 mid | u32 bid | u32 rows | rows x (f32 x, f32 y)
//
// # Deferred Loading
//
// The Reader leaves layers deferred by default: Parse reads the index only,
// and a layer's block is read from its recorded offset on first access.
// Pass slm.WithLazyLoading(false) to load everything during Parse.
package mtt
