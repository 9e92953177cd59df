// Package realizer reads and writes realizer build files, a compact
// little-endian record stream:
//
//	file header | file name | creator
//	per model:  model record | name | build style name | build style description
//	            per style: style record | name | description
//	u32 layer count
//	per layer:  layer record (id, z, item count)
//	            per item: item record (type, mid, bid, rows) | rows x (f32 x, f32 y)
//	u32 CRC-32 (IEEE) of everything before it
//
// Layer heights are stored in 32 bits, so Write rejects documents with a
// layer z above 2^32-1. Attributes are not stored.
package realizer
