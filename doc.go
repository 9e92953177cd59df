// Package slm implements the document model shared by laser powder-bed
// scan-path (machine build) files.
//
// A build is described by three structures:
//   - A [Header] with file-level metadata and the z unit
//   - A set of [Model] parts, each owning the [BuildStyle] laser parameter
//     sets its geometry refers to
//   - A set of [Layer] height slices holding ordered [LayerGeometry] items
//     (exposure points, closed contours and hatch segments)
//
// Geometry items refer to their part and build style by id (mid / bid). The
// references are weak: nothing is checked when geometry is appended to a
// layer, but every [Writer] validates them before emitting a single byte.
//
// # Formats
//
// Concrete machine-file formats implement the [Reader] and [Writer]
// interfaces and register themselves by name:
//
//	import (
//		"github.com/logicossoftware/go-slm"
//		_ "github.com/logicossoftware/go-slm/mtt"
//	)
//
//	f, err := slm.LookupFormat("mtt")
//	r, err := f.NewReader()
//	r.SetFilePath("part.mtt")
//	if err := r.Parse(); err != nil { ... }
//	for _, l := range r.Layers() {
//		geoms, err := l.Geometry(slm.ScanContourFirst)
//		...
//	}
//
// # Deferred geometry
//
// A reader may leave a layer's geometry on disk. Such a layer reports
// IsLoaded() == false and remembers the byte offset of its block in
// FilePosition(). The first geometry access (or an explicit Load) re-reads
// the block synchronously. Loaded geometry is never evicted.
//
// # Writing
//
// Writers stage their output in a temporary file next to the destination and
// rename it into place only after the whole document has been written, so a
// failed Write never leaves a truncated file behind.
package slm
