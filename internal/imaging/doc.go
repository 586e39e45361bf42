// Package imaging turns image files into detection rasters and renders
// detection results back into images for the MCP server.
//
// Files are decoded with the standard image decoders plus TIFF, converted to
// float64 intensity rasters by ToRaster, and cached by path in an ImageCache.
// Rendering covers display stretching, segmentation maps, bounding-box
// overlays and per-object cutouts, all returned as base64 PNG.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For crop regions, (x1,y1) is inclusive and (x2,y2) is exclusive
//   - Object bounding boxes are inclusive on both corners
//
// # Intensity
//
// Gray images keep their native values (0-255 or 0-65535). Color images are
// reduced to luminance. Rendering maps intensities to 8-bit gray through a
// percentile stretch, DefaultLowPercentile to DefaultHighPercentile.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Rasters returned from the
// cache are shared and must not be modified; Smooth and the renderers
// allocate new buffers.
package imaging
