// Package imaging handles the page images that braille detections refer to.
//
// It loads and caches page images (sniffing their content type rather than
// trusting the file extension), computes and renders the letterbox transform
// used to feed a square detector input, crops individual cells for
// inspection, and draws annotated previews with one box and label per
// recognized cell.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner. Regions
// use an inclusive top-left (x1,y1) and an exclusive bottom-right (x2,y2).
// Cell boxes passed to CropCell and Annotate must already be in the page
// image's pixel space, as produced by detection.Normalize.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The remaining functions are
// stateless and never modify their input image.
package imaging
