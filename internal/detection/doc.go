// Package detection post-processes raw object-detector output for Braille cells.
//
// The detector collaborator (an ONNX/YOLO-style model that is not part of this
// module) emits one flat record per candidate box:
//
//	[centerX, centerY, width, height, confidence, classId, ...]
//
// in the model's fixed input coordinate space (typically 640×640). This package
// turns those records into a deduplicated, display-space set of boxes.
//
// # Pipeline Stages
//
//  1. Parsing: ParseDetections checks record arity and value ranges and builds
//     Detection values
//  2. Suppression: NonMaxSuppression removes overlapping, lower-confidence boxes
//  3. Merging: Merge relabels Grade-2 class ids into a disjoint range and runs a
//     combined suppression pass so the two models compete for each physical cell
//  4. Normalization: Normalize / NormalizeLetterboxed rescale boxes into display
//     or original-image space and derive clamped corner coordinates
//
// # Coordinate System
//
// Boxes are center-format (X, Y is the box center). Corner coordinates follow the
// usual image convention: origin at top-left, X grows rightward, Y grows downward.
//
// # Combined Class IDs
//
// When results from both models are merged, Grade-2 class ids are shifted by
// G2ClassOffset (1000). Any id at or above the offset is a Grade-2 class whose
// model-local id is id-1000. The offset must exceed the largest local class id of
// either model or the two ranges collide.
//
// # Concurrency
//
// Every function here is pure: inputs are never mutated and no package-level
// state is kept, so independent images can be processed concurrently.
package detection
