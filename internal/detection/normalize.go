package detection

import (
	"fmt"
	"math"
)

// Placed is a detection mapped into display (or original-image) space together
// with its corner box clamped to the target dimensions.
type Placed struct {
	Detection
	Box Bounds `json:"box"`
}

// Letterbox describes the resize-and-pad step applied before inference: the
// source image was scaled by Scale and then offset by (OffsetX, OffsetY) pixels
// of padding inside the model input.
type Letterbox struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// ContentSize returns the size of the original image implied by the letterbox
// parameters and the padded model input size.
func (l Letterbox) ContentSize(modelWidth, modelHeight float64) (width, height float64) {
	if l.Scale <= 0 {
		return 0, 0
	}
	width = math.Max(1, math.Floor((modelWidth-2*l.OffsetX)/l.Scale))
	height = math.Max(1, math.Floor((modelHeight-2*l.OffsetY)/l.Scale))
	return width, height
}

// Normalize rescales a model-space detection to display space by the ratio of
// display to model dimensions and derives its corner box clamped to
// [0, displayWidth] × [0, displayHeight].
//
// Confidence and class id are carried through unchanged. The input is a value
// and is never modified.
func Normalize(raw Detection, modelWidth, modelHeight, displayWidth, displayHeight float64) (Placed, error) {
	if modelWidth <= 0 || modelHeight <= 0 {
		return Placed{}, fmt.Errorf("%w: model size %vx%v", ErrInvalidDimensions, modelWidth, modelHeight)
	}
	if displayWidth <= 0 || displayHeight <= 0 {
		return Placed{}, fmt.Errorf("%w: display size %vx%v", ErrInvalidDimensions, displayWidth, displayHeight)
	}

	ratioW := displayWidth / modelWidth
	ratioH := displayHeight / modelHeight

	d := raw
	d.X = raw.X * ratioW
	d.Y = raw.Y * ratioH
	d.Width = raw.Width * ratioW
	d.Height = raw.Height * ratioH

	return Placed{Detection: d, Box: clampedCorners(d, displayWidth, displayHeight)}, nil
}

// NormalizeLetterboxed undoes a letterbox step: the padding offset is
// subtracted and the result divided by the scale factor, giving coordinates in
// the original image. Corners are clamped to [0, imageWidth] × [0, imageHeight].
func NormalizeLetterboxed(raw Detection, lb Letterbox, imageWidth, imageHeight float64) (Placed, error) {
	if lb.Scale <= 0 {
		return Placed{}, fmt.Errorf("%w: letterbox scale %v", ErrInvalidDimensions, lb.Scale)
	}
	if imageWidth <= 0 || imageHeight <= 0 {
		return Placed{}, fmt.Errorf("%w: image size %vx%v", ErrInvalidDimensions, imageWidth, imageHeight)
	}

	d := raw
	d.X = (raw.X - lb.OffsetX) / lb.Scale
	d.Y = (raw.Y - lb.OffsetY) / lb.Scale
	d.Width = raw.Width / lb.Scale
	d.Height = raw.Height / lb.Scale

	return Placed{Detection: d, Box: clampedCorners(d, imageWidth, imageHeight)}, nil
}

func clampedCorners(d Detection, maxX, maxY float64) Bounds {
	c := d.Corners()
	return Bounds{
		Left:   clamp(c.Left, 0, maxX),
		Top:    clamp(c.Top, 0, maxY),
		Right:  clamp(c.Right, 0, maxX),
		Bottom: clamp(c.Bottom, 0, maxY),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
