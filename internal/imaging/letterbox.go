package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/braille-tools-mcp/internal/detection"
)

// PadColor fills the letterbox borders.
var PadColor = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

// LetterboxResult describes a page resized into a square model input.
type LetterboxResult struct {
	Size        int                 `json:"size"`
	Letterbox   detection.Letterbox `json:"letterbox"`
	ImageWidth  int                 `json:"image_width"`
	ImageHeight int                 `json:"image_height"`
	ImageBase64 string              `json:"image_base64,omitempty"`
	MimeType    string              `json:"mime_type,omitempty"`
}

// LetterboxParams computes the uniform scale and centring offsets that fit a
// width×height image inside a size×size model input.
//
// The scale is min(size/width, size/height). The resized image is centred, so
// the offsets are half the leftover space, truncated to whole pixels. The
// result is the transform detection.NormalizeLetterboxed inverts.
//
// Parameters:
//   - width, height: Original page dimensions in pixels
//   - size: Side of the square model input (640 for the stock detectors)
//
// Returns:
//   - detection.Letterbox: Scale and offsets
//   - error: wraps detection.ErrInvalidDimensions if any argument is not positive
func LetterboxParams(width, height, size int) (detection.Letterbox, error) {
	if width <= 0 || height <= 0 || size <= 0 {
		return detection.Letterbox{}, fmt.Errorf("%w: image %dx%d, model size %d",
			detection.ErrInvalidDimensions, width, height, size)
	}
	scale := math.Min(float64(size)/float64(width), float64(size)/float64(height))
	newW, newH := scaledSize(width, height, scale)
	return detection.Letterbox{
		Scale:   scale,
		OffsetX: float64((size - newW) / 2),
		OffsetY: float64((size - newH) / 2),
	}, nil
}

func scaledSize(width, height int, scale float64) (int, int) {
	return max(1, int(math.Round(float64(width)*scale))), max(1, int(math.Round(float64(height)*scale)))
}

// Letterbox resizes img to fit size×size, pads the rest with PadColor and
// returns the padded image with its parameters.
//
// # Example Usage
//
//	padded, lb, err := imaging.Letterbox(page, 640)
//	if err != nil {
//	    return err
//	}
//	// Run the detector on padded, then map its boxes back:
//	placed, err := detection.NormalizeLetterboxed(raw, lb, w, h)
func Letterbox(img image.Image, size int) (*image.NRGBA, detection.Letterbox, error) {
	b := img.Bounds()
	lb, err := LetterboxParams(b.Dx(), b.Dy(), size)
	if err != nil {
		return nil, detection.Letterbox{}, err
	}
	newW, newH := scaledSize(b.Dx(), b.Dy(), lb.Scale)
	resized := imaging.Resize(img, newW, newH, imaging.Linear)
	canvas := imaging.New(size, size, PadColor)
	canvas = imaging.Paste(canvas, resized, image.Pt(int(lb.OffsetX), int(lb.OffsetY)))
	return canvas, lb, nil
}

// LetterboxPreview runs Letterbox and, if includeImage is set, base64-encodes
// the padded input as PNG.
func LetterboxPreview(img image.Image, size int, includeImage bool) (*LetterboxResult, error) {
	padded, lb, err := Letterbox(img, size)
	if err != nil {
		return nil, err
	}
	res := &LetterboxResult{
		Size:        size,
		Letterbox:   lb,
		ImageWidth:  img.Bounds().Dx(),
		ImageHeight: img.Bounds().Dy(),
	}
	if includeImage {
		encoded, err := encodePNG(padded)
		if err != nil {
			return nil, fmt.Errorf("failed to encode letterboxed image: %w", err)
		}
		res.ImageBase64 = encoded
		res.MimeType = "image/png"
	}
	return res, nil
}
