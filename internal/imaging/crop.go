package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/braille-tools-mcp/internal/detection"
)

// CropResult contains the cropped image data. The coordinates are the region
// actually cropped, after any padding and clipping.
type CropResult struct {
	X1          int    `json:"x1"`
	Y1          int    `json:"y1"`
	X2          int    `json:"x2"`
	Y2          int    `json:"y2"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Crop extracts the region (x1,y1)-(x2,y2) and optionally rescales it.
//
// Parameters:
//   - img: Source image
//   - x1, y1: Top-left corner, inclusive, in img's coordinate space
//   - x2, y2: Bottom-right corner, exclusive
//   - scale: Resize factor applied with Lanczos resampling; values of 1 or
//     less than or equal to 0 leave the crop at its original size
//
// Returns:
//   - *CropResult: The region and its PNG encoding in base64
//   - error: Non-nil if the region is invalid or encoding fails
//
// # Errors
//
//   - The region extends past img.Bounds()
//   - The region is empty (x1 >= x2 or y1 >= y2)
func Crop(img image.Image, x1, y1, x2, y2 int, scale float64) (*CropResult, error) {
	bounds := img.Bounds()

	if x1 < bounds.Min.X || y1 < bounds.Min.Y || x2 > bounds.Max.X || y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			x1, y1, x2, y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	cropped := imaging.Crop(img, image.Rect(x1, y1, x2, y2))

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	encoded, err := encodePNG(cropped)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		X1:          x1,
		Y1:          y1,
		X2:          x2,
		Y2:          y2,
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// CropCell crops a cell's corner box, grown by padding pixels on each side and
// clipped to the image. Fractional edges are rounded outward.
//
// Clipping means a box that lies partly off the page still yields the visible
// part. A box wholly outside the page clips to an empty region and fails like
// Crop.
//
// # Example Usage
//
//	cell := result.Cells[0]
//	res, err := imaging.CropCell(page, cell.Box, 4, 3.0)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Width, res.Height)
func CropCell(img image.Image, box detection.Bounds, padding int, scale float64) (*CropResult, error) {
	b := img.Bounds()
	x1 := max(b.Min.X, int(math.Floor(box.Left))-padding)
	y1 := max(b.Min.Y, int(math.Floor(box.Top))-padding)
	x2 := min(b.Max.X, int(math.Ceil(box.Right))+padding)
	y2 := min(b.Max.Y, int(math.Ceil(box.Bottom))+padding)
	return Crop(img, x1, y1, x2, y2, scale)
}

func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
