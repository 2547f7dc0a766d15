package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/ironsheep/braille-tools-mcp/internal/detection"
)

// quadrantImage is red top-left, green top-right, blue bottom-left, white bottom-right.
func quadrantImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.Color
			switch {
			case x < width/2 && y < height/2:
				c = color.RGBA{255, 0, 0, 255}
			case y < height/2:
				c = color.RGBA{0, 255, 0, 255}
			case x < width/2:
				c = color.RGBA{0, 0, 255, 255}
			default:
				c = color.RGBA{255, 255, 255, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func decodeResult(t *testing.T, b64 string) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	return img
}

func TestCrop(t *testing.T) {
	img := quadrantImage(100, 100)

	result, err := Crop(img, 0, 0, 50, 50, 1.0)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if result.Width != 50 || result.Height != 50 {
		t.Errorf("dimensions: got %dx%d, want 50x50", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}

	out := decodeResult(t, result.ImageBase64)
	r, g, b, _ := out.At(25, 25).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("crop of top-left quadrant should be red, got (%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestCrop_Scale(t *testing.T) {
	img := solidImage(100, 100, color.RGBA{255, 0, 0, 255})
	tests := []struct {
		scale float64
		want  int
	}{
		{2.0, 100},
		{0.5, 25},
		{0, 50},
	}
	for _, tt := range tests {
		result, err := Crop(img, 0, 0, 50, 50, tt.scale)
		if err != nil {
			t.Fatalf("Crop(scale=%v) failed: %v", tt.scale, err)
		}
		if result.Width != tt.want || result.Height != tt.want {
			t.Errorf("scale %v: got %dx%d, want %dx%d", tt.scale, result.Width, result.Height, tt.want, tt.want)
		}
	}
}

func TestCrop_InvalidRegions(t *testing.T) {
	img := solidImage(100, 100, color.White)
	tests := []struct {
		name           string
		x1, y1, x2, y2 int
	}{
		{"negative", -1, 0, 50, 50},
		{"past right", 0, 0, 101, 50},
		{"past bottom", 0, 0, 50, 101},
		{"inverted x", 50, 0, 10, 50},
		{"empty", 10, 10, 10, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Crop(img, tt.x1, tt.y1, tt.x2, tt.y2, 1); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCropCell(t *testing.T) {
	img := quadrantImage(100, 100)
	box := detection.Bounds{Left: 10.4, Top: 20.6, Right: 30.2, Bottom: 40.9}

	result, err := CropCell(img, box, 2, 1)
	if err != nil {
		t.Fatalf("CropCell failed: %v", err)
	}
	if result.X1 != 8 || result.Y1 != 18 || result.X2 != 33 || result.Y2 != 43 {
		t.Errorf("region = (%d,%d)-(%d,%d), want (8,18)-(33,43)", result.X1, result.Y1, result.X2, result.Y2)
	}
}

func TestCropCell_ClipsToImage(t *testing.T) {
	img := quadrantImage(100, 100)
	box := detection.Bounds{Left: 0, Top: 0, Right: 100, Bottom: 100}

	result, err := CropCell(img, box, 10, 1)
	if err != nil {
		t.Fatalf("CropCell failed: %v", err)
	}
	if result.Width != 100 || result.Height != 100 {
		t.Errorf("got %dx%d, want clipped 100x100", result.Width, result.Height)
	}
}
