package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotImage is returned when a file's content is not a supported image.
var ErrNotImage = errors.New("not a supported image")

// ImageCache provides thread-safe caching of decoded page images keyed by path.
//
// ImageCache is safe for concurrent use by multiple goroutines. Lookups take a
// read lock; decoding happens outside any lock, so two callers racing on the
// same uncached path may both decode it and the last store wins.
//
// # Memory Management
//
// Photographs of Braille pages are typically annotated and cropped several
// times per session, so a decoded image stays in memory until Evict or Clear.
// Different path spellings of the same file are separate entries.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	img, err := cache.Load("/scans/page-01.jpg")
//	if err != nil {
//	    return err
//	}
//	// Later calls with the same path return the cached image.
//	img, _ = cache.Load("/scans/page-01.jpg")
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates an empty cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load returns the cached image for path, decoding it from disk on first use.
//
// The file's content is sniffed before decoding; anything other than PNG,
// JPEG or GIF fails with ErrNotImage regardless of its extension. Failed
// loads are not cached.
//
// Parameters:
//   - path: File system path to the image file
//
// Returns:
//   - image.Image: The decoded image (shared; callers must not modify it)
//   - error: Non-nil if the file cannot be opened, sniffed or decoded
//
// # Errors
//
//   - "failed to open image": the file does not exist or is unreadable
//   - ErrNotImage: the content is not PNG, JPEG or GIF
//   - "failed to decode image": the content is truncated or corrupt
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	if _, err := sniff(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path. Use it after a
// page file has been rewritten on disk. Evicting an absent path is a no-op.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// sniff detects the file type from its content and returns the MIME type.
func sniff(path string) (*mimetype.MIME, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	switch {
	case mt.Is("image/png"), mt.Is("image/jpeg"), mt.Is("image/gif"):
		return mt, nil
	default:
		return nil, fmt.Errorf("%w: %s is %s", ErrNotImage, path, mt.String())
	}
}

// ImageInfo describes a page image: the display dimensions a translate request
// should use, and what the file actually contains.
type ImageInfo struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`    // "png", "jpeg" or "gif", from content
	MimeType      string `json:"mime_type"` // sniffed, e.g. "image/jpeg"
	Extension     string `json:"extension"` // canonical extension for the content
	ColorDepth    string `json:"color_depth"`
	HasAlpha      bool   `json:"has_alpha"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// LoadImageInfo loads an image through cache and reports its metadata.
//
// The reported Width and Height are what a braille_translate request should
// pass when the detections were made on the letterboxed version of this page.
//
// # Format Detection
//
// Format, MimeType and Extension come from content sniffing with mimetype,
// not from the file name. A JPEG saved as "page.png" reports "jpeg".
//
// # Color Depth Detection
//
// ColorDepth and HasAlpha are inferred from the decoder's concrete image type:
//   - *image.RGBA, *image.NRGBA: 8-bit with alpha
//   - *image.RGBA64, *image.NRGBA64: 16-bit with alpha
//   - *image.Gray16: 16-bit, no alpha
//   - everything else (YCbCr, Paletted, Gray): 8-bit, no alpha
//
// Errors are those of Load, plus a stat failure if the file disappears
// between decoding and stat.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	mt, err := sniff(path)
	if err != nil {
		return nil, err
	}

	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        strings.TrimPrefix(mt.String(), "image/"),
		MimeType:      mt.String(),
		Extension:     mt.Extension(),
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
	}, nil
}
