// package common contains plain types, math helpers, errors and logging shared across the engine. They are not
// interface-wrapped structs, just plain structs that express commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureStagingData holds RGBA pixel data pending GPU upload.
// The pipeline uses it for material textures and for the environment map.
type TextureStagingData struct {
	// Pixels holds RGBA data, 4 bytes per pixel, row-major.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// TextureSource references image data for a material texture or an environment map.
// Either Data (encoded bytes) or Path (file on disk) must be set.
type TextureSource struct {
	// Name is an identifier for this texture (e.g., "diffuse", "environment").
	Name string

	// Path is the file path for external textures (empty for embedded).
	Path string

	// Data contains encoded image bytes (PNG, JPEG, BMP, TIFF or WebP).
	Data []byte

	// MaxSize bounds the longest edge of the decoded image. Larger images are resampled down.
	// Zero disables resampling.
	MaxSize int
}

// Decode decodes the texture to raw RGBA pixel data.
// Uses either embedded Data bytes or loads from Path on disk.
// Images whose longest edge exceeds MaxSize are downsampled with a Catmull-Rom filter.
//
// Returns:
//   - TextureStagingData: the decoded pixels ready for upload
//   - error: error if decoding fails
func (t *TextureSource) Decode() (TextureStagingData, error) {
	if t == nil {
		return TextureStagingData{}, fmt.Errorf("texture is nil")
	}

	var img image.Image
	var err error

	switch {
	case len(t.Data) > 0:
		img, _, err = image.Decode(bytes.NewReader(t.Data))
		if err != nil {
			return TextureStagingData{}, fmt.Errorf("failed to decode embedded image: %w", err)
		}
	case t.Path != "":
		file, fileErr := os.Open(t.Path)
		if fileErr != nil {
			return TextureStagingData{}, fmt.Errorf("failed to open texture file %s: %w", t.Path, fileErr)
		}
		defer file.Close()

		img, _, err = image.Decode(file)
		if err != nil {
			return TextureStagingData{}, fmt.Errorf("failed to decode texture file %s: %w", t.Path, err)
		}
	default:
		return TextureStagingData{}, fmt.Errorf("texture has neither data nor path")
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if t.MaxSize > 0 && (width > t.MaxSize || height > t.MaxSize) {
		scale := float64(t.MaxSize) / float64(max(width, height))
		width = max(1, int(float64(width)*scale))
		height = max(1, int(float64(height)*scale))
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
		return TextureStagingData{Pixels: dst.Pix, Width: uint32(width), Height: uint32(height)}, nil
	}

	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	return TextureStagingData{Pixels: rgba.Pix, Width: uint32(width), Height: uint32(height)}, nil
}
