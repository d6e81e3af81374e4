// Package imageio loads source images and saves rendered frames.
package imageio

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"studyguide.cvdemos/pkg/blur"
)

// Load decodes the image at path (PNG, JPEG, GIF, BMP, TIFF or WebP) and
// returns it as RGBA.
func Load(path string) (*image.RGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	rgba := blur.ToRGBA(img)
	if rgba.Bounds().Empty() {
		return nil, fmt.Errorf("%s: empty image", path)
	}
	return rgba, nil
}

// SavePNG writes img to path as PNG.
func SavePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}

	return file.Close()
}
