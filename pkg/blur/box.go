package blur

import (
	"fmt"
	"image"
)

// Box is the normalized Size x Size box (homogeneous) blur.
type Box struct {
	Size int
}

func (b Box) Name() string { return fmt.Sprintf("box(%d)", b.Size) }

func (b Box) Radius() int { return b.Size / 2 }

func (b Box) Apply(src *image.RGBA) *image.RGBA {
	if b.Size <= 1 {
		return Clone(src)
	}

	kernel := make([]float64, b.Size)
	for i := range kernel {
		kernel[i] = 1 / float64(b.Size)
	}
	return convolveSeparable(src, kernel, kernel)
}
