package blur

import (
	"fmt"
	"image"
)

// Gaussian blurs with a Size x Size Gaussian kernel. Sigma <= 0 derives
// sigma from Size.
type Gaussian struct {
	Size  int
	Sigma float64
}

func (g Gaussian) Name() string { return fmt.Sprintf("gaussian(%d)", g.Size) }

func (g Gaussian) Radius() int { return g.Size / 2 }

func (g Gaussian) Apply(src *image.RGBA) *image.RGBA {
	if g.Size <= 1 {
		return Clone(src)
	}

	kernel := GenerateGaussianKernel(g.Size, g.Sigma)
	return convolveSeparable(src, kernel, kernel)
}
