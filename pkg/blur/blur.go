package blur

import (
	"image"
	"image/draw"
	"math"
)

// Filter smooths an RGBA image. Radius is how far (in pixels) an output
// pixel can see into the source; a negative radius means the filter needs
// the whole image.
type Filter interface {
	Name() string
	Radius() int
	Apply(src *image.RGBA) *image.RGBA
}

// GenerateGaussianKernel creates a normalized 1-D Gaussian kernel of the
// given odd size. A non-positive sigma is derived from the size; sizes up
// to 7 with derived sigma use the fixed binomial-like kernels.
func GenerateGaussianKernel(size int, sigma float64) []float64 {
	if sigma <= 0 {
		if fixed, ok := fixedGaussianKernels[size]; ok {
			out := make([]float64, len(fixed))
			copy(out, fixed)
			return out
		}
		sigma = 0.3*(float64(size-1)*0.5-1) + 0.8
	}

	kernel := make([]float64, size)
	center := size / 2
	sum := 0.0

	for i := 0; i < size; i++ {
		x := float64(i - center)
		kernel[i] = math.Exp(-(x * x) / (2 * sigma * sigma))
		sum += kernel[i]
	}

	// Normalize kernel
	for i := range kernel {
		kernel[i] /= sum
	}

	return kernel
}

var fixedGaussianKernels = map[int][]float64{
	1: {1},
	3: {0.25, 0.5, 0.25},
	5: {0.0625, 0.25, 0.375, 0.25, 0.0625},
	7: {0.03125, 0.109375, 0.21875, 0.28125, 0.21875, 0.109375, 0.03125},
}

// ToRGBA returns img as an *image.RGBA, converting when needed.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}

// Clone returns a deep copy of img with the same bounds.
func Clone(img *image.RGBA) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

// convolveSeparable runs a horizontal then a vertical pass over all four
// channels. Borders reflect without repeating the edge pixel.
func convolveSeparable(src *image.RGBA, kx, ky []float64) *image.RGBA {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	dst := image.NewRGBA(bounds)
	if width == 0 || height == 0 {
		return dst
	}

	rx, ry := len(kx)/2, len(ky)/2
	tmp := make([]float64, width*height*4)

	for y := 0; y < height; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < width; x++ {
			var acc [4]float64
			for k, weight := range kx {
				sx := reflect101(x+k-rx, width) * 4
				acc[0] += float64(row[sx]) * weight
				acc[1] += float64(row[sx+1]) * weight
				acc[2] += float64(row[sx+2]) * weight
				acc[3] += float64(row[sx+3]) * weight
			}
			copy(tmp[(y*width+x)*4:], acc[:])
		}
	}

	for y := 0; y < height; y++ {
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < width; x++ {
			var acc [4]float64
			for k, weight := range ky {
				off := (reflect101(y+k-ry, height)*width + x) * 4
				acc[0] += tmp[off] * weight
				acc[1] += tmp[off+1] * weight
				acc[2] += tmp[off+2] * weight
				acc[3] += tmp[off+3] * weight
			}
			for c := 0; c < 4; c++ {
				out[x*4+c] = saturate(acc[c])
			}
		}
	}

	return dst
}

// reflect101 maps an out-of-range coordinate back into [0, n) by
// mirroring around the edge pixels (gfedcb|abcdefgh|gfedcba).
func reflect101(p, n int) int {
	if n == 1 {
		return 0
	}
	for p < 0 || p >= n {
		if p < 0 {
			p = -p
		} else {
			p = 2*n - 2 - p
		}
	}
	return p
}

func clamp(p, n int) int {
	if p < 0 {
		return 0
	}
	if p >= n {
		return n - 1
	}
	return p
}

func saturate(v float64) uint8 {
	v = math.RoundToEven(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
