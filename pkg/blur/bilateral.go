package blur

import (
	"fmt"
	"image"
	"math"
)

// Bilateral is an edge-preserving smoothing filter. Each neighbour within
// a circular window is weighted by its spatial distance (SigmaSpace) and
// by the L1 colour distance from the centre pixel (SigmaColor).
type Bilateral struct {
	Diameter   int
	SigmaColor float64
	SigmaSpace float64
}

func (b Bilateral) Name() string {
	return fmt.Sprintf("bilateral(%d, %g, %g)", b.Diameter, b.SigmaColor, b.SigmaSpace)
}

func (b Bilateral) sigmas() (float64, float64) {
	sc, ss := b.SigmaColor, b.SigmaSpace
	if sc <= 0 {
		sc = 1
	}
	if ss <= 0 {
		ss = 1
	}
	return sc, ss
}

// Radius is Diameter/2, or 1.5*SigmaSpace when Diameter is not positive,
// and never less than 1.
func (b Bilateral) Radius() int {
	_, ss := b.sigmas()

	r := b.Diameter / 2
	if b.Diameter <= 0 {
		r = int(math.RoundToEven(ss * 1.5))
	}
	if r < 1 {
		r = 1
	}
	return r
}

type tap struct {
	dx, dy int
	weight float64
}

func (b Bilateral) Apply(src *image.RGBA) *image.RGBA {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	dst := image.NewRGBA(bounds)

	sigmaColor, sigmaSpace := b.sigmas()
	radius := b.Radius()
	gaussColor := -0.5 / (sigmaColor * sigmaColor)
	gaussSpace := -0.5 / (sigmaSpace * sigmaSpace)

	var colorWeight [3*255 + 1]float64
	for i := range colorWeight {
		d := float64(i)
		colorWeight[i] = math.Exp(d * d * gaussColor)
	}

	var taps []tap
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			dist := math.Sqrt(float64(dx*dx + dy*dy))
			if dist > float64(radius) {
				continue
			}
			taps = append(taps, tap{dx: dx, dy: dy, weight: math.Exp(dist * dist * gaussSpace)})
		}
	}

	for y := 0; y < height; y++ {
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < width; x++ {
			center := src.Pix[y*src.Stride+x*4:]
			r0, g0, b0 := int(center[0]), int(center[1]), int(center[2])

			var acc [4]float64
			wsum := 0.0
			for _, t := range taps {
				sx := reflect101(x+t.dx, width)
				sy := reflect101(y+t.dy, height)
				p := src.Pix[sy*src.Stride+sx*4:]

				diff := absInt(int(p[0])-r0) + absInt(int(p[1])-g0) + absInt(int(p[2])-b0)
				w := t.weight * colorWeight[diff]

				acc[0] += float64(p[0]) * w
				acc[1] += float64(p[1]) * w
				acc[2] += float64(p[2]) * w
				acc[3] += float64(p[3]) * w
				wsum += w
			}

			for c := 0; c < 4; c++ {
				out[x*4+c] = saturate(acc[c] / wsum)
			}
		}
	}

	return dst
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
