package blur

import (
	"fmt"
	"image"
)

// Median replaces each channel value with the median of its Size x Size
// neighbourhood. Borders replicate the edge pixel.
type Median struct {
	Size int
}

func (m Median) Name() string { return fmt.Sprintf("median(%d)", m.Size) }

func (m Median) Radius() int { return m.Size / 2 }

// Apply keeps one 256-bin histogram per channel and slides it along each
// row, so the cost per pixel grows with Size rather than Size².
func (m Median) Apply(src *image.RGBA) *image.RGBA {
	if m.Size <= 1 {
		return Clone(src)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	dst := image.NewRGBA(bounds)
	r := m.Size / 2
	rank := (m.Size*m.Size)/2 + 1

	var hist [4][256]int

	addColumn := func(cx, y, delta int) {
		sx := clamp(cx, width) * 4
		for dy := -r; dy <= r; dy++ {
			p := src.Pix[clamp(y+dy, height)*src.Stride+sx:]
			hist[0][p[0]] += delta
			hist[1][p[1]] += delta
			hist[2][p[2]] += delta
			hist[3][p[3]] += delta
		}
	}

	for y := 0; y < height; y++ {
		hist = [4][256]int{}
		for dx := -r; dx <= r; dx++ {
			addColumn(dx, y, 1)
		}

		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < width; x++ {
			if x > 0 {
				addColumn(x-1-r, y, -1)
				addColumn(x+r, y, 1)
			}
			for c := 0; c < 4; c++ {
				out[x*4+c] = medianOf(&hist[c], rank)
			}
		}
	}

	return dst
}

func medianOf(h *[256]int, rank int) uint8 {
	seen := 0
	for v, n := range h {
		seen += n
		if seen >= rank {
			return uint8(v)
		}
	}
	return 255
}
