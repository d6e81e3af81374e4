// Package caption renders title frames: white text centred on black.
package caption

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// MaxScale caps how far the 7x13 bitmap font is enlarged.
const MaxScale = 3

// Frame returns a black image with the given bounds and text centred on it.
// The text is scaled by the largest integer factor up to MaxScale that still
// fits, and clipped when it does not fit at all.
func Frame(bounds image.Rectangle, text string) *image.RGBA {
	frame := image.NewRGBA(bounds)
	draw.Draw(frame, bounds, image.NewUniform(color.Black), image.Point{}, draw.Src)

	label := render(text)
	if label == nil || bounds.Empty() {
		return frame
	}

	textW, textH := label.Bounds().Dx(), label.Bounds().Dy()
	scale := max(1, min(MaxScale, bounds.Dx()/textW, bounds.Dy()/textH))
	w, h := textW*scale, textH*scale

	origin := image.Pt(bounds.Min.X+(bounds.Dx()-w)/2, bounds.Min.Y+(bounds.Dy()-h)/2)
	target := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(w, h))}

	draw.NearestNeighbor.Scale(frame, target, label, label.Bounds(), draw.Over, nil)
	return frame
}

// render draws text at 1x onto a transparent image just large enough to
// hold it.
func render(text string) *image.RGBA {
	if text == "" {
		return nil
	}

	face := basicfont.Face7x13
	metrics := face.Metrics()

	d := &font.Drawer{Face: face}
	width := d.MeasureString(text).Ceil()
	height := metrics.Height.Ceil()
	if width <= 0 || height <= 0 {
		return nil
	}

	label := image.NewRGBA(image.Rect(0, 0, width, height))
	d.Dst = label
	d.Src = image.White
	d.Dot = fixed.P(0, metrics.Ascent.Ceil())
	d.DrawString(text)

	return label
}
