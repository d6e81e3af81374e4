// Package tiles runs an image filter over padded tiles on a fixed worker
// pool and reassembles the result.
package tiles

import (
	"image"
	"image/draw"
	"sync"

	"studyguide.cvdemos/pkg/common"
)

// Filter is the part of blur.Filter the pool needs.
type Filter interface {
	Radius() int
	Apply(src *image.RGBA) *image.RGBA
}

// Pool splits images into TileSize squares padded by the filter radius so
// that every tile sees the same neighbourhood the whole-image filter would.
type Pool struct {
	tileSize int
	workers  int
}

// New returns a pool. Non-positive arguments fall back to common.TileSize
// and a single worker.
func New(tileSize, workers int) *Pool {
	if tileSize <= 0 {
		tileSize = common.TileSize
	}
	if workers <= 0 {
		workers = 1
	}
	return &Pool{tileSize: tileSize, workers: workers}
}

func (p *Pool) TileSize() int { return p.tileSize }

func (p *Pool) Workers() int { return p.workers }

// Apply filters src. The result has the bounds of src and is identical to
// f.Apply(src).
func (p *Pool) Apply(src *image.RGBA, f Filter) *image.RGBA {
	bounds := src.Bounds()
	padding := f.Radius()

	if p.workers <= 1 || padding < 0 || (bounds.Dx() <= p.tileSize && bounds.Dy() <= p.tileSize) {
		return f.Apply(src)
	}

	tiles := partition(src, p.tileSize, padding)

	tileQueue := make(chan *common.ImageTile, len(tiles))
	resultQueue := make(chan *common.ProcessedImageTile, len(tiles))

	var wg sync.WaitGroup
	wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go worker(tileQueue, resultQueue, f, &wg)
	}

	for _, tile := range tiles {
		tileQueue <- tile
	}
	close(tileQueue)

	go func() {
		wg.Wait()
		close(resultQueue)
	}()

	return assemble(resultQueue, bounds)
}

// partition cuts img into tiles, each carrying its padded region clipped
// to the image bounds.
func partition(img *image.RGBA, tileSize, padding int) []*common.ImageTile {
	bounds := img.Bounds()
	var tiles []*common.ImageTile
	tileID := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y += tileSize {
		for x := bounds.Min.X; x < bounds.Max.X; x += tileSize {
			tileWidth := min(tileSize, bounds.Max.X-x)
			tileHeight := min(tileSize, bounds.Max.Y-y)

			padded := image.Rect(x-padding, y-padding, x+tileWidth+padding, y+tileHeight+padding).Intersect(bounds)

			tiles = append(tiles, &common.ImageTile{
				TileID:  tileID,
				X:       x,
				Y:       y,
				Width:   tileWidth,
				Height:  tileHeight,
				Padding: padding,
				Data:    img.SubImage(padded).(*image.RGBA),
			})
			tileID++
		}
	}

	return tiles
}

func worker(tileQueue <-chan *common.ImageTile, resultQueue chan<- *common.ProcessedImageTile, f Filter, wg *sync.WaitGroup) {
	defer wg.Done()

	for tile := range tileQueue {
		blurred := f.Apply(tile.Data)
		center := blurred.SubImage(tile.Center()).(*image.RGBA)

		resultQueue <- &common.ProcessedImageTile{
			TileID: tile.TileID,
			X:      tile.X,
			Y:      tile.Y,
			Width:  tile.Width,
			Height: tile.Height,
			Data:   center,
		}
	}
}

func assemble(resultQueue <-chan *common.ProcessedImageTile, bounds image.Rectangle) *image.RGBA {
	output := image.NewRGBA(bounds)
	for tile := range resultQueue {
		r := image.Rect(tile.X, tile.Y, tile.X+tile.Width, tile.Y+tile.Height)
		draw.Draw(output, r, tile.Data, r.Min, draw.Src)
	}
	return output
}
