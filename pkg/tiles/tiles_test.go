package tiles

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyguide.cvdemos/pkg/blur"
)

func noiseImage(r image.Rectangle, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(r)
	for i := range img.Pix {
		if i%4 == 3 {
			img.Pix[i] = 255
			continue
		}
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

func TestPool_TiledMatchesWholeImage(t *testing.T) {
	src := noiseImage(image.Rect(0, 0, 53, 38), 42)
	pool := New(16, 4)

	filters := []blur.Filter{
		blur.Box{Size: 7},
		blur.Gaussian{Size: 9},
		blur.Median{Size: 5},
		blur.Bilateral{Diameter: 7, SigmaColor: 14, SigmaSpace: 3},
		blur.Gaussian{Size: 29},
	}

	for _, f := range filters {
		t.Run(f.Name(), func(t *testing.T) {
			want := f.Apply(src)
			got := pool.Apply(src, f)
			require.Equal(t, want.Bounds(), got.Bounds())
			assert.Equal(t, want.Pix, got.Pix)
		})
	}
}

func TestPool_NonZeroOrigin(t *testing.T) {
	src := noiseImage(image.Rect(10, 20, 60, 55), 9)
	f := blur.Box{Size: 5}

	got := New(8, 3).Apply(src, f)
	want := f.Apply(src)

	require.Equal(t, src.Bounds(), got.Bounds())
	assert.Equal(t, want.Pix, got.Pix)
}

func TestPartition_CoversImageOnce(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 40, 25))
	tiles := partition(src, 16, 2)

	require.Len(t, tiles, 6)

	covered := make(map[image.Point]int)
	for i, tile := range tiles {
		assert.Equal(t, i, tile.TileID)
		assert.True(t, tile.Center().In(tile.Data.Bounds()), "tile %d centre outside padded data", i)
		assert.True(t, tile.Data.Bounds().In(src.Bounds()))
		for y := tile.Y; y < tile.Y+tile.Height; y++ {
			for x := tile.X; x < tile.X+tile.Width; x++ {
				covered[image.Pt(x, y)]++
			}
		}
	}

	assert.Len(t, covered, 40*25)
	for p, n := range covered {
		require.Equal(t, 1, n, "pixel %v covered %d times", p, n)
	}

	last := tiles[len(tiles)-1]
	assert.Equal(t, image.Rect(32, 16, 40, 25), last.Center())
	assert.Equal(t, image.Rect(30, 14, 40, 25), last.Data.Bounds())
}

func TestNew_Defaults(t *testing.T) {
	p := New(0, -3)
	assert.Equal(t, 256, p.TileSize())
	assert.Equal(t, 1, p.Workers())
}
