package sweep

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyguide.cvdemos/pkg/blur"
	"studyguide.cvdemos/pkg/display"
	"studyguide.cvdemos/pkg/tiles"
)

// recorder is a display.Surface that keeps every frame and presses a key
// at a chosen wait.
type recorder struct {
	frames  []*image.RGBA
	delays  []time.Duration
	keyAt   int
	key     int
	showErr error
}

func newRecorder() *recorder { return &recorder{keyAt: -1} }

func (r *recorder) Show(_ context.Context, img image.Image) error {
	if r.showErr != nil {
		return r.showErr
	}
	r.frames = append(r.frames, blur.Clone(blur.ToRGBA(img)))
	return nil
}

func (r *recorder) WaitKey(ctx context.Context, delay time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return display.NoKey, err
	}
	r.delays = append(r.delays, delay)
	if len(r.delays)-1 == r.keyAt {
		return r.key, nil
	}
	return display.NoKey, nil
}

func (r *recorder) Close() error { return nil }

// lowNoise is mid-grey with a few levels of noise, so colour weights in the
// bilateral filter stay well above zero.
func lowNoise(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		if i%4 == 3 {
			img.Pix[i] = 255
			continue
		}
		img.Pix[i] = uint8(120 + rng.Intn(7))
	}
	return img
}

func bilateralOnly() []Family {
	return Families()[3:]
}

func TestKernelSizes(t *testing.T) {
	sizes := KernelSizes(31)
	require.Len(t, sizes, 15)
	assert.Equal(t, 1, sizes[0])
	assert.Equal(t, 29, sizes[14])

	assert.Equal(t, sizes, KernelSizes(30))
	assert.Equal(t, []int{1, 3}, KernelSizes(5))
	assert.Empty(t, KernelSizes(1))
}

func TestFamilies(t *testing.T) {
	families := Families()
	require.Len(t, families, 4)

	captions := make([]string, len(families))
	for i, f := range families {
		captions[i] = f.Caption
	}
	assert.Equal(t, []string{"Homogeneous Blur", "Gaussian Blur", "Median Blur", "Bilateral Blur"}, captions)

	assert.Equal(t, blur.Box{Size: 7}, families[0].New(7))
	assert.Equal(t, blur.Gaussian{Size: 7}, families[1].New(7))
	assert.Equal(t, blur.Median{Size: 7}, families[2].New(7))
	assert.Equal(t, blur.Bilateral{Diameter: 5, SigmaColor: 10, SigmaSpace: 2}, families[3].New(5))
}

func TestRun_FullSequence(t *testing.T) {
	src := lowNoise(8, 6, 1)
	surface := newRecorder()

	result, err := Run(context.Background(), src, surface, Options{
		CaptionDelay: 3 * time.Millisecond,
		BlurDelay:    time.Millisecond,
	})
	require.NoError(t, err)

	assert.False(t, result.Cancelled)
	assert.Equal(t, display.NoKey, result.Key)
	// caption + source, caption + 15 steps per family, closing caption
	assert.Equal(t, 2+4*16+1, result.Frames)
	require.Len(t, surface.frames, result.Frames)

	assert.Equal(t, src.Pix, surface.frames[1].Pix)
	assert.Equal(t, 3*time.Millisecond, surface.delays[0])
	assert.Equal(t, 3*time.Millisecond, surface.delays[2])
	assert.Equal(t, time.Millisecond, surface.delays[3])

	require.Len(t, result.Families, 4)
	for _, f := range result.Families {
		assert.Equal(t, KernelSizes(31), f.KernelSizes, f.Family)
	}
}

func TestRun_Deterministic(t *testing.T) {
	src := lowNoise(12, 9, 5)
	opts := Options{MaxKernelLength: 9}

	a, b := newRecorder(), newRecorder()
	_, err := Run(context.Background(), src, a, opts)
	require.NoError(t, err)
	_, err = Run(context.Background(), blur.Clone(src), b, opts)
	require.NoError(t, err)

	require.Len(t, b.frames, len(a.frames))
	for i := range a.frames {
		require.Equal(t, a.frames[i].Pix, b.frames[i].Pix, "frame %d", i)
	}
}

func TestRun_CumulativeWithinFamily(t *testing.T) {
	src := lowNoise(16, 16, 3)

	cumulative := newRecorder()
	_, err := Run(context.Background(), src, cumulative, Options{MaxKernelLength: 5, Families: bilateralOnly()})
	require.NoError(t, err)

	fresh := newRecorder()
	_, err = Run(context.Background(), src, fresh, Options{MaxKernelLength: 5, Families: bilateralOnly(), FromSource: true})
	require.NoError(t, err)

	// frames: original caption, source, family caption, k=1, k=3, done
	require.Len(t, cumulative.frames, 6)
	require.Len(t, fresh.frames, 6)

	b1 := blur.Bilateral{Diameter: 1, SigmaColor: 2, SigmaSpace: 0}
	b3 := blur.Bilateral{Diameter: 3, SigmaColor: 6, SigmaSpace: 1}

	assert.Equal(t, b1.Apply(src).Pix, cumulative.frames[3].Pix)
	assert.Equal(t, b3.Apply(b1.Apply(src)).Pix, cumulative.frames[4].Pix)
	assert.Equal(t, b3.Apply(src).Pix, fresh.frames[4].Pix)

	assert.NotEqual(t, fresh.frames[4].Pix, cumulative.frames[4].Pix,
		"size-3 result must depend on whether size 1 ran first")
}

func TestRun_WorkingCopyResetPerFamily(t *testing.T) {
	src := lowNoise(10, 10, 8)
	families := []Family{Families()[0], Families()[0]}

	surface := newRecorder()
	_, err := Run(context.Background(), src, surface, Options{MaxKernelLength: 5, Families: families})
	require.NoError(t, err)

	// caption, source, [caption, k1, k3] x 2, done
	require.Len(t, surface.frames, 9)
	assert.Equal(t, surface.frames[4].Pix, surface.frames[7].Pix)
}

func TestRun_KeyPressStopsEarly(t *testing.T) {
	src := lowNoise(6, 6, 2)
	surface := newRecorder()
	surface.keyAt = 4
	surface.key = 'q'

	result, err := Run(context.Background(), src, surface, Options{})
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.Equal(t, int('q'), result.Key)
	assert.Equal(t, 5, result.Frames)
	require.Len(t, result.Families, 1)
	assert.Equal(t, []int{1, 3}, result.Families[0].KernelSizes)
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Run(ctx, lowNoise(4, 4, 1), &display.Headless{}, Options{CaptionDelay: time.Hour})
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Equal(t, 1, result.Frames)
}

func TestRun_SurfaceError(t *testing.T) {
	surface := newRecorder()
	surface.showErr = errors.New("gone")

	_, err := Run(context.Background(), lowNoise(4, 4, 1), surface, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, surface.showErr)
}

func TestRun_ShowInterruptedByCancel(t *testing.T) {
	surface := newRecorder()
	surface.showErr = fmt.Errorf("failed to publish frame 0: %w", context.Canceled)

	result, err := Run(context.Background(), lowNoise(4, 4, 1), surface, Options{})
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Equal(t, 0, result.Frames)
}

func TestRun_SourceUnmodified(t *testing.T) {
	src := lowNoise(9, 9, 4)
	before := blur.Clone(src)

	_, err := Run(context.Background(), src, newRecorder(), Options{MaxKernelLength: 7})
	require.NoError(t, err)
	assert.Equal(t, before.Pix, src.Pix)
}

func TestRun_TiledApplyMatches(t *testing.T) {
	src := lowNoise(40, 30, 6)
	pool := tiles.New(16, 3)

	plain := newRecorder()
	_, err := Run(context.Background(), src, plain, Options{MaxKernelLength: 7})
	require.NoError(t, err)

	tiled := newRecorder()
	calls := 0
	_, err = Run(context.Background(), src, tiled, Options{
		MaxKernelLength: 7,
		Apply: func(img *image.RGBA, f blur.Filter) *image.RGBA {
			calls++
			return pool.Apply(img, f)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 4*3, calls)
	require.Len(t, tiled.frames, len(plain.frames))
	for i := range plain.frames {
		if diff := cmp.Diff(plain.frames[i].Pix, tiled.frames[i].Pix); diff != "" {
			t.Fatalf("frame %d differs (-plain +tiled):\n%s", i, diff)
		}
	}
}
