// Package sweep runs the smoothing demonstration: a caption, then every
// filter family swept over odd kernel sizes, shown on a display surface.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"studyguide.cvdemos/pkg/blur"
	"studyguide.cvdemos/pkg/caption"
	"studyguide.cvdemos/pkg/display"
)

const (
	DefaultCaptionDelay    = 1500 * time.Millisecond
	DefaultBlurDelay       = 100 * time.Millisecond
	DefaultMaxKernelLength = 31

	OriginalCaption = "Original Image"
	DoneCaption     = "Done!"
)

// Family is one filter family and how to build its filter for kernel size k.
type Family struct {
	Caption string
	New     func(k int) blur.Filter
}

// Families returns box, Gaussian, median and bilateral in display order.
func Families() []Family {
	return []Family{
		{Caption: "Homogeneous Blur", New: func(k int) blur.Filter { return blur.Box{Size: k} }},
		{Caption: "Gaussian Blur", New: func(k int) blur.Filter { return blur.Gaussian{Size: k} }},
		{Caption: "Median Blur", New: func(k int) blur.Filter { return blur.Median{Size: k} }},
		{Caption: "Bilateral Blur", New: func(k int) blur.Filter {
			return blur.Bilateral{Diameter: k, SigmaColor: float64(k * 2), SigmaSpace: float64(k / 2)}
		}},
	}
}

// KernelSizes lists the odd sizes 1, 3, ... strictly below maxLength.
func KernelSizes(maxLength int) []int {
	var sizes []int
	for k := 1; k < maxLength; k += 2 {
		sizes = append(sizes, k)
	}
	return sizes
}

// ApplyFunc runs one filter over an image. The default is f.Apply; a tile
// pool can be plugged in instead.
type ApplyFunc func(src *image.RGBA, f blur.Filter) *image.RGBA

type Options struct {
	CaptionDelay    time.Duration
	BlurDelay       time.Duration
	MaxKernelLength int
	// FromSource filters every step from the untouched source instead of
	// the previous step's output.
	FromSource bool
	Families   []Family
	Apply      ApplyFunc
	Logger     *log.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxKernelLength <= 0 {
		o.MaxKernelLength = DefaultMaxKernelLength
	}
	if o.Families == nil {
		o.Families = Families()
	}
	if o.Apply == nil {
		o.Apply = func(src *image.RGBA, f blur.Filter) *image.RGBA { return f.Apply(src) }
	}
	return o
}

// FamilyResult summarises one family's sweep.
type FamilyResult struct {
	Family      string
	KernelSizes []int
	Elapsed     time.Duration
}

type Result struct {
	// Cancelled is set when a key press or context cancellation ended the
	// run early.
	Cancelled bool
	Key       int
	Frames    int
	Families  []FamilyResult
}

// Run shows the whole sequence on surface. A key press or ctx cancellation
// stops it early and is reported through Result, not as an error. Errors
// come only from the surface.
func Run(ctx context.Context, src *image.RGBA, surface display.Surface, opts Options) (Result, error) {
	opts = opts.withDefaults()
	r := &runner{ctx: ctx, surface: surface}
	result := Result{Key: display.NoKey}

	stopped, err := r.show(caption.Frame(src.Bounds(), OriginalCaption), opts.CaptionDelay, &result)
	if err != nil || stopped {
		return result, err
	}
	stopped, err = r.show(src, opts.CaptionDelay, &result)
	if err != nil || stopped {
		return result, err
	}

	sizes := KernelSizes(opts.MaxKernelLength)
	for _, family := range opts.Families {
		stopped, err := r.show(caption.Frame(src.Bounds(), family.Caption), opts.CaptionDelay, &result)
		if err != nil || stopped {
			return result, err
		}

		familyResult := FamilyResult{Family: family.Caption}
		working := blur.Clone(src)

		for _, k := range sizes {
			input := working
			if opts.FromSource {
				input = src
			}

			start := time.Now()
			working = opts.Apply(input, family.New(k))
			elapsed := time.Since(start)

			familyResult.KernelSizes = append(familyResult.KernelSizes, k)
			familyResult.Elapsed += elapsed

			if opts.Logger != nil {
				opts.Logger.Printf("Sweep: %s k=%d in %.2fms", family.Caption, k, float64(elapsed.Microseconds())/1000.0)
			}

			stopped, err := r.show(working, opts.BlurDelay, &result)
			if err != nil || stopped {
				result.Families = append(result.Families, familyResult)
				return result, err
			}
		}

		result.Families = append(result.Families, familyResult)
	}

	_, err = r.show(caption.Frame(src.Bounds(), DoneCaption), opts.CaptionDelay, &result)
	return result, err
}

type runner struct {
	ctx     context.Context
	surface display.Surface
}

// show draws img and waits. It reports true when the run must stop.
func (r *runner) show(img image.Image, delay time.Duration, result *Result) (bool, error) {
	if err := r.surface.Show(r.ctx, img); err != nil {
		if isCancel(err) {
			result.Cancelled = true
			return true, nil
		}
		return true, fmt.Errorf("failed to show frame: %w", err)
	}
	result.Frames++

	key, err := r.surface.WaitKey(r.ctx, delay)
	if err != nil {
		if isCancel(err) {
			result.Cancelled = true
			return true, nil
		}
		return true, fmt.Errorf("failed to wait for key: %w", err)
	}

	if key >= 0 {
		result.Cancelled = true
		result.Key = key
		return true, nil
	}
	return false, nil
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
