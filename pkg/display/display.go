// Package display provides the surfaces the smoothing demo draws on and
// reads key presses from.
package display

import (
	"context"
	"errors"
	"image"
	"time"
)

// NoKey is returned by WaitKey when the delay elapsed without a key press.
const NoKey = -1

// ErrUnavailable reports that a surface cannot be used in this build or
// environment.
var ErrUnavailable = errors.New("display surface unavailable")

// Surface is one named window, updated in place.
type Surface interface {
	// Show replaces the window content with img. Implementations that do
	// I/O stop early when ctx is done.
	Show(ctx context.Context, img image.Image) error
	// WaitKey waits up to delay for a key press and returns its code, or
	// NoKey. A non-positive delay polls without waiting. Context
	// cancellation returns NoKey and the context error.
	WaitKey(ctx context.Context, delay time.Duration) (int, error)
	Close() error
}

// Headless discards frames and only honours the delays.
type Headless struct {
	Frames int
}

func (h *Headless) Show(context.Context, image.Image) error {
	h.Frames++
	return nil
}

func (h *Headless) WaitKey(ctx context.Context, delay time.Duration) (int, error) {
	return waitKey(ctx, delay, nil)
}

func (h *Headless) Close() error { return nil }

// waitKey waits for the first of: a key on keys, the delay elapsing, or
// ctx ending. A nil keys channel never delivers.
func waitKey(ctx context.Context, delay time.Duration, keys <-chan int) (int, error) {
	if err := ctx.Err(); err != nil {
		return NoKey, err
	}

	if delay <= 0 {
		select {
		case key, ok := <-keys:
			if ok {
				return key, nil
			}
		default:
		}
		return NoKey, nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return NoKey, ctx.Err()
		case <-timer.C:
			return NoKey, nil
		case key, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			return key, nil
		}
	}
}
