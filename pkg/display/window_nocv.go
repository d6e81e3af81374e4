//go:build !withcv
// +build !withcv

package display

import (
	"context"
	"image"
	"time"
)

// Window stands in for the OpenCV window in builds without the withcv tag.
type Window struct{}

// NewWindow always fails with ErrUnavailable; rebuild with -tags withcv.
func NewWindow(name string) (*Window, error) {
	return nil, ErrUnavailable
}

func (w *Window) Show(context.Context, image.Image) error { return ErrUnavailable }

func (w *Window) WaitKey(context.Context, time.Duration) (int, error) {
	return NoKey, ErrUnavailable
}

func (w *Window) Close() error { return nil }
