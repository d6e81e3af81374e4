//go:build withcv
// +build withcv

package display

import (
	"context"
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"
)

// Window is a native OpenCV highgui window.
type Window struct {
	w *gocv.Window
}

// NewWindow opens a window titled name.
func NewWindow(name string) (*Window, error) {
	return &Window{w: gocv.NewWindow(name)}, nil
}

func (w *Window) Show(_ context.Context, img image.Image) error {
	m, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("failed to convert frame: %w", err)
	}
	defer m.Close()

	w.w.IMShow(m)
	return nil
}

// WaitKey pumps the highgui event loop for delay, rounded to whole
// milliseconds and at least one.
func (w *Window) WaitKey(ctx context.Context, delay time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return NoKey, err
	}

	ms := int(delay / time.Millisecond)
	if ms <= 0 {
		ms = 1
	}
	return w.w.WaitKey(ms), nil
}

func (w *Window) Close() error {
	return w.w.Close()
}
