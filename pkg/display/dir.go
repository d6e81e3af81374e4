package display

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"studyguide.cvdemos/pkg/imageio"
)

// DirSurface writes every shown frame as a numbered PNG into a directory
// and takes key presses from an optional channel, typically TerminalKeys.
type DirSurface struct {
	dir    string
	prefix string
	keys   <-chan int
	seq    int
}

// NewDirSurface creates dir if needed. keys may be nil.
func NewDirSurface(dir, window string, keys <-chan int) (*DirSurface, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &DirSurface{
		dir:    dir,
		prefix: slug(window),
		keys:   keys,
	}, nil
}

// Show saves img as <dir>/<window>_<seq>.png.
func (s *DirSurface) Show(_ context.Context, img image.Image) error {
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%04d.png", s.prefix, s.seq))
	if err := imageio.SavePNG(path, img); err != nil {
		return err
	}
	s.seq++
	return nil
}

func (s *DirSurface) WaitKey(ctx context.Context, delay time.Duration) (int, error) {
	return waitKey(ctx, delay, s.keys)
}

// Frames is the number of frames written so far.
func (s *DirSurface) Frames() int { return s.seq }

func (s *DirSurface) Close() error { return nil }

// slug lowercases name and replaces anything outside [a-z0-9] with '_'.
func slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "frame"
	}

	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
}
