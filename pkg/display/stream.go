package display

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/google/uuid"

	"studyguide.cvdemos/pkg/common"
)

// FrameStream is the transport a StreamSurface publishes frames to and
// reads keys from. ReadKey returns an empty id when block elapses with no
// new message; a non-positive block polls once.
type FrameStream interface {
	PublishFrame(ctx context.Context, msg *common.FrameMessage) (string, error)
	ReadKey(ctx context.Context, session, afterID string, block time.Duration) (string, *common.KeyMessage, error)
}

// StreamSurface publishes PNG-encoded frames for a remote viewer and takes
// key presses the viewer sends back.
type StreamSurface struct {
	stream  FrameStream
	session string
	window  string
	lastID  string
	seq     int
}

// NewStreamSurface starts a new session. Only keys sent after this call are
// observed.
func NewStreamSurface(stream FrameStream, window string) *StreamSurface {
	return &StreamSurface{
		stream:  stream,
		session: uuid.NewString(),
		window:  window,
		lastID:  fmt.Sprintf("%d-0", time.Now().UnixMilli()),
	}
}

func (s *StreamSurface) Session() string { return s.session }

func (s *StreamSurface) Show(ctx context.Context, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	bounds := img.Bounds()
	msg := &common.FrameMessage{
		Session: s.session,
		Seq:     s.seq,
		Window:  s.window,
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		PNG:     buf.Bytes(),
		Time:    time.Now(),
	}

	if _, err := s.stream.PublishFrame(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish frame %d: %w", s.seq, err)
	}
	s.seq++
	return nil
}

func (s *StreamSurface) WaitKey(ctx context.Context, delay time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return NoKey, err
	}

	deadline := time.Now().Add(delay)
	for {
		block := time.Until(deadline)
		if block <= 0 {
			block = 0
		}

		id, msg, err := s.stream.ReadKey(ctx, s.session, s.lastID, block)
		if err != nil {
			if ctx.Err() != nil {
				return NoKey, ctx.Err()
			}
			return NoKey, fmt.Errorf("failed to read key: %w", err)
		}

		if id != "" {
			s.lastID = id
			if msg != nil && msg.Session == s.session {
				return msg.Key, nil
			}
			continue
		}

		if !time.Now().Before(deadline) {
			return NoKey, nil
		}
	}
}

func (s *StreamSurface) Close() error { return nil }
