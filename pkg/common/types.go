package common

import (
	"image"
	"time"
)

const (
	TileSize = 256
)

// ImageTile is one unit of tiled filter work. Data holds the padded region
// in source coordinates; X, Y, Width and Height describe the unpadded centre.
type ImageTile struct {
	TileID  int         `json:"tile_id"`
	X       int         `json:"x"`
	Y       int         `json:"y"`
	Width   int         `json:"width"`
	Height  int         `json:"height"`
	Padding int         `json:"padding"`
	Data    *image.RGBA `json:"-"`
}

// Center is the rectangle the tile is responsible for.
func (t *ImageTile) Center() image.Rectangle {
	return image.Rect(t.X, t.Y, t.X+t.Width, t.Y+t.Height)
}

type ProcessedImageTile struct {
	TileID int         `json:"tile_id"`
	X      int         `json:"x"`
	Y      int         `json:"y"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Data   *image.RGBA `json:"-"`
}

// FrameMessage is one rendered frame published on a frame stream.
type FrameMessage struct {
	Session string    `json:"session"`
	Seq     int       `json:"seq"`
	Window  string    `json:"window"`
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	PNG     []byte    `json:"png"`
	Time    time.Time `json:"time"`
}

// KeyMessage carries one key press from a viewer back to the demo.
type KeyMessage struct {
	Session string `json:"session"`
	Key     int    `json:"key"`
}
