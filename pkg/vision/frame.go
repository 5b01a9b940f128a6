// Package vision holds the data types shared by capture, detection, tracking
// and rendering: frames, detections and tracked objects.
package vision

import (
	"image"
	"time"
)

// Channels is the number of bytes per pixel in Frame.Data (BGR).
const Channels = 3

// Frame is one captured image from a source.
// Data holds Width*Height*Channels bytes, BGR, row-major.
// A Frame must not be modified after it has been pushed into a queue.
type Frame struct {
	Source   int       // Source index
	Seq      uint64    // Per-source capture sequence, starts at 1
	Captured time.Time // Capture timestamp
	Width    int
	Height   int
	Data     []byte
}

// Bounds returns the image rectangle of the frame.
func (f Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// Valid reports whether Data matches the declared dimensions.
func (f Frame) Valid() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Data) == f.Width*f.Height*Channels
}

// Detection is a detected person in pixel coordinates of the frame.
type Detection struct {
	Rect       image.Rectangle
	Confidence float64
}

// Area returns the area of the bounding box in pixels.
func (d Detection) Area() int {
	return d.Rect.Dx() * d.Rect.Dy()
}

// TrackedObject is an identity-labelled box for one source.
type TrackedObject struct {
	ID         int // Global identity shared across cameras
	Source     int
	Rect       image.Rectangle
	Confidence float64
}
