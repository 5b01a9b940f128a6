package overlay

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-mctrack/internal/log"
)

// GridLayout places n cells of size cell in a near-square grid and returns
// the canvas size and each cell's rectangle.
func GridLayout(n int, cell image.Point) (image.Point, []image.Rectangle) {
	if n < 1 {
		return image.Point{}, nil
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols

	rects := make([]image.Rectangle, n)
	for i := range rects {
		x := (i % cols) * cell.X
		y := (i / cols) * cell.Y
		rects[i] = image.Rect(x, y, x+cell.X, y+cell.Y)
	}
	return image.Pt(cols*cell.X, rows*cell.Y), rects
}

// VideoSink composites every source into a grid and appends it to a video
// file each time source 0 is written.
type VideoSink struct {
	path   string
	fps    float64
	cell   image.Point
	canvas image.Point
	rects  []image.Rectangle
	log    *slog.Logger

	mu      sync.Mutex
	latest  []gocv.Mat // Per source, resized to cell
	writer  *gocv.VideoWriter
	written int
	closed  bool
}

// NewVideoSink creates a grid video writer for numSources cameras.
// The file is opened on the first composite.
func NewVideoSink(path string, numSources int, cell image.Point, fps float64) (*VideoSink, error) {
	if path == "" {
		return nil, fmt.Errorf("overlay: output video path required")
	}
	if numSources < 1 {
		return nil, fmt.Errorf("overlay: at least one source required")
	}
	if cell.X <= 0 || cell.Y <= 0 {
		return nil, fmt.Errorf("overlay: invalid cell size %v", cell)
	}
	if fps <= 0 {
		fps = 25
	}

	canvas, rects := GridLayout(numSources, cell)
	latest := make([]gocv.Mat, numSources)
	for i := range latest {
		latest[i] = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), cell.Y, cell.X, gocv.MatTypeCV8UC3)
	}
	return &VideoSink{
		path:   path,
		fps:    fps,
		cell:   cell,
		canvas: canvas,
		rects:  rects,
		latest: latest,
		log:    log.Component("overlay").With("output", path),
	}, nil
}

// Write stores the source's latest frame and, for source 0, writes a grid.
func (v *VideoSink) Write(source int, annotated gocv.Mat) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return fmt.Errorf("overlay: video sink closed")
	}
	if source < 0 || source >= len(v.latest) {
		return fmt.Errorf("overlay: source %d out of range", source)
	}
	gocv.Resize(annotated, &v.latest[source], v.cell, 0, 0, gocv.InterpolationArea)

	if source != 0 {
		return nil
	}

	grid := v.compose()
	defer grid.Close()

	if v.writer == nil {
		w, err := gocv.VideoWriterFile(v.path, "MJPG", v.fps, v.canvas.X, v.canvas.Y, true)
		if err != nil {
			return fmt.Errorf("overlay: open %s: %w", v.path, err)
		}
		if !w.IsOpened() {
			w.Close()
			return fmt.Errorf("overlay: could not open %s for writing", v.path)
		}
		v.writer = w
		v.log.Info("🎞️ writing output video", "size", v.canvas, "fps", v.fps)
	}
	if err := v.writer.Write(grid); err != nil {
		return fmt.Errorf("overlay: write frame: %w", err)
	}
	v.written++
	return nil
}

// compose copies the latest frames into a new canvas Mat.
func (v *VideoSink) compose() gocv.Mat {
	grid := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), v.canvas.Y, v.canvas.X, gocv.MatTypeCV8UC3)
	for i, r := range v.rects {
		cell := grid.Region(r)
		v.latest[i].CopyTo(&cell)
		cell.Close()
	}
	return grid
}

// Written returns how many grid frames were written.
func (v *VideoSink) Written() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.written
}

// Close finalizes the video file.
func (v *VideoSink) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}
	v.closed = true
	for i := range v.latest {
		v.latest[i].Close()
	}
	if v.writer == nil {
		return nil
	}
	v.log.Info("output video closed", "frames", v.written)
	return v.writer.Close()
}
