package capture

import (
	"fmt"
	"image"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-mctrack/internal/log"
	"github.com/teslashibe/go-mctrack/pkg/vision"
)

// VideoReader reads a camera device, video file or stream through OpenCV.
type VideoReader struct {
	vc   *gocv.VideoCapture
	mat  gocv.Mat
	size image.Point
	log  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// OpenVideo opens a device, file or stream input.
func OpenVideo(in Input, cfg Config) (*VideoReader, error) {
	var target interface{} = in.Raw
	if in.Kind == KindDevice {
		target = in.Device
	}

	vc, err := gocv.OpenVideoCapture(target)
	if err != nil {
		return nil, fmt.Errorf("capture: open %s %q: %w", in.Kind, in.Raw, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("capture: %s %q did not open", in.Kind, in.Raw)
	}

	if in.Kind == KindDevice {
		if cfg.Resizes() {
			vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
			vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
		}
		if cfg.FPS > 0 {
			vc.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))
		}
	}

	return &VideoReader{
		vc:   vc,
		mat:  gocv.NewMat(),
		size: image.Pt(cfg.Width, cfg.Height),
		log:  log.Component("capture").With("input", in.Raw),
	}, nil
}

// Read grabs and decodes the next frame. False at end of file or on a
// failed grab.
func (r *VideoReader) Read() (vision.Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return vision.Frame{}, false
	}
	if ok := r.vc.Read(&r.mat); !ok || r.mat.Empty() {
		return vision.Frame{}, false
	}
	f, err := FrameFromMat(r.mat, r.size)
	if err != nil {
		r.log.Warn("frame conversion failed", "error", err)
		return vision.Frame{}, false
	}
	return f, true
}

// Close releases the capture device.
func (r *VideoReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.mat.Close()
	return r.vc.Close()
}
