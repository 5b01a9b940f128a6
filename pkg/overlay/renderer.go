package overlay

import (
	"errors"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-mctrack/pkg/capture"
	"github.com/teslashibe/go-mctrack/pkg/vision"
)

// Sink consumes annotated frames. The Mat is only valid during Write.
type Sink interface {
	Write(source int, annotated gocv.Mat) error
	Close() error
}

// Renderer annotates each frame once and passes it to every sink.
type Renderer struct {
	drawer *Drawer
	sinks  []Sink
}

// NewRenderer creates a renderer; a nil drawer uses NewDrawer.
func NewRenderer(drawer *Drawer, sinks ...Sink) *Renderer {
	if drawer == nil {
		drawer = NewDrawer()
	}
	return &Renderer{drawer: drawer, sinks: sinks}
}

// Draw annotates frame and writes it to the sinks.
func (r *Renderer) Draw(frame vision.Frame, objects []vision.TrackedObject) error {
	img, err := capture.MatFromFrame(frame)
	if err != nil {
		return err
	}
	defer img.Close()

	r.drawer.Annotate(&img, frame.Source, objects)

	var errs []error
	for _, s := range r.sinks {
		if err := s.Write(frame.Source, img); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (r *Renderer) Close() error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
