package pipeline

import "github.com/teslashibe/go-mctrack/pkg/vision"

// FrameSource provides frames for a fixed set of sources.
// A false return means no frame is available right now; it is not an error.
type FrameSource interface {
	GetFrame(source int) (vision.Frame, bool)
	GetFrames() ([]vision.Frame, bool)
	NumSources() int
}

// Detector finds people in a frame. It may be slow.
// Implementations must be safe for concurrent calls from distinct sources,
// or serialize internally.
type Detector interface {
	Detect(frame vision.Frame) ([]vision.Detection, error)
}

// Tracker is the shared multi-camera tracker.
// ProcessFrame mutates state for one source; TrackedObjects reads it.
type Tracker interface {
	ProcessFrame(frame vision.Frame, detections []vision.Detection, source int) error
	TrackedObjects(source int) []vision.TrackedObject
}

// ConcurrentTracker is a Tracker that is safe for concurrent calls with
// distinct source indices. Trackers that do not implement it are serialized.
type ConcurrentTracker interface {
	Tracker
	ConcurrentSafe()
}

// Renderer draws the tracked objects of one frame.
type Renderer interface {
	Draw(frame vision.Frame, objects []vision.TrackedObject) error
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(frame vision.Frame, objects []vision.TrackedObject) error

// Draw calls f.
func (f RendererFunc) Draw(frame vision.Frame, objects []vision.TrackedObject) error {
	return f(frame, objects)
}

type nopRenderer struct{}

func (nopRenderer) Draw(vision.Frame, []vision.TrackedObject) error { return nil }
