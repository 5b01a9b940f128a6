package pipeline

import (
	"sync"

	"github.com/teslashibe/go-mctrack/pkg/vision"
)

// sharedTracker wraps the tracker shared by all processing workers.
// mu is nil when the tracker declares itself safe for concurrent use.
type sharedTracker struct {
	tracker Tracker
	mu      *sync.Mutex
}

func newSharedTracker(t Tracker) *sharedTracker {
	s := &sharedTracker{tracker: t}
	if _, ok := t.(ConcurrentTracker); !ok {
		s.mu = &sync.Mutex{}
	}
	return s
}

// step feeds one frame and returns the source's current tracked objects.
func (s *sharedTracker) step(source int, frame vision.Frame, detections []vision.Detection) ([]vision.TrackedObject, error) {
	if s.mu != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if err := s.tracker.ProcessFrame(frame, detections, source); err != nil {
		return nil, err
	}
	return s.tracker.TrackedObjects(source), nil
}

// serialized reports whether calls go through the orchestrator's mutex.
func (s *sharedTracker) serialized() bool {
	return s.mu != nil
}
