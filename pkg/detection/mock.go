package detection

import (
	"sync"

	"github.com/teslashibe/go-mctrack/pkg/vision"
)

// Mock is a scripted detector for tests and dry runs.
type Mock struct {
	// DetectFunc overrides the static result when set.
	DetectFunc func(frame vision.Frame) ([]vision.Detection, error)
	Result     []vision.Detection

	mu    sync.Mutex
	calls []vision.Frame
}

// NewMock returns a detector that always reports dets.
func NewMock(dets ...vision.Detection) *Mock {
	return &Mock{Result: dets}
}

// Detect records the frame and returns the scripted detections.
func (m *Mock) Detect(frame vision.Frame) ([]vision.Detection, error) {
	m.mu.Lock()
	m.calls = append(m.calls, frame)
	m.mu.Unlock()

	if m.DetectFunc != nil {
		return m.DetectFunc(frame)
	}
	out := make([]vision.Detection, len(m.Result))
	copy(out, m.Result)
	return out, nil
}

// Calls returns the frames seen so far.
func (m *Mock) Calls() []vision.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]vision.Frame(nil), m.calls...)
}

// Close is a no-op.
func (m *Mock) Close() error { return nil }
