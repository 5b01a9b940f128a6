package capture

import (
	"sync"

	"github.com/teslashibe/go-mctrack/pkg/vision"
)

// Mock is a scripted Reader for tests.
type Mock struct {
	mu     sync.Mutex
	frames []vision.Frame
	next   int
	reads  int
	closed bool
}

// NewMock returns a reader that yields frames in order, then reports no frame.
func NewMock(frames ...vision.Frame) *Mock {
	return &Mock{frames: frames}
}

// NewSolidMock returns a reader of n w*h frames filled with value.
func NewSolidMock(n, w, h int, value byte) *Mock {
	frames := make([]vision.Frame, n)
	for i := range frames {
		data := make([]byte, w*h*vision.Channels)
		for j := range data {
			data[j] = value
		}
		frames[i] = vision.Frame{Width: w, Height: h, Data: data}
	}
	return NewMock(frames...)
}

// Read returns the next scripted frame.
func (m *Mock) Read() (vision.Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	if m.closed || m.next >= len(m.frames) {
		return vision.Frame{}, false
	}
	f := m.frames[m.next]
	m.next++
	return f, true
}

// Reads returns how many times Read was called.
func (m *Mock) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the reader closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
