package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-mctrack/internal/log"
	"github.com/teslashibe/go-mctrack/pkg/vision"
)

// stubSource yields a fixed number of frames per source, then "unavailable".
type stubSource struct {
	mu        sync.Mutex
	remaining []int
	seq       []uint64
	calls     []int
	infinite  bool
	delay     time.Duration // Sleep before each frame
}

func newStubSource(framesPerSource ...int) *stubSource {
	return &stubSource{
		remaining: append([]int(nil), framesPerSource...),
		seq:       make([]uint64, len(framesPerSource)),
		calls:     make([]int, len(framesPerSource)),
	}
}

func newInfiniteSource(n int) *stubSource {
	s := newStubSource(make([]int, n)...)
	s.infinite = true
	return s
}

func (s *stubSource) GetFrame(i int) (vision.Frame, bool) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[i]++
	if !s.infinite && s.remaining[i] == 0 {
		return vision.Frame{}, false
	}
	if !s.infinite {
		s.remaining[i]--
	}
	s.seq[i]++
	return testFrame(i, s.seq[i]), true
}

func (s *stubSource) GetFrames() ([]vision.Frame, bool) {
	frames := make([]vision.Frame, 0, s.NumSources())
	for i := 0; i < s.NumSources(); i++ {
		f, ok := s.GetFrame(i)
		if !ok {
			return nil, false
		}
		frames = append(frames, f)
	}
	return frames, true
}

func (s *stubSource) NumSources() int {
	return len(s.remaining)
}

func (s *stubSource) callCount(i int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[i]
}

func testFrame(source int, seq uint64) vision.Frame {
	return vision.Frame{
		Source:   source,
		Seq:      seq,
		Captured: time.Now(),
		Width:    2,
		Height:   2,
		Data:     make([]byte, 2*2*vision.Channels),
	}
}

// stubDetector returns no detections, or fails when failOn matches.
type stubDetector struct {
	calls  atomic.Int64
	failOn func(vision.Frame) bool
}

var errDetect = errors.New("inference failed")

func (d *stubDetector) Detect(frame vision.Frame) ([]vision.Detection, error) {
	d.calls.Add(1)
	if d.failOn != nil && d.failOn(frame) {
		return nil, errDetect
	}
	return []vision.Detection{}, nil
}

// panickingDetector panics on every call.
type panickingDetector struct{}

func (panickingDetector) Detect(vision.Frame) ([]vision.Detection, error) {
	panic("model crashed")
}

// stubTracker records every ProcessFrame call and flags overlapping calls.
type stubTracker struct {
	mu       sync.Mutex
	seqs     map[int][]uint64
	inflight atomic.Int32
	overlaps atomic.Int32
	hold     time.Duration
}

func newStubTracker() *stubTracker {
	return &stubTracker{seqs: make(map[int][]uint64)}
}

func (t *stubTracker) ProcessFrame(frame vision.Frame, _ []vision.Detection, source int) error {
	if t.inflight.Add(1) > 1 {
		t.overlaps.Add(1)
	}
	defer t.inflight.Add(-1)
	if t.hold > 0 {
		time.Sleep(t.hold)
	}

	t.mu.Lock()
	t.seqs[source] = append(t.seqs[source], frame.Seq)
	t.mu.Unlock()
	return nil
}

func (t *stubTracker) TrackedObjects(int) []vision.TrackedObject {
	return []vision.TrackedObject{}
}

func (t *stubTracker) total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, s := range t.seqs {
		n += len(s)
	}
	return n
}

func (t *stubTracker) sourceSeqs(source int) []uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]uint64(nil), t.seqs[source]...)
}

// concurrentTracker declares itself safe for concurrent use.
type concurrentTracker struct {
	*stubTracker
}

func (concurrentTracker) ConcurrentSafe() {}

// countingRenderer counts draws and can hook each call.
type countingRenderer struct {
	draws  atomic.Int64
	onDraw func(n int64, frame vision.Frame) error
}

func (r *countingRenderer) Draw(frame vision.Frame, _ []vision.TrackedObject) error {
	n := r.draws.Add(1)
	if r.onDraw != nil {
		return r.onDraw(n, frame)
	}
	return nil
}

// testConfig returns a fast config with a quiet logger.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ThrottleInterval = time.Millisecond
	cfg.RetryInterval = 0
	cfg.PollInterval = time.Millisecond
	cfg.Logger = log.Discard()
	return cfg
}

// runWithTimeout runs the orchestrator and fails the test if Run hangs.
func runWithTimeout(t *testing.T, ctx context.Context, o *Orchestrator) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return within 5s")
		return nil
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
