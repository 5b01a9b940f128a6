package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-mctrack/pkg/vision"
)

// FrameQueue is the FIFO between one CaptureWorker and its ProcessingWorker.
//
// Push never blocks. Without a hard limit it never rejects either: the length
// threshold is enforced by the producer throttling itself, not by the queue.
// With a hard limit the oldest frame is dropped to make room.
type FrameQueue struct {
	mu     sync.Mutex
	frames []vision.Frame
	limit  int // 0 = unbounded

	// notify carries at most one wake-up token for PopWait.
	notify chan struct{}

	pushed  atomic.Uint64
	dropped atomic.Uint64
}

// NewFrameQueue creates an unbounded queue.
func NewFrameQueue() *FrameQueue {
	return NewBoundedFrameQueue(0)
}

// NewBoundedFrameQueue creates a queue that holds at most limit frames,
// dropping the oldest on overflow. limit <= 0 means unbounded.
func NewBoundedFrameQueue(limit int) *FrameQueue {
	if limit < 0 {
		limit = 0
	}
	return &FrameQueue{
		limit:  limit,
		notify: make(chan struct{}, 1),
	}
}

// Push appends a frame to the tail.
func (q *FrameQueue) Push(frame vision.Frame) {
	q.mu.Lock()
	if q.limit > 0 && len(q.frames) >= q.limit {
		q.frames[0] = vision.Frame{}
		q.frames = q.frames[1:]
		q.dropped.Add(1)
	}
	q.frames = append(q.frames, frame)
	q.mu.Unlock()
	q.pushed.Add(1)

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// TryPop removes and returns the head frame without blocking.
func (q *FrameQueue) TryPop() (vision.Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.frames) == 0 {
		return vision.Frame{}, false
	}
	frame := q.frames[0]
	q.frames[0] = vision.Frame{} // release pixel buffer
	q.frames = q.frames[1:]
	if len(q.frames) == 0 {
		q.frames = nil
	}
	return frame, true
}

// PopWait pops the head frame, waiting up to timeout for one to arrive.
// It returns early when ctx is done. timeout <= 0 behaves like TryPop.
func (q *FrameQueue) PopWait(ctx context.Context, timeout time.Duration) (vision.Frame, bool) {
	if frame, ok := q.TryPop(); ok || timeout <= 0 {
		return frame, ok
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-q.notify:
			if frame, ok := q.TryPop(); ok {
				return frame, true
			}
		case <-timer.C:
			return q.TryPop()
		case <-ctx.Done():
			return vision.Frame{}, false
		}
	}
}

// Len returns the number of queued frames.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Empty reports whether the queue holds no frames.
func (q *FrameQueue) Empty() bool {
	return q.Len() == 0
}

// Pushed returns the lifetime number of pushed frames.
func (q *FrameQueue) Pushed() uint64 {
	return q.pushed.Load()
}

// Dropped returns the number of frames evicted by the hard limit.
func (q *FrameQueue) Dropped() uint64 {
	return q.dropped.Load()
}
