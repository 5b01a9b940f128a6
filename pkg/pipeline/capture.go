package pipeline

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// CaptureWorker pulls frames for one source into its queue until the source
// is exhausted or the worker is stopped.
type CaptureWorker struct {
	source  int
	frames  FrameSource
	queue   *FrameQueue
	process *Flag
	ended   atomic.Bool // set on end-of-stream
	cfg     Config
	stats   *counters
	log     *slog.Logger

	startOnce sync.Once
	done      chan struct{}
}

// NewCaptureWorker creates a capture worker for one source.
func NewCaptureWorker(source int, frames FrameSource, queue *FrameQueue, cfg Config) *CaptureWorker {
	return newCaptureWorker(source, frames, queue, cfg.withDefaults(), &counters{})
}

func newCaptureWorker(source int, frames FrameSource, queue *FrameQueue, cfg Config, stats *counters) *CaptureWorker {
	return &CaptureWorker{
		source:  source,
		frames:  frames,
		queue:   queue,
		process: NewFlag(true),
		cfg:     cfg,
		stats:   stats,
		log:     cfg.Logger.With("source", source, "worker", "capture"),
		done:    make(chan struct{}),
	}
}

// Start runs the worker in its own goroutine. Calling it again is a no-op.
func (w *CaptureWorker) Start() {
	w.startOnce.Do(func() {
		go w.run()
	})
}

// Run runs the capture loop on the calling goroutine.
func (w *CaptureWorker) Run() {
	ran := false
	w.startOnce.Do(func() { ran = true })
	if !ran {
		<-w.done
		return
	}
	w.run()
}

func (w *CaptureWorker) run() {
	defer close(w.done)
	w.log.Debug("capture started")

	for w.process.IsSet() {
		// Soft backpressure: delay once, then fetch and push regardless.
		if w.queue.Len() > w.cfg.MaxQueueLength {
			w.stats.throttles.Add(1)
			w.cfg.Sleep(w.cfg.ThrottleInterval)
			if !w.process.IsSet() {
				break
			}
		}

		frame, ok := w.frames.GetFrame(w.source)
		if !ok {
			if w.queue.Empty() {
				w.ended.Store(true)
				w.process.Clear()
				w.log.Debug("end of stream", "captured", w.stats.captured.Load())
				break
			}
			if w.cfg.RetryInterval > 0 {
				w.cfg.Sleep(w.cfg.RetryInterval)
			}
			continue
		}

		w.queue.Push(frame)
		w.stats.captured.Add(1)
	}

	w.log.Debug("capture stopped")
}

// Stop asks the worker to exit after its current iteration. Idempotent.
func (w *CaptureWorker) Stop() {
	w.process.Clear()
}

// Running reports whether the worker's process flag is still set.
func (w *CaptureWorker) Running() bool {
	return w.process.IsSet()
}

// Exhausted reports whether the worker stopped because its source ran dry
// with an empty queue.
func (w *CaptureWorker) Exhausted() bool {
	return w.ended.Load()
}

// Done is closed once the capture goroutine has returned.
func (w *CaptureWorker) Done() <-chan struct{} {
	return w.done
}

// Queue returns the worker's output queue.
func (w *CaptureWorker) Queue() *FrameQueue {
	return w.queue
}
