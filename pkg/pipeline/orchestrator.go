package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// pair is the capture/processing worker pair of one source.
type pair struct {
	capture    *CaptureWorker
	processing *ProcessingWorker
}

// Orchestrator fans out one worker pair per source around a shared tracker.
type Orchestrator struct {
	cfg     Config
	source  FrameSource
	tracker *sharedTracker
	pairs   []pair
	log     *slog.Logger

	started atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New builds the worker pairs for every source of the frame source.
// The tracker is shared by reference across all processing workers.
// A nil renderer discards output.
func New(source FrameSource, detector Detector, tracker Tracker, renderer Renderer, cfg Config) (*Orchestrator, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if detector == nil {
		return nil, ErrNilDetector
	}
	if tracker == nil {
		return nil, ErrNilTracker
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := source.NumSources()
	if n <= 0 {
		return nil, ErrNoSources
	}
	if renderer == nil {
		renderer = nopRenderer{}
	}

	cfg = cfg.withDefaults()
	o := &Orchestrator{
		cfg:     cfg,
		source:  source,
		tracker: newSharedTracker(tracker),
		pairs:   make([]pair, n),
		log:     cfg.Logger,
	}

	for i := 0; i < n; i++ {
		queue := NewBoundedFrameQueue(cfg.HardLimit)
		capture := newCaptureWorker(i, source, queue, cfg, &counters{})
		o.pairs[i] = pair{
			capture:    capture,
			processing: newProcessingWorker(capture, detector, o.tracker, renderer, cfg),
		}
	}

	return o, nil
}

// Run starts every worker pair and blocks until all of them have finished.
// It returns the joined errors of the sources that failed.
// Run may only be called once.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()

	o.log.Info("pipeline started",
		"sources", len(o.pairs),
		"max_queue_length", o.cfg.MaxQueueLength,
		"serialized_tracker", o.tracker.serialized())

	errs := make([]error, len(o.pairs))
	var wg sync.WaitGroup
	for i := range o.pairs {
		p := o.pairs[i]
		p.capture.Start()

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := p.processing.Run(ctx); err != nil {
				errs[i] = err
				if o.cfg.AbortOnError {
					o.log.Warn("aborting pipeline", "source", i)
					o.Stop()
				}
			}
		}(i)
	}
	wg.Wait()

	err := errors.Join(errs...)
	if err != nil {
		o.log.Error("pipeline finished with errors", "error", err)
	} else {
		o.log.Info("pipeline finished")
	}
	return err
}

// Stop requests every worker to exit. Safe to call from any goroutine and
// more than once; Run returns once all workers have been joined.
func (o *Orchestrator) Stop() {
	for _, p := range o.pairs {
		p.processing.Stop()
		p.capture.Stop()
	}
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// StopSource stops a single source's worker pair.
func (o *Orchestrator) StopSource(source int) error {
	if source < 0 || source >= len(o.pairs) {
		return fmt.Errorf("pipeline: source %d out of range [0, %d)", source, len(o.pairs))
	}
	o.pairs[source].processing.Stop()
	return nil
}

// NumSources returns the number of worker pairs.
func (o *Orchestrator) NumSources() int {
	return len(o.pairs)
}

// Stats returns a snapshot of every source's counters.
func (o *Orchestrator) Stats() []Stats {
	out := make([]Stats, len(o.pairs))
	for i, p := range o.pairs {
		out[i] = p.capture.stats.snapshot(i, p.capture.queue)
	}
	return out
}
