package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-mctrack/pkg/vision"
)

// ProcessingWorker drains one source's queue through detection, tracking and
// rendering.
type ProcessingWorker struct {
	source   int
	queue    *FrameQueue
	process  *Flag
	capture  *CaptureWorker
	detector Detector
	tracker  *sharedTracker
	renderer Renderer
	cfg      Config
	stats    *counters
	fps      fpsMeter
	log      *slog.Logger
}

func newProcessingWorker(capture *CaptureWorker, detector Detector, tracker *sharedTracker, renderer Renderer, cfg Config) *ProcessingWorker {
	return &ProcessingWorker{
		source:   capture.source,
		queue:    capture.queue,
		process:  NewFlag(true),
		capture:  capture,
		detector: detector,
		tracker:  tracker,
		renderer: renderer,
		cfg:      cfg,
		stats:    capture.stats,
		fps:      fpsMeter{smoothing: cfg.FPSSmoothing},
		log:      cfg.Logger.With("source", capture.source, "worker", "processing"),
	}
}

// Run processes frames until the source is exhausted, the worker is stopped,
// ctx is cancelled or a collaborator fails. Before returning it stops the
// paired capture worker and waits for it to exit.
func (w *ProcessingWorker) Run(ctx context.Context) error {
	w.capture.Start()
	w.stats.setState(StateRunning)

	defer func() {
		w.capture.Stop()
		<-w.capture.Done()
		w.log.Debug("processing stopped", "processed", w.stats.processed.Load())
	}()

	for w.process.IsSet() {
		if ctx.Err() != nil {
			break
		}

		frame, ok := w.queue.PopWait(ctx, w.cfg.PollInterval)
		if !ok {
			if !w.capture.Running() && w.queue.Empty() {
				if w.capture.Exhausted() {
					w.stats.setState(StateFinished)
				} else {
					w.stats.setState(StateStopped)
				}
				return nil
			}
			continue
		}

		if err := w.handle(frame, time.Now()); err != nil {
			w.stats.setState(StateFailed)
			w.log.Error("source failed", "error", err)
			return err
		}
	}

	w.stats.setState(StateStopped)
	return nil
}

// handle runs one frame through the collaborators. start is when the frame
// left the queue, so idle polling does not count against the FPS.
// A collaborator panic is returned as a SourceError for its stage.
func (w *ProcessingWorker) handle(frame vision.Frame, start time.Time) (err error) {
	stage := StageDetect
	defer func() {
		if r := recover(); r != nil {
			err = &SourceError{Source: w.source, Stage: stage, Seq: frame.Seq, Err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}
	}()

	detections, err := w.detector.Detect(frame)
	if err != nil {
		return &SourceError{Source: w.source, Stage: StageDetect, Seq: frame.Seq, Err: err}
	}
	detectTime := time.Since(start)

	stage = StageTrack
	objects, err := w.tracker.step(w.source, frame, detections)
	if err != nil {
		return &SourceError{Source: w.source, Stage: StageTrack, Seq: frame.Seq, Err: err}
	}
	w.stats.processed.Add(1)

	stage = StageRender
	if err := w.renderer.Draw(frame, objects); err != nil {
		w.stats.renderErrors.Add(1)
		w.log.Warn("render failed", "seq", frame.Seq, "error", err)
	} else {
		w.stats.rendered.Add(1)
	}

	fps := w.fps.update(time.Since(start), detectTime)
	w.stats.setFPS(fps)
	w.log.Debug("frame processed",
		"seq", frame.Seq,
		"detections", len(detections),
		"objects", len(objects),
		"fps", fps)
	return nil
}

// Stop asks the worker to exit after its current iteration. Idempotent.
func (w *ProcessingWorker) Stop() {
	w.process.Clear()
}

// Capture returns the paired capture worker.
func (w *ProcessingWorker) Capture() *CaptureWorker {
	return w.capture
}
