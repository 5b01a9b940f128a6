// Package pipeline runs the per-source capture and processing workers that
// feed a shared multi-camera tracker.
//
// Every source gets a pair of goroutines joined by one FrameQueue:
//
//   - CaptureWorker pulls frames from the FrameSource and pushes them into the
//     queue. It throttles itself when the queue is longer than
//     Config.MaxQueueLength, but still pushes afterwards (soft backpressure).
//   - ProcessingWorker pops frames, runs the Detector, updates the Tracker,
//     fetches this source's tracked objects and hands them to the Renderer.
//
// # Shutdown
//
// A source finishes when the FrameSource reports no frame while the queue is
// empty: the capture worker clears its flag and the processing worker exits
// once the queue has drained. Orchestrator.Stop, or cancelling the context
// passed to Orchestrator.Run, stops every pair. A ProcessingWorker always
// clears its capture worker's flag and waits for it before returning.
//
// # Usage
//
//	orch, err := pipeline.New(source, detector, tracker, renderer, pipeline.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	if err := orch.Run(ctx); err != nil {
//	    var serr *pipeline.SourceError
//	    if errors.As(err, &serr) {
//	        log.Error("source failed", "source", serr.Source, "stage", serr.Stage)
//	    }
//	}
//
// Trackers that do not implement ConcurrentTracker are serialized by the
// Orchestrator with a single mutex held around each ProcessFrame and
// TrackedObjects pair. Detection is never run under that lock.
package pipeline
