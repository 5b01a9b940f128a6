package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors for invalid construction and lifecycle misuse.
var (
	ErrNoSources      = errors.New("pipeline: frame source has no sources")
	ErrNilSource      = errors.New("pipeline: frame source required")
	ErrNilDetector    = errors.New("pipeline: detector required")
	ErrNilTracker     = errors.New("pipeline: tracker required")
	ErrAlreadyStarted = errors.New("pipeline: orchestrator already started")
	ErrPanic          = errors.New("pipeline: collaborator panicked")
)

// Stage names the collaborator call that failed.
type Stage string

const (
	StageDetect Stage = "detect"
	StageTrack  Stage = "track"
	StageRender Stage = "render"
)

// SourceError is returned by a ProcessingWorker whose collaborator failed.
type SourceError struct {
	Source int
	Stage  Stage
	Seq    uint64 // Frame sequence being processed
	Err    error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("pipeline [source %d]: %s frame %d: %v", e.Source, e.Stage, e.Seq, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error {
	return e.Err
}
