package overlay

import (
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-mctrack/pkg/capture"
)

// Publisher receives encoded camera frames, such as the web dashboard.
type Publisher interface {
	SendCameraFrame(source int, jpeg []byte)
}

// StreamSink JPEG-encodes annotated frames for a Publisher, at most one
// frame per source every MinInterval.
type StreamSink struct {
	pub         Publisher
	quality     int
	minInterval time.Duration

	mu   sync.Mutex
	last map[int]time.Time
	now  func() time.Time
}

// NewStreamSink creates a stream sink. maxFPS of 0 sends every frame.
func NewStreamSink(pub Publisher, quality int, maxFPS float64) *StreamSink {
	var interval time.Duration
	if maxFPS > 0 {
		interval = time.Duration(float64(time.Second) / maxFPS)
	}
	return &StreamSink{
		pub:         pub,
		quality:     quality,
		minInterval: interval,
		last:        make(map[int]time.Time),
		now:         time.Now,
	}
}

// Write encodes and publishes the frame unless the source is rate limited.
func (s *StreamSink) Write(source int, annotated gocv.Mat) error {
	if !s.due(source) {
		return nil
	}
	data, err := capture.EncodeMat(annotated, s.quality)
	if err != nil {
		return err
	}
	s.pub.SendCameraFrame(source, data)
	return nil
}

func (s *StreamSink) due(source int) bool {
	if s.minInterval <= 0 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if last, ok := s.last[source]; ok && now.Sub(last) < s.minInterval {
		return false
	}
	s.last[source] = now
	return true
}

// Close is a no-op; the publisher owns its connections.
func (s *StreamSink) Close() error { return nil }
