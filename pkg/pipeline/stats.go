package pipeline

import (
	"fmt"
	"math"
	"sync/atomic"
)

// State is the lifecycle state of one source.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateFinished // end-of-stream
	StateStopped  // external stop
	StateFailed   // collaborator error
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateStarting; st <= StateFailed; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("pipeline: unknown state %q", text)
}

// Stats is a snapshot of one source's counters.
type Stats struct {
	Source       int     `json:"source"`
	State        State   `json:"state"`
	Captured     uint64  `json:"captured"`
	Processed    uint64  `json:"processed"`
	Rendered     uint64  `json:"rendered"`
	RenderErrors uint64  `json:"render_errors"`
	Throttles    uint64  `json:"throttles"`
	Dropped      uint64  `json:"dropped"`
	QueueLen     int     `json:"queue_len"`
	FPS          float64 `json:"fps"`
}

// counters are written by the workers and read lock-free by Stats.
type counters struct {
	captured     atomic.Uint64
	processed    atomic.Uint64
	rendered     atomic.Uint64
	renderErrors atomic.Uint64
	throttles    atomic.Uint64
	fpsBits      atomic.Uint64
	state        atomic.Int32
}

func (c *counters) setState(s State) { c.state.Store(int32(s)) }

func (c *counters) setFPS(fps float64) { c.fpsBits.Store(math.Float64bits(fps)) }

func (c *counters) snapshot(source int, q *FrameQueue) Stats {
	return Stats{
		Source:       source,
		State:        State(c.state.Load()),
		Captured:     c.captured.Load(),
		Processed:    c.processed.Load(),
		Rendered:     c.rendered.Load(),
		RenderErrors: c.renderErrors.Load(),
		Throttles:    c.throttles.Load(),
		Dropped:      q.Dropped(),
		QueueLen:     q.Len(),
		FPS:          math.Float64frombits(c.fpsBits.Load()),
	}
}
