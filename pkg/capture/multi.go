package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-mctrack/internal/log"
	"github.com/teslashibe/go-mctrack/pkg/vision"
)

// Reader produces frames for one input. Read reports false when no frame
// is available; Multi fills in Source, Seq and Captured.
type Reader interface {
	Read() (vision.Frame, bool)
	Close() error
}

type slot struct {
	mu  sync.Mutex
	seq uint64
}

// Multi composes readers into one indexed frame source.
// Each source may be read from its own goroutine.
type Multi struct {
	readers []Reader
	names   []string
	slots   []slot
	log     *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewMulti wraps readers; source i is readers[i].
func NewMulti(readers ...Reader) *Multi {
	names := make([]string, len(readers))
	for i := range readers {
		names[i] = fmt.Sprintf("source-%d", i)
	}
	return &Multi{
		readers: readers,
		names:   names,
		slots:   make([]slot, len(readers)),
		log:     log.Component("capture"),
	}
}

// Open opens every input in order. If one fails, the ones already opened
// are closed.
func Open(ctx context.Context, inputs []string, cfg Config) (*Multi, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("capture: no inputs")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	readers := make([]Reader, 0, len(inputs))
	closeAll := func() {
		for _, r := range readers {
			r.Close()
		}
	}
	for _, raw := range inputs {
		in, err := ParseInput(raw)
		if err != nil {
			closeAll()
			return nil, err
		}
		r, err := openReader(ctx, in, cfg)
		if err != nil {
			closeAll()
			return nil, err
		}
		readers = append(readers, r)
		log.Component("capture").Info("input opened", "source", len(readers)-1, "input", raw, "kind", in.Kind)
	}

	m := NewMulti(readers...)
	copy(m.names, inputs)
	return m, nil
}

func openReader(ctx context.Context, in Input, cfg Config) (Reader, error) {
	switch in.Kind {
	case KindWebSocket:
		return DialWS(ctx, in.Raw, cfg)
	case KindSnapshot:
		return NewSnapshotReader(in.Raw, cfg), nil
	default:
		return OpenVideo(in, cfg)
	}
}

// GetFrame reads the next frame of source i.
func (m *Multi) GetFrame(i int) (vision.Frame, bool) {
	if i < 0 || i >= len(m.readers) {
		return vision.Frame{}, false
	}
	s := &m.slots[i]
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := m.readers[i].Read()
	if !ok {
		return vision.Frame{}, false
	}
	s.seq++
	f.Source = i
	f.Seq = s.seq
	if f.Captured.IsZero() {
		f.Captured = time.Now()
	}
	return f, true
}

// GetFrames reads one frame from every source. It reports false if any
// source had no frame.
func (m *Multi) GetFrames() ([]vision.Frame, bool) {
	frames := make([]vision.Frame, len(m.readers))
	all := true
	for i := range m.readers {
		f, ok := m.GetFrame(i)
		if !ok {
			all = false
			continue
		}
		frames[i] = f
	}
	return frames, all
}

// NumSources returns the number of inputs.
func (m *Multi) NumSources() int {
	return len(m.readers)
}

// Name returns the input string of source i.
func (m *Multi) Name(i int) string {
	if i < 0 || i >= len(m.names) {
		return ""
	}
	return m.names[i]
}

// Close closes every reader once.
func (m *Multi) Close() error {
	m.closeOnce.Do(func() {
		var errs []error
		for i, r := range m.readers {
			if err := r.Close(); err != nil {
				errs = append(errs, fmt.Errorf("source %d: %w", i, err))
			}
		}
		m.closeErr = errors.Join(errs...)
		m.log.Debug("inputs closed", "sources", len(m.readers))
	})
	return m.closeErr
}
