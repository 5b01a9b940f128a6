package capture

import (
	"context"
	"image"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/teslashibe/go-mctrack/internal/httpc"
	"github.com/teslashibe/go-mctrack/internal/log"
	"github.com/teslashibe/go-mctrack/pkg/vision"
)

// maxSnapshotBytes caps a single snapshot download.
const maxSnapshotBytes = 16 << 20

// SnapshotReader polls a JPEG snapshot URL, paced to Config.FPS.
type SnapshotReader struct {
	url      string
	client   *http.Client
	size     image.Point
	interval time.Duration
	log      *slog.Logger

	mu     sync.Mutex
	last   time.Time
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSnapshotReader creates a poller for url.
func NewSnapshotReader(url string, cfg Config) *SnapshotReader {
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = httpc.DefaultTimeout
	}
	var interval time.Duration
	if cfg.FPS > 0 {
		interval = time.Second / time.Duration(cfg.FPS)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SnapshotReader{
		url:      url,
		client:   httpc.NewClient(timeout),
		size:     image.Pt(cfg.Width, cfg.Height),
		interval: interval,
		log:      log.Component("capture").With("input", url),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Read fetches and decodes one snapshot. False on any fetch or decode error.
func (r *SnapshotReader) Read() (vision.Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx.Err() != nil {
		return vision.Frame{}, false
	}
	if r.interval > 0 {
		if wait := r.interval - time.Since(r.last); wait > 0 {
			select {
			case <-time.After(wait):
			case <-r.ctx.Done():
				return vision.Frame{}, false
			}
		}
	}
	r.last = time.Now()

	data, err := httpc.GetBytes(r.ctx, r.client, r.url, maxSnapshotBytes)
	if err != nil {
		r.log.Debug("snapshot fetch failed", "error", err)
		return vision.Frame{}, false
	}
	f, err := DecodeJPEG(data, r.size)
	if err != nil {
		r.log.Debug("snapshot decode failed", "error", err)
		return vision.Frame{}, false
	}
	f.Captured = r.last
	return f, true
}

// Close cancels any in-flight fetch.
func (r *SnapshotReader) Close() error {
	r.cancel()
	return nil
}
