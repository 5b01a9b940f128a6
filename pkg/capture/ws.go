package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-mctrack/internal/httpc"
	"github.com/teslashibe/go-mctrack/internal/log"
	"github.com/teslashibe/go-mctrack/pkg/vision"
)

// WSReader receives JPEG frames over a websocket, such as another node's
// /ws/camera feed. Decoded frames wait in a small drop-oldest buffer.
type WSReader struct {
	conn    *websocket.Conn
	frames  chan vision.Frame
	done    chan struct{}
	timeout time.Duration
	log     *slog.Logger

	closing   atomic.Bool
	dropped   atomic.Int64
	closeOnce sync.Once
}

// DialWS connects to a websocket JPEG feed.
func DialWS(ctx context.Context, url string, cfg Config) (*WSReader, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: httpc.DefaultConnectTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("capture: websocket connect %s: %w", url, err)
	}

	r := &WSReader{
		conn:    conn,
		frames:  make(chan vision.Frame, cfg.BufferSize),
		done:    make(chan struct{}),
		timeout: cfg.ReadTimeout,
		log:     log.Component("capture").With("input", url),
	}
	go r.readLoop(image.Pt(cfg.Width, cfg.Height))
	return r, nil
}

func (r *WSReader) readLoop(size image.Point) {
	defer close(r.done)

	for {
		mt, data, err := r.conn.ReadMessage()
		if err != nil {
			if !r.closing.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.log.Warn("websocket read failed", "error", err)
			}
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		f, err := DecodeJPEG(data, size)
		if err != nil {
			r.log.Debug("skipping undecodable frame", "error", err)
			continue
		}
		f.Captured = time.Now()
		r.offer(f)
	}
}

// offer buffers f, evicting the oldest frame when full. Only readLoop sends.
func (r *WSReader) offer(f vision.Frame) {
	select {
	case r.frames <- f:
		return
	default:
	}
	select {
	case <-r.frames:
		r.dropped.Add(1)
	default:
	}
	select {
	case r.frames <- f:
	default:
	}
}

// Read returns the oldest buffered frame, waiting up to ReadTimeout for one.
// False once the connection has closed and the buffer is empty.
func (r *WSReader) Read() (vision.Frame, bool) {
	select {
	case f := <-r.frames:
		return f, true
	default:
	}
	if r.timeout <= 0 {
		return vision.Frame{}, false
	}

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()
	select {
	case f := <-r.frames:
		return f, true
	case <-r.done:
		select {
		case f := <-r.frames:
			return f, true
		default:
			return vision.Frame{}, false
		}
	case <-timer.C:
		return vision.Frame{}, false
	}
}

// Dropped returns how many frames were evicted from the buffer.
func (r *WSReader) Dropped() int64 {
	return r.dropped.Load()
}

// Done is closed when the connection has ended.
func (r *WSReader) Done() <-chan struct{} {
	return r.done
}

// Close ends the connection and waits for the reader goroutine.
func (r *WSReader) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.closing.Store(true)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		r.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = r.conn.Close()
		<-r.done
		if errors.Is(err, websocket.ErrCloseSent) {
			err = nil
		}
	})
	return err
}
