package capture

import (
	"bytes"
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-mctrack/pkg/vision"
)

func solidFrame(w, h int, b, g, r byte) vision.Frame {
	data := make([]byte, w*h*vision.Channels)
	for i := 0; i < len(data); i += 3 {
		data[i], data[i+1], data[i+2] = b, g, r
	}
	return vision.Frame{Width: w, Height: h, Data: data}
}

func mustJPEG(t *testing.T, f vision.Frame) []byte {
	t.Helper()
	data, err := EncodeJPEG(f, 95)
	if err != nil {
		t.Fatalf("EncodeJPEG: %v", err)
	}
	return data
}

func near(a, b byte) bool {
	d := int(a) - int(b)
	return d > -8 && d < 8
}

func TestJPEG_EncodeDecode(t *testing.T) {
	src := solidFrame(32, 16, 200, 100, 50)
	data := mustJPEG(t, src)

	got, err := DecodeJPEG(data, image.Point{})
	if err != nil {
		t.Fatalf("DecodeJPEG: %v", err)
	}
	if got.Width != 32 || got.Height != 16 || !got.Valid() {
		t.Fatalf("decoded %dx%d valid=%v", got.Width, got.Height, got.Valid())
	}
	if !near(got.Data[0], 200) || !near(got.Data[1], 100) || !near(got.Data[2], 50) {
		t.Errorf("first pixel: got %v, want ~[200 100 50]", got.Data[:3])
	}

	resized, err := DecodeJPEG(data, image.Pt(8, 4))
	if err != nil {
		t.Fatalf("DecodeJPEG resized: %v", err)
	}
	if resized.Width != 8 || resized.Height != 4 {
		t.Errorf("resized: got %dx%d, want 8x4", resized.Width, resized.Height)
	}

	if _, err := DecodeJPEG([]byte("not a jpeg"), image.Point{}); err == nil {
		t.Error("DecodeJPEG garbage: expected error")
	}
}

func TestMatFromFrame_OwnsPixels(t *testing.T) {
	src := solidFrame(8, 4, 10, 20, 30)
	want := bytes.Clone(src.Data)

	m, err := MatFromFrame(src)
	if err != nil {
		t.Fatalf("MatFromFrame: %v", err)
	}
	defer m.Close()

	m.SetTo(gocv.NewScalar(255, 255, 255, 0))
	if !bytes.Equal(src.Data, want) {
		t.Error("writing to the Mat changed the frame's pixels")
	}
	if got := m.GetVecbAt(0, 0); got[0] != 255 {
		t.Errorf("Mat pixel: got %v, want 255", got)
	}

	if _, err := MatFromFrame(vision.Frame{Width: 4, Height: 4}); err == nil {
		t.Error("MatFromFrame invalid frame: expected error")
	}
}

func TestWSReader_ReceivesFrames(t *testing.T) {
	jpeg := mustJPEG(t, solidFrame(16, 16, 0, 0, 255))
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"ignored":true}`))
		for i := 0; i < 3; i++ {
			conn.WriteMessage(websocket.BinaryMessage, jpeg)
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BufferSize = 8
	cfg.ReadTimeout = time.Second
	r, err := DialWS(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), cfg)
	if err != nil {
		t.Fatalf("DialWS: %v", err)
	}
	defer r.Close()

	m := NewMulti(r)
	for i := 1; i <= 3; i++ {
		f, ok := m.GetFrame(0)
		if !ok {
			t.Fatalf("frame %d: none received", i)
		}
		if f.Width != 16 || f.Seq != uint64(i) || f.Captured.IsZero() {
			t.Errorf("frame %d: got %dx%d seq %d", i, f.Width, f.Height, f.Seq)
		}
	}

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not observe the close")
	}
	if _, ok := m.GetFrame(0); ok {
		t.Error("GetFrame after close: expected no frame")
	}
}

func TestWSReader_DropsOldestWhenFull(t *testing.T) {
	r := &WSReader{frames: make(chan vision.Frame, 2), done: make(chan struct{})}
	for seq := uint64(1); seq <= 4; seq++ {
		r.offer(vision.Frame{Seq: seq})
	}
	if r.Dropped() != 2 {
		t.Errorf("Dropped: got %d, want 2", r.Dropped())
	}
	for _, want := range []uint64{3, 4} {
		f, ok := r.Read()
		if !ok || f.Seq != want {
			t.Errorf("Read: got seq %d ok=%v, want %d", f.Seq, ok, want)
		}
	}
	if _, ok := r.Read(); ok {
		t.Error("Read on empty buffer with no timeout: expected false")
	}
}

func TestSnapshotReader(t *testing.T) {
	jpeg := mustJPEG(t, solidFrame(20, 10, 10, 20, 30))
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) > 2 {
			http.Error(w, "gone", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(jpeg)
	}))
	defer srv.Close()

	r := NewSnapshotReader(srv.URL+"/api/snapshot/0", DefaultConfig())
	defer r.Close()

	for i := 0; i < 2; i++ {
		f, ok := r.Read()
		if !ok || f.Width != 20 || f.Height != 10 {
			t.Fatalf("read %d: got %dx%d ok=%v", i, f.Width, f.Height, ok)
		}
	}
	if _, ok := r.Read(); ok {
		t.Error("read after server error: expected no frame")
	}

	r.Close()
	if _, ok := r.Read(); ok {
		t.Error("read after Close: expected no frame")
	}
}
