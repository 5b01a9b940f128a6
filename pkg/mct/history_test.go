package mct

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestBox_RoundTrip(t *testing.T) {
	r := image.Rect(10, 20, 60, 110)
	b := NewBox(r)
	if b != (Box{10, 20, 50, 90}) {
		t.Errorf("NewBox: got %v", b)
	}
	if b.Rect() != r {
		t.Errorf("Rect: got %v, want %v", b.Rect(), r)
	}
}

func TestHistory_Disabled(t *testing.T) {
	tr := mustNew(t, 1, nil, DefaultConfig())
	step(t, tr, 0, 1, person(0, 0))

	if h := tr.History("run"); len(h.Identities) != 0 {
		t.Errorf("history without KeepHistory: got %d identities, want 0", len(h.Identities))
	}
}

func TestHistory_RecordsSightings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeepHistory = true
	tr := mustNew(t, 2, &basisEmbedder{}, cfg)

	step(t, tr, 0, 1, person(0, 0), person(300, 100))
	step(t, tr, 0, 2, person(2, 0))
	step(t, tr, 1, 1, person(100, 0))

	h := tr.History("run-1")
	if h.RunID != "run-1" || h.Sources != 2 {
		t.Errorf("header: got run %q sources %d", h.RunID, h.Sources)
	}
	if len(h.Identities) != 2 {
		t.Fatalf("got %d identities, want 2", len(h.Identities))
	}

	a := h.Identities[0]
	if len(a.Observations) != 3 {
		t.Errorf("identity %d: got %d observations, want 3", a.ID, len(a.Observations))
	}
	if len(a.Sources) != 2 || a.Sources[0] != 0 || a.Sources[1] != 1 {
		t.Errorf("identity %d: got sources %v, want [0 1]", a.ID, a.Sources)
	}
	if got := a.Observations[0]; got.Frame != 1 || got.Box != NewBox(person(0, 0).Rect) {
		t.Errorf("first observation: got %+v", got)
	}
}

func TestSaveHistory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeepHistory = true
	tr := mustNew(t, 1, nil, cfg)
	step(t, tr, 0, 1, person(0, 0))
	step(t, tr, 0, 2, person(1, 0))

	path := filepath.Join(t.TempDir(), "history.json")
	runID, err := SaveHistory(path, tr)
	if err != nil {
		t.Fatalf("SaveHistory: %v", err)
	}
	if _, err := uuid.Parse(runID); err != nil {
		t.Errorf("run ID %q is not a UUID: %v", runID, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	h, err := ReadHistory(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if h.RunID != runID {
		t.Errorf("RunID: got %q, want %q", h.RunID, runID)
	}
	if len(h.Identities) != 1 || len(h.Identities[0].Observations) != 2 {
		t.Errorf("decoded history: got %+v", h.Identities)
	}
}

func TestSaveHistory_BadPath(t *testing.T) {
	tr := mustNew(t, 1, nil, DefaultConfig())
	if _, err := SaveHistory(filepath.Join(t.TempDir(), "missing", "h.json"), tr); err == nil {
		t.Error("expected error for missing directory")
	}
}
