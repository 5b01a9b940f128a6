package mct

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Box is a bounding box as x, y, width, height in pixels.
type Box [4]int

// NewBox converts a rectangle to a Box.
func NewBox(r image.Rectangle) Box {
	return Box{r.Min.X, r.Min.Y, r.Dx(), r.Dy()}
}

// Rect converts the box back to a rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b[0], b[1], b[0]+b[2], b[1]+b[3])
}

// Observation is one sighting of an identity.
type Observation struct {
	Source int       `json:"source"`
	Frame  uint64    `json:"frame"`
	Box    Box       `json:"box"`
	Time   time.Time `json:"time"`
}

// IdentityHistory lists every sighting of one global ID.
type IdentityHistory struct {
	ID           int           `json:"id"`
	Sources      []int         `json:"sources"`
	Observations []Observation `json:"observations"`
}

// History is the on-disk track history of one run.
type History struct {
	RunID      string            `json:"run_id"`
	Created    time.Time         `json:"created"`
	Sources    int               `json:"sources"`
	Identities []IdentityHistory `json:"identities"`
}

// History returns a copy of the recorded observations, ordered by ID.
// Empty unless Config.KeepHistory is set.
func (t *Tracker) History(runID string) History {
	t.mu.RLock()
	defer t.mu.RUnlock()

	h := History{
		RunID:      runID,
		Created:    t.now(),
		Sources:    len(t.tracks),
		Identities: make([]IdentityHistory, 0, len(t.history)),
	}
	for id, obs := range t.history {
		entry := IdentityHistory{
			ID:           id,
			Observations: append([]Observation(nil), obs...),
		}
		seen := make(map[int]bool)
		for _, o := range obs {
			if !seen[o.Source] {
				seen[o.Source] = true
				entry.Sources = append(entry.Sources, o.Source)
			}
		}
		sort.Ints(entry.Sources)
		sort.SliceStable(entry.Observations, func(i, j int) bool {
			return entry.Observations[i].Time.Before(entry.Observations[j].Time)
		})
		h.Identities = append(h.Identities, entry)
	}
	sort.Slice(h.Identities, func(i, j int) bool {
		return h.Identities[i].ID < h.Identities[j].ID
	})
	return h
}

// WriteHistory encodes h as indented JSON.
func WriteHistory(w io.Writer, h History) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(h); err != nil {
		return fmt.Errorf("mct: encode history: %w", err)
	}
	return nil
}

// SaveHistory writes the tracker's history to path under a new run ID and
// returns the ID.
func SaveHistory(path string, t *Tracker) (string, error) {
	runID := uuid.NewString()

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("mct: create history file: %w", err)
	}
	if err := WriteHistory(f, t.History(runID)); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("mct: close history file: %w", err)
	}
	return runID, nil
}

// ReadHistory decodes a history file written by SaveHistory.
func ReadHistory(r io.Reader) (History, error) {
	var h History
	if err := json.NewDecoder(r).Decode(&h); err != nil {
		return History{}, fmt.Errorf("mct: decode history: %w", err)
	}
	return h, nil
}
