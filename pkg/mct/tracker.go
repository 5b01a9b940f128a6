// Package mct tracks people across several cameras. Detections are linked to
// per-camera tracks by box overlap, and tracks are linked to global
// identities by appearance similarity, so the same person keeps one ID in
// every camera.
package mct

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/teslashibe/go-mctrack/internal/log"
	"github.com/teslashibe/go-mctrack/pkg/vision"
)

// Sentinel errors
var (
	ErrNoSources     = errors.New("mct: at least one source required")
	ErrInvalidSource = errors.New("mct: source index out of range")
)

// Embedder computes an appearance vector for a person crop.
type Embedder interface {
	Embed(frame vision.Frame, rect image.Rectangle) ([]float32, error)
}

// Tracker is a multi-camera person tracker. It is safe for concurrent use.
type Tracker struct {
	cfg      Config
	embedder Embedder // nil = overlap-only tracking, no cross-camera IDs
	log      *slog.Logger
	now      func() time.Time

	mu         sync.RWMutex
	tracks     [][]*track // Per source
	identities map[int]*identity
	nextID     int
	history    map[int][]Observation
}

// New creates a tracker for numSources cameras.
func New(numSources int, embedder Embedder, cfg Config) (*Tracker, error) {
	if numSources < 1 {
		return nil, ErrNoSources
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Tracker{
		cfg:        cfg,
		embedder:   embedder,
		log:        log.Component("mct"),
		now:        time.Now,
		tracks:     make([][]*track, numSources),
		identities: make(map[int]*identity),
		nextID:     1,
		history:    make(map[int][]Observation),
	}, nil
}

// ConcurrentSafe marks the tracker as safe to call from several sources at once.
func (t *Tracker) ConcurrentSafe() {}

// NumSources returns the number of cameras the tracker was built for.
func (t *Tracker) NumSources() int {
	return len(t.tracks)
}

// ProcessFrame updates the tracks of one source with the frame's detections.
// Embeddings are computed before the tracker lock is taken.
func (t *Tracker) ProcessFrame(frame vision.Frame, dets []vision.Detection, source int) error {
	if source < 0 || source >= len(t.tracks) {
		return fmt.Errorf("%w: %d", ErrInvalidSource, source)
	}

	feats := make([][]float32, len(dets))
	if t.embedder != nil {
		for i, d := range dets {
			f, err := t.embedder.Embed(frame, d.Rect)
			if err != nil {
				return fmt.Errorf("mct: embed detection %d: %w", i, err)
			}
			feats[i] = f
		}
	}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	tracks := t.tracks[source]
	matchedT := make([]bool, len(tracks))
	matchedD := make([]bool, len(dets))
	for _, m := range associate(tracks, dets, t.cfg.IoUThreshold) {
		matchedT[m.track] = true
		matchedD[m.det] = true
		tr := tracks[m.track]
		tr.update(dets[m.det], feats[m.det], t.cfg.TimeWindow)
		t.observe(tr, feats[m.det], source, frame.Seq, now)
		t.maybeMerge(source, tr)
	}

	kept := make([]*track, 0, len(tracks)+len(dets))
	for i, tr := range tracks {
		if !matchedT[i] {
			tr.misses++
			if tr.misses > t.cfg.MaxMisses {
				continue
			}
		}
		kept = append(kept, tr)
	}

	for i, d := range dets {
		if matchedD[i] {
			continue
		}
		tr := &track{rect: d.Rect, confidence: d.Confidence, hits: 1}
		tr.addFeature(feats[i], t.cfg.TimeWindow)
		tr.globalID = t.assign(kept, feats[i], now)
		kept = append(kept, tr)
		t.observe(tr, feats[i], source, frame.Seq, now)
	}

	t.tracks[source] = kept
	t.forget(now)
	return nil
}

// assign picks the global ID for a new track: the most similar identity not
// already in use by a live track of the same source, or a fresh one.
func (t *Tracker) assign(sameSource []*track, feat []float32, now time.Time) int {
	if feat != nil {
		busy := make(map[int]bool, len(sameSource))
		for _, tr := range sameSource {
			busy[tr.globalID] = true
		}
		if g := t.bestIdentity(feat, busy, t.cfg.MatchThreshold); g != nil {
			return g.id
		}
	}

	g := &identity{id: t.nextID, lastSeen: now, tentative: true}
	t.nextID++
	t.identities[g.id] = g
	t.log.Debug("new identity", "id", g.id)
	return g.id
}

func (t *Tracker) bestIdentity(feat []float32, skip map[int]bool, thresh float64) *identity {
	var best *identity
	bestSim := thresh
	for id, g := range t.identities {
		if skip[id] || g.sum == nil {
			continue
		}
		sim := g.similarity(feat)
		if sim < bestSim || (sim == bestSim && best != nil && id > best.id) {
			continue
		}
		best, bestSim = g, sim
	}
	return best
}

// observe folds a matched detection into the track's identity.
func (t *Tracker) observe(tr *track, feat []float32, source int, seq uint64, now time.Time) {
	g := t.identities[tr.globalID]
	if g == nil {
		return
	}
	g.lastSeen = now
	if feat != nil {
		g.fold(feat)
	}
	if tr.hits >= t.cfg.TimeWindow {
		g.tentative = false
	}

	if t.cfg.KeepHistory {
		t.history[g.id] = append(t.history[g.id], Observation{
			Source: source,
			Frame:  seq,
			Box:    NewBox(tr.rect),
			Time:   now,
		})
	}
}

// maybeMerge moves a tentative identity into an established one when the
// track's mean appearance matches it.
func (t *Tracker) maybeMerge(source int, tr *track) {
	own := t.identities[tr.globalID]
	if own == nil || !own.tentative {
		return
	}
	app := tr.appearance()
	if app == nil {
		return
	}

	skip := map[int]bool{own.id: true}
	for _, other := range t.tracks[source] {
		skip[other.globalID] = true
	}
	target := t.bestIdentity(app, skip, t.cfg.MergeThreshold)
	if target == nil {
		return
	}

	target.absorb(own)
	for _, tracks := range t.tracks {
		for _, other := range tracks {
			if other.globalID == own.id {
				other.globalID = target.id
			}
		}
	}
	if obs, ok := t.history[own.id]; ok {
		t.history[target.id] = append(t.history[target.id], obs...)
		delete(t.history, own.id)
	}
	delete(t.identities, own.id)
	t.log.Debug("identity merged", "from", own.id, "into", target.id, "source", source)
}

// forget drops identities with no live track that have not been seen within
// ForgetTimeout. History is kept.
func (t *Tracker) forget(now time.Time) {
	if t.cfg.ForgetTimeout <= 0 {
		return
	}
	live := make(map[int]bool)
	for _, tracks := range t.tracks {
		for _, tr := range tracks {
			live[tr.globalID] = true
		}
	}
	for id, g := range t.identities {
		if !live[id] && now.Sub(g.lastSeen) > t.cfg.ForgetTimeout {
			delete(t.identities, id)
		}
	}
}

// TrackedObjects returns the objects seen in the latest frame of source,
// ordered by global ID.
func (t *Tracker) TrackedObjects(source int) []vision.TrackedObject {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if source < 0 || source >= len(t.tracks) {
		return nil
	}
	objs := make([]vision.TrackedObject, 0, len(t.tracks[source]))
	for _, tr := range t.tracks[source] {
		if tr.misses > 0 {
			continue
		}
		objs = append(objs, vision.TrackedObject{
			ID:         tr.globalID,
			Source:     source,
			Rect:       tr.rect,
			Confidence: tr.confidence,
		})
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].ID < objs[j].ID })
	return objs
}

// Identities returns the number of identities currently in the gallery.
func (t *Tracker) Identities() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.identities)
}
