package mct

import (
	"image"
	"sort"
	"time"

	"github.com/teslashibe/go-mctrack/pkg/vision"
)

// track is a per-camera continuation of one person across frames.
type track struct {
	globalID   int
	rect       image.Rectangle
	confidence float64
	misses     int // Consecutive frames without a matching detection
	hits       int

	feats [][]float32 // Ring of the last TimeWindow embeddings
	next  int
}

func (t *track) update(d vision.Detection, feat []float32, window int) {
	t.rect = d.Rect
	t.confidence = d.Confidence
	t.misses = 0
	t.hits++
	t.addFeature(feat, window)
}

func (t *track) addFeature(feat []float32, window int) {
	if feat == nil {
		return
	}
	if len(t.feats) < window {
		t.feats = append(t.feats, feat)
		return
	}
	t.feats[t.next] = feat
	t.next = (t.next + 1) % window
}

// appearance returns the normalized mean of the track's recent embeddings.
func (t *track) appearance() []float32 {
	if len(t.feats) == 0 {
		return nil
	}
	mean := make([]float32, len(t.feats[0]))
	for _, f := range t.feats {
		if len(f) != len(mean) {
			continue
		}
		for i := range mean {
			mean[i] += f[i]
		}
	}
	vision.Normalize(mean)
	return mean
}

// identity is a global person shared by tracks across cameras.
// sum accumulates folded embeddings; cosine similarity ignores its scale.
type identity struct {
	id       int
	sum      []float32
	count    int
	lastSeen time.Time

	// tentative identities were minted by a young track and may still be
	// merged into an established identity.
	tentative bool
}

func (g *identity) fold(feat []float32) {
	if g.sum == nil {
		g.sum = append([]float32(nil), feat...)
		g.count = 1
		return
	}
	if len(feat) != len(g.sum) {
		return
	}
	for i := range g.sum {
		g.sum[i] += feat[i]
	}
	g.count++
}

func (g *identity) absorb(o *identity) {
	if o.lastSeen.After(g.lastSeen) {
		g.lastSeen = o.lastSeen
	}
	if o.sum == nil {
		return
	}
	if g.sum == nil {
		g.sum = append([]float32(nil), o.sum...)
		g.count = o.count
		return
	}
	if len(o.sum) != len(g.sum) {
		return
	}
	for i := range g.sum {
		g.sum[i] += o.sum[i]
	}
	g.count += o.count
}

func (g *identity) similarity(feat []float32) float64 {
	return vision.Cosine(g.sum, feat)
}

type match struct {
	track, det int
	iou        float64
}

// associate greedily pairs tracks and detections by descending IoU.
func associate(tracks []*track, dets []vision.Detection, thresh float64) []match {
	var cands []match
	for i, t := range tracks {
		for j, d := range dets {
			if v := vision.IoU(t.rect, d.Rect); v > 0 && v >= thresh {
				cands = append(cands, match{track: i, det: j, iou: v})
			}
		}
	}
	sort.SliceStable(cands, func(a, b int) bool {
		return cands[a].iou > cands[b].iou
	})

	usedT := make(map[int]bool, len(tracks))
	usedD := make(map[int]bool, len(dets))
	var out []match
	for _, c := range cands {
		if usedT[c.track] || usedD[c.det] {
			continue
		}
		usedT[c.track] = true
		usedD[c.det] = true
		out = append(out, c)
	}
	return out
}
