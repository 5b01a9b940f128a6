package pipeline

import "time"

// fpsMeter keeps a smoothed frame rate that excludes detection latency.
type fpsMeter struct {
	smoothing float64
	fps       float64
	has       bool
}

// update folds one iteration into the estimate and returns it.
func (m *fpsMeter) update(loop, detect time.Duration) float64 {
	d := loop - detect
	if d <= 0 {
		return m.fps
	}
	inst := 1 / d.Seconds()
	if !m.has {
		m.fps = inst
		m.has = true
		return m.fps
	}
	m.fps = m.smoothing*m.fps + (1-m.smoothing)*inst
	return m.fps
}
