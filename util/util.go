package util

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/fogleman/ease"
)

// EaseFunc maps linear progress in [0,1] to eased progress in [0,1].
type EaseFunc func(t float64) float64

var easings = map[string]EaseFunc{
	"linear":       ease.Linear,
	"in-quad":      ease.InQuad,
	"out-quad":     ease.OutQuad,
	"in-out-quad":  ease.InOutQuad,
	"in-cubic":     ease.InCubic,
	"out-cubic":    ease.OutCubic,
	"in-out-cubic": ease.InOutCubic,
	"in-out-sine":  ease.InOutSine,
}

// Easing looks up an easing function by name. An empty name means linear.
func Easing(name string) (EaseFunc, error) {
	if name == "" {
		return ease.Linear, nil
	}
	if fn, ok := easings[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown easing %q", name)
}

// RandomSource is the only source of randomness used when generating glyphs.
type RandomSource interface {
	Intn(n int) int
}

// NewRandomSource returns a source seeded with seed, or with the current time
// when seed is zero.
func NewRandomSource(seed int64) RandomSource {
	if seed == 0 {
		seed = time.Now().UTC().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Clamp01 limits v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// GenerateFadeLut returns steps+1 eased progress values, lut[k] being the
// progress after k of steps frames.
func GenerateFadeLut(steps int, fn EaseFunc) []float64 {
	if steps < 1 {
		steps = 1
	}
	lut := make([]float64, steps+1)
	for i := range lut {
		lut[i] = fn(float64(i) / float64(steps))
	}
	return lut
}

// Memoizer caches fade LUTs by step count.
type Memoizer struct {
	fn EaseFunc

	mu   sync.Mutex
	luts map[int][]float64
}

// NewMemoizer creates a Memoizer for the easing function fn.
func NewMemoizer(fn EaseFunc) *Memoizer {
	return &Memoizer{fn: fn, luts: make(map[int][]float64)}
}

// Lut returns the memoized LUT for steps.
func (m *Memoizer) Lut(steps int) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lut, ok := m.luts[steps]; ok {
		return lut
	}
	lut := GenerateFadeLut(steps, m.fn)
	m.luts[steps] = lut
	return lut
}

// Progress returns the eased progress after frames of steps, clamped so that
// anything past the end of the fade stays at the final value.
func (m *Memoizer) Progress(frames, steps int) float64 {
	lut := m.Lut(steps)
	if frames <= 0 {
		return lut[0]
	}
	if frames >= len(lut)-1 {
		return lut[len(lut)-1]
	}
	return lut[frames]
}
