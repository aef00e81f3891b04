package session

import "math"

const (
	ScaleDelta = 1.1
	MinScale   = 0.25
	MaxScale   = 10.0
)

// ZoomInScale grows scale by ticks steps. Each step is rounded up to one
// decimal and the result never exceeds MaxScale.
func ZoomInScale(scale float64, ticks int) float64 {
	for {
		h := hundredths(scale * ScaleDelta)
		scale = math.Min(MaxScale, float64((h+9)/10)/10)
		ticks--
		if ticks <= 0 || scale >= MaxScale {
			return scale
		}
	}
}

// ZoomOutScale shrinks scale by ticks steps, rounding down to one decimal,
// never below MinScale.
func ZoomOutScale(scale float64, ticks int) float64 {
	for {
		h := hundredths(scale / ScaleDelta)
		scale = math.Max(MinScale, float64(h/10)/10)
		ticks--
		if ticks <= 0 || scale <= MinScale {
			return scale
		}
	}
}

func hundredths(v float64) int64 {
	return int64(math.Round(v * 100))
}
