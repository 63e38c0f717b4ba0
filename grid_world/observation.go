package grid_world

import (
	"gonum.org/v1/gonum/mat"
)

// Observation is the fixed-length integer encoding returned by Reset, Step and Observe.
type Observation []int

// Vector converts the observation to a dense float vector, the input format of
// gonum-based learners.
func (obs Observation) Vector() *mat.VecDense {
	data := make([]float64, len(obs))
	for i, v := range obs {
		data[i] = float64(v)
	}
	return mat.NewVecDense(len(data), data)
}

// Len returns the observation length of a config, which is fixed for its lifetime.
func Len(cfg Config) int {
	if cfg.Variant.Typed() {
		return 4
	}
	return 3 + 3*cfg.NumItems
}

// Bounds returns the inclusive per-element low and high of an observation.
func Bounds(cfg Config) (low, high Observation) {
	last := cfg.GridSize - 1
	if cfg.Variant.Typed() {
		return Observation{0, 0, int(NONE), 0}, Observation{last, last, NUM_KINDS - 1, 1}
	}

	low = make(Observation, 0, Len(cfg))
	high = make(Observation, 0, Len(cfg))
	low = append(low, 0, 0, 0)
	high = append(high, last, last, 1)
	for i := 0; i < cfg.NumItems; i++ {
		low = append(low, 0, 0, 0)
		high = append(high, last, last, 1)
	}
	return
}

// Normalize scales each element of @obs into [0, 1] by the bounds of @cfg, the
// input scale expected by function approximators.
func Normalize(cfg Config, obs Observation) *mat.VecDense {
	low, high := Bounds(cfg)
	lo := low.Vector()

	span := high.Vector()
	span.SubVec(span, lo)
	for i := 0; i < span.Len(); i++ {
		// Degenerate dimensions map to zero.
		if span.AtVec(i) == 0 {
			span.SetVec(i, 1)
		}
	}

	vec := obs.Vector()
	vec.SubVec(vec, lo)
	vec.DivElemVec(vec, span)
	return vec
}
