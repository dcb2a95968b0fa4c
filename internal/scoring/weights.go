package scoring

import (
	"fmt"
	"math"
)

// WeightSet defines the points each factor contributes to the 0–100
// total. All weights must sum to 100 (±0.001 tolerance).
type WeightSet struct {
	Brand        float64
	Commodity    float64
	Geography    float64
	Relationship float64
}

// DefaultWeights returns the production weight distribution.
func DefaultWeights() WeightSet {
	return WeightSet{
		Brand:        40,
		Commodity:    25,
		Geography:    15,
		Relationship: 20,
	}
}

// Sum returns the total of all weights.
func (w WeightSet) Sum() float64 {
	return w.Brand + w.Commodity + w.Geography + w.Relationship
}

// Validate checks that weights sum to 100 and none are negative.
func (w WeightSet) Validate() error {
	if math.Abs(w.Sum()-100.0) > 0.001 {
		return fmt.Errorf("weights sum to %.4f, must sum to 100", w.Sum())
	}
	for _, v := range []float64{w.Brand, w.Commodity, w.Geography, w.Relationship} {
		if v < 0 {
			return fmt.Errorf("negative weight: %f", v)
		}
	}
	return nil
}
