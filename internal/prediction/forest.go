package prediction

import (
	"fmt"
	"slices"
)

// ProbabilityEstimator is anything that, given an encoded feature vector,
// returns one probability per known class. The returned slice is aligned
// with Classes().
type ProbabilityEstimator interface {
	PredictProba(features []float64) []float64
	Classes() []string
}

// Forest is a bagged ensemble of decision trees. Its probability estimate is
// the mean of the leaf distributions reached in each tree.
type Forest struct {
	ClassLabels []string `json:"classes"`
	Trees       []Tree   `json:"trees"`
}

var _ ProbabilityEstimator = (*Forest)(nil)

// Classes returns a copy of the ordered class labels.
func (f *Forest) Classes() []string {
	return slices.Clone(f.ClassLabels)
}

// PredictProba averages tree votes in a fixed order, so identical inputs give
// bit-identical outputs.
func (f *Forest) PredictProba(features []float64) []float64 {
	out := make([]float64, len(f.ClassLabels))
	if len(f.Trees) == 0 {
		return out
	}
	for i := range f.Trees {
		leaf := f.Trees[i].leaf(features)
		for j, v := range leaf {
			out[j] += v
		}
	}
	n := float64(len(f.Trees))
	for j := range out {
		out[j] /= n
	}
	return out
}

func (f *Forest) validate(width int) error {
	if len(f.ClassLabels) == 0 {
		return fmt.Errorf("forest has no classes")
	}
	seen := make(map[string]struct{}, len(f.ClassLabels))
	for _, c := range f.ClassLabels {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("duplicate class %q", c)
		}
		seen[c] = struct{}{}
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(width, len(f.ClassLabels)); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}
