package prediction

import (
	"fmt"
	"slices"
)

// Distribution pairs every known class with its probability for one input.
// Labels follow the model's class order.
type Distribution struct {
	Labels        []string
	Probabilities []float64
}

// Len returns the number of classes.
func (d Distribution) Len() int { return len(d.Labels) }

// Probability looks up the probability of label.
func (d Distribution) Probability(label string) (float64, bool) {
	for i, l := range d.Labels {
		if l == label {
			return d.Probabilities[i], true
		}
	}
	return 0, false
}

// Sum is the total probability mass, 1 within floating point tolerance.
func (d Distribution) Sum() float64 {
	s := 0.0
	for _, p := range d.Probabilities {
		s += p
	}
	return s
}

// Pipeline is the loaded, immutable encoder plus estimator. It is safe for
// concurrent use.
type Pipeline struct {
	encoder   Encoder
	estimator ProbabilityEstimator
	classes   []string
}

// NewPipeline wraps a validated model.
func NewPipeline(m *Model) (*Pipeline, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return NewPipelineWithEstimator(m.Encoder, &m.Forest)
}

// NewPipelineWithEstimator pairs an encoder with any probability estimator.
func NewPipelineWithEstimator(enc Encoder, est ProbabilityEstimator) (*Pipeline, error) {
	if err := enc.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactIncompatible, err)
	}
	classes := est.Classes()
	if len(classes) == 0 {
		return nil, fmt.Errorf("%w: estimator has no classes", ErrArtifactIncompatible)
	}
	return &Pipeline{encoder: enc, estimator: est, classes: slices.Clone(classes)}, nil
}

// LoadPipeline is LoadModel followed by NewPipeline.
func LoadPipeline(path string) (*Pipeline, error) {
	m, err := LoadModel(path)
	if err != nil {
		return nil, err
	}
	return NewPipeline(m)
}

// Classes returns a copy of the model's class order.
func (p *Pipeline) Classes() []string {
	return slices.Clone(p.classes)
}

// Predict returns the probability of every class for in. It never fails:
// unknown categories encode to zero blocks.
func (p *Pipeline) Predict(in Input) Distribution {
	probs := p.estimator.PredictProba(p.encoder.Encode(in))
	out := make([]float64, len(p.classes))
	copy(out, probs)
	return Distribution{
		Labels:        slices.Clone(p.classes),
		Probabilities: out,
	}
}
