// Package recommend turns class probabilities into ranked, explained crop
// suggestions.
package recommend

import (
	"math"
	"sort"

	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/prediction"
)

// DefaultTopK is the number of crops returned by a recommendation request.
const DefaultTopK = 3

// Predictor produces a class distribution for an input.
type Predictor interface {
	Predict(in prediction.Input) prediction.Distribution
}

// RankedCrop is one suggestion. Confidence is a percentage with one decimal.
type RankedCrop struct {
	Crop        string  `json:"crop"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// Service ranks and searches predictions.
type Service struct {
	predictor    Predictor
	explanations ExplanationTable
}

// NewService builds a Service. A nil table uses DefaultExplanations.
func NewService(p Predictor, explanations ExplanationTable) *Service {
	if explanations == nil {
		explanations = DefaultExplanations()
	}
	return &Service{predictor: p, explanations: explanations}
}

// Confidence converts a probability to a percentage rounded to one decimal,
// half away from zero.
func Confidence(p float64) float64 {
	return math.Round(p*1000) / 10
}

// TopK returns at most k crops ordered by descending probability. Equal
// probabilities keep the model's class order. k <= 0 means DefaultTopK.
func (s *Service) TopK(in prediction.Input, k int) []RankedCrop {
	if k <= 0 {
		k = DefaultTopK
	}
	d := s.predictor.Predict(in)

	order := make([]int, d.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return d.Probabilities[order[a]] > d.Probabilities[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	out := make([]RankedCrop, 0, k)
	for _, i := range order[:k] {
		out = append(out, s.rank(d.Labels[i], d.Probabilities[i]))
	}
	return out
}

func (s *Service) rank(crop string, p float64) RankedCrop {
	return RankedCrop{
		Crop:        crop,
		Confidence:  Confidence(p),
		Explanation: s.explanations.Explain(crop),
	}
}
