package recommend

import (
	"strings"

	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/prediction"
)

// Find locates one crop in the full distribution for in. The query is
// trimmed and compared case-insensitively: an exact label match wins,
// otherwise the most probable label containing the query is returned.
// Ties between substring matches go to the earliest class. An empty
// query or no match returns false.
func (s *Service) Find(in prediction.Input, query string) (RankedCrop, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return RankedCrop{}, false
	}
	d := s.predictor.Predict(in)

	for i, label := range d.Labels {
		if strings.ToLower(label) == q {
			return s.rank(label, d.Probabilities[i]), true
		}
	}

	best := -1
	for i, label := range d.Labels {
		if !strings.Contains(strings.ToLower(label), q) {
			continue
		}
		if best < 0 || d.Probabilities[i] > d.Probabilities[best] {
			best = i
		}
	}
	if best < 0 {
		return RankedCrop{}, false
	}
	return s.rank(d.Labels[best], d.Probabilities[best]), true
}
