package prediction

import (
	"fmt"
	"math"
	"sort"
)

// CategoricalFeature holds the categories observed for one feature during
// training, in the order they occupy in the one-hot block.
type CategoricalFeature struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

// NumericFeature holds the scaling statistics for one numeric feature.
type NumericFeature struct {
	Name string  `json:"name"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Encoder turns an Input into the feature vector the classifier was trained on:
// one-hot blocks for categorical features followed by standardized numerics.
type Encoder struct {
	Categorical []CategoricalFeature `json:"categorical"`
	Numeric     []NumericFeature     `json:"numeric"`
}

// Width is the length of the vectors produced by Encode.
func (e *Encoder) Width() int {
	w := len(e.Numeric)
	for _, f := range e.Categorical {
		w += len(f.Categories)
	}
	return w
}

// Encode never fails. An unknown category leaves its block all zero.
func (e *Encoder) Encode(in Input) []float64 {
	out := make([]float64, e.Width())
	pos := 0
	for _, f := range e.Categorical {
		value, _ := in.categorical(f.Name)
		for i, c := range f.Categories {
			if c == value {
				out[pos+i] = 1
				break
			}
		}
		pos += len(f.Categories)
	}
	for _, f := range e.Numeric {
		value, _ := in.numeric(f.Name)
		out[pos] = (value - f.Mean) / f.Std
		pos++
	}
	return out
}

// FitEncoder records the distinct categories and the population mean and
// standard deviation of each feature. A zero deviation is stored as 1.
func FitEncoder(samples []Sample) Encoder {
	enc := Encoder{
		Categorical: []CategoricalFeature{
			{Name: FeatureSeason},
			{Name: FeatureSoilType},
		},
		Numeric: []NumericFeature{
			{Name: FeatureTemperature},
			{Name: FeatureRainfall},
		},
	}

	for i := range enc.Categorical {
		seen := make(map[string]struct{})
		for _, s := range samples {
			v, _ := s.Input.categorical(enc.Categorical[i].Name)
			seen[v] = struct{}{}
		}
		cats := make([]string, 0, len(seen))
		for v := range seen {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		enc.Categorical[i].Categories = cats
	}

	for i := range enc.Numeric {
		name := enc.Numeric[i].Name
		if len(samples) == 0 {
			enc.Numeric[i].Std = 1
			continue
		}
		sum := 0.0
		for _, s := range samples {
			v, _ := s.Input.numeric(name)
			sum += v
		}
		mean := sum / float64(len(samples))
		sq := 0.0
		for _, s := range samples {
			v, _ := s.Input.numeric(name)
			sq += (v - mean) * (v - mean)
		}
		std := math.Sqrt(sq / float64(len(samples)))
		if std == 0 {
			std = 1
		}
		enc.Numeric[i].Mean = mean
		enc.Numeric[i].Std = std
	}

	return enc
}

func (e *Encoder) validate() error {
	seenNames := make(map[string]struct{})
	for _, f := range e.Categorical {
		if !isCategoricalFeature(f.Name) {
			return fmt.Errorf("unknown categorical feature %q", f.Name)
		}
		if _, dup := seenNames[f.Name]; dup {
			return fmt.Errorf("duplicate feature %q", f.Name)
		}
		seenNames[f.Name] = struct{}{}
	}
	for _, f := range e.Numeric {
		if !isNumericFeature(f.Name) {
			return fmt.Errorf("unknown numeric feature %q", f.Name)
		}
		if _, dup := seenNames[f.Name]; dup {
			return fmt.Errorf("duplicate feature %q", f.Name)
		}
		seenNames[f.Name] = struct{}{}
		if f.Std == 0 || math.IsNaN(f.Std) || math.IsInf(f.Std, 0) {
			return fmt.Errorf("feature %q has invalid std %v", f.Name, f.Std)
		}
	}
	if e.Width() == 0 {
		return fmt.Errorf("encoder has no features")
	}
	return nil
}
