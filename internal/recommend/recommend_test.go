package recommend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/prediction"
)

type stubPredictor struct {
	labels []string
	probs  []float64
}

func (s stubPredictor) Predict(prediction.Input) prediction.Distribution {
	return prediction.Distribution{
		Labels:        append([]string(nil), s.labels...),
		Probabilities: append([]float64(nil), s.probs...),
	}
}

var anyInput = prediction.Input{Season: "First", SoilType: "Loam", Temperature: 25, Rainfall: 200}

func TestService_TopK(t *testing.T) {
	svc := NewService(stubPredictor{
		labels: []string{"Bananas", "Beans", "Cassava", "Maize"},
		probs:  []float64{0.1, 0.3, 0.3, 0.3},
	}, nil)

	tests := []struct {
		name     string
		k        int
		expected []string
	}{
		{name: "default k", k: DefaultTopK, expected: []string{"Beans", "Cassava", "Maize"}},
		{name: "k larger than classes", k: 10, expected: []string{"Beans", "Cassava", "Maize", "Bananas"}},
		{name: "k of one", k: 1, expected: []string{"Beans"}},
		{name: "zero k uses default", k: 0, expected: []string{"Beans", "Cassava", "Maize"}},
		{name: "negative k uses default", k: -2, expected: []string{"Beans", "Cassava", "Maize"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.TopK(anyInput, tt.k)
			crops := make([]string, 0, len(got))
			for _, r := range got {
				crops = append(crops, r.Crop)
			}
			assert.Equal(t, tt.expected, crops)
		})
	}
}

func TestService_TopKShape(t *testing.T) {
	svc := NewService(stubPredictor{
		labels: []string{"Maize", "Mystery Crop"},
		probs:  []float64{0.1234, 0.8766},
	}, nil)

	got := svc.TopK(anyInput, 3)
	require.Len(t, got, 2)
	assert.Equal(t, RankedCrop{Crop: "Mystery Crop", Confidence: 87.7, Explanation: FallbackExplanation}, got[0])
	assert.Equal(t, "Maize", got[1].Crop)
	assert.Equal(t, 12.3, got[1].Confidence)
	assert.Equal(t, DefaultExplanations()["Maize"], got[1].Explanation)
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		p        float64
		expected float64
	}{
		{0, 0},
		{1, 100},
		{0.5, 50},
		{0.4567, 45.7},
		{0.1234, 12.3},
		{0.1236, 12.4},
		{0.9999, 100},
		{0.00049, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Confidence(tt.p), "p=%v", tt.p)
	}
}

func TestService_Find(t *testing.T) {
	svc := NewService(stubPredictor{
		labels: []string{"Beans", "Maize", "Maizemix", "Sweet Potatoes", "Sweetcorn"},
		probs:  []float64{0.2, 0.1, 0.4, 0.15, 0.15},
	}, nil)

	tests := []struct {
		name     string
		query    string
		expected string
		found    bool
	}{
		{name: "exact match beats more probable substring", query: "maize", expected: "Maize", found: true},
		{name: "exact match is case and space insensitive", query: "  MAIZEMIX ", expected: "Maizemix", found: true},
		{name: "substring fallback", query: "bean", expected: "Beans", found: true},
		{name: "substring picks most probable", query: "mai", expected: "Maizemix", found: true},
		{name: "substring tie goes to earliest class", query: "sweet", expected: "Sweet Potatoes", found: true},
		{name: "no match", query: "zzz", found: false},
		{name: "empty query", query: "   ", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := svc.Find(anyInput, tt.query)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.expected, got.Crop)
			}
		})
	}
}

func TestService_FindShape(t *testing.T) {
	svc := NewService(stubPredictor{labels: []string{"Beans"}, probs: []float64{1}}, ExplanationTable{"Beans": "custom"})

	got, ok := svc.Find(anyInput, "beans")
	require.True(t, ok)
	assert.Equal(t, RankedCrop{Crop: "Beans", Confidence: 100, Explanation: "custom"}, got)
}

func TestExplanationTable_Explain(t *testing.T) {
	table := DefaultExplanations()

	assert.Equal(t, "Grows well in Sandy soils with moderate rain.", table.Explain("Sweet Potatoes"))
	assert.Equal(t, "Suitable based on current conditions.", table.Explain("Sorghum"))
	assert.Equal(t, FallbackExplanation, table.Explain("maize"))

	table["Maize"] = "changed"
	assert.NotEqual(t, "changed", DefaultExplanations()["Maize"])
}

func TestService_WithTrainedPipeline(t *testing.T) {
	opts := prediction.DefaultTrainOptions()
	opts.Trees = 10
	m, err := prediction.Train(context.Background(), prediction.GenerateSynthetic(300, 42), opts)
	require.NoError(t, err)
	p, err := prediction.NewPipeline(m)
	require.NoError(t, err)
	svc := NewService(p, nil)

	inputs := []prediction.Input{
		anyInput,
		{Season: "Second", SoilType: "Sandy", Temperature: 33, Rainfall: 80},
		{Season: "Unknown", SoilType: "Unknown", Temperature: 26, Rainfall: 170},
	}
	for _, in := range inputs {
		d := p.Predict(in)
		assert.InDelta(t, 1.0, d.Sum(), 1e-6)

		got := svc.TopK(in, DefaultTopK)
		require.Len(t, got, min(DefaultTopK, len(p.Classes())))
		for i, r := range got {
			assert.GreaterOrEqual(t, r.Confidence, 0.0)
			assert.LessOrEqual(t, r.Confidence, 100.0)
			if i > 0 {
				assert.LessOrEqual(t, r.Confidence, got[i-1].Confidence)
			}
		}
		assert.Equal(t, got, svc.TopK(in, DefaultTopK))
	}

	_, ok := svc.Find(anyInput, "zzz")
	assert.False(t, ok)
	found, ok := svc.Find(anyInput, "bean")
	require.True(t, ok)
	assert.Equal(t, "Beans", found.Crop)
}
