package prediction

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallOptions() TrainOptions {
	opts := DefaultTrainOptions()
	opts.Trees = 15
	opts.MaxDepth = 10
	return opts
}

func trainSmall(t *testing.T) *Model {
	t.Helper()
	m, err := Train(context.Background(), GenerateSynthetic(300, 42), smallOptions())
	require.NoError(t, err)
	return m
}

func TestEncoder_Encode(t *testing.T) {
	enc := Encoder{
		Categorical: []CategoricalFeature{
			{Name: FeatureSeason, Categories: []string{"First", "Second"}},
			{Name: FeatureSoilType, Categories: []string{"Clay", "Loam", "Sandy"}},
		},
		Numeric: []NumericFeature{
			{Name: FeatureTemperature, Mean: 25, Std: 5},
			{Name: FeatureRainfall, Mean: 200, Std: 1},
		},
	}

	tests := []struct {
		name     string
		input    Input
		expected []float64
	}{
		{
			name:     "known categories",
			input:    Input{Season: "Second", SoilType: "Loam", Temperature: 30, Rainfall: 190},
			expected: []float64{0, 1, 0, 1, 0, 1, -10},
		},
		{
			name:     "unknown season encodes to zero block",
			input:    Input{Season: "Third", SoilType: "Sandy", Temperature: 25, Rainfall: 200},
			expected: []float64{0, 0, 0, 0, 1, 0, 0},
		},
		{
			name:     "case sensitive categories",
			input:    Input{Season: "first", SoilType: "loam", Temperature: 20, Rainfall: 201},
			expected: []float64{0, 0, 0, 0, 0, -1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, enc.Encode(tt.input))
		})
	}
}

func TestFitEncoder_ConstantFeatureKeepsUnitStd(t *testing.T) {
	samples := []Sample{
		{Input: Input{Season: "First", SoilType: "Loam", Temperature: 25, Rainfall: 100}, Crop: "Maize"},
		{Input: Input{Season: "Second", SoilType: "Loam", Temperature: 25, Rainfall: 300}, Crop: "Beans"},
	}

	enc := FitEncoder(samples)

	assert.Equal(t, []string{"First", "Second"}, enc.Categorical[0].Categories)
	assert.Equal(t, []string{"Loam"}, enc.Categorical[1].Categories)
	assert.Equal(t, 25.0, enc.Numeric[0].Mean)
	assert.Equal(t, 1.0, enc.Numeric[0].Std)
	assert.Equal(t, 200.0, enc.Numeric[1].Mean)
	assert.Equal(t, 100.0, enc.Numeric[1].Std)
}

func TestTrain_Deterministic(t *testing.T) {
	samples := GenerateSynthetic(200, 7)
	opts := smallOptions()
	opts.Workers = 4

	a, err := Train(context.Background(), samples, opts)
	require.NoError(t, err)
	opts.Workers = 1
	b, err := Train(context.Background(), samples, opts)
	require.NoError(t, err)

	assert.Equal(t, a.Forest, b.Forest)
	assert.Equal(t, a.Encoder, b.Encoder)
}

func TestTrain_Errors(t *testing.T) {
	_, err := Train(context.Background(), nil, smallOptions())
	assert.ErrorIs(t, err, ErrNoSamples)

	opts := smallOptions()
	opts.Trees = 0
	_, err = Train(context.Background(), GenerateSynthetic(10, 1), opts)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Train(ctx, GenerateSynthetic(50, 1), smallOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrain_FitsTrainingData(t *testing.T) {
	samples := GenerateSynthetic(300, 42)
	m, err := Train(context.Background(), samples, smallOptions())
	require.NoError(t, err)

	assert.Greater(t, Accuracy(m, samples), 0.75)
	assert.True(t, isSortedStrings(m.Forest.ClassLabels))
}

func TestForest_PredictProbaSumsToOne(t *testing.T) {
	m := trainSmall(t)

	inputs := []Input{
		{Season: "First", SoilType: "Loam", Temperature: 26, Rainfall: 200},
		{Season: "Second", SoilType: "Sandy", Temperature: 33, Rainfall: 60},
		{Season: "Dry", SoilType: "Rock", Temperature: -5, Rainfall: 5000},
	}
	for _, in := range inputs {
		probs := m.Forest.PredictProba(m.Encoder.Encode(in))
		require.Len(t, probs, len(m.Forest.ClassLabels))
		sum := 0.0
		for _, p := range probs {
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestPipeline_Predict(t *testing.T) {
	p, err := NewPipeline(trainSmall(t))
	require.NoError(t, err)

	in := Input{Season: "First", SoilType: "Loam", Temperature: 25, Rainfall: 200}
	d1 := p.Predict(in)
	d2 := p.Predict(in)

	assert.Equal(t, p.Classes(), d1.Labels)
	assert.Equal(t, d1, d2)
	assert.InDelta(t, 1.0, d1.Sum(), 1e-9)

	d1.Labels[0] = "mutated"
	assert.NotEqual(t, "mutated", p.Classes()[0])
	assert.NotEqual(t, "mutated", p.Predict(in).Labels[0])
}

func TestDistribution_Probability(t *testing.T) {
	d := Distribution{Labels: []string{"A", "B"}, Probabilities: []float64{0.25, 0.75}}

	p, ok := d.Probability("B")
	assert.True(t, ok)
	assert.Equal(t, 0.75, p)

	_, ok = d.Probability("C")
	assert.False(t, ok)
	assert.Equal(t, 2, d.Len())
}

type fixedEstimator struct {
	classes []string
	probs   []float64
}

func (f fixedEstimator) PredictProba([]float64) []float64 { return f.probs }
func (f fixedEstimator) Classes() []string               { return f.classes }

func TestNewPipelineWithEstimator(t *testing.T) {
	enc := FitEncoder(GenerateSynthetic(20, 3))

	p, err := NewPipelineWithEstimator(enc, fixedEstimator{classes: []string{"X", "Y"}, probs: []float64{0.4, 0.6}})
	require.NoError(t, err)
	d := p.Predict(Input{})
	assert.Equal(t, []string{"X", "Y"}, d.Labels)
	assert.Equal(t, []float64{0.4, 0.6}, d.Probabilities)

	_, err = NewPipelineWithEstimator(enc, fixedEstimator{})
	assert.ErrorIs(t, err, ErrArtifactIncompatible)
}

func TestArtifact_RoundTrip(t *testing.T) {
	m := trainSmall(t)
	path := filepath.Join(t.TempDir(), "nested", "model.json")

	require.NoError(t, SaveModel(path, m, ArtifactInfo{Samples: 300, Options: smallOptions()}))

	p, err := LoadPipeline(path)
	require.NoError(t, err)
	original, err := NewPipeline(m)
	require.NoError(t, err)

	in := Input{Season: "Second", SoilType: "Clay", Temperature: 28, Rainfall: 140}
	assert.Equal(t, original.Predict(in), p.Predict(in))
}

func TestLoadModel_Failures(t *testing.T) {
	dir := t.TempDir()

	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	tests := []struct {
		name     string
		path     string
		expected error
	}{
		{name: "missing file", path: filepath.Join(dir, "absent.json"), expected: ErrArtifactNotFound},
		{name: "not json", path: write("garbage.json", "{not json"), expected: ErrArtifactCorrupt},
		{name: "wrong version", path: write("v0.json", `{"format_version":0}`), expected: ErrArtifactIncompatible},
		{
			name: "leaf width mismatch",
			path: write("bad-tree.json", `{"format_version":1,
				"encoder":{"categorical":[{"name":"season","categories":["First"]}],
				           "numeric":[{"name":"temperature","mean":0,"std":1}]},
				"forest":{"classes":["A","B"],"trees":[{"nodes":[{"f":-1,"v":[1]}]}]}}`),
			expected: ErrArtifactIncompatible,
		},
		{
			name: "leaf does not sum to one",
			path: write("unnormalized.json", `{"format_version":1,
				"encoder":{"categorical":[],"numeric":[{"name":"rainfall","mean":0,"std":1}]},
				"forest":{"classes":["A","B"],"trees":[{"nodes":[{"f":-1,"v":[0.7,0.7]}]}]}}`),
			expected: ErrArtifactIncompatible,
		},
		{
			name: "negative leaf weight",
			path: write("negative.json", `{"format_version":1,
				"encoder":{"categorical":[],"numeric":[{"name":"rainfall","mean":0,"std":1}]},
				"forest":{"classes":["A","B"],"trees":[{"nodes":[{"f":-1,"v":[1.5,-0.5]}]}]}}`),
			expected: ErrArtifactIncompatible,
		},
		{
			name: "child index loops back",
			path: write("loop.json", `{"format_version":1,
				"encoder":{"categorical":[],"numeric":[{"name":"rainfall","mean":0,"std":1}]},
				"forest":{"classes":["A"],"trees":[{"nodes":[{"f":0,"t":0,"l":0,"r":0}]}]}}`),
			expected: ErrArtifactIncompatible,
		},
		{
			name: "unknown feature",
			path: write("feature.json", `{"format_version":1,
				"encoder":{"categorical":[{"name":"altitude","categories":["x"]}],"numeric":[]},
				"forest":{"classes":["A"],"trees":[{"nodes":[{"f":-1,"v":[1]}]}]}}`),
			expected: ErrArtifactIncompatible,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadModel(tt.path)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestGenerateSynthetic(t *testing.T) {
	a := GenerateSynthetic(100, 42)
	b := GenerateSynthetic(100, 42)
	assert.Equal(t, a, b)

	known := map[string]bool{
		"Maize": true, "Beans": true, "Cassava": true, "Sweet Potatoes": true,
		"Bananas": true, "Coffee": true, "Pineapple": true, "Groundnuts": true,
	}
	for _, s := range a {
		assert.True(t, known[s.Crop], s.Crop)
		assert.GreaterOrEqual(t, s.Input.Temperature, 18.0)
		assert.LessOrEqual(t, s.Input.Temperature, 35.0)
		assert.GreaterOrEqual(t, s.Input.Rainfall, 50.0)
		assert.LessOrEqual(t, s.Input.Rainfall, 420.0)
	}
}

func TestLabelFor_Rules(t *testing.T) {
	tests := []struct {
		name     string
		input    Input
		expected string
	}{
		{"maize", Input{Season: "First", SoilType: "Clay", Temperature: 25, Rainfall: 200}, "Maize"},
		{"cassava", Input{Season: "First", SoilType: "Sandy", Temperature: 25, Rainfall: 200}, "Cassava"},
		{"sweet potatoes", Input{Season: "Second", SoilType: "Sandy", Temperature: 25, Rainfall: 100}, "Sweet Potatoes"},
		{"beans", Input{Season: "Second", SoilType: "Loam", Temperature: 25, Rainfall: 100}, "Beans"},
		{"bananas", Input{Season: "Second", SoilType: "Loam", Temperature: 30, Rainfall: 200}, "Bananas"},
		{"coffee", Input{Season: "Second", SoilType: "Clay", Temperature: 30, Rainfall: 100}, "Coffee"},
		{"pineapple", Input{Season: "Second", SoilType: "Sandy", Temperature: 25, Rainfall: 200}, "Pineapple"},
		{"groundnuts", Input{Season: "Second", SoilType: "Clay", Temperature: 20, Rainfall: 200}, "Groundnuts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, labelFor(tt.input, nil))
		})
	}
}

func TestLoadSamplesCSV(t *testing.T) {
	body := "crop,season,soil_type,temperature,rainfall\n" +
		"Maize,First,Loam,25.5,210\n" +
		"Beans, Second ,Clay,22,130\n"

	samples, err := LoadSamplesCSV(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, Sample{Input: Input{Season: "First", SoilType: "Loam", Temperature: 25.5, Rainfall: 210}, Crop: "Maize"}, samples[0])
	assert.Equal(t, "Second", samples[1].Input.Season)

	_, err = LoadSamplesCSV(strings.NewReader("season,soil_type\nFirst,Loam\n"))
	assert.Error(t, err)

	_, err = LoadSamplesCSV(strings.NewReader("season,soil_type,temperature,rainfall,crop\nFirst,Loam,hot,10,Maize\n"))
	assert.Error(t, err)
}

func isSortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}

func TestTree_ValidateLeafWeights(t *testing.T) {
	tests := []struct {
		name    string
		value   []float64
		wantErr bool
	}{
		{name: "normalized", value: []float64{0.25, 0.75}},
		{name: "one hot", value: []float64{0, 1}},
		{name: "not a number", value: []float64{math.NaN(), 1}, wantErr: true},
		{name: "infinite", value: []float64{math.Inf(1), 0}, wantErr: true},
		{name: "negative", value: []float64{-0.1, 1.1}, wantErr: true},
		{name: "short of one", value: []float64{0.2, 0.2}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Tree{Nodes: []Node{{Feature: -1, Value: tt.value}}}
			err := tree.validate(1, 2)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTrain_LeavesPassValidation(t *testing.T) {
	m := trainSmall(t)
	for i := range m.Forest.Trees {
		require.NoError(t, m.Forest.Trees[i].validate(m.Encoder.Width(), len(m.Forest.ClassLabels)))
	}
}
