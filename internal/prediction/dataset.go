package prediction

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// Sample is one labelled training row.
type Sample struct {
	Input Input
	Crop  string
}

var (
	syntheticSeasons = []string{"First", "Second"}
	syntheticSoils   = []string{"Loam", "Clay", "Sandy"}
	syntheticDefault = []string{"Maize", "Beans", "Cassava", "Bananas"}
)

// DefaultSyntheticSamples is the size of the data set the production model
// is trained on.
const DefaultSyntheticSamples = 1200

// GenerateSynthetic produces n labelled rows that follow the Luwero planting
// heuristics. The same seed always yields the same rows.
func GenerateSynthetic(n int, seed int64) []Sample {
	rng := rand.New(rand.NewSource(seed))
	samples := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		in := Input{
			Season:      syntheticSeasons[rng.Intn(len(syntheticSeasons))],
			SoilType:    syntheticSoils[rng.Intn(len(syntheticSoils))],
			Temperature: clip(rng.NormFloat64()*4.5+26.5, 18, 35),
			Rainfall:    clip(rng.NormFloat64()*85+170, 50, 420),
		}
		samples = append(samples, Sample{Input: in, Crop: labelFor(in, rng)})
	}
	return samples
}

func labelFor(in Input, rng *rand.Rand) string {
	t, r, soil := in.Temperature, in.Rainfall, in.SoilType
	loamOrClay := soil == "Loam" || soil == "Clay"

	switch {
	case in.Season == "First" && r > 150 && r < 280 && t > 22 && t < 30 && loamOrClay:
		return "Maize"
	case in.Season == "First" && soil == "Sandy" && r > 180:
		return "Cassava"
	case r < 120 && soil == "Sandy":
		return "Sweet Potatoes"
	case t > 20 && t < 28 && soil == "Loam":
		return "Beans"
	case soil == "Loam" && r > 100:
		return "Bananas"
	case t > 24 && r < 150:
		return "Coffee"
	case soil == "Sandy" && t > 22 && t < 32:
		return "Pineapple"
	case r > 120 && loamOrClay:
		return "Groundnuts"
	default:
		return syntheticDefault[rng.Intn(len(syntheticDefault))]
	}
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

var requiredColumns = []string{FeatureSeason, FeatureSoilType, FeatureTemperature, FeatureRainfall, "crop"}

// LoadSamplesCSV reads rows with a header containing season, soil_type,
// temperature, rainfall and crop. Column order does not matter.
func LoadSamplesCSV(r io.Reader) ([]Sample, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("csv is missing column %q", name)
		}
	}

	var samples []Sample
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		temp, err := strconv.ParseFloat(strings.TrimSpace(record[cols[FeatureTemperature]]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid temperature: %w", line, err)
		}
		rain, err := strconv.ParseFloat(strings.TrimSpace(record[cols[FeatureRainfall]]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid rainfall: %w", line, err)
		}
		crop := strings.TrimSpace(record[cols["crop"]])
		if crop == "" {
			return nil, fmt.Errorf("line %d: empty crop label", line)
		}
		samples = append(samples, Sample{
			Input: Input{
				Season:      strings.TrimSpace(record[cols[FeatureSeason]]),
				SoilType:    strings.TrimSpace(record[cols[FeatureSoilType]]),
				Temperature: temp,
				Rainfall:    rain,
			},
			Crop: crop,
		})
	}
	return samples, nil
}
