package prediction

// Feature names as they appear in training data and in the model artifact.
const (
	FeatureSeason      = "season"
	FeatureSoilType    = "soil_type"
	FeatureTemperature = "temperature"
	FeatureRainfall    = "rainfall"
)

// Input is a single plot observation. Categorical values are passed through
// untouched; values never seen during training simply contribute no signal.
type Input struct {
	Season      string  `json:"season"`
	SoilType    string  `json:"soil_type"`
	Temperature float64 `json:"temperature"`
	Rainfall    float64 `json:"rainfall"`
}

func (in Input) categorical(name string) (string, bool) {
	switch name {
	case FeatureSeason:
		return in.Season, true
	case FeatureSoilType:
		return in.SoilType, true
	default:
		return "", false
	}
}

func (in Input) numeric(name string) (float64, bool) {
	switch name {
	case FeatureTemperature:
		return in.Temperature, true
	case FeatureRainfall:
		return in.Rainfall, true
	default:
		return 0, false
	}
}

func isCategoricalFeature(name string) bool {
	_, ok := Input{}.categorical(name)
	return ok
}

func isNumericFeature(name string) bool {
	_, ok := Input{}.numeric(name)
	return ok
}
