package types

import (
	"time"

	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/database"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/prediction"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/recommend"
)

// PredictRequest is the body of /predict and /predict/search. Pointers make
// "missing" distinguishable from zero or empty values.
type PredictRequest struct {
	Season      *string  `json:"season" binding:"required"`
	SoilType    *string  `json:"soil_type" binding:"required"`
	Temperature *float64 `json:"temperature" binding:"required"`
	Rainfall    *float64 `json:"rainfall" binding:"required"`
}

// Input converts a bound request into model input.
func (r PredictRequest) Input() prediction.Input {
	var in prediction.Input
	if r.Season != nil {
		in.Season = *r.Season
	}
	if r.SoilType != nil {
		in.SoilType = *r.SoilType
	}
	if r.Temperature != nil {
		in.Temperature = *r.Temperature
	}
	if r.Rainfall != nil {
		in.Rainfall = *r.Rainfall
	}
	return in
}

// PredictResponse is returned by /predict.
type PredictResponse struct {
	Recommendations []recommend.RankedCrop `json:"recommendations"`
	Inputs          prediction.Input       `json:"inputs"`
}

// SearchResponse is returned by /predict/search.
type SearchResponse struct {
	Result recommend.RankedCrop `json:"result"`
	Query  string               `json:"query"`
	Inputs prediction.Input     `json:"inputs"`
}

// ChatRequest is the body of /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is returned by /chat.
type ChatResponse struct {
	Answer string `json:"answer"`
}

// HistoryResponse is returned by GET /history.
type HistoryResponse struct {
	Entries []database.HistoryEntry `json:"entries"`
	Count   int                     `json:"count"`
}

// MessageResponse carries a single human readable message.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Model     ModelHealth            `json:"model"`
	Services  map[string]string      `json:"services"`
	Metrics   map[string]interface{} `json:"metrics,omitempty"`
}

// ModelHealth summarizes the loaded model.
type ModelHealth struct {
	Path    string   `json:"path"`
	Classes []string `json:"classes"`
}
