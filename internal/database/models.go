package database

import (
	"time"

	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/prediction"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/recommend"
	"github.com/google/uuid"
)

// HistoryEntry is one saved prediction.
type HistoryEntry struct {
	ID              string                 `json:"id" db:"id"`
	ClientID        string                 `json:"-" db:"client_id"`
	Date            time.Time              `json:"date" db:"created_at"`
	Season          string                 `json:"season" db:"season"`
	SoilType        string                 `json:"soil_type" db:"soil_type"`
	Temperature     float64                `json:"temperature" db:"temperature"`
	Rainfall        float64                `json:"rainfall" db:"rainfall"`
	Recommendations []recommend.RankedCrop `json:"recommendations" db:"recommendations"`
}

// NewHistoryEntry creates an entry with a generated ID stamped now.
func NewHistoryEntry(clientID string, in prediction.Input, recs []recommend.RankedCrop) *HistoryEntry {
	if recs == nil {
		recs = []recommend.RankedCrop{}
	}
	return &HistoryEntry{
		ID:              uuid.New().String(),
		ClientID:        clientID,
		Date:            time.Now().UTC(),
		Season:          in.Season,
		SoilType:        in.SoilType,
		Temperature:     in.Temperature,
		Rainfall:        in.Rainfall,
		Recommendations: recs,
	}
}
