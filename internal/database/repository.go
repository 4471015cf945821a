package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/recommend"
	json "github.com/goccy/go-json"
)

// ErrNotFound is returned when an entry does not exist for the caller.
var ErrNotFound = errors.New("history entry not found")

// History listing bounds.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveHistory inserts entry.
func (r *Repository) SaveHistory(ctx context.Context, entry *HistoryEntry) error {
	recs, err := json.Marshal(entry.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to encode recommendations: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO prediction_history (id, client_id, season, soil_type, temperature, rainfall, recommendations, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.ClientID, entry.Season, entry.SoilType, entry.Temperature, entry.Rainfall, string(recs), entry.Date)
	if err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}

	return nil
}

// ClampLimit maps a requested page size into [1, MaxListLimit]; zero or
// negative selects DefaultListLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

// ListHistory returns the newest entries for clientID first.
func (r *Repository) ListHistory(ctx context.Context, clientID string, limit int) ([]HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, client_id, season, soil_type, temperature, rainfall, recommendations, created_at
		FROM prediction_history
		WHERE client_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, clientID, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var entry HistoryEntry
		var recs string
		if err := rows.Scan(&entry.ID, &entry.ClientID, &entry.Season, &entry.SoilType,
			&entry.Temperature, &entry.Rainfall, &recs, &entry.Date); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}

		entry.Recommendations = []recommend.RankedCrop{}
		if err := json.Unmarshal([]byte(recs), &entry.Recommendations); err != nil {
			return nil, fmt.Errorf("failed to decode recommendations for %s: %w", entry.ID, err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	return entries, nil
}

// DeleteHistory removes one entry owned by clientID.
func (r *Repository) DeleteHistory(ctx context.Context, clientID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM prediction_history WHERE id = ? AND client_id = ?`, id, clientID)
	if err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteOlderThan removes entries created before cutoff and returns the count.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM prediction_history WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old history: %w", err)
	}

	return result.RowsAffected()
}

// CountHistory returns the total number of stored entries.
func (r *Repository) CountHistory(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prediction_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return n, nil
}
