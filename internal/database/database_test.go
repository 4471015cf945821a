package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/prediction"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/recommend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) (*DB, *Repository) {
	t.Helper()
	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, NewRepository(db)
}

var sampleInput = prediction.Input{Season: "First", SoilType: "Loam", Temperature: 24.5, Rainfall: 1200}

var sampleRecs = []recommend.RankedCrop{
	{Crop: "Maize", Confidence: 61.5, Explanation: "Maize grows well in Luwero's loamy soils during the rainy season."},
	{Crop: "Beans", Confidence: 20.1, Explanation: "Beans do best with moderate rainfall."},
}

type writeMetrics struct {
	mu     sync.Mutex
	ok     int
	failed int
}

func (m *writeMetrics) RecordHistoryWrite(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.failed++
		return
	}
	m.ok++
}

func TestNewDB(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	db, err := NewDB(dir)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, filepath.Join(dir, FileName), db.Path())
	assert.NoError(t, db.HealthCheck(context.Background()))
	assert.Equal(t, 4, db.GetPoolStats()["max_open_connections"])

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestRepository_SaveAndList(t *testing.T) {
	_, repo := setupRepo(t)
	ctx := context.Background()

	older := NewHistoryEntry("client-a", sampleInput, sampleRecs)
	older.Date = time.Now().UTC().Add(-time.Hour)
	newer := NewHistoryEntry("client-a", prediction.Input{Season: "Second", SoilType: "Clay", Temperature: 22, Rainfall: 900}, nil)
	other := NewHistoryEntry("client-b", sampleInput, sampleRecs)

	for _, e := range []*HistoryEntry{older, newer, other} {
		require.NoError(t, repo.SaveHistory(ctx, e))
	}

	entries, err := repo.ListHistory(ctx, "client-a", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, newer.ID, entries[0].ID)
	assert.Equal(t, "Second", entries[0].Season)
	assert.Empty(t, entries[0].Recommendations)
	assert.NotNil(t, entries[0].Recommendations)

	assert.Equal(t, older.ID, entries[1].ID)
	assert.Equal(t, sampleRecs, entries[1].Recommendations)
	assert.Equal(t, 24.5, entries[1].Temperature)
	assert.WithinDuration(t, older.Date, entries[1].Date, time.Millisecond)

	limited, err := repo.ListHistory(ctx, "client-a", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := repo.ListHistory(ctx, "client-z", 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestRepository_Delete(t *testing.T) {
	_, repo := setupRepo(t)
	ctx := context.Background()

	entry := NewHistoryEntry("client-a", sampleInput, sampleRecs)
	require.NoError(t, repo.SaveHistory(ctx, entry))

	assert.ErrorIs(t, repo.DeleteHistory(ctx, "client-b", entry.ID), ErrNotFound)
	assert.NoError(t, repo.DeleteHistory(ctx, "client-a", entry.ID))
	assert.ErrorIs(t, repo.DeleteHistory(ctx, "client-a", entry.ID), ErrNotFound)
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-1, DefaultListLimit},
		{0, DefaultListLimit},
		{1, 1},
		{100, 100},
		{500, MaxListLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampLimit(tt.in), "limit %d", tt.in)
	}
}

func TestHistoryService_RecordAndClose(t *testing.T) {
	_, repo := setupRepo(t)
	metrics := &writeMetrics{}
	svc := NewHistoryService(repo, metrics, 8)

	assert.True(t, svc.Record("client-a", sampleInput, sampleRecs))
	assert.True(t, svc.Record("client-a", sampleInput, sampleRecs))
	require.NoError(t, svc.Close())

	assert.False(t, svc.Record("client-a", sampleInput, sampleRecs))

	n, err := repo.CountHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 2, metrics.ok)
	assert.Equal(t, 0, metrics.failed)
}

func TestHistoryService_Cleanup(t *testing.T) {
	_, repo := setupRepo(t)
	ctx := context.Background()

	stale := NewHistoryEntry("client-a", sampleInput, sampleRecs)
	stale.Date = time.Now().UTC().AddDate(0, 0, -400)
	fresh := NewHistoryEntry("client-a", sampleInput, sampleRecs)
	require.NoError(t, repo.SaveHistory(ctx, stale))
	require.NoError(t, repo.SaveHistory(ctx, fresh))

	svc := NewHistoryService(repo, nil, 1)
	defer svc.Close()

	deleted, err := svc.Cleanup(ctx, 365*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	entries, err := svc.Repository().ListHistory(ctx, "client-a", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, fresh.ID, entries[0].ID)
}
