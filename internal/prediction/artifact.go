package prediction

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
)

// ArtifactFormatVersion is bumped whenever the on-disk layout changes.
const ArtifactFormatVersion = 1

var (
	ErrArtifactNotFound     = errors.New("model artifact not found")
	ErrArtifactCorrupt      = errors.New("model artifact is corrupt")
	ErrArtifactIncompatible = errors.New("model artifact is incompatible")
)

type artifact struct {
	FormatVersion int          `json:"format_version"`
	CreatedAt     time.Time    `json:"created_at"`
	Samples       int          `json:"samples,omitempty"`
	Options       TrainOptions `json:"options"`
	Encoder       Encoder      `json:"encoder"`
	Forest        Forest       `json:"forest"`
}

// ArtifactInfo is descriptive metadata written next to the model.
type ArtifactInfo struct {
	Samples int
	Options TrainOptions
}

// SaveModel writes m to path, creating parent directories as needed. The
// file is written to a temporary name and renamed into place.
func SaveModel(path string, m *Model, info ArtifactInfo) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".model-*.json")
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	doc := artifact{
		FormatVersion: ArtifactFormatVersion,
		CreatedAt:     time.Now().UTC(),
		Samples:       info.Samples,
		Options:       info.Options,
		Encoder:       m.Encoder,
		Forest:        m.Forest,
	}
	if err := json.NewEncoder(tmp).Encode(&doc); err != nil {
		tmp.Close()
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// LoadModel reads and validates an artifact. Errors wrap one of
// ErrArtifactNotFound, ErrArtifactCorrupt or ErrArtifactIncompatible.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
	}

	var doc artifact
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
	}
	if doc.FormatVersion != ArtifactFormatVersion {
		return nil, fmt.Errorf("%w: format version %d, want %d", ErrArtifactIncompatible, doc.FormatVersion, ArtifactFormatVersion)
	}

	m := &Model{Encoder: doc.Encoder, Forest: doc.Forest}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the structural consistency of encoder and forest.
func (m *Model) Validate() error {
	if err := m.Encoder.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactIncompatible, err)
	}
	if err := m.Forest.validate(m.Encoder.Width()); err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactIncompatible, err)
	}
	return nil
}
