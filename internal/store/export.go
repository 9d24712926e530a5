package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
)

// ExportArtifact is the downloadable form of a user's full learning state.
type ExportArtifact struct {
	ExportedAt time.Time          `json:"exportedAt"`
	User       entities.User      `json:"user"`
	Progress   *entities.Progress `json:"progress"`
}

// Export serializes the current user's aggregate to an indented JSON
// artifact suitable for download or re-import.
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.ensureLocked(ctx)
	if err != nil {
		return nil, err
	}

	artifact := ExportArtifact{
		ExportedAt: s.now().UTC(),
		User:       *s.current,
		Progress:   p.Clone(),
	}
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export progress: %w", err)
	}
	return data, nil
}
