package store

import (
	"context"
	"encoding/json"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
)

// RemoteClient is what the store needs from the remote progress service.
// The fine-grained mutation calls exist because the service is optimized
// for targeted updates; SaveProgress is the full-aggregate fallback.
type RemoteClient interface {
	FetchProgress(ctx context.Context, userID string) (json.RawMessage, error)
	SaveProgress(ctx context.Context, userID string, p *entities.Progress) error

	MarkLearned(ctx context.Context, userID string, wordID int) error
	UnmarkLearned(ctx context.Context, userID string, wordID int) error
	SubmitQuizResult(ctx context.Context, userID string, wordID int, correct bool) error
	AppendSession(ctx context.Context, userID string, rec entities.SessionRecord) error
	UpdateStreak(ctx context.Context, userID string, stats entities.Stats) error
	UpdatePreference(ctx context.Context, userID, key string, value any) error

	Register(ctx context.Context, name string) (entities.User, error)
	DeleteUser(ctx context.Context, userID string) error
	ActivateCertification(ctx context.Context, userID, key string) error
}

// LocalCache is what the store needs from the on-device medium. The local
// tier always stores full aggregate snapshots, never deltas.
type LocalCache interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, payload []byte) error
	Delete(key string) error
	Available() bool
}
