package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
	"github.com/vocadrill/vocadrill/internal/localcache"
	"github.com/vocadrill/vocadrill/internal/remote"
)

var (
	// ErrNoUser is returned by every operation that needs a selected user.
	ErrNoUser = errors.New("no user selected")

	// ErrRemoteRequired is returned by operations that only the remote
	// service can perform (registration, certification) when the remote
	// tier is disabled or already degraded.
	ErrRemoteRequired = errors.New("remote service required but unavailable")
)

// Store is the single point of read/write access to the current user's
// progress aggregate. It reconciles the remote service, the on-device cache
// and its own in-memory snapshot behind one contract: once a user is
// selected, reads never fail and mutations never lose data within the
// session, whatever the persistence tiers are doing.
//
// The caller model is a single logical session: mutations are expected to be
// issued sequentially. The mutex exists because the session tracker flushes
// from a scheduler goroutine, not to support concurrent multi-user access.
type Store struct {
	remote RemoteClient // nil when remote sync is disabled by configuration
	cache  LocalCache
	log    *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	tier     Tier
	current  *entities.User
	snapshot *entities.Progress // nil until warmed for the current user
}

// Option tweaks store construction.
type Option func(*Store)

// WithClock overrides the wall clock, used by streak tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New builds a store over the given collaborators. Passing a nil remote
// client starts the session on the local tier; a cache that reports
// unavailable drops it further to memory-only.
func New(remoteClient RemoteClient, cache LocalCache, log *zap.Logger, opts ...Option) *Store {
	s := &Store{
		remote: remoteClient,
		cache:  cache,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.remote != nil {
		s.tier = TierRemote
	} else {
		s.tier = s.localTier()
	}
	return s
}

// Tier reports the persistence tier currently in use.
func (s *Store) Tier() Tier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tier
}

// localTier picks between local and memory based on cache availability.
func (s *Store) localTier() Tier {
	if s.cache != nil && s.cache.Available() {
		return TierLocal
	}
	return TierMemory
}

// demote permanently disables the remote tier for this session.
func (s *Store) demote(op string, err error) {
	s.tier = s.localTier()
	s.log.Warn("remote sync disabled for the rest of the session",
		zap.String("op", op),
		zap.String("tier", s.tier.String()),
		zap.Error(err))
}

// Get returns a copy of the current user's aggregate, warming the snapshot
// from remote or local storage on first use. It never fails for persistence
// reasons: a missing or unreachable backend yields defaults, not an error.
func (s *Store) Get(ctx context.Context) (*entities.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.ensureLocked(ctx)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// Save replaces the aggregate wholesale. The in-memory snapshot is updated
// before any persistence is attempted so a subsequent Get observes the new
// state even while the write is still in flight tier-wise.
func (s *Store) Save(ctx context.Context, p *entities.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ErrNoUser
	}

	cp := p.Clone()
	cp.Normalize()
	s.snapshot = cp
	s.persistLocked(ctx)
	return nil
}

// ensureLocked returns the live snapshot, loading it if necessary.
// The returned aggregate is the store-owned copy; callers inside the
// package mutate it directly, external callers get clones.
func (s *Store) ensureLocked(ctx context.Context) (*entities.Progress, error) {
	if s.current == nil {
		return nil, ErrNoUser
	}
	if s.snapshot != nil {
		return s.snapshot, nil
	}

	if s.tier == TierRemote {
		raw, err := s.remote.FetchProgress(ctx, s.current.ID)
		switch {
		case err == nil:
			// Merge the remote copy over the local backup (when one
			// exists), then over defaults. A sparse remote record
			// recovers locally backed-up fields instead of losing them.
			merged, decErr := entities.DecodeProgress(raw, s.readLocalLocked())
			if decErr != nil {
				s.demote("fetch progress", decErr)
			} else {
				s.snapshot = merged
				s.writeLocalLocked()
				return s.snapshot, nil
			}
		case errors.Is(err, remote.ErrNotFound):
			// No record server-side means a brand-new user, not a failure.
			s.snapshot = entities.NewProgress()
			return s.snapshot, nil
		default:
			s.demote("fetch progress", err)
		}
	}

	if p := s.readLocalLocked(); p != nil {
		s.snapshot = p
	} else {
		s.snapshot = entities.NewProgress()
	}
	return s.snapshot, nil
}

// readLocalLocked reads and decodes the namespaced local backup. Absent,
// unreadable and unparseable records all come back as nil; a corrupt backup
// is treated the same as no backup at all.
func (s *Store) readLocalLocked() *entities.Progress {
	if s.cache == nil || !s.cache.Available() || s.current == nil {
		return nil
	}

	payload, ok, err := s.cache.Get(localcache.ProgressKey(s.current.ID))
	if err != nil || !ok {
		return nil
	}

	p, err := entities.DecodeProgress(payload, nil)
	if err != nil {
		s.log.Warn("discarding unparseable local backup",
			zap.String("user", s.current.ID), zap.Error(err))
		return nil
	}
	return p
}

// writeLocalLocked mirrors the snapshot to the local cache. Failures are
// logged and swallowed: the mirror is a backup, never a reason to fail the
// caller. The cache flips its own availability flag on error.
func (s *Store) writeLocalLocked() {
	if s.cache == nil || !s.cache.Available() || s.snapshot == nil || s.current == nil {
		return
	}

	payload, err := entities.EncodeProgress(s.snapshot)
	if err != nil {
		s.log.Warn("encode local backup", zap.Error(err))
		return
	}
	if err := s.cache.Put(localcache.ProgressKey(s.current.ID), payload); err != nil {
		s.log.Warn("write local backup", zap.Error(err))
	}
}

// persistLocked pushes the snapshot through the current tier: a remote
// replace-all with a local mirror on success, or a local write after the
// remote tier has been disabled. On the memory tier this is a no-op; the
// snapshot itself is the only copy.
func (s *Store) persistLocked(ctx context.Context) {
	if s.tier == TierRemote {
		if err := s.remote.SaveProgress(ctx, s.current.ID, s.snapshot); err != nil {
			s.demote("save progress", err)
		} else {
			s.writeLocalLocked()
			return
		}
	}
	s.writeLocalLocked()
}

// applyLocked implements the dual mutation strategy: try the fine-grained
// remote call first, and on success apply the field-level change and mirror
// the result locally. When the remote call fails (or the remote tier is
// already gone) the change is applied anyway and the full aggregate goes
// through the generic persistence path. Transport and credential failures
// disable the remote tier; a not-found or rejected granular call falls back
// to a full save without giving up on the remote.
func (s *Store) applyLocked(ctx context.Context, op string, remoteCall func() error, apply func()) {
	if s.tier == TierRemote {
		if err := remoteCall(); err == nil {
			apply()
			s.writeLocalLocked()
			return
		} else if remote.IsTransport(err) || errors.Is(err, remote.ErrUnauthorized) {
			s.demote(op, err)
		} else {
			s.log.Warn("granular remote update rejected, falling back to full save",
				zap.String("op", op), zap.Error(err))
		}
	}
	apply()
	s.persistLocked(ctx)
}
