package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
	"github.com/vocadrill/vocadrill/internal/localcache"
	"github.com/vocadrill/vocadrill/internal/remote"
)

// userRegistry is the locally known set of identities, persisted in the
// cache so the CLI can list and reselect users across invocations.
type userRegistry struct {
	Users []entities.User `json:"users"`
}

// SetCurrentUser selects the user all subsequent operations act on. The
// in-memory snapshot is invalidated unconditionally so no state can leak
// between users, and the selection is remembered locally best-effort.
func (s *Store) SetCurrentUser(user entities.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = nil
	s.current = &user
	s.rememberUserLocked(user)

	if s.cache != nil && s.cache.Available() {
		if payload, err := json.Marshal(user); err == nil {
			if err := s.cache.Put(localcache.CurrentUserKey(), payload); err != nil {
				s.log.Warn("persist current user", zap.Error(err))
			}
		}
	}
}

// CurrentUser returns the selected user, if any.
func (s *Store) CurrentUser() (entities.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return entities.User{}, false
	}
	return *s.current, true
}

// RestoreCurrentUser reloads the last selected user from the local cache.
// It reports false when no selection was persisted or the cache is gone.
func (s *Store) RestoreCurrentUser() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache == nil || !s.cache.Available() {
		return false
	}
	payload, ok, err := s.cache.Get(localcache.CurrentUserKey())
	if err != nil || !ok {
		return false
	}

	var user entities.User
	if err := json.Unmarshal(payload, &user); err != nil || user.ID == "" {
		return false
	}
	s.snapshot = nil
	s.current = &user
	return true
}

// Logout deselects the current user and drops the snapshot.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = nil
	s.current = nil
	if s.cache != nil && s.cache.Available() {
		if err := s.cache.Delete(localcache.CurrentUserKey()); err != nil {
			s.log.Warn("clear current user", zap.Error(err))
		}
	}
}

// Users lists the locally known identities.
func (s *Store) Users() []entities.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadRegistryLocked().Users
}

// Register creates a new identity on the remote service. Registration has
// no local fallback: when the remote tier is disabled or unreachable the
// caller gets a clear error instead of a half-created account.
func (s *Store) Register(ctx context.Context, name string) (entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.remote == nil || s.tier != TierRemote {
		return entities.User{}, ErrRemoteRequired
	}

	user, err := s.remote.Register(ctx, name)
	if err != nil {
		if remote.IsTransport(err) {
			s.demote("register user", err)
			return entities.User{}, fmt.Errorf("register: %w", ErrRemoteRequired)
		}
		return entities.User{}, fmt.Errorf("register: %w", err)
	}

	s.rememberUserLocked(user)
	return user, nil
}

// CreateLocalUser assigns a local-only identity, for sessions that never
// touch the remote service.
func (s *Store) CreateLocalUser(name string) entities.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := entities.NewUser("local-"+uuid.NewString(), name)
	s.rememberUserLocked(user)
	return user
}

// DeleteUser removes an identity and its aggregate everywhere the current
// tier can reach: the remote record (best-effort once degraded), the local
// backup, the registry entry, and the in-memory snapshot when the deleted
// user is the selected one.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tier == TierRemote {
		if err := s.remote.DeleteUser(ctx, userID); err != nil {
			if remote.IsTransport(err) || errors.Is(err, remote.ErrUnauthorized) {
				s.demote("delete user", err)
			} else if !errors.Is(err, remote.ErrNotFound) {
				return fmt.Errorf("delete user: %w", err)
			}
		}
	}

	if s.cache != nil && s.cache.Available() {
		if err := s.cache.Delete(localcache.ProgressKey(userID)); err != nil {
			s.log.Warn("delete local backup", zap.String("user", userID), zap.Error(err))
		}
	}

	reg := s.loadRegistryLocked()
	kept := reg.Users[:0]
	for _, u := range reg.Users {
		if u.ID != userID {
			kept = append(kept, u)
		}
	}
	reg.Users = kept
	s.saveRegistryLocked(reg)

	if s.current != nil && s.current.ID == userID {
		s.current = nil
		s.snapshot = nil
		if s.cache != nil && s.cache.Available() {
			_ = s.cache.Delete(localcache.CurrentUserKey())
		}
	}
	return nil
}

func (s *Store) rememberUserLocked(user entities.User) {
	reg := s.loadRegistryLocked()
	for i, u := range reg.Users {
		if u.ID == user.ID {
			reg.Users[i] = user
			s.saveRegistryLocked(reg)
			return
		}
	}
	reg.Users = append(reg.Users, user)
	s.saveRegistryLocked(reg)
}

func (s *Store) loadRegistryLocked() userRegistry {
	var reg userRegistry
	if s.cache == nil || !s.cache.Available() {
		return reg
	}
	payload, ok, err := s.cache.Get(localcache.UsersKey())
	if err != nil || !ok {
		return reg
	}
	if err := json.Unmarshal(payload, &reg); err != nil {
		s.log.Warn("discarding unparseable user registry", zap.Error(err))
		return userRegistry{}
	}
	return reg
}

func (s *Store) saveRegistryLocked(reg userRegistry) {
	if s.cache == nil || !s.cache.Available() {
		return
	}
	payload, err := json.Marshal(reg)
	if err != nil {
		return
	}
	if err := s.cache.Put(localcache.UsersKey(), payload); err != nil {
		s.log.Warn("persist user registry", zap.Error(err))
	}
}
