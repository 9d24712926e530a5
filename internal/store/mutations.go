package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
	"github.com/vocadrill/vocadrill/internal/remote"
)

// MarkLearned adds a word to the learned set. It reports false when the word
// was already learned, in which case nothing is touched or persisted.
func (s *Store) MarkLearned(ctx context.Context, wordID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.ensureLocked(ctx)
	if err != nil {
		return false, err
	}
	if p.IsLearned(wordID) {
		return false, nil
	}

	s.applyLocked(ctx, "mark learned",
		func() error { return s.remote.MarkLearned(ctx, s.current.ID, wordID) },
		func() { p.MarkLearned(wordID) },
	)
	return true, nil
}

// UnmarkLearned removes a word from the learned set. It reports false when
// the word was not learned.
func (s *Store) UnmarkLearned(ctx context.Context, wordID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.ensureLocked(ctx)
	if err != nil {
		return false, err
	}
	if !p.IsLearned(wordID) {
		return false, nil
	}

	s.applyLocked(ctx, "unmark learned",
		func() error { return s.remote.UnmarkLearned(ctx, s.current.ID, wordID) },
		func() { p.UnmarkLearned(wordID) },
	)
	return true, nil
}

// IsLearned reports whether the word is in the learned set.
func (s *Store) IsLearned(ctx context.Context, wordID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.ensureLocked(ctx)
	if err != nil {
		return false, err
	}
	return p.IsLearned(wordID), nil
}

// LearnedCount returns the size of the learned set.
func (s *Store) LearnedCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.ensureLocked(ctx)
	if err != nil {
		return 0, err
	}
	return len(p.Learned), nil
}

// UpdateQuizScore records one quiz answer for a word.
func (s *Store) UpdateQuizScore(ctx context.Context, wordID int, correct bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.ensureLocked(ctx)
	if err != nil {
		return err
	}

	s.applyLocked(ctx, "submit quiz result",
		func() error { return s.remote.SubmitQuizResult(ctx, s.current.ID, wordID, correct) },
		func() { p.RecordQuizAnswer(wordID, correct) },
	)
	return nil
}

// AddSession appends a study-session record to the history.
func (s *Store) AddSession(ctx context.Context, rec entities.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.ensureLocked(ctx)
	if err != nil {
		return err
	}

	s.applyLocked(ctx, "append session",
		func() error { return s.remote.AppendSession(ctx, s.current.ID, rec) },
		func() { p.AddSession(rec) },
	)
	return nil
}

// UpdateStreak advances the day-based streak for today. Calling it again on
// the same calendar day is a no-op.
func (s *Store) UpdateStreak(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.ensureLocked(ctx)
	if err != nil {
		return err
	}
	if !p.UpdateStreak(s.now()) {
		return nil
	}

	// The streak fields are already advanced in memory; the remote call
	// just replicates them, so a failure only affects durability.
	if s.tier == TierRemote {
		err := s.remote.UpdateStreak(ctx, s.current.ID, p.Stats)
		if err == nil {
			s.writeLocalLocked()
			return nil
		}
		if remote.IsTransport(err) || errors.Is(err, remote.ErrUnauthorized) {
			s.demote("update streak", err)
		}
	}
	s.persistLocked(ctx)
	return nil
}

// SetPreference assigns a preference by its wire key. Type mismatches on
// known keys surface as errors; persistence failures do not.
func (s *Store) SetPreference(ctx context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.ensureLocked(ctx)
	if err != nil {
		return err
	}
	if err := p.Preferences.Set(key, value); err != nil {
		return err
	}

	if s.tier == TierRemote {
		err := s.remote.UpdatePreference(ctx, s.current.ID, key, value)
		if err == nil {
			s.writeLocalLocked()
			return nil
		}
		if remote.IsTransport(err) || errors.Is(err, remote.ErrUnauthorized) {
			s.demote("update preference", err)
		}
	}
	s.persistLocked(ctx)
	return nil
}

// GetPreference looks up a preference by its wire key.
func (s *Store) GetPreference(ctx context.Context, key string) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.ensureLocked(ctx)
	if err != nil {
		return nil, false, err
	}
	v, ok := p.Preferences.Get(key)
	return v, ok, nil
}

// ActivateCertification claims a certification key for the current user.
// Server-side uniqueness makes this a remote-only operation: when the
// remote tier is unavailable the caller gets an error instead of a silent
// local write that could never be validated.
func (s *Store) ActivateCertification(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.ensureLocked(ctx)
	if err != nil {
		return err
	}
	if s.remote == nil || s.tier != TierRemote {
		return ErrRemoteRequired
	}

	if err := s.remote.ActivateCertification(ctx, s.current.ID, key); err != nil {
		if remote.IsTransport(err) {
			s.demote("activate certification", err)
			return fmt.Errorf("activate certification: %w", ErrRemoteRequired)
		}
		return fmt.Errorf("activate certification: %w", err)
	}

	p.Preferences.CertificationKey = key
	s.writeLocalLocked()
	return nil
}

// Reset clears the current user's aggregate back to defaults everywhere the
// current tier can reach. Confirmation is the caller's responsibility.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ErrNoUser
	}
	s.snapshot = entities.NewProgress()
	s.persistLocked(ctx)
	return nil
}
