package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
	"github.com/vocadrill/vocadrill/internal/localcache"
	"github.com/vocadrill/vocadrill/internal/remote"
)

// fakeRemote scripts the remote service per call family and counts calls so
// tests can assert that a demoted store never talks to it again.
type fakeRemote struct {
	fetchRaw    json.RawMessage
	fetchErr    error
	saveErr     error
	granularErr error
	registerRes entities.User
	registerErr error
	certErr     error
	deleteErr   error

	fetchCalls    int
	saveCalls     int
	granularCalls int
	registerCalls int
	certCalls     int
	deleteCalls   int
}

func (f *fakeRemote) FetchProgress(ctx context.Context, userID string) (json.RawMessage, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.fetchRaw == nil {
		return json.RawMessage(`{}`), nil
	}
	return f.fetchRaw, nil
}

func (f *fakeRemote) SaveProgress(ctx context.Context, userID string, p *entities.Progress) error {
	f.saveCalls++
	return f.saveErr
}

func (f *fakeRemote) granular() error {
	f.granularCalls++
	return f.granularErr
}

func (f *fakeRemote) MarkLearned(ctx context.Context, userID string, wordID int) error {
	return f.granular()
}

func (f *fakeRemote) UnmarkLearned(ctx context.Context, userID string, wordID int) error {
	return f.granular()
}

func (f *fakeRemote) SubmitQuizResult(ctx context.Context, userID string, wordID int, correct bool) error {
	return f.granular()
}

func (f *fakeRemote) AppendSession(ctx context.Context, userID string, rec entities.SessionRecord) error {
	return f.granular()
}

func (f *fakeRemote) UpdateStreak(ctx context.Context, userID string, stats entities.Stats) error {
	return f.granular()
}

func (f *fakeRemote) UpdatePreference(ctx context.Context, userID, key string, value any) error {
	return f.granular()
}

func (f *fakeRemote) Register(ctx context.Context, name string) (entities.User, error) {
	f.registerCalls++
	return f.registerRes, f.registerErr
}

func (f *fakeRemote) DeleteUser(ctx context.Context, userID string) error {
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakeRemote) ActivateCertification(ctx context.Context, userID, key string) error {
	f.certCalls++
	return f.certErr
}

// fakeCache is an in-memory stand-in for the sqlite cache; flipping
// unavailable models a private-browsing medium.
type fakeCache struct {
	data        map[string][]byte
	unavailable bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (c *fakeCache) Available() bool { return !c.unavailable }

func (c *fakeCache) Get(key string) ([]byte, bool, error) {
	if c.unavailable {
		return nil, false, localcache.ErrUnavailable
	}
	payload, ok := c.data[key]
	return payload, ok, nil
}

func (c *fakeCache) Put(key string, payload []byte) error {
	if c.unavailable {
		return localcache.ErrUnavailable
	}
	c.data[key] = payload
	return nil
}

func (c *fakeCache) Delete(key string) error {
	if c.unavailable {
		return localcache.ErrUnavailable
	}
	delete(c.data, key)
	return nil
}

var transportDown = &remote.TransportError{Op: "test", Status: 503}

func newTestStore(t *testing.T, rc RemoteClient, cache LocalCache) *Store {
	t.Helper()
	s := New(rc, cache, zap.NewNop())
	s.SetCurrentUser(entities.NewUser("u1", "Test User"))
	return s
}

func TestFreshUserGetsDefaults(t *testing.T) {
	rc := &fakeRemote{fetchErr: remote.ErrNotFound}
	s := newTestStore(t, rc, newFakeCache())
	ctx := context.Background()

	p, err := s.Get(ctx)
	require.NoError(t, err)
	require.Empty(t, p.Learned)
	require.Zero(t, p.Stats.TotalWordsLearned)
	require.Equal(t, TierRemote, s.Tier(), "not-found is a new user, not a failure")

	changed, err := s.MarkLearned(ctx, 42)
	require.NoError(t, err)
	require.True(t, changed)

	learned, err := s.IsLearned(ctx, 42)
	require.NoError(t, err)
	require.True(t, learned)

	count, err := s.LearnedCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestMarkLearnedIdempotentThroughStore(t *testing.T) {
	s := newTestStore(t, nil, newFakeCache())
	ctx := context.Background()

	changed, err := s.MarkLearned(ctx, 7)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = s.MarkLearned(ctx, 7)
	require.NoError(t, err)
	require.False(t, changed, "second call must report no change")

	p, err := s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{7}, p.Learned)
}

func TestTransportFailureDisablesRemoteForSession(t *testing.T) {
	rc := &fakeRemote{fetchErr: transportDown, saveErr: transportDown, granularErr: transportDown}
	cache := newFakeCache()
	s := newTestStore(t, rc, cache)
	ctx := context.Background()

	// First read degrades silently to defaults.
	p, err := s.Get(ctx)
	require.NoError(t, err)
	require.Empty(t, p.Learned)
	require.Equal(t, 1, rc.fetchCalls)
	require.Equal(t, TierLocal, s.Tier())

	// Mutation succeeds locally without touching the remote again.
	_, err = s.MarkLearned(ctx, 7)
	require.NoError(t, err)

	p, err = s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{7}, p.Learned)

	require.Equal(t, 1, rc.fetchCalls, "no remote retry within the session")
	require.Zero(t, rc.granularCalls)
	require.Zero(t, rc.saveCalls)

	// The local backup now holds the mutated aggregate.
	payload, ok, err := cache.Get(localcache.ProgressKey("u1"))
	require.NoError(t, err)
	require.True(t, ok)
	backup, err := entities.DecodeProgress(payload, nil)
	require.NoError(t, err)
	require.Equal(t, []int{7}, backup.Learned)
}

func TestGranularSuccessMirrorsToLocal(t *testing.T) {
	rc := &fakeRemote{fetchErr: remote.ErrNotFound}
	cache := newFakeCache()
	s := newTestStore(t, rc, cache)
	ctx := context.Background()

	_, err := s.MarkLearned(ctx, 3)
	require.NoError(t, err)

	require.Equal(t, 1, rc.granularCalls)
	require.Zero(t, rc.saveCalls, "granular success must not trigger a full save")
	require.Equal(t, TierRemote, s.Tier())

	payload, ok, _ := cache.Get(localcache.ProgressKey("u1"))
	require.True(t, ok, "successful remote mutation must be mirrored locally")
	backup, err := entities.DecodeProgress(payload, nil)
	require.NoError(t, err)
	require.Equal(t, []int{3}, backup.Learned)
}

func TestGranularNotFoundFallsBackToFullSave(t *testing.T) {
	// The service lost the record: the targeted endpoint 404s but a full
	// replace-all still works and must not disable the remote tier.
	rc := &fakeRemote{fetchErr: remote.ErrNotFound, granularErr: remote.ErrNotFound}
	s := newTestStore(t, rc, newFakeCache())
	ctx := context.Background()

	_, err := s.MarkLearned(ctx, 3)
	require.NoError(t, err)

	require.Equal(t, 1, rc.granularCalls)
	require.Equal(t, 1, rc.saveCalls, "rejected granular call falls back to replace-all")
	require.Equal(t, TierRemote, s.Tier(), "a 404 on a granular endpoint is not a transport failure")
}

func TestMemoryOnlyModeNeverErrors(t *testing.T) {
	rc := &fakeRemote{fetchErr: transportDown, saveErr: transportDown, granularErr: transportDown}
	cache := newFakeCache()
	cache.unavailable = true
	s := newTestStore(t, rc, cache)
	ctx := context.Background()

	p, err := s.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, TierMemory, s.Tier())

	_, err = s.MarkLearned(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, s.UpdateQuizScore(ctx, 1, true))
	require.NoError(t, s.AddSession(ctx, entities.SessionRecord{Duration: 30}))
	require.NoError(t, s.UpdateStreak(ctx))
	require.NoError(t, s.SetPreference(ctx, entities.PrefTheme, "dark"))

	p, err = s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{1}, p.Learned)
	require.Equal(t, "dark", p.Preferences.Theme)
	require.Len(t, p.Sessions, 1)
	require.Equal(t, 1, p.Stats.CurrentStreak)
}

func TestUserSwitchClearsSnapshot(t *testing.T) {
	cache := newFakeCache()
	s := newTestStore(t, nil, cache)
	ctx := context.Background()

	_, err := s.MarkLearned(ctx, 11)
	require.NoError(t, err)

	s.SetCurrentUser(entities.NewUser("u2", "Other"))

	p, err := s.Get(ctx)
	require.NoError(t, err)
	require.Empty(t, p.Learned, "second user must not see the first user's words")

	// Switching back re-reads the first user's backup.
	s.SetCurrentUser(entities.NewUser("u1", "Test User"))
	p, err = s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{11}, p.Learned)
}

func TestGetWithoutUserFails(t *testing.T) {
	s := New(nil, newFakeCache(), zap.NewNop())

	_, err := s.Get(context.Background())
	require.ErrorIs(t, err, ErrNoUser)
}

func TestRemoteFetchRecoversFieldsFromLocalBackup(t *testing.T) {
	cache := newFakeCache()

	backup := entities.NewProgress()
	backup.Preferences.CertificationKey = "CERT-9"
	backup.Preferences.Theme = "dark"
	payload, err := entities.EncodeProgress(backup)
	require.NoError(t, err)
	require.NoError(t, cache.Put(localcache.ProgressKey("u1"), payload))

	// The remote copy is sparse: it knows the learned set but lost the
	// preferences. The merge must take learned from remote and recover
	// the rest from the backup.
	rc := &fakeRemote{fetchRaw: json.RawMessage(`{"learned": [1, 2]}`)}
	s := newTestStore(t, rc, cache)

	p, err := s.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, p.Learned)
	require.Equal(t, "CERT-9", p.Preferences.CertificationKey)
	require.Equal(t, "dark", p.Preferences.Theme)
}

func TestCorruptLocalBackupTreatedAsAbsent(t *testing.T) {
	cache := newFakeCache()
	require.NoError(t, cache.Put(localcache.ProgressKey("u1"), []byte("{not json")))

	s := newTestStore(t, nil, cache)
	p, err := s.Get(context.Background())
	require.NoError(t, err)
	require.Empty(t, p.Learned)
}

func TestSessionCapThroughStore(t *testing.T) {
	s := newTestStore(t, nil, newFakeCache())
	ctx := context.Background()

	for i := 0; i < 35; i++ {
		require.NoError(t, s.AddSession(ctx, entities.SessionRecord{Duration: 15}))
	}

	p, err := s.Get(ctx)
	require.NoError(t, err)
	require.Len(t, p.Sessions, entities.MaxSessions)
}

func TestGetReturnsClone(t *testing.T) {
	s := newTestStore(t, nil, newFakeCache())
	ctx := context.Background()

	_, err := s.MarkLearned(ctx, 1)
	require.NoError(t, err)

	p, err := s.Get(ctx)
	require.NoError(t, err)
	p.Learned[0] = 999

	again, err := s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{1}, again.Learned, "caller mutation must not reach the snapshot")
}

func TestUpdateStreakOncePerDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s := New(nil, newFakeCache(), zap.NewNop(), WithClock(func() time.Time { return now }))
	s.SetCurrentUser(entities.NewUser("u1", "Test User"))
	ctx := context.Background()

	require.NoError(t, s.UpdateStreak(ctx))
	require.NoError(t, s.UpdateStreak(ctx))

	p, err := s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, p.Stats.CurrentStreak)
	require.Equal(t, "2026-03-10", p.Stats.LastStudyDate)
}

func TestRegisterRequiresRemote(t *testing.T) {
	s := newTestStore(t, nil, newFakeCache())

	_, err := s.Register(context.Background(), "Anna")
	require.ErrorIs(t, err, ErrRemoteRequired)
}

func TestRegisterSurfacesTransportFailure(t *testing.T) {
	rc := &fakeRemote{registerErr: transportDown}
	s := newTestStore(t, rc, newFakeCache())

	_, err := s.Register(context.Background(), "Anna")
	require.ErrorIs(t, err, ErrRemoteRequired)
	require.Equal(t, TierLocal, s.Tier(), "failed registration is evidence the remote is down")
}

func TestRegisterRemembersUser(t *testing.T) {
	rc := &fakeRemote{registerRes: entities.NewUser("srv-9", "Anna")}
	s := newTestStore(t, rc, newFakeCache())

	user, err := s.Register(context.Background(), "Anna")
	require.NoError(t, err)
	require.Equal(t, "srv-9", user.ID)

	ids := []string{}
	for _, u := range s.Users() {
		ids = append(ids, u.ID)
	}
	require.Contains(t, ids, "srv-9")
}

func TestActivateCertification(t *testing.T) {
	t.Run("requires remote", func(t *testing.T) {
		s := newTestStore(t, nil, newFakeCache())
		err := s.ActivateCertification(context.Background(), "CERT-1")
		require.ErrorIs(t, err, ErrRemoteRequired)
	})

	t.Run("conflict surfaces to caller", func(t *testing.T) {
		rc := &fakeRemote{fetchErr: remote.ErrNotFound, certErr: remote.ErrConflict}
		s := newTestStore(t, rc, newFakeCache())
		err := s.ActivateCertification(context.Background(), "CERT-1")
		require.ErrorIs(t, err, remote.ErrConflict)
		require.Equal(t, TierRemote, s.Tier(), "a conflict is a clean answer, not an outage")
	})

	t.Run("success records the key", func(t *testing.T) {
		rc := &fakeRemote{fetchErr: remote.ErrNotFound}
		s := newTestStore(t, rc, newFakeCache())
		ctx := context.Background()

		require.NoError(t, s.ActivateCertification(ctx, "CERT-1"))
		v, ok, err := s.GetPreference(ctx, entities.PrefCertificationKey)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "CERT-1", v)
	})
}

func TestResetRestoresDefaults(t *testing.T) {
	s := newTestStore(t, nil, newFakeCache())
	ctx := context.Background()

	_, err := s.MarkLearned(ctx, 5)
	require.NoError(t, err)
	require.NoError(t, s.SetPreference(ctx, entities.PrefTheme, "dark"))

	require.NoError(t, s.Reset(ctx))

	p, err := s.Get(ctx)
	require.NoError(t, err)
	require.Empty(t, p.Learned)
	require.Equal(t, entities.DefaultPreferences().Theme, p.Preferences.Theme)
}

func TestDeleteUserRemovesEverything(t *testing.T) {
	rc := &fakeRemote{fetchErr: remote.ErrNotFound}
	cache := newFakeCache()
	s := newTestStore(t, rc, cache)
	ctx := context.Background()

	_, err := s.MarkLearned(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(ctx, "u1"))

	require.Equal(t, 1, rc.deleteCalls)
	_, ok, _ := cache.Get(localcache.ProgressKey("u1"))
	require.False(t, ok, "local backup must be removed")
	_, selected := s.CurrentUser()
	require.False(t, selected, "deleting the selected user deselects them")
	require.Empty(t, s.Users())
}

func TestRestoreCurrentUser(t *testing.T) {
	cache := newFakeCache()
	s := newTestStore(t, nil, cache)
	_, err := s.MarkLearned(context.Background(), 4)
	require.NoError(t, err)

	// A new process over the same cache picks up the selection.
	s2 := New(nil, cache, zap.NewNop())
	require.True(t, s2.RestoreCurrentUser())

	user, ok := s2.CurrentUser()
	require.True(t, ok)
	require.Equal(t, "u1", user.ID)

	p, err := s2.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{4}, p.Learned)
}

func TestExportContainsFullAggregate(t *testing.T) {
	s := newTestStore(t, nil, newFakeCache())
	ctx := context.Background()

	_, err := s.MarkLearned(ctx, 8)
	require.NoError(t, err)

	data, err := s.Export(ctx)
	require.NoError(t, err)

	var artifact ExportArtifact
	require.NoError(t, json.Unmarshal(data, &artifact))
	require.Equal(t, "u1", artifact.User.ID)
	require.Equal(t, []int{8}, artifact.Progress.Learned)
	require.False(t, artifact.ExportedAt.IsZero())
}

func TestSaveIsReadAfterWriteCoherent(t *testing.T) {
	// Remote and local both broken: the write still lands in memory and
	// the next read sees it.
	rc := &fakeRemote{saveErr: transportDown, fetchErr: transportDown}
	cache := newFakeCache()
	cache.unavailable = true
	s := newTestStore(t, rc, cache)
	ctx := context.Background()

	p := entities.NewProgress()
	p.MarkLearned(77)
	require.NoError(t, s.Save(ctx, p))

	got, err := s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{77}, got.Learned)
}
