package localcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("", zap.NewNop())
	require.Error(t, err)
}

func TestOpenProbesMedium(t *testing.T) {
	c := openTestCache(t)
	require.True(t, c.Available())

	// The probe sentinel must not linger.
	_, ok, err := c.Get(probeKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOpenOnUnwritablePathReturnsUnavailableCache(t *testing.T) {
	// A path whose parent is a file cannot hold a database. Open must still
	// succeed and hand back a cache in the degraded state.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	c, err := Open(filepath.Join(blocker, "cache.db"), zap.NewNop())
	require.NoError(t, err)
	require.False(t, c.Available())

	require.ErrorIs(t, c.Put("k", []byte("v")), ErrUnavailable)
	_, _, err = c.Get("k")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestPutGetRoundTrip(t *testing.T) {
	c := openTestCache(t)

	require.NoError(t, c.Put("k", []byte(`{"a":1}`)))

	payload, ok, err := c.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"a":1}`, string(payload))
}

func TestPutReplacesExistingValue(t *testing.T) {
	c := openTestCache(t)

	require.NoError(t, c.Put("k", []byte("old")))
	require.NoError(t, c.Put("k", []byte("new")))

	payload, ok, err := c.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "new", string(payload))
}

func TestGetAbsentKey(t *testing.T) {
	c := openTestCache(t)

	payload, ok, err := c.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, payload)
}

func TestDeleteIsIdempotent(t *testing.T) {
	c := openTestCache(t)

	require.NoError(t, c.Put("k", []byte("v")))
	require.NoError(t, c.Delete("k"))
	require.NoError(t, c.Delete("k"))

	_, ok, err := c.Get("k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Put(ProgressKey("u1"), []byte(`{"learned":[1]}`)))
	require.NoError(t, c.Close())

	c2, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	defer c2.Close()

	payload, ok, err := c2.Get(ProgressKey("u1"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"learned":[1]}`, string(payload))
}

func TestKeysAreNamespacedPerUser(t *testing.T) {
	c := openTestCache(t)

	require.NoError(t, c.Put(ProgressKey("u1"), []byte("one")))
	require.NoError(t, c.Put(ProgressKey("u2"), []byte("two")))

	payload, ok, err := c.Get(ProgressKey("u1"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "one", string(payload))
}
