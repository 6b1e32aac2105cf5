package metastore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openStore(t)

	want := FileMeta{ModTime: time.Unix(1700000000, 123456789), Size: 4096}
	require.NoError(t, s.Put("/repo/org/example/app/1.0/app-1.0.jar", want))

	got, found, err := s.Get("/repo/org/example/app/1.0/app-1.0.jar")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, want.ModTime.Equal(got.ModTime))
	assert.Equal(t, want.Size, got.Size)
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)

	_, found, err := s.Get("/nowhere")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDelete(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Put("/a", FileMeta{ModTime: time.Now(), Size: 1}))
	require.NoError(t, s.Delete("/a"))

	_, found, err := s.Get("/a")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Delete("/a"), "deleting an absent key is not an error")
}

func TestForEachAndCount(t *testing.T) {
	s := openStore(t)

	paths := []string{"/a", "/b", "/c"}
	for i, p := range paths {
		require.NoError(t, s.Put(p, FileMeta{ModTime: time.Now(), Size: int64(i)}))
	}

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	var seen []string
	err = s.ForEach(func(path string, meta FileMeta) error {
		seen = append(seen, path)
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, paths, seen)
}

func TestClear(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Put("/a", FileMeta{ModTime: time.Now(), Size: 1}))
	require.NoError(t, s.Clear())

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
