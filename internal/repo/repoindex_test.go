package repo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leonmak/strongbox/internal/artifact"
	"github.com/leonmak/strongbox/internal/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, baseDir, rel string) string {
	t.Helper()
	path := filepath.Join(baseDir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("content of "+rel), 0o644))
	return path
}

func openTestRepo(t *testing.T, m *Manager, id string) *RepositoryIndexer {
	t.Helper()
	dir := t.TempDir()
	baseDir := filepath.Join(dir, "storage")
	require.NoError(t, os.MkdirAll(baseDir, 0o755))

	ri, err := m.Open(index.Options{
		ID:                id,
		RepositoryBaseDir: baseDir,
		IndexDir:          filepath.Join(dir, "indexes", id),
		Searchable:        true,
	})
	require.NoError(t, err)
	return ri
}

func TestIndexWholeRepository(t *testing.T) {
	m := NewManager()
	defer m.CloseAll(false)
	ri := openTestRepo(t, m, "releases")

	writeFile(t, ri.BaseDir(), "org/example/app/1.0/app-1.0.jar")
	writeFile(t, ri.BaseDir(), "org/example/app/1.0/app-1.0.jar.sha1")
	writeFile(t, ri.BaseDir(), "org/example/app/1.0/app-1.0.pom")
	writeFile(t, ri.BaseDir(), "org/example/app/2.0/app-2.0.jar")
	writeFile(t, ri.BaseDir(), "org/example/app/maven-metadata.xml")

	result, err := ri.Index("")
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalFiles, "checksums and repository metadata are not artifacts")
	assert.False(t, result.HasErrors())

	count, err := ri.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	found, err := ri.SearchCoordinates("org.example", "app", "")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), found.Total)
}

func TestIndexPartialFailure(t *testing.T) {
	m := NewManager()
	defer m.CloseAll(false)
	ri := openTestRepo(t, m, "releases")

	writeFile(t, ri.BaseDir(), "org/example/app/1.0/app-1.0.jar")
	writeFile(t, ri.BaseDir(), "org/example/app/2.0/app-2.0.jar")
	// Filename version disagrees with the directory, and the prefix is
	// not the artifact id: both fail extraction.
	writeFile(t, ri.BaseDir(), "org/example/app/3.0/app-9.9.jar")
	writeFile(t, ri.BaseDir(), "org/example/lib/1.0/other-1.0.jar")

	result, err := ri.Index("")
	require.NoError(t, err, "malformed files must not abort the scan")
	assert.Equal(t, 2, result.TotalFiles, "only successful adds are counted")
	require.Len(t, result.Errors, 2)
	for _, scanErr := range result.Errors {
		assert.NotEmpty(t, scanErr.Path)
		assert.Error(t, scanErr.Err)
	}

	// The valid artifacts made it into the index regardless.
	found, err := ri.SearchCoordinates("org.example", "app", "")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), found.Total)
}

func TestIndexSubtree(t *testing.T) {
	m := NewManager()
	defer m.CloseAll(false)
	ri := openTestRepo(t, m, "releases")

	writeFile(t, ri.BaseDir(), "org/example/app/1.0/app-1.0.jar")
	writeFile(t, ri.BaseDir(), "com/other/lib/1.0/lib-1.0.jar")

	result, err := ri.Index(filepath.Join(ri.BaseDir(), "org"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalFiles, "scan should be confined to the subtree")

	count, err := ri.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestIndexIsIdempotent(t *testing.T) {
	m := NewManager()
	defer m.CloseAll(false)
	ri := openTestRepo(t, m, "releases")

	writeFile(t, ri.BaseDir(), "org/example/app/1.0/app-1.0.jar")

	_, err := ri.Index("")
	require.NoError(t, err)
	_, err = ri.Index("")
	require.NoError(t, err)

	count, err := ri.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestSync(t *testing.T) {
	m := NewManager()
	defer m.CloseAll(false)
	ri := openTestRepo(t, m, "releases")

	kept := writeFile(t, ri.BaseDir(), "org/example/app/1.0/app-1.0.jar")
	removed := writeFile(t, ri.BaseDir(), "org/example/app/2.0/app-2.0.jar")

	_, err := ri.Index("")
	require.NoError(t, err)

	// One file changes, one vanishes, one is brand new.
	require.NoError(t, os.WriteFile(kept, []byte("rebuilt artifact with different size"), 0o644))
	require.NoError(t, os.Chtimes(kept, time.Now(), time.Now().Add(time.Hour)))
	require.NoError(t, os.Remove(removed))
	writeFile(t, ri.BaseDir(), "org/example/app/3.0/app-3.0.jar")

	result, err := ri.Sync()
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 0, result.Unchanged)

	found, err := ri.SearchCoordinates("org.example", "app", "")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), found.Total)

	gone, err := ri.SearchCoordinates("org.example", "app", "2.0")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), gone.Total, "retracted version must not be searchable")
}

func TestSyncUnchanged(t *testing.T) {
	m := NewManager()
	defer m.CloseAll(false)
	ri := openTestRepo(t, m, "releases")

	writeFile(t, ri.BaseDir(), "org/example/app/1.0/app-1.0.jar")

	_, err := ri.Index("")
	require.NoError(t, err)

	result, err := ri.Sync()
	require.NoError(t, err)
	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Deleted)
	assert.Equal(t, 1, result.Unchanged)
}

func TestWatcherAddRemove(t *testing.T) {
	m := NewManager()
	defer m.CloseAll(false)
	ri := openTestRepo(t, m, "releases")

	path := writeFile(t, ri.BaseDir(), "org/example/app/1.0/app-1.0.jar")

	info, err := artifact.FromRepositoryPath(ri.BaseDir(), path)
	require.NoError(t, err)

	require.NoError(t, ri.Add(path, info))
	count, err := ri.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	require.NoError(t, ri.Remove(path, info))
	count, err = ri.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}
