package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leonmak/strongbox/internal/errdefs"
	"github.com/leonmak/strongbox/internal/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRejectsDuplicateID(t *testing.T) {
	m := NewManager()
	defer m.CloseAll(false)
	ri := openTestRepo(t, m, "releases")

	_, err := m.Open(index.Options{
		ID:                "releases",
		RepositoryBaseDir: ri.BaseDir(),
		IndexDir:          filepath.Join(t.TempDir(), "index"),
	})
	require.Error(t, err)
	assert.True(t, errdefs.IsType(err, errdefs.ErrTypeInvalidConfig))
}

func TestManagerReopenAfterClose(t *testing.T) {
	m := NewManager()
	defer m.CloseAll(false)

	dir := t.TempDir()
	baseDir := filepath.Join(dir, "storage")
	require.NoError(t, os.MkdirAll(baseDir, 0o755))
	opts := index.Options{
		ID:                "releases",
		RepositoryBaseDir: baseDir,
		IndexDir:          filepath.Join(dir, "indexes", "releases"),
		Searchable:        true,
	}

	ri, err := m.Open(opts)
	require.NoError(t, err)
	writeFile(t, ri.BaseDir(), "org/example/app/1.0/app-1.0.jar")
	_, err = ri.Index("")
	require.NoError(t, err)

	require.NoError(t, m.Close("releases", false))
	_, ok := m.Get("releases")
	assert.False(t, ok)

	ri, err = m.Open(opts)
	require.NoError(t, err, "id should be reusable once closed")

	count, err := ri.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count, "reopened context sees the persisted documents")
}

func TestManagerCloseUnknownID(t *testing.T) {
	m := NewManager()
	err := m.Close("nope", false)
	require.Error(t, err)
	assert.True(t, errdefs.IsType(err, errdefs.ErrTypeContextClosed))
}

func TestManagerResolve(t *testing.T) {
	m := NewManager()
	defer m.CloseAll(false)
	ri := openTestRepo(t, m, "releases")

	resolved, ok := m.Resolve(filepath.Join(ri.BaseDir(), "org", "example", "app", "1.0", "app-1.0.jar"))
	require.True(t, ok)
	assert.Equal(t, "releases", resolved.ID())

	_, ok = m.Resolve(filepath.Join(t.TempDir(), "elsewhere", "file.jar"))
	assert.False(t, ok)
}

func TestManagerSearchAllText(t *testing.T) {
	m := NewManager()
	defer m.CloseAll(false)

	releases := openTestRepo(t, m, "releases")
	snapshots := openTestRepo(t, m, "snapshots")

	writeFile(t, releases.BaseDir(), "org/example/app/1.0/app-1.0.jar")
	writeFile(t, snapshots.BaseDir(), "org/example/app/2.0/app-2.0.jar")
	// Same coordinates in both repositories: federated results collapse.
	writeFile(t, snapshots.BaseDir(), "org/example/app/1.0/app-1.0.jar")

	_, err := releases.Index("")
	require.NoError(t, err)
	_, err = snapshots.Index("")
	require.NoError(t, err)

	result, err := m.SearchAllText("app")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total, "duplicate coordinates across repositories appear once")

	_, err = m.SearchAllText("   ")
	require.Error(t, err)
	assert.True(t, errdefs.IsType(err, errdefs.ErrTypeQueryParse))
}

func TestManagerSearchAllTextSkipsUnsearchable(t *testing.T) {
	m := NewManager()
	defer m.CloseAll(false)

	dir := t.TempDir()
	baseDir := filepath.Join(dir, "storage")
	require.NoError(t, os.MkdirAll(baseDir, 0o755))

	hidden, err := m.Open(index.Options{
		ID:                "staging",
		RepositoryBaseDir: baseDir,
		IndexDir:          filepath.Join(dir, "indexes", "staging"),
		Searchable:        false,
	})
	require.NoError(t, err)

	writeFile(t, hidden.BaseDir(), "org/example/app/1.0/app-1.0.jar")
	_, err = hidden.Index("")
	require.NoError(t, err)

	result, err := m.SearchAllText("app")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), result.Total, "non-searchable repositories stay out of federated results")
}

func TestManagerStats(t *testing.T) {
	m := NewManager()
	defer m.CloseAll(false)

	ri := openTestRepo(t, m, "releases")
	writeFile(t, ri.BaseDir(), "org/example/app/1.0/app-1.0.jar")
	_, err := ri.Index("")
	require.NoError(t, err)

	stats := m.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, "releases", stats[0].ID)
	assert.Equal(t, ri.BaseDir(), stats[0].BaseDir)
	assert.Equal(t, uint64(1), stats[0].Artifacts)
	assert.True(t, stats[0].Searchable)
}

func TestManagerCloseDeleteFiles(t *testing.T) {
	m := NewManager()

	dir := t.TempDir()
	baseDir := filepath.Join(dir, "storage")
	require.NoError(t, os.MkdirAll(baseDir, 0o755))
	indexDir := filepath.Join(dir, "indexes", "releases")

	_, err := m.Open(index.Options{
		ID:                "releases",
		RepositoryBaseDir: baseDir,
		IndexDir:          indexDir,
	})
	require.NoError(t, err)

	require.NoError(t, m.Close("releases", true))

	_, err = os.Stat(indexDir)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "indexes", "releases-meta.db"))
	assert.True(t, os.IsNotExist(err))
}
