package dedup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-job-digest/internal/models"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "outputs", "seen_job_keys.txt"))
	keys, err := fs.ReadKeys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFileStore_WriteThenRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "seen.txt")
	fs := NewFileStore(path)

	want := []models.DedupKey{"https://104.com.tw/job/1", "https://104.com.tw/job/2"}
	require.NoError(t, fs.WriteKeys(want))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://104.com.tw/job/1\nhttps://104.com.tw/job/2\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := fs.ReadKeys()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_CorruptFileIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://ok\n\x00\x01garbage\n"), 0o600))

	_, err := NewStore(NewFileStore(path), nil).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStoreCorrupt))
}

func TestFileStore_UnreadablePathIsCorrupt(t *testing.T) {
	// a directory where the file should be
	path := t.TempDir()
	_, err := NewFileStore(path).ReadKeys()
	assert.True(t, errors.Is(err, ErrStoreCorrupt))
}

func TestFileStore_Lock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.txt")
	first := NewFileStore(path)
	second := NewFileStore(path)

	require.NoError(t, first.Lock())
	err := second.Lock()
	assert.True(t, errors.Is(err, ErrLocked))

	require.NoError(t, first.Unlock())
	require.NoError(t, second.Lock())
	require.NoError(t, second.Unlock())
}

func TestFileStore_CommitAppendsWithoutDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://example.com/a\n"), 0o600))
	store := NewStore(NewFileStore(path), nil)

	seen, err := store.Load()
	require.NoError(t, err)
	_, err = store.Commit([]models.ScoredJob{
		{Key: "https://example.com/a"},
		{Key: "https://example.com/b"},
	}, seen)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a\nhttps://example.com/b\n", string(data))
}
