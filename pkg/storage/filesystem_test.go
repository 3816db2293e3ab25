package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key := "document/2024/05/report.pdf"
	require.NoError(t, store.Save(ctx, key, strings.NewReader("%PDF-1.4 body"), -1))

	rc, size, err := store.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))
	assert.Equal(t, int64(len(data)), size)

	_, err = os.Stat(store.Path(key) + partialSuffix)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.Delete(ctx, key))
	require.NoError(t, store.Delete(ctx, key))
	_, _, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("client went away") }

func TestLocalStorageFailedWriteLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	key := "image/2024/05/broken.png"
	err = store.Save(context.Background(), key, io.MultiReader(strings.NewReader("partial"), failingReader{}), -1)
	require.Error(t, err)

	_, err = os.Stat(store.Path(key))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(store.Path(key) + partialSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorageCancelledContext(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = store.Save(ctx, "other/2024/05/x.bin", strings.NewReader("data"), 4)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"../escape.txt", "a/../../b", "", "a\\b"} {
		assert.ErrorIs(t, store.Save(ctx, key, strings.NewReader("x"), 1), ErrInvalidKey, key)
	}
}

func TestLocalStorageCleanupPartials(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	stale := filepath.Join(dir, "image", "old.png.part")
	fresh := filepath.Join(dir, "image", "new.png.part")
	done := filepath.Join(dir, "image", "done.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	for _, p := range []string{stale, fresh, done} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(done, old, old))

	deleted, err := store.CleanupPartials(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"image/old.png.part"}, deleted)

	_, err = os.Stat(fresh)
	assert.NoError(t, err)
	_, err = os.Stat(done)
	assert.NoError(t, err)
}
