package filelock

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLockSerializesReadModifyWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter")

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := WithLock(context.Background(), path, func() error {
				data, err := ReadFile(path)
				if err != nil {
					return err
				}
				n := 0
				if len(data) > 0 {
					n, err = strconv.Atoi(string(data))
					if err != nil {
						return err
					}
				}
				return WriteFile(path, []byte(strconv.Itoa(n+1)))
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(workers), string(data))
}

func TestReadFileMissingReturnsNil(t *testing.T) {
	data, err := ReadFile(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestWriteFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "data.json")

	require.NoError(t, WriteFile(path, []byte("[]")))
	require.NoError(t, WriteFile(path, []byte("[1]")))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "data.json", entries[0].Name())
}

func TestRemoveMissingIsNoop(t *testing.T) {
	assert.NoError(t, Remove(filepath.Join(t.TempDir(), "nope")))
}

func TestPurgeRemovesDataAndLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entry.json")

	require.NoError(t, WithLock(context.Background(), path, func() error {
		return WriteFile(path, []byte("{}"))
	}))
	exists, err := Exists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, WithLock(context.Background(), path, func() error {
		return Purge(path)
	}))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	exists, err = Exists(path)
	require.NoError(t, err)
	assert.False(t, exists)
}
