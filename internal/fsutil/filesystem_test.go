package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_RoundTrip(t *testing.T) {
	t.Parallel()

	var osfs FileSystem = OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "out", "csv")
	require.NoError(t, osfs.MkdirAll(dir, 0o755))
	assert.True(t, osfs.Exists(dir))

	path := filepath.Join(dir, "eigenrays.csv")
	w, err := osfs.Create(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("time,intensity\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := osfs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "time,intensity\n", string(data))

	info, err := osfs.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, 15, info.Size())

	require.NoError(t, osfs.WriteFile(path, []byte("x"), 0o600))
	data, err = osfs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))

	assert.False(t, osfs.Exists(filepath.Join(dir, "missing.csv")))
}

func TestMemoryFileSystem_WriteFileIsolation(t *testing.T) {
	t.Parallel()

	m := NewMemoryFileSystem()
	src := []byte(`{"latitudes":[45,46]}`)
	require.NoError(t, m.WriteFile("/data/bathy.json", src, 0o600))
	src[0] = 'X'

	got, err := m.ReadFile("/data/../data/bathy.json")
	require.NoError(t, err)
	assert.Equal(t, `{"latitudes":[45,46]}`, string(got))

	got[0] = 'Y'
	again, err := m.ReadFile("/data/bathy.json")
	require.NoError(t, err)
	assert.Equal(t, byte('{'), again[0])

	info, err := m.Stat("/data/bathy.json")
	require.NoError(t, err)
	assert.Equal(t, "bathy.json", info.Name())
	assert.EqualValues(t, len(again), info.Size())
	assert.Equal(t, fs.FileMode(0o600), info.Mode())
	assert.False(t, info.IsDir())
	assert.Nil(t, info.Sys())
	assert.True(t, info.ModTime().IsZero())
}

func TestMemoryFileSystem_CreatePublishesOnClose(t *testing.T) {
	t.Parallel()

	m := NewMemoryFileSystem()
	w, err := m.Create("out/table.csv")
	require.NoError(t, err)
	assert.True(t, m.Exists("out/table.csv"))

	_, err = w.Write([]byte("a,b\n"))
	require.NoError(t, err)
	got, err := m.ReadFile("out/table.csv")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = w.Write([]byte("1,2\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err = m.ReadFile("out/table.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(got))
}

func TestMemoryFileSystem_Directories(t *testing.T) {
	t.Parallel()

	m := NewMemoryFileSystem()
	require.NoError(t, m.MkdirAll("/runs/basic/csv", 0o755))
	for _, dir := range []string{"/runs", "/runs/basic", "/runs/basic/csv"} {
		assert.True(t, m.Exists(dir), dir)
		info, err := m.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir(), dir)
	}
	assert.False(t, m.Exists("/runs/concave"))
}

func TestMemoryFileSystem_Missing(t *testing.T) {
	t.Parallel()

	m := NewMemoryFileSystem()
	_, err := m.ReadFile("nope.json")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	_, err = m.Stat("nope.json")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, m.Exists("nope.json"))
}

func TestMemoryFileSystem_Files(t *testing.T) {
	t.Parallel()

	m := NewMemoryFileSystem()
	require.NoError(t, m.WriteFile("out/b.csv", nil, 0o644))
	require.NoError(t, m.WriteFile("out/a.csv", nil, 0o644))
	require.NoError(t, m.WriteFile("config/scenario.json", nil, 0o644))

	assert.Equal(t, []string{"out/a.csv", "out/b.csv"}, m.Files("out"))
	assert.Equal(t, []string{"config/scenario.json", "out/a.csv", "out/b.csv"}, m.Files(""))
	assert.Empty(t, m.Files("missing"))
}

func TestMemoryFileSystem_Concurrent(t *testing.T) {
	t.Parallel()

	m := NewMemoryFileSystem()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := filepath.Join("grid", string(rune('a'+i))+".json")
			assert.NoError(t, m.WriteFile(name, []byte{byte(i)}, 0o644))
			_, err := m.ReadFile(name)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, m.Files("grid"), 16)
}
