package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSavePanorama_ReplacesPrevious(t *testing.T) {
	s := NewFileStorage(t.TempDir())

	ref, err := s.SavePanorama("p1", "r1", "living.JPG", []byte("one"))
	require.NoError(t, err)
	assert.Equal(t, "/media/p1/r1/panorama.jpg", ref)

	ref, err = s.SavePanorama("p1", "r1", "living.png", []byte("two"))
	require.NoError(t, err)
	assert.Equal(t, "/media/p1/r1/panorama.png", ref)

	_, err = s.Resolve("p1/r1/panorama.jpg")
	assert.True(t, errors.Is(err, ErrInvalidPath), "old panorama removed")

	full, err := s.Resolve("p1/r1/panorama.png")
	require.NoError(t, err)
	data, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestSavePanorama_FailedWriteKeepsPrevious(t *testing.T) {
	s := NewFileStorage(t.TempDir())
	_, err := s.SavePanorama("p1", "r1", "living.jpg", []byte("one"))
	require.NoError(t, err)

	// каталог на месте целевого файла не дает переименовать загрузку
	blocker := filepath.Join(s.RoomDir("p1", "r1"), "panorama.png")
	require.NoError(t, os.MkdirAll(filepath.Join(blocker, "x"), 0o755))

	_, err = s.SavePanorama("p1", "r1", "living.png", []byte("two"))
	require.Error(t, err)

	full, err := s.Resolve("p1/r1/panorama.jpg")
	require.NoError(t, err)
	data, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	leftovers, _ := filepath.Glob(filepath.Join(s.RoomDir("p1", "r1"), ".upload-*"))
	assert.Empty(t, leftovers)
}

func TestSavePhoto(t *testing.T) {
	s := NewFileStorage(t.TempDir())

	a, err := s.SavePhoto("p1", "r1", "a.webp", []byte("a"))
	require.NoError(t, err)
	b, err := s.SavePhoto("p1", "r1", "b.webp", []byte("b"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "/media/p1/r1/photos/"))
	assert.True(t, strings.HasSuffix(a, ".webp"))
}

func TestSave_RejectsUnsupported(t *testing.T) {
	s := NewFileStorage(t.TempDir())

	_, err := s.SavePhoto("p1", "r1", "plan.svg", []byte("<svg/>"))
	assert.True(t, errors.Is(err, ErrUnsupportedImage))

	_, err = s.SavePanorama("../p1", "r1", "a.jpg", []byte("x"))
	assert.True(t, errors.Is(err, ErrInvalidPath))
}

func TestResolve_RejectsTraversal(t *testing.T) {
	s := NewFileStorage(t.TempDir())

	_, err := s.Resolve("../etc/passwd")
	assert.True(t, errors.Is(err, ErrInvalidPath))

	_, err = s.Resolve("")
	assert.True(t, errors.Is(err, ErrInvalidPath))
}

func TestRemoveProperty(t *testing.T) {
	s := NewFileStorage(t.TempDir())
	_, err := s.SavePanorama("p1", "r1", "a.jpg", []byte("x"))
	require.NoError(t, err)

	require.NoError(t, s.RemoveProperty("p1"))

	_, err = os.Stat(s.PropertyDir("p1"))
	assert.True(t, os.IsNotExist(err))
}
