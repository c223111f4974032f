package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	return path
}

func TestDiscoverImageFiles_EmptyArgs(t *testing.T) {
	files, err := discoverImageFiles([]string{}, false, []string{"*.png"}, []string{})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverImageFiles_SingleFile(t *testing.T) {
	tempDir := t.TempDir()
	pngFile := touch(t, filepath.Join(tempDir, "test.png"))
	jpgFile := touch(t, filepath.Join(tempDir, "test.jpg"))
	touch(t, filepath.Join(tempDir, "test.txt"))

	files, err := discoverImageFiles([]string{pngFile, jpgFile}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{pngFile, jpgFile}, files)
}

func TestDiscoverImageFiles_Directory(t *testing.T) {
	tempDir := t.TempDir()
	bmpFile := touch(t, filepath.Join(tempDir, "a.bmp"))
	pngFile := touch(t, filepath.Join(tempDir, "b.png"))
	tifFile := touch(t, filepath.Join(tempDir, "c.tif"))
	touch(t, filepath.Join(tempDir, "notes.txt"))
	touch(t, filepath.Join(tempDir, "nested", "d.png"))

	files, err := discoverImageFiles([]string{tempDir}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{bmpFile, pngFile, tifFile}, files)
}

func TestDiscoverImageFiles_Recursive(t *testing.T) {
	tempDir := t.TempDir()
	top := touch(t, filepath.Join(tempDir, "top.png"))
	deep := touch(t, filepath.Join(tempDir, "level1", "level2", "deep.jpg"))

	files, err := discoverImageFiles([]string{tempDir}, true, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{top, deep}, files)
}

func TestDiscoverImageFiles_Patterns(t *testing.T) {
	tempDir := t.TempDir()
	plate1 := touch(t, filepath.Join(tempDir, "plate_01.png"))
	touch(t, filepath.Join(tempDir, "plate_02_overlay.png"))
	touch(t, filepath.Join(tempDir, "other.png"))

	files, err := discoverImageFiles([]string{tempDir}, false, []string{"plate_*"}, []string{"*_overlay.png"})
	require.NoError(t, err)
	assert.Equal(t, []string{plate1}, files)
}

func TestDiscoverImageFiles_NonExistent(t *testing.T) {
	_, err := discoverImageFiles([]string{filepath.Join(t.TempDir(), "missing.png")}, false, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestShouldIncludeFile(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		include []string
		exclude []string
		want    bool
	}{
		{"no patterns", "/a/img.png", nil, nil, true},
		{"include match", "/a/img.png", []string{"*.png"}, nil, true},
		{"include miss", "/a/img.jpg", []string{"*.png"}, nil, false},
		{"exclude wins", "/a/img.png", []string{"*.png"}, []string{"img.*"}, false},
		{"matches base name only", "/plates/img.png", []string{"plates*"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldIncludeFile(tt.path, tt.include, tt.exclude))
		})
	}
}
