package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-run/floro/internal/project"
)

func TestBatchCommand_Folder(t *testing.T) {
	folder := writePlateFolder(t, 2)
	resetCommandState(t)

	out, _, err := executeCommand(t, "batch", folder, "--format", "json", "--workers", "2")
	require.NoError(t, err)

	var doc struct {
		Entries []struct {
			File   string `json:"file"`
			Result struct {
				Wells []json.RawMessage `json:"wells"`
			} `json:"result"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Entries, 2)
	assert.Equal(t, "platea.png", filepath.Base(doc.Entries[0].File))
	for _, e := range doc.Entries {
		assert.Len(t, e.Result.Wells, 12)
	}
}

func TestBatchCommand_ProjectRegions(t *testing.T) {
	folder := writePlateFolder(t, 2)
	file := filepath.Join(t.TempDir(), project.FileName)
	_, err := runProject(t, file, "init", folder)
	require.NoError(t, err)
	_, err = runProject(t, file, "add-roi", "Drug A", "15,15,45,45")
	require.NoError(t, err)
	_, err = runProject(t, file, "add-roi", "Drug B", "55,15,85,45")
	require.NoError(t, err)

	resetCommandState(t)
	overlays := filepath.Join(t.TempDir(), "overlays")
	out, _, err := executeCommand(t, "batch", "--project", file, "--format", "csv", "--overlay-dir", overlays)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	// header plus one well per image and region
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "file,roi_id,drug_name"))
	assert.Contains(t, lines[1], ",1,Drug A,1,")
	assert.Contains(t, lines[2], ",2,Drug B,1,")
	assert.FileExists(t, filepath.Join(overlays, "platea_overlay.png"))
	assert.FileExists(t, filepath.Join(overlays, "plateb_overlay.png"))
}

func TestBatchCommand_ExplicitROIsAndOutputFile(t *testing.T) {
	folder := writePlateFolder(t, 1)
	resetCommandState(t)
	outFile := filepath.Join(t.TempDir(), "wells.csv")

	out, stderr, err := executeCommand(t, "batch", filepath.Join(folder, "platea.png"),
		"--roi", "15,15,45,45", "--roi", "55,15,85,45", "--format", "csv", "--output", outFile, "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Results written to")
	assert.Contains(t, stderr, "Processing Statistics:")

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 3)
}

func TestBatchCommand_DefaultProjectFileInWorkingDir(t *testing.T) {
	folder := writePlateFolder(t, 1)
	resetCommandState(t)
	// the working directory is a fresh temp dir, so the default name is local
	_, _, err := executeCommand(t, "project", "init", folder)
	require.NoError(t, err)
	assert.FileExists(t, project.FileName)

	resetFlags(rootCmd)
	globalConfig = nil
	out, _, err := executeCommand(t, "batch", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "platea.png")
	assert.Contains(t, out, "12 wells")
}

func TestBatchCommand_Errors(t *testing.T) {
	t.Run("no inputs", func(t *testing.T) {
		resetCommandState(t)
		_, _, err := executeCommand(t, "batch")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no input paths")
	})
	t.Run("empty folder", func(t *testing.T) {
		resetCommandState(t)
		_, _, err := executeCommand(t, "batch", t.TempDir())
		require.Error(t, err)
	})
	t.Run("bad roi", func(t *testing.T) {
		folder := writePlateFolder(t, 1)
		resetCommandState(t)
		_, _, err := executeCommand(t, "batch", folder, "--roi", "1,2")
		require.Error(t, err)
	})
	t.Run("missing project", func(t *testing.T) {
		resetCommandState(t)
		_, _, err := executeCommand(t, "batch", "--project", "nope.yaml")
		require.Error(t, err)
	})
	t.Run("negative workers", func(t *testing.T) {
		folder := writePlateFolder(t, 1)
		resetCommandState(t)
		_, _, err := executeCommand(t, "batch", folder, "--workers", "-1")
		require.Error(t, err)
	})
}
