package cmd

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-run/floro/internal/project"
	"github.com/cyber-run/floro/internal/testutil"
)

// writePlateFolder saves n well-array plates into a fresh directory.
func writePlateFolder(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	img, _ := testutil.WellArray(testutil.DefaultWellArrayConfig())
	for i := range n {
		testutil.SaveImage(t, img, filepath.Join(dir, "plate"+string(rune('a'+i))+".png"))
	}
	return dir
}

// runProject executes a project subcommand against file.
func runProject(t *testing.T, file string, args ...string) (string, error) {
	t.Helper()
	resetCommandState(t)
	out, _, err := executeCommand(t, append(append([]string{"project"}, args...), "--file", file)...)
	return out, err
}

func TestProjectCommands(t *testing.T) {
	folder := writePlateFolder(t, 2)
	file := filepath.Join(t.TempDir(), project.FileName)

	out, err := runProject(t, file, "init", folder)
	require.NoError(t, err)
	assert.Contains(t, out, "with 2 images")
	assert.FileExists(t, file)

	_, err = runProject(t, file, "init", folder)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")
	_, err = runProject(t, file, "init", folder, "--force")
	require.NoError(t, err)

	out, err = runProject(t, file, "add-roi", "Cisplatin", "15,15,45,45")
	require.NoError(t, err)
	assert.Equal(t, "Added ROI 1 (Cisplatin) at 15,15,45,45\n", out)
	out, err = runProject(t, file, "add-roi", "Doxorubicin", "85,45,55,15")
	require.NoError(t, err)
	assert.Equal(t, "Added ROI 2 (Doxorubicin) at 55,15,85,45\n", out)

	out, err = runProject(t, file, "rename", "1", "Cisplatin 10uM")
	require.NoError(t, err)
	assert.Contains(t, out, "Renamed ROI 1")

	out, err = runProject(t, file, "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "Cisplatin 10uM")
	assert.Contains(t, lines[2], "55,15,85,45")

	out, err = runProject(t, file, "list", "--format", "json", "--drug", "DOXORUBICIN")
	require.NoError(t, err)
	var rois []project.ROI
	require.NoError(t, json.Unmarshal([]byte(out), &rois))
	require.Len(t, rois, 1)
	assert.Equal(t, 2, rois[0].ID)

	out, err = runProject(t, file, "rm-roi", "55,15,85,45")
	require.NoError(t, err)
	assert.Equal(t, "Deleted ROI 2\n", out)
	out, err = runProject(t, file, "rm-roi", "1")
	require.NoError(t, err)
	assert.Equal(t, "Deleted ROI 1\n", out)

	p, err := project.Open(file)
	require.NoError(t, err)
	assert.Empty(t, p.ROIs())
	assert.Len(t, p.Images(), 2)

	// ids are never reused after deletion
	out, err = runProject(t, file, "add-roi", "Vehicle", "0,0,10,10")
	require.NoError(t, err)
	assert.Contains(t, out, "Added ROI 3")
}

func TestProjectCommands_Errors(t *testing.T) {
	folder := writePlateFolder(t, 1)
	file := filepath.Join(t.TempDir(), "p.yaml")

	_, err := runProject(t, file, "add-roi", "X", "1,1,5,5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project init")

	_, err = runProject(t, file, "init", filepath.Join(folder, "missing"))
	require.Error(t, err)

	_, err = runProject(t, file, "init", folder)
	require.NoError(t, err)

	_, err = runProject(t, file, "add-roi", "X", "not-a-rect")
	require.Error(t, err)
	_, err = runProject(t, file, "rm-roi", "42")
	require.ErrorIs(t, err, project.ErrROINotFound)
	_, err = runProject(t, file, "rm-roi", "1,1,5,5")
	require.ErrorIs(t, err, project.ErrROINotFound)
	_, err = runProject(t, file, "rename", "abc", "Y")
	require.Error(t, err)
	_, err = runProject(t, file, "list", "--format", "xml")
	require.Error(t, err)
}
