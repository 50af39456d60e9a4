package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageFile_WritesAndReleases(t *testing.T) {
	dir := t.TempDir()

	staged, err := StageFile(dir, "Quarterly Report.XLSX", []byte("payload"))
	require.NoError(t, err)

	path := staged.Path
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), stagedPrefix))
	assert.Equal(t, ".xlsx", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	staged.Release()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Second release is a no-op.
	staged.Release()
}

func TestStageFile_UniqueNames(t *testing.T) {
	dir := t.TempDir()
	a, err := StageFile(dir, "same.xlsx", []byte("a"))
	require.NoError(t, err)
	defer a.Release()
	b, err := StageFile(dir, "same.xlsx", []byte("b"))
	require.NoError(t, err)
	defer b.Release()

	assert.NotEqual(t, a.Path, b.Path)
}

func TestStageFile_MissingDir(t *testing.T) {
	_, err := StageFile(filepath.Join(t.TempDir(), "nope"), "x.xlsx", []byte("x"))
	assert.Error(t, err)
}

func TestStagedExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"book.xlsx", ".xlsx"},
		{"book.XLSM", ".xlsm"},
		{"book", DefaultExtension},
		{"book.", DefaultExtension},
		{"weird.x$y", DefaultExtension},
		{"long.abcdefghijk", DefaultExtension},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stagedExtension(tt.name))
		})
	}
}

func TestStagedFile_ReleaseNil(t *testing.T) {
	var s *StagedFile
	s.Release()
}
