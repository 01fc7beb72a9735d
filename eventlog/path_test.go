package eventlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirBuilder_Build(t *testing.T) {
	dir := t.TempDir()
	b := &DirBuilder{
		Base: dir,
		Now:  func() time.Time { return time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC) },
	}

	path, err := b.Build("logs/{yyyy}/mailer-{mm}-{dd}.log")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "logs", "2024", "mailer-03-05.log"), path)

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDirBuilder_AbsoluteTemplate(t *testing.T) {
	dir := t.TempDir()
	b := &DirBuilder{Base: "/ignored"}

	path, err := b.Build(filepath.Join(dir, "mailer.log"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "mailer.log"), path)
}

func TestDirBuilder_ParentIsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocker"), nil, 0o644))

	b := &DirBuilder{Base: dir}
	_, err := b.Build("blocker/mailer.log")
	assert.Error(t, err)
}
