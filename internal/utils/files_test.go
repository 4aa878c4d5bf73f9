package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeWriteFile_ReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "out.csv")
	require.NoError(t, SafeWriteFile(p, []byte("a\n")))
	require.NoError(t, SafeWriteFile(p, []byte("b\n")))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "b\n", string(b))
	assert.False(t, Exists(p+".tmp"), "temp file left behind")
}

func TestEnsureDir_Nested(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	assert.True(t, Exists(dir))
	assert.NoError(t, EnsureDir(""))
}
