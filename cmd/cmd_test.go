package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFolderID(t *testing.T) {
	id, err := parseFolderID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, arg := range []string{"", "abc", "-1", "4.2"} {
		_, err := parseFolderID(arg)
		assert.Error(t, err, arg)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FMBOT_TEST_FROM_DOTENV=loaded\nFMBOT_TEST_PRESET=file\n"), 0644))

	t.Setenv("FMBOT_TEST_PRESET", "env")
	t.Cleanup(func() { os.Unsetenv("FMBOT_TEST_FROM_DOTENV") })

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("FMBOT_TEST_FROM_DOTENV"))
	// variables already set are not overridden
	assert.Equal(t, "env", os.Getenv("FMBOT_TEST_PRESET"))

	assert.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))
	assert.NoError(t, loadEnvFile(""))
}
