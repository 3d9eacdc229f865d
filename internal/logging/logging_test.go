package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir_PrefersPrefixedVariable(t *testing.T) {
	t.Setenv("LOGS_FOLDER", "/tmp/plain")
	t.Setenv("MCS_LOGS_FOLDER", "/tmp/prefixed")
	assert.Equal(t, "/tmp/prefixed", Dir())

	t.Setenv("MCS_LOGS_FOLDER", "")
	assert.Equal(t, "/tmp/plain", Dir())
}

func TestInit_WritesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MCS_LOGS_FOLDER", dir)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	require.NoError(t, Init(true))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	log.Debug().Str("component", "test").Msg("hello from the test")

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from the test")
	assert.Contains(t, string(data), `"component":"test"`)
}

func TestInit_UnwritableDirFallsBackToConsole(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	t.Setenv("MCS_LOGS_FOLDER", filepath.Join(file, "logs"))

	err := Init(false)
	assert.Error(t, err)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
