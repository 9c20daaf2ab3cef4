package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santhosh0000000/crossref-API/internal/config"
)

func TestNew_AppendsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "API.log")
	cfg := config.LogConfig{File: path, Level: "info"}

	logger, closer, err := New(cfg)
	require.NoError(t, err)
	logger.Info("first run")
	require.NoError(t, closer.Close())

	logger, closer, err = New(cfg)
	require.NoError(t, err)
	logger.WithField("doi", "10.1/x").Error("second run")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, "first run")
	assert.Contains(t, out, "second run")
	assert.Contains(t, out, "level=error")
	assert.Contains(t, out, "doi=10.1/x")
}

func TestNew_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "API.log")
	logger, closer, err := New(config.LogConfig{File: path, Level: "error"})
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Error("shown")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hidden")
	assert.Contains(t, string(b), "shown")
}

func TestNew_BadPath(t *testing.T) {
	_, _, err := New(config.LogConfig{File: filepath.Join(t.TempDir(), "missing", "API.log")})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot open log file")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, logrus.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel(""))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("chatty"))
}
