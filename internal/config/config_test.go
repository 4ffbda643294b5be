package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(env(nil))
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Index.BatchSize)
	assert.Equal(t, 3, cfg.Index.TopK)
	assert.Equal(t, time.Second, cfg.Sheets.RequestDelay)
	assert.Equal(t, 30*time.Second, cfg.Sheets.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.Monitor.PollInterval)
	assert.Equal(t, "answer_backup.jsonl", cfg.Monitor.BackupPath)
	assert.True(t, cfg.Monitor.AllowDegraded)
	assert.False(t, cfg.Qdrant.Enabled)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campusqa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
index:
  dir: /data/index
  top_k: 5
sheets:
  url: https://script.example.com/exec
  request_delay: 2s
monitor:
  poll_interval: 30s
logging:
  level: debug
`), 0o644))

	cfg, err := load(env(map[string]string{
		FileEnv:           path,
		"RETRIEVAL_TOP_K": "7",
		"POLL_INTERVAL":   "15",
		"QDRANT_ENABLED":  "true",
		"SERVER_MODE":     "1",
		"LOG_FILE":        "  ",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/data/index", cfg.Index.Dir)
	assert.Equal(t, 7, cfg.Index.TopK)
	assert.Equal(t, "https://script.example.com/exec", cfg.Sheets.URL)
	assert.Equal(t, 2*time.Second, cfg.Sheets.RequestDelay)
	assert.Equal(t, 15*time.Second, cfg.Monitor.PollInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "", cfg.Logging.File, "blank values are ignored")
	assert.True(t, cfg.Qdrant.Enabled)
	assert.True(t, cfg.Server.Mode)
	assert.Equal(t, 16, cfg.Index.BatchSize, "unset keys keep defaults")
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := load(env(map[string]string{
		"EMBED_BATCH_SIZE": "many",
		"ALLOW_DEGRADED":   "maybe",
		"REQUEST_TIMEOUT":  "soon",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMBED_BATCH_SIZE")
	assert.Contains(t, err.Error(), "ALLOW_DEGRADED")
	assert.Contains(t, err.Error(), "REQUEST_TIMEOUT")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := load(env(map[string]string{FileEnv: "/nonexistent/campusqa.yaml"}))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Index.BatchSize = 0
	cfg.Index.TopK = -1
	cfg.Monitor.PollInterval = 0
	cfg.Qdrant.Enabled = true
	cfg.Qdrant.Host = ""

	err := cfg.Validate()
	require.Error(t, err)
	for _, key := range []string{"EMBED_BATCH_SIZE", "RETRIEVAL_TOP_K", "POLL_INTERVAL", "QDRANT_HOST"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestGitHubCorpus(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.GitHubCorpus())

	cfg.GitHub = GitHubConfig{Owner: "campus", Repo: "posts", Path: "data/corpus.jsonl"}
	assert.True(t, cfg.GitHubCorpus())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.log")

	logger, closer, err := NewLogger(LoggingConfig{Level: "info", File: path})
	require.NoError(t, err)
	logger.Info("hello", "questions", 2)
	logger.Debug("hidden")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.NotContains(t, string(data), "hidden")
}
