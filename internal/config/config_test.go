package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvOnlyDefaults(t *testing.T) {
	cfg, err := Load("", true)
	require.NoError(t, err)

	assert.Equal(t, 12*time.Hour, cfg.Pipeline.IngestInterval)
	assert.Equal(t, time.Second, cfg.Pipeline.AnalysisIdle)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.AnalysisThrottle)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.AnalysisErrorBackoff)
	assert.Equal(t, 60*time.Second, cfg.Pipeline.RankingInterval)
	assert.Equal(t, 20, cfg.Pipeline.TopK)
	assert.Equal(t, 50, cfg.Pipeline.SymbolMaxLength)
	assert.Equal(t, 10000.0, cfg.Analyzer.MinMarketCap)
	assert.Equal(t, 2000.0, cfg.Analyzer.MinVolume24h)
	assert.Equal(t, time.Second, cfg.Analyzer.HolderCallDelay)
	assert.Equal(t, 60*time.Second, cfg.Providers.Quote.RateLimitWait)
	assert.Equal(t, uint32(5), cfg.Providers.Holders.Breaker.ConsecutiveFailures)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("pipeline:\n  top_k: 10\nproviders:\n  holders:\n    api_key: file-key\n")
	require.NoError(t, os.WriteFile(path, body, 0o600))
	t.Setenv("BB_PIPELINE_TOP_K", "7")

	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Pipeline.TopK)
	assert.Equal(t, "file-key", cfg.Providers.Holders.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Load("", true)
	require.NoError(t, err)

	cfg.Pipeline.TopK = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TopK")

	cfg.Pipeline.TopK = 20
	cfg.Providers.Quote.BaseURL = "not a url"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BaseURL")
}
