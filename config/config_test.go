package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "remote", cfg.DetectorBackend)
	require.Equal(t, 0.25, cfg.DefaultConfidence)
	require.Equal(t, 24*time.Hour, cfg.TokenTTL)
	require.Equal(t, 8, cfg.BcryptCost)
	require.True(t, cfg.EnableResultCache)
	require.Equal(t, 5*time.Minute, cfg.CacheTTL)
	require.Equal(t, int64(50<<20), cfg.MaxUploadBytes)
	require.Equal(t, -5, cfg.DisplayOffsetHours)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DETECTOR_BACKEND", "WS")
	t.Setenv("INFERENCE_URL", "http://ml:5000/")
	t.Setenv("CORS_ALLOW_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("ENABLE_RESULT_CACHE", "false")
	t.Setenv("DISPLAY_UTC_OFFSET_HOURS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "ws", cfg.DetectorBackend)
	require.Equal(t, "http://ml:5000", cfg.InferenceURL)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
	require.False(t, cfg.EnableResultCache)
	require.Equal(t, 3, cfg.DisplayOffsetHours)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	require.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CACHE_TTL_SECONDS", "cinco")
	_, err = Load()
	require.ErrorContains(t, err, "CACHE_TTL_SECONDS")

	t.Setenv("CACHE_TTL_SECONDS", "")
	t.Setenv("DETECTOR_BACKEND", "grpc")
	_, err = Load()
	require.ErrorContains(t, err, "DETECTOR_BACKEND")
}
