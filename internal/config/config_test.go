package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "http://localhost:8080", cfg.History.BaseURL)
	assert.Equal(t, DefaultSaveSchedule, cfg.History.SaveSchedule)
	assert.Equal(t, 500*time.Millisecond, cfg.History.UpdateDebounce)
	assert.Zero(t, cfg.History.RequestTimeout)
	assert.Equal(t, DefaultPreferencesPath, cfg.Preferences.Path)
	assert.Equal(t, "sqlite", cfg.Preferences.Backend)
	assert.Equal(t, "freedictionary", cfg.Dictionary.Provider)
	assert.True(t, cfg.Reader.EnableDictionary)
	assert.True(t, cfg.Reader.EnableFontControl)
	assert.Equal(t, 500*time.Millisecond, cfg.Reader.ResizeQuiet)
	assert.Equal(t, 250*time.Millisecond, cfg.Reader.FontDebounce)
	assert.Equal(t, time.Second, cfg.Reader.LookupDebounce)
	assert.Equal(t, 5*time.Second, cfg.Notice.Timeout)
}

func TestNewConfig_Env(t *testing.T) {
	t.Setenv("HISTORY_BASE_URL", "https://books.example.com")
	t.Setenv("HISTORY_SAVE_SCHEDULE", "@every 30s")
	t.Setenv("HISTORY_REQUEST_TIMEOUT", "15s")
	t.Setenv("PREFERENCES_BACKEND", "bolt")
	t.Setenv("READER_ENABLE_DICTIONARY", "false")
	t.Setenv("READER_RESIZE_QUIET", "1s")

	cfg := NewConfig()

	assert.Equal(t, "https://books.example.com", cfg.History.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.History.RequestTimeout)
	assert.Equal(t, "bolt", cfg.Preferences.Backend)
	assert.False(t, cfg.Reader.EnableDictionary)
	assert.Equal(t, time.Second, cfg.Reader.ResizeQuiet)

	schedule, err := cfg.History.Schedule()
	require.NoError(t, err)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(30*time.Second), schedule.Next(now))
}

func TestHistory_ScheduleInvalid(t *testing.T) {
	_, err := History{SaveSchedule: "whenever"}.Schedule()
	assert.Error(t, err)
}
