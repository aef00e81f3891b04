package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

type (
	Config struct {
		History
		Preferences
		Dictionary
		Reader
		Notice
	}

	History struct {
		BaseURL        string
		SaveSchedule   string        // Cron format or descriptor: "@every 10s"
		UpdateDebounce time.Duration // Quiet period before a position is recorded
		RequestTimeout time.Duration // 0 = no timeout
	}
	Preferences struct {
		Path    string
		Backend string // "sqlite" or "bolt"
	}
	Dictionary struct {
		Provider string // "freedictionary" or "endpoint"
		URL      string
	}
	Reader struct {
		EnableDictionary  bool
		EnableFontControl bool
		ResizeQuiet       time.Duration
		FontDebounce      time.Duration
		LookupDebounce    time.Duration
	}
	Notice struct {
		Timeout time.Duration // How long transient notices stay visible
	}
)

// Schedule parses the save cadence.
func (h History) Schedule() (cron.Schedule, error) {
	s, err := cron.ParseStandard(h.SaveSchedule)
	if err != nil {
		return nil, fmt.Errorf("invalid save schedule %q: %w", h.SaveSchedule, err)
	}
	return s, nil
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("history_base_url", "http://localhost:8080")
	v.SetDefault("history_save_schedule", DefaultSaveSchedule)
	v.SetDefault("history_update_debounce", "500ms")
	v.SetDefault("history_request_timeout", "0s") // Hung requests only delay the next tick
	v.SetDefault("preferences_path", DefaultPreferencesPath)
	v.SetDefault("preferences_backend", "sqlite")
	v.SetDefault("dictionary_provider", "freedictionary")
	v.SetDefault("dictionary_url", "")

	// Reader defaults
	v.SetDefault("reader_enable_dictionary", true)
	v.SetDefault("reader_enable_font_control", true)
	v.SetDefault("reader_resize_quiet", "500ms")
	v.SetDefault("reader_font_debounce", "250ms")
	v.SetDefault("reader_lookup_debounce", "1s")

	v.SetDefault("notice_timeout", "5s")

	return &Config{
		History: History{
			BaseURL:        v.GetString("HISTORY_BASE_URL"),
			SaveSchedule:   v.GetString("HISTORY_SAVE_SCHEDULE"),
			UpdateDebounce: v.GetDuration("HISTORY_UPDATE_DEBOUNCE"),
			RequestTimeout: v.GetDuration("HISTORY_REQUEST_TIMEOUT"),
		},
		Preferences: Preferences{
			Path:    v.GetString("PREFERENCES_PATH"),
			Backend: v.GetString("PREFERENCES_BACKEND"),
		},
		Dictionary: Dictionary{
			Provider: v.GetString("DICTIONARY_PROVIDER"),
			URL:      v.GetString("DICTIONARY_URL"),
		},
		Reader: Reader{
			EnableDictionary:  v.GetBool("READER_ENABLE_DICTIONARY"),
			EnableFontControl: v.GetBool("READER_ENABLE_FONT_CONTROL"),
			ResizeQuiet:       v.GetDuration("READER_RESIZE_QUIET"),
			FontDebounce:      v.GetDuration("READER_FONT_DEBOUNCE"),
			LookupDebounce:    v.GetDuration("READER_LOOKUP_DEBOUNCE"),
		},
		Notice: Notice{
			Timeout: v.GetDuration("NOTICE_TIMEOUT"),
		},
	}
}
