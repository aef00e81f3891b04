package config

// Default paths for local storage
const (
	// DefaultPreferencesPath is the default path for the client-local preferences database
	DefaultPreferencesPath = "./reader-preferences.db"

	// DefaultSaveSchedule is the default cadence of the position save loop
	DefaultSaveSchedule = "@every 10s"
)
