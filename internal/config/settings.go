package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// SettingsGetter is an interface for retrieving settings from storage
type SettingsGetter interface {
	GetSetting(key string) (string, error)
}

// EnvSettings reads settings from environment variables.
// The key "log.max_size_mb" maps to BLOGR_LOG_MAX_SIZE_MB.
type EnvSettings struct{}

// GetSetting returns the environment value for key, or "" if unset.
func (EnvSettings) GetSetting(key string) (string, error) {
	return os.Getenv(EnvName(key)), nil
}

// EnvName returns the environment variable name for a setting key.
func EnvName(key string) string {
	key = strings.NewReplacer(".", "_", "-", "_").Replace(key)
	return EnvPrefix + strings.ToUpper(key)
}

// MapSettings is an in-memory settings source.
type MapSettings map[string]string

// GetSetting returns the value for key, or "" if unset.
func (m MapSettings) GetSetting(key string) (string, error) {
	return m[key], nil
}

// Loader provides typed access to settings with default values
type Loader struct {
	db SettingsGetter
}

// NewLoader creates a new settings loader
func NewLoader(db SettingsGetter) *Loader {
	return &Loader{db: db}
}

// Int retrieves an integer setting, returning defaultVal if not found or invalid
func (l *Loader) Int(key string, defaultVal int) int {
	if val, _ := l.db.GetSetting(key); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			return v
		}
	}
	return defaultVal
}

// Bool retrieves a boolean setting, returning defaultVal if not found
// Recognizes "true" as true, anything else (including "false") as false
func (l *Loader) Bool(key string, defaultVal bool) bool {
	if val, _ := l.db.GetSetting(key); val != "" {
		return val == "true"
	}
	return defaultVal
}

// String retrieves a string setting, returning defaultVal if not found or empty
func (l *Loader) String(key, defaultVal string) string {
	if val, _ := l.db.GetSetting(key); val != "" {
		return val
	}
	return defaultVal
}

// Duration retrieves a duration setting, returning defaultVal if not found or invalid
// Expects the value to be in Go duration format (e.g., "1h30m", "5s")
func (l *Loader) Duration(key string, defaultVal time.Duration) time.Duration {
	if val, _ := l.db.GetSetting(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
