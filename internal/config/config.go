package config

import (
	"fmt"
	"net"
	"path/filepath"
	"time"
)

// EnvPrefix prefixes every environment variable read through EnvSettings
const EnvPrefix = "BLOGR_"

const (
	DefaultDatabase        = "./instance/blogr.sqlite"
	DefaultSessionDuration = 7 * 24 * time.Hour
	DefaultJanitorSchedule = "@hourly"

	DefaultLogMaxSizeMB  = 50
	DefaultLogMaxBackups = 5
	DefaultLogMaxAgeDays = 30
	DefaultLogCompress   = true
)

// Config is the application configuration.
type Config struct {
	// Database is the SQLite file every scope connects to
	Database string

	Port        int
	Bind        string
	AllowSubnet string

	// Dev relaxes cookie security for plain-HTTP local use
	Dev bool

	// LogLevel is one of info, debug or trace
	LogLevel string
	// LogFile is the rotating log destination; empty places it next to the database
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	SessionDuration time.Duration
	// PasswordCost is the bcrypt cost; zero selects the auth default
	PasswordCost int

	// JanitorSchedule is the cron spec for purging expired sessions; empty disables it
	JanitorSchedule string
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Database:        DefaultDatabase,
		LogLevel:        "info",
		LogMaxSizeMB:    DefaultLogMaxSizeMB,
		LogMaxBackups:   DefaultLogMaxBackups,
		LogMaxAgeDays:   DefaultLogMaxAgeDays,
		LogCompress:     DefaultLogCompress,
		SessionDuration: DefaultSessionDuration,
		JanitorSchedule: DefaultJanitorSchedule,
	}
}

// ApplySettings overrides the tunables found in l. Keys are dotted, e.g. "log.max_size_mb".
func (c *Config) ApplySettings(l *Loader) {
	c.LogMaxSizeMB = l.Int("log.max_size_mb", c.LogMaxSizeMB)
	c.LogMaxBackups = l.Int("log.max_backups", c.LogMaxBackups)
	c.LogMaxAgeDays = l.Int("log.max_age_days", c.LogMaxAgeDays)
	c.LogCompress = l.Bool("log.compress", c.LogCompress)
	c.LogFile = l.String("log.file", c.LogFile)
	c.SessionDuration = l.Duration("session.duration", c.SessionDuration)
	c.PasswordCost = l.Int("auth.password_cost", c.PasswordCost)
	c.JanitorSchedule = l.String("janitor.schedule", c.JanitorSchedule)
	c.Dev = l.Bool("dev", c.Dev)
}

// Validate checks the configuration for values the application cannot run with
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database path is required")
	}
	if c.SessionDuration <= 0 {
		return fmt.Errorf("session duration must be positive, got %s", c.SessionDuration)
	}
	if c.Bind != "" {
		if ip := net.ParseIP(c.Bind); ip == nil {
			return fmt.Errorf("invalid bind address: %s", c.Bind)
		}
	}
	if _, err := c.AllowedNet(); err != nil {
		return err
	}
	return nil
}

// ValidateServe additionally checks the settings needed to serve HTTP
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("--port flag or PORT environment variable is required")
	}
	return nil
}

// AllowedNet parses AllowSubnet. It returns nil when no restriction is configured.
func (c *Config) AllowedNet() (*net.IPNet, error) {
	if c.AllowSubnet == "" {
		return nil, nil
	}
	_, parsedNet, err := net.ParseCIDR(c.AllowSubnet)
	if err != nil {
		return nil, fmt.Errorf("invalid allow-subnet CIDR: %s", c.AllowSubnet)
	}
	return parsedNet, nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	if c.Bind != "" {
		return net.JoinHostPort(c.Bind, fmt.Sprint(c.Port))
	}
	return fmt.Sprintf(":%d", c.Port)
}

// InstanceDir returns the directory holding the database file
func (c *Config) InstanceDir() string {
	return filepath.Dir(c.Database)
}
