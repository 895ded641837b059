package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/blogr/internal/config"
)

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		expected  string
	}{
		{0, "info"},
		{1, "debug"},
		{2, "trace"},
		{5, "trace"},
	}

	for _, tt := range tests {
		if got := LevelFromVerbosity(tt.verbosity); got != tt.expected {
			t.Errorf("LevelFromVerbosity(%d) = %q, want %q", tt.verbosity, got, tt.expected)
		}
	}
}

func TestFilePathForDB(t *testing.T) {
	if got := FilePathForDB(""); got != DefaultLogFilePath {
		t.Fatalf("expected default path, got %q", got)
	}

	dir := t.TempDir()
	got := FilePathForDB(filepath.Join(dir, "blogr.sqlite"))
	if got != filepath.Join(dir, DefaultLogFilePath) {
		t.Fatalf("expected log next to database, got %q", got)
	}
}

func TestRotationFor(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		backups int
		age     int
		want    rotation
	}{
		{"configured values", 10, 2, 7, rotation{10, 2, 7}},
		{"zero size keeps default", 0, 0, 0, rotation{config.DefaultLogMaxSizeMB, 0, 0}},
		{"negative values keep defaults", -1, -1, -1, rotation{config.DefaultLogMaxSizeMB, config.DefaultLogMaxBackups, config.DefaultLogMaxAgeDays}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.LogMaxSizeMB = tt.size
			cfg.LogMaxBackups = tt.backups
			cfg.LogMaxAgeDays = tt.age

			if got := rotationFor(cfg); got != tt.want {
				t.Fatalf("rotationFor() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestApplyOutputs_WritesLogFile(t *testing.T) {
	prevLogger := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	cfg := config.Default()
	cfg.LogFile = filepath.Join(t.TempDir(), "logs", "blogr.log")
	cfg.LogCompress = false

	ApplyLevel("debug")
	var console bytes.Buffer
	applyOutputs(&console, cfg)

	log.Debug().Msg("hello from test")

	data, err := os.ReadFile(cfg.LogFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !bytes.Contains(data, []byte("hello from test")) {
		t.Fatalf("expected log file to contain message, got %q", data)
	}
	if !bytes.Contains(console.Bytes(), []byte("hello from test")) {
		t.Fatalf("expected console to contain message, got %q", console.String())
	}
}
