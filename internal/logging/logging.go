package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/saltyorg/blogr/internal/config"
)

const (
	DefaultLogFilePath = "blogr.log"
	timeFormat         = "2006-01-02 15:04:05"
)

// rotation holds the lumberjack limits actually applied
type rotation struct {
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
}

// rotationFor keeps the defaults for any configured limit that is out of range
func rotationFor(cfg *config.Config) rotation {
	rot := rotation{
		maxSizeMB:  config.DefaultLogMaxSizeMB,
		maxBackups: config.DefaultLogMaxBackups,
		maxAgeDays: config.DefaultLogMaxAgeDays,
	}
	if cfg.LogMaxSizeMB > 0 {
		rot.maxSizeMB = cfg.LogMaxSizeMB
	}
	if cfg.LogMaxBackups >= 0 {
		rot.maxBackups = cfg.LogMaxBackups
	}
	if cfg.LogMaxAgeDays >= 0 {
		rot.maxAgeDays = cfg.LogMaxAgeDays
	}
	return rot
}

// Apply sets the global log level and output writers (console + rotating file).
// When cfg.LogFile is empty the log file is placed next to the database file.
func Apply(cfg *config.Config) {
	ApplyLevel(cfg.LogLevel)
	applyOutputs(os.Stdout, cfg)
}

// LevelFromVerbosity maps a -v count to a level name
func LevelFromVerbosity(verbosity int) string {
	switch verbosity {
	case 0:
		return "info"
	case 1:
		return "debug"
	default: // 2+
		return "trace"
	}
}

// ApplyLevel sets the global log level
func ApplyLevel(level string) {
	switch level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func applyOutputs(console io.Writer, cfg *config.Config) {
	logFilePath := cfg.LogFile
	if logFilePath == "" {
		logFilePath = FilePathForDB(cfg.Database)
	}

	consoleOutput := zerolog.ConsoleWriter{Out: console, TimeFormat: timeFormat}
	log.Logger = zerolog.New(consoleOutput).With().Timestamp().Logger()

	if err := ensureLogDir(logFilePath); err != nil {
		log.Error().Err(err).Str("path", logFilePath).Msg("Failed to prepare log directory; logging to console only")
		return
	}

	rot := rotationFor(cfg)
	fileWriter := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    rot.maxSizeMB,
		MaxBackups: rot.maxBackups,
		MaxAge:     rot.maxAgeDays,
		Compress:   cfg.LogCompress,
	}

	fileConsole := zerolog.ConsoleWriter{
		Out:        fileWriter,
		TimeFormat: timeFormat,
		NoColor:    true,
	}

	multi := zerolog.MultiLevelWriter(consoleOutput, fileConsole)
	log.Logger = zerolog.New(multi).With().Timestamp().Logger()
}

// FilePathForDB returns a log file path that lives alongside the database file.
func FilePathForDB(dbPath string) string {
	if dbPath == "" {
		return DefaultLogFilePath
	}
	absDBPath, err := filepath.Abs(dbPath)
	if err != nil {
		return filepath.Join(filepath.Dir(dbPath), DefaultLogFilePath)
	}
	return filepath.Join(filepath.Dir(absDBPath), DefaultLogFilePath)
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
