package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the name of the rotating log file inside the log folder.
const FileName = "mcs-portfolio.log"

// Dir resolves the log folder: MCS_LOGS_FOLDER, then LOGS_FOLDER, then a
// "logs" directory next to the binary.
func Dir() string {
	for _, key := range []string{"MCS_LOGS_FOLDER", "LOGS_FOLDER"} {
		if dir := os.Getenv(key); dir != "" {
			return dir
		}
	}
	if exePath, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exePath), "logs")
	}
	return "logs"
}

// Init initializes the global logger with dual sinks: os.Stderr and a
// rotating file. When the log folder is not writable the logger falls back
// to stderr only and the returned error says why.
func Init(verbose bool) error {
	// Init runs before config.Load, so pick up LOGS_FOLDER from the binary's .env here.
	if exePath, err := os.Executable(); err == nil {
		_ = godotenv.Load(filepath.Join(filepath.Dir(exePath), ".env"))
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	isTerminal := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !isTerminal,
	}

	logDir := Dir()
	fileWriter, err := rotatingFile(logDir)
	if err != nil {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		return err
	}

	multi := zerolog.MultiLevelWriter(io.Writer(console), fileWriter)
	log.Logger = zerolog.New(multi).
		With().
		Timestamp().
		Logger()
	return nil
}

func rotatingFile(logDir string) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %q: %w", logDir, err)
	}

	// MkdirAll succeeds on existing read-only directories.
	testFile := filepath.Join(logDir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		return nil, fmt.Errorf("log directory %q is not writable: %w", logDir, err)
	}
	_ = os.Remove(testFile)

	return &lumberjack.Logger{
		Filename:   filepath.Join(logDir, FileName),
		MaxSize:    16, // megabytes
		MaxBackups: 8,
		MaxAge:     90, // days
		Compress:   true,
	}, nil
}
