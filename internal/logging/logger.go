package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// The TUI owns the terminal, so logs go to a file in the data directory
// instead of stderr. Before Init (and in tests) logging is a no-op.
var (
	logger  = zerolog.Nop()
	logFile *os.File
)

// Init opens a dated log file under dir and routes all package-level logging
// to it. Call Close on shutdown.
func Init(dir string, level zerolog.Level) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("gryt-%s.log", time.Now().Format("2006-01-02")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	logFile = f
	logger = zerolog.New(f).Level(level).With().Timestamp().Logger()
	logger.Info().Msg("log started")
	return nil
}

// InitWriter routes logging to an arbitrary writer. Used by the server,
// which has no terminal UI to protect.
func InitWriter(w io.Writer, level zerolog.Level) {
	logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Logger returns the configured zerolog logger for callers that want the
// full API.
func Logger() zerolog.Logger {
	return logger
}

// Debug logs at debug level with alternating key/value pairs.
func Debug(msg string, keyvals ...any) {
	emit(logger.Debug(), msg, keyvals)
}

// Info logs at info level with alternating key/value pairs.
func Info(msg string, keyvals ...any) {
	emit(logger.Info(), msg, keyvals)
}

// Error logs at error level with alternating key/value pairs.
func Error(msg string, keyvals ...any) {
	emit(logger.Error(), msg, keyvals)
}

func emit(ev *zerolog.Event, msg string, keyvals []any) {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		ev = ev.Interface(key, keyvals[i+1])
	}
	ev.Msg(msg)
}

// Close flushes and closes the log file if one is open.
func Close() {
	if logFile != nil {
		logger.Info().Msg("log ended")
		logFile.Close()
		logFile = nil
	}
}
