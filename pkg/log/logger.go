package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const consoleTimeFormat = "15:04:05"

var (
	Logger zerolog.Logger
	mu     sync.RWMutex
)

func init() {
	// Configure zerolog with console writer for colored output
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: consoleTimeFormat,
	}

	Logger = zerolog.New(output).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()

	// Set global logger
	log.Logger = Logger
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := Logger
	return &l
}

func replace(l zerolog.Logger) {
	mu.Lock()
	Logger = l
	log.Logger = l
	mu.Unlock()
}

// Info starts an info level event.
func Info() *zerolog.Event {
	return current().Info()
}

// Error starts an error level event.
func Error() *zerolog.Event {
	return current().Error()
}

// Warn starts a warning level event.
func Warn() *zerolog.Event {
	return current().Warn()
}

// Debug starts a debug level event.
func Debug() *zerolog.Event {
	return current().Debug()
}

// Fatal starts a fatal level event. The process exits after Msg.
func Fatal() *zerolog.Event {
	return current().Fatal()
}

// Component returns a sub-logger tagged with the given component name.
func Component(name string) *zerolog.Logger {
	l := current().With().Str("component", name).Logger()
	return &l
}

// SetDebugMode switches the logger to debug level.
func SetDebugMode() {
	replace(current().Level(zerolog.DebugLevel))
}

// SetLevel parses a level name ("debug", "info", "warn", ...) and applies it.
func SetLevel(level string) error {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return err
	}
	if parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	replace(current().Level(parsed))
	return nil
}

// SetOutput redirects log output, keeping the current level. Output written to
// a non-terminal writer is plain JSON.
func SetOutput(w io.Writer) {
	level := current().GetLevel()
	replace(zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger())
}
