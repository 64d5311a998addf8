package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger zerolog.Logger
)

func init() {
	SetOutput(os.Stdout, os.Stderr)
	SetLevel(zerolog.InfoLevel)
}

// SetOutput routes debug/info/warn records to stdout and error records to stderr.
func SetOutput(stdout, stderr io.Writer) {
	writer := zerolog.MultiLevelWriter(
		SpecificLevelWriter{
			Writer: zerolog.ConsoleWriter{
				Out:        stdout,
				TimeFormat: time.RFC3339,
			},
			Levels: []zerolog.Level{
				zerolog.DebugLevel, zerolog.InfoLevel, zerolog.WarnLevel,
			},
		},
		SpecificLevelWriter{
			Writer: zerolog.ConsoleWriter{
				Out:        stderr,
				TimeFormat: time.RFC3339,
			},
			Levels: []zerolog.Level{
				zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel,
			},
		},
	)

	mu.Lock()
	defer mu.Unlock()
	logger = zerolog.New(writer).Level(logger.GetLevel()).With().Timestamp().Logger()
}

// SetLevel changes the minimum level of the global logger.
func SetLevel(level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Level(level)
}

// Get returns the global logger so it can be injected into components.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// With starts a child logger context, e.g.
//
//	log := logger.With().Str("challenge", name).Logger()
func With() zerolog.Context {
	l := Get()
	return l.With()
}

func Info(msg string) {
	l := Get()
	l.Info().Msg(msg)
}

func Infof(format string, args ...interface{}) {
	l := Get()
	l.Info().Msgf(format, args...)
}

func Warn(msg string) {
	l := Get()
	l.Warn().Msg(msg)
}

func Warnf(format string, args ...interface{}) {
	l := Get()
	l.Warn().Msgf(format, args...)
}

func Error(msg string) {
	l := Get()
	l.Error().Msg(msg)
}

func Errorf(format string, args ...interface{}) {
	l := Get()
	l.Error().Msgf(format, args...)
}

func Debug(msg string) {
	l := Get()
	l.Debug().Msg(msg)
}

func Debugf(format string, args ...interface{}) {
	l := Get()
	l.Debug().Msgf(format, args...)
}

// multilevel writer from https://stackoverflow.com/questions/76858037/how-to-use-zerolog-to-filter-info-logs-to-stdout-and-error-logs-to-stderr
type SpecificLevelWriter struct {
	io.Writer
	Levels []zerolog.Level
}

func (w SpecificLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	for _, l := range w.Levels {
		if l == level {
			return w.Write(p)
		}
	}
	return len(p), nil
}
