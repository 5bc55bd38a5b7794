// Package obs contains observability utilities such as logging and metrics.
package obs

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is the runtime log level; it can be changed while the service runs.
var Level = new(slog.LevelVar)

// Logger is the global structured logger used by the service.
//
// It writes JSON to stdout until InitLogger reconfigures it.
var Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: Level}))

// InitLogger initializes the global Logger with a JSON handler at the given
// level. When file is set, output is also written to a size-rotated log file.
// The returned closer releases the file.
func InitLogger(level, file string) io.Closer {
	if err := SetLevel(level); err != nil {
		Level.Set(slog.LevelInfo)
	}
	var (
		w      io.Writer = os.Stdout
		closer io.Closer = io.NopCloser(nil)
	)
	if file != "" {
		lj := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
		}
		w = io.MultiWriter(os.Stdout, lj)
		closer = lj
	}
	Logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: Level}))
	return closer
}

// SetLevel parses name ("debug", "info", "warn", "error") and applies it.
func SetLevel(name string) error {
	if strings.TrimSpace(name) == "" {
		name = "info"
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return err
	}
	Level.Set(l)
	return nil
}
