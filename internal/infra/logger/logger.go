// Package logger provides structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Config represents logger configuration.
type Config struct {
	Output string // "stdout", "stderr", or "file"
	Level  string // "debug", "info", "warn", "error"
	File   string // log file path (used when Output is "file")
}

// Init initializes the global zerolog logger with the given configuration.
// The returned close function releases the log file, if any.
func Init(cfg Config) (func() error, error) {
	out := strings.ToLower(cfg.Output)
	switch out {
	case "stdout", "":
		setGlobal(newConsole(os.Stdout, ParseLevel(cfg.Level)), ParseLevel(cfg.Level))
		return func() error { return nil }, nil
	case "stderr":
		setGlobal(newConsole(os.Stderr, ParseLevel(cfg.Level)), ParseLevel(cfg.Level))
		return func() error { return nil }, nil
	}

	if cfg.File == "" {
		return nil, errors.Newf("log file path is required for output %q", cfg.Output)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open log file %s", cfg.File)
	}
	InitJSON(f, cfg.Level)
	return f.Close, nil
}

// InitJSON routes the global logger to w as JSON lines.
func InitJSON(w io.Writer, level string) {
	lvl := ParseLevel(level)
	ctx := zerolog.New(w).With().Timestamp()
	if lvl == zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	setGlobal(ctx.Logger(), lvl)
}

// Component returns a child of the global logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return zlog.With().Str("component", name).Logger()
}

func newConsole(w io.Writer, level zerolog.Level) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
	}
	if level != zerolog.DebugLevel {
		return zerolog.New(cw).With().Timestamp().Logger()
	}
	// Caller only at debug level.
	cw.PartsOrder = []string{"time", "level", "component", "message", "caller"}
	cw.FieldsExclude = []string{"component"}
	cw.FormatCaller = func(i interface{}) string {
		if s, ok := i.(string); ok {
			return "(" + s + ")"
		}
		return ""
	}
	return zerolog.New(cw).With().Timestamp().Caller().Logger()
}

func setGlobal(l zerolog.Logger, level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.CallerMarshalFunc = shortCaller

	zerolog.DefaultContextLogger = &l
	zlog.Logger = l
}

// shortCaller keeps the package directory and file name.
func shortCaller(_ uintptr, file string, line int) string {
	parts := strings.Split(file, string(filepath.Separator))
	if len(parts) > 1 {
		return filepath.Join(parts[len(parts)-2:]...) + ":" + strconv.Itoa(line)
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

// ParseLevel parses the log level string, falling back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
