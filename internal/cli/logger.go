package cli

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger writing to stderr. format is "json" or
// "console"; level is any zap level name.
func NewLogger(format, level string) (*zap.Logger, error) {
	return newLogger(os.Stderr, format, level)
}

func newLogger(w io.Writer, format, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}

	econf := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var enc zapcore.Encoder
	switch format {
	case "json":
		enc = zapcore.NewJSONEncoder(econf)
	case "console", "":
		econf.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(econf)
	default:
		return nil, fmt.Errorf("log.format: unknown format %q (want console or json)", format)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

// VerbosityLevel adjusts level by the -v count and -q flag. -q wins.
func VerbosityLevel(level string, verbose int, quiet bool) string {
	switch {
	case quiet:
		return "error"
	case verbose > 0:
		return "debug"
	}
	return level
}
