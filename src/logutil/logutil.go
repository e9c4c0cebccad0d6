package logutil

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileName = "screen_assistant.log"
	maxSizeMB   = 10
	maxArchives = 3
)

type Options struct {
	EnableFileLogging bool
	Level             string
	// FilePath overrides the default log file location.
	FilePath string
}

// Setup builds the process logger, installs it as the zap global and routes
// the standard library log package through it. File output rotates at 10MB
// and keeps 3 archives; without file logging, output goes to stderr.
func Setup(opts Options) (*zap.Logger, error) {
	level := ParseLevel(opts.Level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var core zapcore.Core
	if opts.EnableFileLogging {
		path := opts.FilePath
		if path == "" {
			path = logFileName
		}
		writer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxArchives,
			Compress:   false,
		})
		core = zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), writer, level)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level)
	}

	logger := zap.New(core, zap.AddCaller())
	zap.ReplaceGlobals(logger)
	if _, err := zap.RedirectStdLogAt(logger, zapcore.InfoLevel); err != nil {
		return logger, fmt.Errorf("redirect std log: %w", err)
	}
	return logger, nil
}

// ParseLevel maps a config string to a zap level, defaulting to info.
func ParseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Named returns a child of base (or the global logger) tagged with a component name.
func Named(base *zap.Logger, component string) *zap.Logger {
	if base == nil {
		base = zap.L()
	}
	return base.With(zap.String("component", component))
}

// RedactKey masks an API key, leaving first/last 4 chars: xxxx...yyyy
func RedactKey(k string) string {
	if len(k) <= 8 {
		return "********"
	}
	return fmt.Sprintf("%s...%s", k[:4], k[len(k)-4:])
}

// SanitizeForLogging truncates model output and escapes control characters
// so a single log entry cannot be split or flooded.
func SanitizeForLogging(text string) string {
	const maxLogLength = 100
	if len(text) > maxLogLength {
		text = text[:maxLogLength] + "..."
	}

	var b strings.Builder
	for _, r := range text {
		switch {
		case r == '\n' || r == '\r':
			b.WriteString("\\n")
		case r == '\t':
			b.WriteString("\\t")
		case r < 32 || r == 127:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
