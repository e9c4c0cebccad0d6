// Package runtimeinit builds the display-independent services shared by the
// resident and the one-shot tools: configuration, logging, capture, encoding
// and the inference client.
package runtimeinit

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"screen-assistant/src/config"
	"screen-assistant/src/encoder"
	"screen-assistant/src/llm"
	"screen-assistant/src/logutil"
	"screen-assistant/src/screenshot"
)

type Options struct {
	LoadOptions config.LoadOptions
	// Logger skips logutil.Setup when set.
	Logger *zap.Logger
	// LogFile overrides the rotating log file location.
	LogFile string
}

// Runtime holds the constructed services.
type Runtime struct {
	Config   *config.Config
	Logger   *zap.Logger
	Capturer *screenshot.Capturer
	Encoder  *encoder.Encoder
	Client   *llm.Client
}

// Bootstrap loads configuration and constructs the services. A missing API
// key is only a warning: every analysis then fails fast with a configuration
// error instead of blocking startup.
func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger, err = logutil.Setup(logutil.Options{
			EnableFileLogging: cfg.EnableFileLogging,
			Level:             cfg.LogLevel,
			FilePath:          opts.LogFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to set up logging: %w", err)
		}
	}

	for _, w := range cfg.Validate() {
		logger.Warn("configuration", zap.String("warning", w))
	}

	keyField := zap.String("api_key", "<none>")
	if cfg.APIKey != "" {
		keyField = zap.String("api_key", logutil.RedactKey(cfg.APIKey))
	}
	logger.Info("configuration loaded",
		zap.String("model", cfg.Model),
		zap.String("endpoint", cfg.Endpoint),
		zap.String("capture_mode", cfg.CaptureMode),
		zap.String("api_key_path", cfg.APIKeyPath),
		keyField,
	)

	rt := &Runtime{
		Config:   cfg,
		Logger:   logger,
		Capturer: screenshot.NewCapturer(logutil.Named(logger, "screenshot")),
		Encoder: encoder.New(encoder.Options{
			Quality:      cfg.JPEGQuality,
			MaxDimension: cfg.MaxImageDimension,
		}),
		Client: llm.New(llm.Config{
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
			Endpoint: cfg.Endpoint,
			Timeout:  time.Duration(cfg.RequestTimeoutSec) * time.Second,
		}, logutil.Named(logger, "llm")),
	}
	return rt, nil
}

// SettleDelay is the pause between hiding surfaces and capturing.
func (r *Runtime) SettleDelay() time.Duration {
	return time.Duration(r.Config.CaptureSettleMs) * time.Millisecond
}
