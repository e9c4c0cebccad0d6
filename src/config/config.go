package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIKeyPath  = "/run/secrets/api_keys/gemini"
	APIKeyEnvVar       = "GEMINI_API_KEY"
	APIKeyPathEnvVar   = "GEMINI_API_KEY_FILE"
	AltEnvFileEnvVar   = "SCREEN_ASSISTANT_ENV"
	CaptureModeEnvVar  = "CAPTURE_MODE"
	CaptureModeFull    = "fullscreen"
	CaptureModeRegion  = "region"
	DefaultModel       = "gemini-2.0-flash-lite"
	DefaultEndpoint    = "https://generativelanguage.googleapis.com/v1beta"
	DefaultCaptureKey  = "Cmd+Alt+S"
	DefaultQuitKey     = "Cmd+Alt+Q"
	DefaultToggleKey   = "Cmd+Alt+H"
	defaultTimeoutSec  = 30
	defaultJPEGQuality = 80
	defaultMaxDim      = 2048
	defaultSettleMs    = 100
	defaultPoolSize    = 2
)

type LoadOptions struct {
	APIKeyPathOverride  string
	CaptureModeOverride string
}

type Config struct {
	APIKey            string
	APIKeyPath        string
	Model             string
	Endpoint          string
	CaptureMode       string
	CaptureHotkey     string
	QuitHotkey        string
	ToggleHotkey      string
	RequestTimeoutSec int
	JPEGQuality       int
	MaxImageDimension int
	CaptureSettleMs   int
	WorkerPoolSize    int
	EnableFileLogging bool
	LogLevel          string
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) .env next to the executable
	// 2) the file named by SCREEN_ASSISTANT_ENV
	envPath := resolveEnvPath()
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	apiKeyPath := resolveAPIKeyPath(opts, dotenvValues)

	cfg := &Config{
		APIKey:            resolveAPIKey(apiKeyPath),
		APIKeyPath:        apiKeyPath,
		Model:             getEnvWithDefault("MODEL", DefaultModel),
		Endpoint:          strings.TrimRight(getEnvWithDefault("GEMINI_ENDPOINT", DefaultEndpoint), "/"),
		CaptureMode:       resolveCaptureModeValue(opts),
		CaptureHotkey:     getEnvWithDefault("HOTKEY_CAPTURE", DefaultCaptureKey),
		QuitHotkey:        getEnvWithDefault("HOTKEY_QUIT", DefaultQuitKey),
		ToggleHotkey:      getEnvWithDefault("HOTKEY_TOGGLE", DefaultToggleKey),
		RequestTimeoutSec: getPositiveInt("REQUEST_TIMEOUT_SEC", defaultTimeoutSec),
		JPEGQuality:       clamp(getPositiveInt("JPEG_QUALITY", defaultJPEGQuality), 1, 100),
		MaxImageDimension: getNonNegativeInt("MAX_IMAGE_DIMENSION", defaultMaxDim),
		CaptureSettleMs:   getNonNegativeInt("CAPTURE_SETTLE_MS", defaultSettleMs),
		WorkerPoolSize:    getPositiveInt("WORKER_POOL_SIZE", defaultPoolSize),
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		LogLevel:          strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
	}

	return cfg, nil
}

// Validate returns human-readable warnings. None of them is fatal: a missing
// key is reported by the inference client on every request instead.
func (c *Config) Validate() []string {
	var warnings []string
	if c.APIKey == "" {
		warnings = append(warnings, fmt.Sprintf("%s is not set and key file %s is unreadable; analysis requests will fail", APIKeyEnvVar, c.APIKeyPath))
	}
	if c.Model == "" {
		warnings = append(warnings, "MODEL is empty")
	}
	if c.CaptureHotkey == "" {
		warnings = append(warnings, "HOTKEY_CAPTURE is empty; capture is only available from the tray menu")
	}
	return warnings
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(AltEnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

func resolveAPIKeyPath(opts LoadOptions, dotenvValues map[string]string) string {
	keyPath := DefaultAPIKeyPath

	if envPath := strings.TrimSpace(os.Getenv(APIKeyPathEnvVar)); envPath != "" {
		keyPath = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[APIKeyPathEnvVar]); dotenvPath != "" {
		keyPath = dotenvPath
	}

	if overridePath := strings.TrimSpace(opts.APIKeyPathOverride); overridePath != "" {
		keyPath = overridePath
	}

	return keyPath
}

func resolveAPIKey(keyPath string) string {
	if data, err := os.ReadFile(keyPath); err == nil {
		if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
			return fileKey
		}
	}

	return strings.TrimSpace(os.Getenv(APIKeyEnvVar))
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getPositiveInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getNonNegativeInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ResolveCaptureMode normalises a user-supplied mode; unknown values fall back to fullscreen.
func ResolveCaptureMode(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "region", "rect", "rectangle", "select":
		return CaptureModeRegion
	default:
		return CaptureModeFull
	}
}

func resolveCaptureModeValue(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.CaptureModeOverride); override != "" {
		return ResolveCaptureMode(override)
	}
	return ResolveCaptureMode(os.Getenv(CaptureModeEnvVar))
}
