package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"screen-assistant/src/analysis"
	"screen-assistant/src/config"
	"screen-assistant/src/logutil"
	"screen-assistant/src/runtimeinit"
	"screen-assistant/src/session"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	jpegMagic = []byte{0xff, 0xd8, 0xff}
)

type cliOptions struct {
	filePath   string
	jsonOutput bool
	verbose    bool
	apiKeyPath string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

const (
	exitLocal = 1
	exitModel = 3
)

// exitCode separates failures on the model side from local ones so scripts
// can retry only the former.
func exitCode(err error) int {
	switch analysis.KindOf(err) {
	case analysis.NetworkError, analysis.RemoteError, analysis.MalformedResponse:
		return exitModel
	default:
		return exitLocal
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args), os.Stdin, os.Stdout)
}

func runWithArgs(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		args = []string{"analyze"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts, stdin, stdout)
	cmd.SetArgs(args[1:])
	return cmd.ExecuteContext(context.Background())
}

func newRootCmd(opts *cliOptions, stdin io.Reader, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "analyze",
		Short:         "Send a PNG or JPEG image to the vision model and print the answer",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts, stdin, stdout)
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG or JPEG file (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runWithOptions(ctx context.Context, opts cliOptions, stdin io.Reader, stdout io.Writer) error {
	logger := zap.NewNop()
	if opts.verbose {
		l, err := logutil.Setup(logutil.Options{Level: "debug"})
		if err != nil {
			return err
		}
		logger = l
		defer func() { _ = logger.Sync() }()
	}

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{APIKeyPathOverride: opts.apiKeyPath},
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	if !rt.Client.Configured() {
		return fmt.Errorf("%s not found. Checked key file %s and %s env var", config.APIKeyEnvVar, rt.Config.APIKeyPath, config.APIKeyEnvVar)
	}

	img, err := readImage(opts.filePath, stdin)
	if err != nil {
		return err
	}
	logger.Debug("image decoded", zap.Int("width", img.Bounds().Dx()), zap.Int("height", img.Bounds().Dy()))

	start := time.Now()
	res := session.Analyze(ctx, img, rt.Encoder, rt.Client)
	elapsed := time.Since(start)
	if !res.OK() {
		logger.Debug("analysis failed", zap.Duration("elapsed", elapsed), zap.Error(res.Err))
		return fmt.Errorf("analysis failed: %w", res.Err)
	}
	logger.Debug("analysis completed", zap.Duration("elapsed", elapsed), zap.Int("chars", len(res.Text)))

	return outputResult(stdout, res.Text, opts.filePath, rt.Config.Model, elapsed, opts.jsonOutput)
}

func readImage(path string, stdin io.Reader) (image.Image, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", path, err)
		}
	}
	return decodeImage(data)
}

func decodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	if !bytes.HasPrefix(data, pngMagic) && !bytes.HasPrefix(data, jpegMagic) {
		return nil, fmt.Errorf("input is not a PNG or JPEG file (invalid magic number)")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

type AnalyzeResult struct {
	Text      string  `json:"text"`
	Source    string  `json:"source"`
	Model     string  `json:"model"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration_seconds"`
	CharCount int     `json:"character_count"`
}

func outputResult(w io.Writer, text, source, model string, elapsed time.Duration, jsonOutput bool) error {
	if !jsonOutput {
		_, err := fmt.Fprint(w, text)
		return err
	}

	result := AnalyzeResult{
		Text:      text,
		Source:    source,
		Model:     model,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Duration:  elapsed.Seconds(),
		CharCount: len([]rune(text)),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"file", "json", "verbose", "api-key-path"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}
