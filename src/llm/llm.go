// Package llm is the Gemini vision client: one request per capture session,
// classified into an analysis.Result. It never retries.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"screen-assistant/src/analysis"
	"screen-assistant/src/encoder"
	"screen-assistant/src/logutil"
)

// Instruction is the fixed prompt sent with every screenshot.
const Instruction = "Analyze this screenshot. Find the correct answer and provide reasoning. Be concise."

const (
	DefaultTimeout = 30 * time.Second
	maxErrorBody   = 4096
)

type Config struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
}

// Gemini generateContent request structures
type Request struct {
	Contents []Content `json:"contents"`
}

type Content struct {
	Parts []Part `json:"parts"`
}

type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

type InlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type Response struct {
	Candidates []Candidate `json:"candidates"`
	Error      *APIError   `json:"error,omitempty"`
}

type Candidate struct {
	Content struct {
		Parts []struct {
			Text *string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
}

type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the transport, e.g. for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a secret is present.
func (c *Client) Configured() bool { return c.cfg.APIKey != "" }

// NewRequest builds the request body for a payload.
func NewRequest(p encoder.Payload) Request {
	return Request{Contents: []Content{{Parts: []Part{
		{Text: Instruction},
		{InlineData: &InlineData{MIMEType: p.MIMEType, Data: p.Data}},
	}}}}
}

// Analyze sends one payload and classifies the outcome. A missing key fails
// with ConfigurationError before any network activity.
func (c *Client) Analyze(ctx context.Context, p encoder.Payload) analysis.Result {
	if c.cfg.APIKey == "" {
		return analysis.Failure(analysis.ConfigurationError, "API key is not configured", nil)
	}

	body, err := json.Marshal(NewRequest(p))
	if err != nil {
		return analysis.Failure(analysis.EncodingFailed, "failed to marshal request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(), bytes.NewReader(body))
	if err != nil {
		return analysis.Failure(analysis.ConfigurationError, "invalid endpoint", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	c.logger.Debug("sending analysis request", zap.String("model", c.cfg.Model), zap.Int("payload_bytes", len(p.Data)))

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return analysis.Failure(analysis.NetworkError, fmt.Sprintf("request timed out after %s", c.cfg.Timeout), err)
		}
		return analysis.Failure(analysis.NetworkError, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return analysis.Failure(analysis.NetworkError, "failed to read response", err)
	}
	c.logger.Debug("analysis response received", zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)))

	return c.classify(resp.StatusCode, raw)
}

func (c *Client) classify(status int, raw []byte) analysis.Result {
	var parsed Response
	decodeErr := json.Unmarshal(raw, &parsed)

	if decodeErr == nil && parsed.Error != nil {
		msg := parsed.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", status)
		}
		c.logger.Warn("remote error", zap.Int("status", status), zap.String("message", logutil.SanitizeForLogging(msg)))
		return analysis.Failure(analysis.RemoteError, msg, nil)
	}
	if status < 200 || status >= 300 {
		snippet := string(raw)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		c.logger.Warn("non-success status", zap.Int("status", status), zap.String("body", logutil.SanitizeForLogging(snippet)))
		return analysis.Failure(analysis.RemoteError, fmt.Sprintf("HTTP %d", status), nil)
	}
	if decodeErr != nil {
		return analysis.Failure(analysis.MalformedResponse, analysis.MalformedMessage, decodeErr)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 || parsed.Candidates[0].Content.Parts[0].Text == nil {
		return analysis.Failure(analysis.MalformedResponse, analysis.MalformedMessage, nil)
	}
	text := *parsed.Candidates[0].Content.Parts[0].Text
	c.logger.Info("analysis completed", zap.Int("chars", len(text)), zap.String("preview", logutil.SanitizeForLogging(text)))
	return analysis.Text(text)
}

func (c *Client) url() string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.cfg.Endpoint, url.PathEscape(c.cfg.Model), url.QueryEscape(c.cfg.APIKey))
}
