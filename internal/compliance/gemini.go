package compliance

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
)

var _ Reporter = (*GeminiReporter)(nil)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiReporter calls the Google Gemini generateContent REST endpoint.
type GeminiReporter struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// Option customises a reporter.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL points the reporter at another host, e.g. a proxy or a test server.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

func buildOptions(defaultBase string, timeout time.Duration, opts []Option) clientOptions {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	o := clientOptions{
		baseURL:    defaultBase,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewGeminiReporter builds the adapter. model is typically "gemini-1.5-flash".
func NewGeminiReporter(apiKey, model string, timeout time.Duration, opts ...Option) *GeminiReporter {
	o := buildOptions(defaultGeminiBaseURL, timeout, opts)
	return &GeminiReporter{
		apiKey:     apiKey,
		model:      model,
		baseURL:    o.baseURL,
		httpClient: o.httpClient,
	}
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *GeminiReporter) Provider() string { return "gemini" }

// Report sends the summary to Gemini and returns the generated text.
func (g *GeminiReporter) Report(ctx context.Context, summary string) (string, error) {
	if g.apiKey == "" {
		return "", ErrNoAPIKey
	}

	payload := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: summary}}},
		},
		GenerationConfig: geminiGenConfig{
			Temperature:     0.3,
			MaxOutputTokens: 1024,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("compliance: encode gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("compliance: build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	rawBody, status, err := do(ctx, g.httpClient, req)
	if err != nil {
		return "", err
	}

	var resp geminiResponse
	if status != http.StatusOK {
		if jsonErr := json.Unmarshal(rawBody, &resp); jsonErr == nil && resp.Error != nil {
			return "", fmt.Errorf("compliance: gemini error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		return "", fmt.Errorf("compliance: gemini HTTP %d", status)
	}

	if err := json.Unmarshal(rawBody, &resp); err != nil {
		return "", fmt.Errorf("compliance: decode gemini response: %w", err)
	}

	var text strings.Builder
	for _, c := range resp.Candidates {
		for _, p := range c.Content.Parts {
			text.WriteString(p.Text)
		}
		if text.Len() > 0 {
			break
		}
	}

	report := strings.TrimSpace(text.String())
	if report == "" {
		return "", ErrEmptyResponse
	}
	return report, nil
}

// do executes req and reads at most 256 KiB of the response body.
// Transport errors are returned without the request URL.
func do(ctx context.Context, c *http.Client, req *http.Request) ([]byte, int, error) {
	resp, err := c.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, fmt.Errorf("compliance: request cancelled: %w", ctx.Err())
		}
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, 0, fmt.Errorf("compliance: %s call failed: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	if err != nil {
		return nil, 0, fmt.Errorf("compliance: read response: %w", err)
	}
	return raw, resp.StatusCode, nil
}
