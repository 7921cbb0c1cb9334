package compliance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var _ Reporter = (*AnthropicReporter)(nil)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
)

// AnthropicReporter calls the Anthropic Messages API.
type AnthropicReporter struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewAnthropicReporter(apiKey, model string, timeout time.Duration, opts ...Option) *AnthropicReporter {
	o := buildOptions(defaultAnthropicBaseURL, timeout, opts)
	return &AnthropicReporter{
		apiKey:     apiKey,
		model:      model,
		baseURL:    o.baseURL,
		httpClient: o.httpClient,
	}
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *AnthropicReporter) Provider() string { return "anthropic" }

func (a *AnthropicReporter) Report(ctx context.Context, summary string) (string, error) {
	if a.apiKey == "" {
		return "", ErrNoAPIKey
	}

	body, err := json.Marshal(anthropicRequest{
		Model:     a.model,
		MaxTokens: 1024,
		System:    systemPrompt,
		Messages:  []anthropicMessage{{Role: "user", Content: summary}},
	})
	if err != nil {
		return "", fmt.Errorf("compliance: encode anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("compliance: build anthropic request: %w", err)
	}
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")

	rawBody, status, err := do(ctx, a.httpClient, req)
	if err != nil {
		return "", err
	}

	var resp anthropicResponse
	if status != http.StatusOK {
		if jsonErr := json.Unmarshal(rawBody, &resp); jsonErr == nil && resp.Error != nil {
			return "", fmt.Errorf("compliance: anthropic error (%s): %s", resp.Error.Type, resp.Error.Message)
		}
		return "", fmt.Errorf("compliance: anthropic HTTP %d", status)
	}

	if err := json.Unmarshal(rawBody, &resp); err != nil {
		return "", fmt.Errorf("compliance: decode anthropic response: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	report := strings.TrimSpace(text.String())
	if report == "" {
		return "", ErrEmptyResponse
	}
	return report, nil
}
