// Package advisor answers free-text farming questions through a
// chat-completions API, with caching and failure isolation around the call.
package advisor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/errors"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/monitoring"
	json "github.com/goccy/go-json"
)

// SystemPrompt frames every conversation.
const SystemPrompt = "You are an expert agricultural advisor for smallholder farmers in Luwero District, Uganda. " +
	"Give practical, simple, season-specific (First/Second), soil-specific (Loam/Clay/Sandy) advice " +
	"in easy English. Mention weather, pests, and market tips when relevant."

const apiName = "openai"

// Client-facing messages.
const (
	MsgMissingAPIKey      = "Missing OPENAI_API_KEY on server."
	MsgUnexpectedResponse = "Unexpected response from OpenAI."
)

// Config holds configuration for the chat-completions client.
type Config struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string
	Timeout     time.Duration
}

// Client calls {BaseURL}/chat/completions.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *monitoring.Logger
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient creates a client. A nil logger logs through slog.Default. An
// empty APIKey is accepted; Complete then fails with a configuration error.
func NewClient(cfg Config, logger *monitoring.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = &monitoring.Logger{Logger: slog.Default()}
	}

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.config.APIKey != ""
}

// Complete sends message as the user turn and returns the trimmed answer.
// Upstream error statuses are preserved in the returned AppError.
func (c *Client) Complete(ctx context.Context, message string) (string, error) {
	if !c.Configured() {
		return "", errors.NewConfigurationError(MsgMissingAPIKey, nil)
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: message},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	})
	if err != nil {
		return "", errors.NewInternalError("failed to marshal chat request", err)
	}

	endpoint := c.config.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", errors.NewInternalError("failed to create chat request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ExternalAPILogger(apiName, http.MethodPost, endpoint, 0, time.Since(start), false)
		if ctx.Err() != nil {
			return "", errors.NewTimeoutError("Chat request cancelled", ctx.Err())
		}
		return "", errors.NewUpstreamError(http.StatusBadGateway, fmt.Sprintf("OpenAI request failed: %v", err), err)
	}
	defer errors.SafeClose(resp.Body, "chat response body")

	body, err := io.ReadAll(resp.Body)
	ok := err == nil && resp.StatusCode < http.StatusBadRequest
	c.logger.ExternalAPILogger(apiName, http.MethodPost, endpoint, resp.StatusCode, time.Since(start), ok)
	if err != nil {
		return "", errors.NewUpstreamError(http.StatusBadGateway, fmt.Sprintf("OpenAI request failed: %v", err), err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return "", errors.NewUpstreamError(resp.StatusCode, upstreamDetail(body), nil)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.NewUpstreamError(http.StatusBadGateway, MsgUnexpectedResponse, err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message == nil || parsed.Choices[0].Message.Content == nil {
		return "", errors.NewUpstreamError(http.StatusBadGateway, MsgUnexpectedResponse, nil)
	}

	return strings.TrimSpace(*parsed.Choices[0].Message.Content), nil
}

// upstreamDetail prefers error.message and falls back to the raw body.
func upstreamDetail(body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return string(body)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Info describes the upstream for health output. The key is never included.
func (c *Client) Info() map[string]interface{} {
	return map[string]interface{}{
		"provider":   apiName,
		"model":      c.config.Model,
		"base_url":   c.config.BaseURL,
		"configured": c.Configured(),
	}
}
