// Package llm talks to an OpenAI-compatible chat completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Aeovy/QuickTransType/internal/config"
)

// ErrEmptyResponse is returned when the endpoint answers without choices.
var ErrEmptyResponse = errors.New("llm returned no choices")

// APIError is a non-2xx answer from the endpoint, decoded from the standard
// error envelope when present.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("llm request failed (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("llm request failed (%d)", e.Status)
}

// Client issues chat completion requests. Configuration is passed per call so
// a config save takes effect on the next translation without rebuilding the
// client.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
}

// NewClient builds a Client with the given request timeout.
func NewClient(logger *slog.Logger, timeout time.Duration) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// BuildUserPrompt fills the {target_language} and {text} placeholders of the
// configured template.
func BuildUserPrompt(template, targetLanguage, text string) string {
	prompt := strings.ReplaceAll(template, "{target_language}", targetLanguage)
	return strings.ReplaceAll(prompt, "{text}", text)
}

// Translate sends text through the configured model and returns the raw
// model output.
func (c *Client) Translate(ctx context.Context, cfg config.LLMConfig, targetLanguage, text string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(cfg.SystemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: cfg.SystemPrompt})
	}
	messages = append(messages, chatMessage{
		Role:    "user",
		Content: BuildUserPrompt(cfg.UserPromptTemplate, targetLanguage, text),
	})

	resp, err := c.complete(ctx, cfg, chatRequest{
		Model:       cfg.Model,
		Messages:    messages,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// TestConnection performs a minimal completion to verify endpoint, key and
// model together.
func (c *Client) TestConnection(ctx context.Context, cfg config.LLMConfig) error {
	resp, err := c.complete(ctx, cfg, chatRequest{
		Model:       cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: "ping"}},
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		MaxTokens:   1,
	})
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return ErrEmptyResponse
	}
	return nil
}

func (c *Client) complete(ctx context.Context, cfg config.LLMConfig, payload chatRequest) (chatResponse, error) {
	endpoint := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/") + "/chat/completions"

	body, err := json.Marshal(payload)
	if err != nil {
		return chatResponse{}, fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return chatResponse{}, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return chatResponse{}, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return chatResponse{}, fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope errorEnvelope
		if json.Unmarshal(raw, &envelope) == nil {
			apiErr.Type = envelope.Error.Type
			apiErr.Message = envelope.Error.Message
		}
		return chatResponse{}, apiErr
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return chatResponse{}, fmt.Errorf("decode chat response: %w", err)
	}

	c.logger.Debug("chat completion finished",
		"model", payload.Model,
		"duration_ms", time.Since(started).Milliseconds(),
		"prompt_tokens", decoded.Usage.PromptTokens,
		"completion_tokens", decoded.Usage.CompletionTokens)
	return decoded, nil
}
