package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/tunegrid/api/internal/config"
)

// Supported text completion backends. All three speak the
// chat-completions wire format; they differ only in endpoint and model.
const (
	TextBackendGroq    = "groq"
	TextBackendOpenAI  = "openai"
	TextBackendMistral = "mistral"
)

// TextCompleter defines the interface for synchronous text completion.
// The response is unstructured text; callers do their own parsing.
type TextCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ChatClient implements TextCompleter over an OpenAI-compatible chat
// completion endpoint. The concrete backend is selected by config.
type ChatClient struct {
	httpClient *http.Client
	backend    string
	baseURL    string
	apiKey     string
	model      string
}

// NewChatClient creates a text completion client for the configured
// backend. Unset base URL and model fall back to backend defaults.
func NewChatClient(cfg *config.TextConfig) *ChatClient {
	baseURL := cfg.BaseURL
	model := cfg.Model

	switch cfg.Provider {
	case TextBackendOpenAI:
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		if model == "" {
			model = "gpt-4o-mini"
		}
	case TextBackendMistral:
		if baseURL == "" {
			baseURL = "https://api.mistral.ai/v1"
		}
		if model == "" {
			model = "mistral-small-latest"
		}
	default: // groq
		if baseURL == "" {
			baseURL = "https://api.groq.com/openai/v1"
		}
		if model == "" {
			model = "llama-3.3-70b-versatile"
		}
	}

	return &ChatClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backend: cfg.Provider,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
	}
}

// IsConfigured returns true if the client has valid configuration.
func (c *ChatClient) IsConfigured() bool {
	return c.apiKey != ""
}

// ChatMessage represents a message in the chat completion request
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Complete sends a chat completion request and returns the raw content.
func (c *ChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.IsConfigured() {
		return "", fmt.Errorf("text: %w", ErrProviderUnavailable)
	}

	reqBody := chatCompletionRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.7,
		MaxTokens:   1024,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Printf("[Text API] → POST %s (%s)", req.URL.String(), c.model)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrProviderRejected, resp.StatusCode, string(respBody))
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return chatResp.Choices[0].Message.Content, nil
}
