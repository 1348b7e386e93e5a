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

// Generation statuses reported by Poll.
const (
	GenerationPending   = "pending"
	GenerationRunning   = "running"
	GenerationSucceeded = "succeeded"
	GenerationFailed    = "failed"
)

// MusicGenerator defines the interface for async music generation.
// Submit returns a provider task id; the actual generation is observed
// later via Poll. One submission yields two track variants.
type MusicGenerator interface {
	Submit(ctx context.Context, req *SubmitMusicRequest) (string, error)
	Poll(ctx context.Context, taskID string) (*GenerationStatus, error)
}

// SubmitMusicRequest carries the parameters for one music submission.
type SubmitMusicRequest struct {
	Prompt       string `json:"prompt"`
	StyleTags    string `json:"style,omitempty"`
	Title        string `json:"title,omitempty"`
	Instrumental bool   `json:"instrumental,omitempty"`
	ModelVersion string `json:"model,omitempty"`
}

// GeneratedTrack is one variant of a completed submission.
type GeneratedTrack struct {
	AudioURL string  `json:"audio_url"`
	Duration float64 `json:"duration"` // seconds; may be 0 when the provider omits it
	Title    string  `json:"title,omitempty"`
	Tags     string  `json:"tags,omitempty"`
}

// GenerationStatus is the polled state of a provider task.
type GenerationStatus struct {
	TaskID string           `json:"task_id"`
	Status string           `json:"status"`
	Tracks []GeneratedTrack `json:"tracks,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// SunoClient implements MusicGenerator for the Suno API.
type SunoClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewSunoClient creates a new Suno API client.
func NewSunoClient(cfg *config.MusicConfig) *SunoClient {
	return &SunoClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// IsConfigured returns true if the client has valid configuration.
func (c *SunoClient) IsConfigured() bool {
	return c.apiKey != ""
}

type submitResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// Submit initiates music generation and returns the provider task id.
func (c *SunoClient) Submit(ctx context.Context, req *SubmitMusicRequest) (string, error) {
	if !c.IsConfigured() {
		return "", fmt.Errorf("music: %w", ErrProviderUnavailable)
	}

	var result submitResponse
	if err := c.post(ctx, "/v1/music/generate", req, &result); err != nil {
		return "", err
	}
	if result.TaskID == "" {
		return "", fmt.Errorf("%w: empty task id", ErrProviderRejected)
	}
	return result.TaskID, nil
}

type pollResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Tracks []struct {
		ID       string  `json:"id"`
		AudioURL string  `json:"audio_url"`
		Duration float64 `json:"duration"`
		Title    string  `json:"title"`
		Tags     string  `json:"tags"`
	} `json:"tracks"`
	Error string `json:"error"`
}

// Poll retrieves the status of a music generation task. Provider status
// strings are normalized to the Generation* constants.
func (c *SunoClient) Poll(ctx context.Context, taskID string) (*GenerationStatus, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("music: %w", ErrProviderUnavailable)
	}

	var result pollResponse
	if err := c.get(ctx, fmt.Sprintf("/v1/music/status/%s", taskID), &result); err != nil {
		return nil, err
	}

	status := &GenerationStatus{
		TaskID: result.TaskID,
		Status: normalizeStatus(result.Status),
		Error:  result.Error,
	}
	for _, t := range result.Tracks {
		status.Tracks = append(status.Tracks, GeneratedTrack{
			AudioURL: t.AudioURL,
			Duration: t.Duration,
			Title:    t.Title,
			Tags:     t.Tags,
		})
	}
	return status, nil
}

func normalizeStatus(s string) string {
	switch s {
	case "queued", "submitted", "pending":
		return GenerationPending
	case "running", "processing", "generating":
		return GenerationRunning
	case "completed", "success", "succeeded":
		return GenerationSucceeded
	case "failed", "error":
		return GenerationFailed
	default:
		return GenerationPending
	}
}

// post sends a POST request with JSON body
func (c *SunoClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// get sends a GET request and parses JSON response
func (c *SunoClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// doRequest executes an HTTP request and parses the response
func (c *SunoClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Printf("[Music API] → %s %s", req.Method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Music API] ✗ %s %s: request failed: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[Music API] ✗ %s %s: failed to read response: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[Music API] ← %d %s %s", resp.StatusCode, req.Method, req.URL.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d: %s", ErrProviderRejected, resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		log.Printf("[Music API] ✗ unmarshal error for %s %s: %v (body: %s)", req.Method, req.URL.String(), err, string(respBody))
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
