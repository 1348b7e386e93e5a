package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/tunegrid/api/internal/config"
)

// ImageGenerator defines the interface for cover art generation.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, aspectRatio string, count int) ([]Image, error)
}

// Image is one generated image.
type Image struct {
	Bytes    []byte
	MimeType string
}

// ImageClient implements ImageGenerator over a JSON image synthesis API
// that returns base64-encoded payloads.
type ImageClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewImageClient creates a new image synthesis client.
func NewImageClient(cfg *config.ImageConfig) *ImageClient {
	return &ImageClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// IsConfigured returns true if the client has valid configuration.
func (c *ImageClient) IsConfigured() bool {
	return c.apiKey != ""
}

type imageRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Count       int    `json:"n,omitempty"`
}

type imageResponse struct {
	Images []struct {
		Data     string `json:"data"` // base64
		MimeType string `json:"mime_type"`
	} `json:"images"`
}

// Generate requests cover art and returns the decoded image bytes.
func (c *ImageClient) Generate(ctx context.Context, prompt, aspectRatio string, count int) ([]Image, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("image: %w", ErrProviderUnavailable)
	}
	if count <= 0 {
		count = 1
	}

	bodyBytes, err := json.Marshal(imageRequest{
		Prompt:      prompt,
		AspectRatio: aspectRatio,
		Count:       count,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Printf("[Image API] → POST %s", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Image API] ✗ request failed: %v", err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[Image API] ← %d POST %s", resp.StatusCode, req.URL.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrProviderRejected, resp.StatusCode, string(respBody))
	}

	var result imageResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	images := make([]Image, 0, len(result.Images))
	for _, img := range result.Images {
		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image payload: %w", err)
		}
		mime := img.MimeType
		if mime == "" {
			mime = "image/png"
		}
		images = append(images, Image{Bytes: data, MimeType: mime})
	}
	return images, nil
}
