package client

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// AssetFetcher downloads a completed asset from a provider URL.
type AssetFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPAssetFetcher implements AssetFetcher over plain HTTP GET.
type HTTPAssetFetcher struct {
	httpClient *http.Client
}

// NewHTTPAssetFetcher creates a fetcher with a generous timeout;
// generated audio files run to several megabytes.
func NewHTTPAssetFetcher() *HTTPAssetFetcher {
	return &HTTPAssetFetcher{
		httpClient: &http.Client{
			Timeout: 180 * time.Second,
		},
	}
}

// Fetch downloads the asset bytes at url.
func (f *HTTPAssetFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	log.Printf("[Asset] → GET %s", url)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("asset download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset body: %w", err)
	}

	log.Printf("[Asset] ← %d bytes from %s", len(data), url)
	return data, nil
}
