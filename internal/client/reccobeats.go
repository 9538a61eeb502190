package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ItsAltus/Worshipify/internal/config"
	"github.com/ItsAltus/Worshipify/internal/model"
)

// ReccoBeatsClient sends audio clips to the ReccoBeats analysis API and
// returns the raw per-segment feature measurements.
type ReccoBeatsClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewReccoBeatsClient creates a new ReccoBeats API client
func NewReccoBeatsClient(cfg *config.ReccoBeatsConfig) *ReccoBeatsClient {
	return &ReccoBeatsClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.BaseURL,
	}
}

// Analyze uploads one audio segment and returns its raw feature set.
func (c *ReccoBeatsClient) Analyze(ctx context.Context, path string) (*model.SegmentFeatures, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio segment: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("audioFile", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy audio into form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/analysis/audio-features", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reccobeats API error (status %d): %s", resp.StatusCode, string(body))
	}

	var features model.SegmentFeatures
	if err := json.Unmarshal(body, &features); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &features, nil
}
