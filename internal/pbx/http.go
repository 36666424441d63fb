package pbx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HTTPClient fetches recording notices from a PBX recordings API.
//
// The endpoint shape is GET {base}/accounts/{id}/recordings and returns a
// JSON array of notices. Authentication is a shared API key header, the same
// scheme the PBX uses when it pushes to us.
type HTTPClient struct {
	base   string
	apiKey string
	http   *http.Client
}

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		base:   baseURL,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

type noticePayload struct {
	CallID          int64  `json:"call_id"`
	IdempotencyKey  string `json:"idempotency_key"`
	RecordingURL    string `json:"recording_url"`
	Codec           string `json:"codec"`
	DurationSeconds int    `json:"recording_duration"`
	StorageProvider string `json:"storage_provider"`
	StoragePath     string `json:"storage_path"`
	FileSizeBytes   int64  `json:"file_size"`
}

func (c *HTTPClient) FetchRecordings(ctx context.Context, account PBXAccount) ([]RecordingNotice, error) {
	u, err := url.JoinPath(c.base, "accounts", strconv.FormatInt(account.ID, 10), "recordings")
	if err != nil {
		return nil, fmt.Errorf("build recordings url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build recordings request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch recordings for account %d: %w", account.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch recordings for account %d: unexpected status %d", account.ID, resp.StatusCode)
	}

	var payload []noticePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode recordings for account %d: %w", account.ID, err)
	}

	out := make([]RecordingNotice, 0, len(payload))
	for _, p := range payload {
		out = append(out, RecordingNotice{
			CallID:          p.CallID,
			IdempotencyKey:  p.IdempotencyKey,
			RecordingURL:    p.RecordingURL,
			Codec:           p.Codec,
			DurationSeconds: p.DurationSeconds,
			StorageProvider: p.StorageProvider,
			StoragePath:     p.StoragePath,
			FileSizeBytes:   p.FileSizeBytes,
		})
	}
	return out, nil
}
