// Package pyth fetches signed price updates from Hermes and posts them to the
// Pyth contracts on Sui.
package pyth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HermesClient is the REST client for Pyth's price service.
type HermesClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHermesClient creates a client for the Hermes instance at baseURL, e.g.
// "https://hermes-beta.pyth.network".
func NewHermesClient(baseURL string, timeout time.Duration) *HermesClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HermesClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// LatestUpdates returns the latest accumulator update payloads covering
// feedIDs.
func (h *HermesClient) LatestUpdates(ctx context.Context, feedIDs []string) ([][]byte, error) {
	if len(feedIDs) == 0 {
		return nil, fmt.Errorf("pyth/hermes: no feed ids")
	}
	params := url.Values{}
	for _, id := range feedIDs {
		params.Add("ids[]", id)
	}

	body, err := h.doGet(ctx, "/api/latest_vaas?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("pyth/hermes: latest vaas: %w", err)
	}

	var encoded []string
	if err := json.Unmarshal(body, &encoded); err != nil {
		return nil, fmt.Errorf("pyth/hermes: decode latest vaas: %w", err)
	}
	if len(encoded) == 0 {
		return nil, fmt.Errorf("pyth/hermes: empty update for %d feeds", len(feedIDs))
	}

	out := make([][]byte, len(encoded))
	for i, s := range encoded {
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("pyth/hermes: update %d is not base64: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}

func (h *HermesClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
	return body, nil
}
