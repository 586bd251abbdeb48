package partner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultRequestTimeout = 10 * time.Second

// HTTPGateway talks to the partner's convention intake endpoint.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPGateway builds the partner HTTP adapter.
func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) *HTTPGateway {
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}
	return &HTTPGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// NotifyConventionUpdated POSTs the convention to the partner. Any non-2xx
// answer is an error carrying the partner's response body, which the caller
// records as the broadcast failure reason.
func (g *HTTPGateway) NotifyConventionUpdated(ctx context.Context, payload ConventionPayload) (Acknowledgement, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Acknowledgement{}, fmt.Errorf("partner: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/conventions", bytes.NewReader(body))
	if err != nil {
		return Acknowledgement{}, fmt.Errorf("partner: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return Acknowledgement{}, fmt.Errorf("partner: send: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if err != nil {
		return Acknowledgement{}, fmt.Errorf("partner: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Acknowledgement{}, fmt.Errorf("partner: status %d: %s", resp.StatusCode, raw)
	}

	var ack Acknowledgement
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &ack); err != nil {
			return Acknowledgement{}, fmt.Errorf("partner: decode acknowledgement: %w", err)
		}
	}
	return ack, nil
}
