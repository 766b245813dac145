package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultRealtimeBaseURL = "https://api.openai.com/v1"

// UpstreamError is a non-2xx answer from the realtime sessions API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("realtime session request failed with status %d: %s", e.Status, e.Body)
}

// RealtimeClient creates ephemeral OpenAI realtime sessions.
type RealtimeClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewRealtimeClient(apiKey, baseURL string) *RealtimeClient {
	if baseURL == "" {
		baseURL = defaultRealtimeBaseURL
	}
	return &RealtimeClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// RealtimeRequest is the body of POST /realtime/sessions.
type RealtimeRequest struct {
	Model        string `json:"model"`
	Voice        string `json:"voice"`
	Instructions string `json:"instructions"`
}

// CreateSession returns the provider payload as decoded JSON.
func (c *RealtimeClient) CreateSession(ctx context.Context, req RealtimeRequest) (map[string]any, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/realtime/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build session request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call realtime sessions: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read realtime response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(raw)}
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode realtime response: %w", err)
	}
	return out, nil
}
