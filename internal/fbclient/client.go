package fbclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Credentials destination pair identifying where events are submitted
type Credentials struct {
	PixelID     string
	AccessToken string
}

// IsUsable reports whether both halves of the pair are populated
func (c Credentials) IsUsable() bool {
	return c.PixelID != "" && c.AccessToken != ""
}

// Client Graph API conversions client
type Client struct {
	baseURL    string
	version    string
	httpClient *http.Client
}

// Options conversions client options
type Options struct {
	BaseURL    string
	Version    string
	HTTPClient *http.Client
}

// NewClient creates a conversions client
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
			},
		}
	}
	return &Client{
		baseURL:    opts.BaseURL,
		version:    opts.Version,
		httpClient: httpClient,
	}
}

type eventRequest struct {
	Data []*ServerEvent `json:"data"`
}

type eventResponse struct {
	EventsReceived int    `json:"events_received,omitempty"`
	FBTraceID      string `json:"fbtrace_id,omitempty"`
	Error          *struct {
		Message string `json:"message,omitempty"`
		Type    string `json:"type,omitempty"`
		Code    int    `json:"code,omitempty"`
	} `json:"error,omitempty"`
}

// SendEvents submits events to the pixel identified by the
// credentials. Any failure (transport, HTTP status, API error body)
// is returned as a single error with the API message when available.
func (c *Client) SendEvents(ctx context.Context, creds Credentials, events []*ServerEvent) error {
	payload, err := json.Marshal(eventRequest{Data: events})
	if err != nil {
		return fmt.Errorf("fb: marshal events: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/events?access_token=%s",
		c.baseURL, c.version, creds.PixelID, url.QueryEscape(creds.AccessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("fb: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fb: send events: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed eventResponse
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode >= 400 || parsed.Error != nil {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return fmt.Errorf("fb: event request failed (status %d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return fmt.Errorf("fb: event request failed with status %d", resp.StatusCode)
	}
	return nil
}
