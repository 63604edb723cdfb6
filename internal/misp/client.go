// Package misp is a minimal client for the MISP case-management API,
// covering attribute and event creation for the federation fan-out.
package misp

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

// Client talks to one MISP instance. MISP authenticates with the raw API
// key in the Authorization header, not a bearer scheme.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New builds a client. A nil httpClient gets a 30 second timeout default.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// Attribute is one observable pushed into MISP.
type Attribute struct {
	UUID    string
	Value   string
	Type    string
	Comment string
	Tags    []string
}

// PushAttribute creates a single attribute. The response carries the
// attribute uuid MISP assigned, which may differ from the requested one.
func (c *Client) PushAttribute(ctx context.Context, attr Attribute) (string, error) {
	tags := make([]map[string]string, 0, len(attr.Tags))
	for _, tag := range attr.Tags {
		tags = append(tags, map[string]string{"name": tag})
	}

	body := map[string]any{
		"Attribute": map[string]any{
			"uuid":    attr.UUID,
			"value":   attr.Value,
			"type":    attr.Type,
			"comment": attr.Comment,
			"Tag":     tags,
		},
	}

	var result struct {
		Attribute struct {
			UUID string `json:"uuid"`
		} `json:"Attribute"`
	}
	if err := c.post(ctx, "/attributes/add", body, &result); err != nil {
		return "", err
	}

	uuid := result.Attribute.UUID
	if uuid == "" {
		uuid = attr.UUID
	}
	return uuid, nil
}

// EventAttribute is one attribute inside an event payload.
type EventAttribute struct {
	Type     string `json:"type"`
	Category string `json:"category"`
	Value    string `json:"value"`
	ToIDs    bool   `json:"to_ids,omitempty"`
}

// Event is the payload for creating a MISP event.
type Event struct {
	Info          string           `json:"info"`
	Distribution  int              `json:"distribution"`
	ThreatLevelID int              `json:"threat_level_id"`
	Analysis      int              `json:"analysis"`
	Attributes    []EventAttribute `json:"Attribute"`
}

// CreateEvent creates an event wrapping a set of attributes, used by the
// summary pipeline to file one event per summary.
func (c *Client) CreateEvent(ctx context.Context, event Event) error {
	return c.post(ctx, "/events", event, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode MISP request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("MISP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("MISP request failed (%d): %s", resp.StatusCode, string(text))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode MISP response: %w", err)
	}
	return nil
}
