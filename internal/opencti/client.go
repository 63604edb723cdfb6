// Package opencti publishes STIX bundles to an OpenCTI instance over its
// GraphQL API.
package opencti

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cyberstreams/intelcore/internal/stix"
)

const importBundleMutation = `mutation ImportBundle($bundle: String!) {
  stix2_import(file: $bundle) {
    id
  }
}`

// Client talks to one OpenCTI instance using bearer token auth.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// PublishBundle imports a bundle. OpenCTI takes the bundle as a JSON
// string variable, not a nested object.
func (c *Client) PublishBundle(ctx context.Context, bundle stix.Bundle) error {
	encoded, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to encode STIX bundle: %w", err)
	}

	payload := map[string]any{
		"query": importBundleMutation,
		"variables": map[string]any{
			"bundle": string(encoded),
		},
	}

	var result struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := c.post(ctx, "/graphql", payload, &result); err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("OpenCTI import rejected: %s", result.Errors[0].Message)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode OpenCTI request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("OpenCTI request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("OpenCTI request failed (%d): %s", resp.StatusCode, string(text))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode OpenCTI response: %w", err)
	}
	return nil
}
