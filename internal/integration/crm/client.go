// Package crm is the HTTP client for the external CRM the integration
// queue mirrors changes into.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sitewire_backend/platform/config"
	"sitewire_backend/platform/logger"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(cfg config.IntegrationConfig, log *logger.Logger) *Client {
	if cfg.GetCRMBaseURL() == "" {
		return nil
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.GetCRMBaseURL(), "/"),
		apiKey:  cfg.GetCRMAPIKey(),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

// Push mirrors one resource operation into the CRM and returns the CRM's
// response body as the job result.
func (c *Client) Push(ctx context.Context, resourceType, operationType string, resourceID *string, payload map[string]any) (map[string]any, error) {
	if c == nil {
		return nil, fmt.Errorf("crm client not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal crm payload: %w", err)
	}

	url := fmt.Sprintf("%s/api/%s", c.baseURL, resourceType)
	method := http.MethodPost
	switch operationType {
	case "update":
		method = http.MethodPut
		if resourceID != nil {
			url = fmt.Sprintf("%s/%s", url, *resourceID)
		}
	case "delete":
		method = http.MethodDelete
		if resourceID != nil {
			url = fmt.Sprintf("%s/%s", url, *resourceID)
		}
	case "append_note":
		if resourceID != nil {
			url = fmt.Sprintf("%s/%s/notes", url, *resourceID)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crm request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("crm returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	result := map[string]any{"status_code": resp.StatusCode}
	if len(data) > 0 {
		var parsed map[string]any
		if err := json.Unmarshal(data, &parsed); err == nil {
			result["response"] = parsed
		}
	}

	c.log.Info("crm push completed",
		"resource_type", resourceType,
		"operation", operationType,
		"status", resp.StatusCode)
	return result, nil
}

// Fetch reads one resource from the CRM for read-type jobs.
func (c *Client) Fetch(ctx context.Context, resourceType string, resourceID *string) (map[string]any, error) {
	if c == nil {
		return nil, fmt.Errorf("crm client not configured")
	}

	url := fmt.Sprintf("%s/api/%s", c.baseURL, resourceType)
	if resourceID != nil {
		url = fmt.Sprintf("%s/%s", url, *resourceID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crm request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("crm returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	result := map[string]any{"status_code": resp.StatusCode}
	if len(data) > 0 {
		var parsed map[string]any
		if err := json.Unmarshal(data, &parsed); err == nil {
			result["response"] = parsed
		}
	}
	return result, nil
}
