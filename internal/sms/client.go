// Package sms is the outbound SMS gateway client.
package sms

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
	"sitewire_backend/platform/phone"
)

type Client struct {
	baseURL string
	apiKey  string
	from    string
	http    *http.Client
	log     *logger.Logger
}

type sendRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

type sendResponse struct {
	DeliveryID string `json:"deliveryId"`
	Status     string `json:"status"`
}

func NewClient(cfg config.SMSConfig, log *logger.Logger) *Client {
	if cfg.GetSMSGatewayURL() == "" {
		return nil
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.GetSMSGatewayURL(), "/"),
		apiKey:  cfg.GetSMSGatewayKey(),
		from:    cfg.GetSMSFromNumber(),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// SendSMS delivers one text message and returns the gateway delivery id.
func (c *Client) SendSMS(ctx context.Context, to, body string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("sms gateway not configured")
	}

	payload := sendRequest{
		To:      phone.E164(to),
		From:    c.from,
		Message: body,
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewBuffer(encoded))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed sendResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		// Some gateways return an empty body on accept.
		parsed.DeliveryID = ""
	}

	c.log.Info("sms sent", "to", payload.To, "delivery_id", parsed.DeliveryID)
	return parsed.DeliveryID, nil
}
