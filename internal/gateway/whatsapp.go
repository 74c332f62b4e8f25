package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WhatsAppClient talks to an Evolution-API-compatible WhatsApp gateway.
// Each assistant maps to one gateway instance; the instance name is the
// assistant reference the rest of the engine carries around.
type WhatsAppClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

type WhatsAppConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewWhatsAppClient(cfg WhatsAppConfig) (*WhatsAppClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway: base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WhatsAppClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *WhatsAppClient) Name() string { return "whatsapp-evolution" }

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type sendTextResponse struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (c *WhatsAppClient) SendText(ctx context.Context, instance, phone, text string) (SendResult, error) {
	if instance == "" || phone == "" {
		return SendResult{}, errors.New("gateway: instance and phone are required")
	}

	body, err := json.Marshal(sendTextRequest{Number: phone, Text: text})
	if err != nil {
		return SendResult{}, err
	}

	url := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return SendResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Network errors and timeouts are transient by definition here.
		return SendResult{Outcome: OutcomeTransient, Detail: err.Error()}, nil
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out sendTextResponse
		_ = json.Unmarshal(raw, &out)
		return SendResult{Outcome: OutcomeOK, ProviderMessageID: out.Key.ID}, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return SendResult{Outcome: OutcomeTransient, Detail: httpDetail(resp.StatusCode, raw)}, nil
	default:
		// 4xx: bad number, unknown/disconnected instance, rejected payload.
		return SendResult{Outcome: OutcomeFatal, Detail: httpDetail(resp.StatusCode, raw)}, nil
	}
}

func httpDetail(status int, body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	if s == "" {
		return fmt.Sprintf("gateway returned %d", status)
	}
	return fmt.Sprintf("gateway returned %d: %s", status, s)
}
