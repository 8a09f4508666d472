// Package twilio is a minimal REST client for the telephony vendor's
// API, covering only what the agent needs: sending the follow-up SMS
// after an unanswered call.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config configures the REST client. Empty credentials disable the
// client instead of failing startup: the voice path works without it.
type Config struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
	Timeout    time.Duration
}

// Client is the vendor REST API client.
type Client struct {
	config     Config
	httpClient *http.Client
}

// Message is the vendor's SMS resource.
type Message struct {
	SID    string `json:"sid"`
	To     string `json:"to"`
	From   string `json:"from"`
	Body   string `json:"body"`
	Status string `json:"status"`
}

// Error is an API-level error response.
type Error struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("twilio error %d: %s", e.Code, e.Message)
}

// New creates a REST client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com/2010-04-01"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether credentials were configured.
func (c *Client) Enabled() bool {
	return c.config.AccountSID != "" && c.config.AuthToken != "" && c.config.From != ""
}

// SendSMS sends one text message from the configured number.
func (c *Client) SendSMS(ctx context.Context, to, body string) (*Message, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("twilio client not configured")
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.config.BaseURL, c.config.AccountSID)

	data := url.Values{}
	data.Set("To", to)
	data.Set("From", c.config.From)
	data.Set("Body", body)

	var msg Message
	if err := c.post(ctx, endpoint, data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// post performs a form-encoded POST with basic auth.
func (c *Client) post(ctx context.Context, endpoint string, data url.Values, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.config.AccountSID, c.config.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr Error
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return &apiErr
		}
		return fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(body))
	}

	return json.Unmarshal(body, result)
}
