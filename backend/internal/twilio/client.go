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

	"go.uber.org/zap"
	apperrors "thoth/backend/pkg/errors"
	"thoth/backend/pkg/logger"
)

const defaultBaseURL = "https://api.twilio.com"

// Client sends SMS through the Twilio REST API
type Client struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Message is the subset of Twilio's message resource the application uses
type Message struct {
	SID         string `json:"sid"`
	Status      string `json:"status"`
	To          string `json:"to"`
	DateCreated string `json:"date_created"`
}

// NewClient creates a new Twilio client
func NewClient(accountSID, authToken, fromNumber string) *Client {
	return &Client{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.Get(),
	}
}

// Configured reports whether the Twilio credentials are present
func (c *Client) Configured() bool {
	return c.accountSID != "" && c.authToken != "" && c.fromNumber != ""
}

// From returns the sending phone number
func (c *Client) From() string {
	return c.fromNumber
}

// SendMessage sends an SMS and returns the created message resource
func (c *Client) SendMessage(ctx context.Context, to, body string) (*Message, error) {
	if !c.Configured() {
		return nil, apperrors.NewConfigMissingRequired("TWILIO_ACCOUNT_SID/TWILIO_AUTH_TOKEN/TWILIO_PHONE_NUMBER")
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.fromNumber)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	c.logger.Debug("Sending SMS via Twilio",
		zap.String("to", to),
		zap.Int("body_length", len(body)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalServiceFailed("twilio", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		c.logger.Error("Twilio API error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("response_body", string(respBody)),
		)
		return nil, apperrors.NewExternalServiceFailed("twilio",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody)))
	}

	var msg Message
	if err := json.Unmarshal(respBody, &msg); err != nil {
		c.logger.Error("Failed to decode Twilio response",
			zap.Error(err),
			zap.String("response_body", string(respBody)),
		)
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Info("SMS sent",
		zap.String("sid", msg.SID),
		zap.String("status", msg.Status),
		zap.String("to", msg.To),
	)
	return &msg, nil
}
