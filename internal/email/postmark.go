package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const defaultAPIURL = "https://api.postmarkapp.com/email"

// Client sends transactional email through the Postmark API. A client with
// an empty server token is a valid no-op client: Configured reports false
// and sends fail with a clear error, so the app can run without email.
type Client struct {
	serverToken string
	fromEmail   string
	appBaseURL  string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL overrides the Postmark endpoint. Used by tests.
func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

func NewClient(serverToken, fromEmail, appBaseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		appBaseURL:  appBaseURL,
		apiURL:      defaultAPIURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendVerification emails a verify-your-address link containing the token.
func (c *Client) SendVerification(ctx context.Context, toEmail, name, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", c.appBaseURL, token)
	text := fmt.Sprintf("Hi %s,\n\nConfirm your email address for Blueberry Planner:\n\n%s\n\nThis link expires in 24 hours.", name, link)
	html := fmt.Sprintf(
		`<p>Hi %s,</p><p>Confirm your email address for Blueberry Planner:</p><p><a href="%s">Verify email</a></p><p>This link expires in 24 hours.</p>`,
		name, link,
	)
	return c.send(ctx, postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  "Verify your Blueberry Planner email",
		HtmlBody: html,
		TextBody: text,
	})
}

// SendPasswordReset emails a reset link containing the token.
func (c *Client) SendPasswordReset(ctx context.Context, toEmail, name, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", c.appBaseURL, token)
	text := fmt.Sprintf("Hi %s,\n\nReset your Blueberry Planner password:\n\n%s\n\nThis link expires in 1 hour. If you didn't request a reset, ignore this email.", name, link)
	html := fmt.Sprintf(
		`<p>Hi %s,</p><p>Reset your Blueberry Planner password:</p><p><a href="%s">Reset password</a></p><p>This link expires in 1 hour. If you didn't request a reset, ignore this email.</p>`,
		name, link,
	)
	return c.send(ctx, postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  "Reset your Blueberry Planner password",
		HtmlBody: html,
		TextBody: text,
	})
}

func (c *Client) send(ctx context.Context, payload postmarkEmail) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	backoff := retry.WithMaxRetries(2, retry.NewExponential(time.Second))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Postmark-Server-Token", c.serverToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("send email: %w", err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return retry.RetryableError(fmt.Errorf("postmark API error: status %d", resp.StatusCode))
		case resp.StatusCode >= 400:
			return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
		}
		return nil
	})
}
