package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.telegram.org"

// Outbound calls are throttled below Telegram's ~30 messages/second global
// limit so a large sweep pass cannot trip HTTP 429s
const (
	sendRateLimit = 25
	sendRateBurst = 5
)

// Client wraps calls to the Telegram Bot API and implements Gateway
type Client struct {
	baseURL     string
	token       string
	pollTimeout time.Duration
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// ClientOption customizes a Client
type ClientOption func(*Client)

// WithBaseURL overrides the Bot API base URL (used in tests)
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithPollTimeout sets the long-poll timeout passed to getUpdates. Zero
// keeps short polling; the caller's loop delay paces iterations either way.
func WithPollTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.pollTimeout = timeout
	}
}

// NewClient creates a Bot API client for the given bot token
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		token:   token,
		limiter: rate.NewLimiter(rate.Limit(sendRateLimit), sendRateBurst),
	}

	for _, opt := range opts {
		opt(c)
	}

	// The HTTP timeout must outlast the long-poll window
	c.httpClient = &http.Client{Timeout: c.pollTimeout + 30*time.Second}

	return c
}

// apiResponse is the Bot API envelope around every method result
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
}

// FetchUpdates retrieves inbound updates with sequence id >= offset
func (c *Client) FetchUpdates(ctx context.Context, offset int64) ([]Update, error) {
	payload := map[string]any{
		"timeout": int(c.pollTimeout.Seconds()),
	}
	if offset > 0 {
		payload["offset"] = offset
	}

	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage delivers an HTML message, optionally with one row of inline buttons
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, buttons ...Button) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}

	if len(buttons) > 0 {
		row := make([]map[string]string, 0, len(buttons))
		for _, b := range buttons {
			row = append(row, map[string]string{
				"text":          b.Text,
				"callback_data": b.Data,
			})
		}
		payload["reply_markup"] = map[string]any{
			"inline_keyboard": [][]map[string]string{row},
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.call(ctx, "sendMessage", payload, nil)
}

// RemoveMember kicks a user from a group
func (c *Client) RemoveMember(ctx context.Context, chatID int64, userID int64) error {
	payload := map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.call(ctx, "banChatMember", payload, nil)
}

// call performs one Bot API method request and decodes its result
func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram '%s' request failed: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telegram '%s' response read failed: %w", method, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("telegram '%s' returned malformed response: %w", method, err)
	}
	if !envelope.OK {
		return fmt.Errorf("telegram '%s' failed: %d: %s", method, envelope.ErrorCode, envelope.Description)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(envelope.Result, out)
}
