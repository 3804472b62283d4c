package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"linksum/internal/constants"
	"linksum/internal/logger"
	"linksum/pkg/retry"
)

// APIError is a Slack Web API level failure ("ok": false).
type APIError struct {
	Code string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack api error: %s", e.Code)
}

// PostMessageRequest mirrors the chat.postMessage arguments the service uses.
// Link unfurling is always disabled so our own replies never re-trigger the
// link_shared flow.
type PostMessageRequest struct {
	Channel         string `json:"channel"`
	Text            string `json:"text"`
	ThreadTimestamp string `json:"thread_ts,omitempty"`
	ReplyBroadcast  bool   `json:"reply_broadcast,omitempty"`
	UnfurlLinks     bool   `json:"unfurl_links"`
	UnfurlMedia     bool   `json:"unfurl_media"`
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	retryPolicy retry.Policy
	logger      logger.Logger
}

func NewClient(baseURL, token string, log logger.Logger) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: constants.DefaultPostTimeout},
		baseURL:     baseURL,
		token:       token,
		retryPolicy: retry.Policy{MaxAttempts: 3, InitialInterval: 1 * time.Second, MaxInterval: 10 * time.Second, Multiplier: 2.0},
		logger:      log,
	}
}

// PostMessage delivers one message, retrying transient failures with backoff.
func (c *Client) PostMessage(ctx context.Context, req PostMessageRequest) error {
	req.UnfurlLinks = false
	req.UnfurlMedia = false

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal post message request: %w", err)
	}

	return retry.Do(ctx, "slack_post_message", c.retryPolicy, func() error {
		return c.postOnce(ctx, body)
	})
}

func (c *Client) postOnce(ctx context.Context, body []byte) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return retry.NewFatalError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("chat.postMessage request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read chat.postMessage response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return retry.NewRetryableError(fmt.Errorf("chat.postMessage status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return retry.NewFatalError(fmt.Errorf("chat.postMessage status %d", resp.StatusCode))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return fmt.Errorf("failed to decode chat.postMessage response: %w", err)
	}

	if !apiResp.OK {
		apiErr := &APIError{Code: apiResp.Error}
		if apiResp.Error == "ratelimited" {
			return retry.NewRetryableError(apiErr)
		}
		return retry.NewFatalError(apiErr)
	}

	return nil
}
