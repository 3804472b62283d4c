package summarize

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

	"linksum/internal/config"
	"linksum/internal/logger"
	"linksum/pkg/metrics"
	"linksum/pkg/retry"
)

// ErrAllFetchesFailed marks the case where none of the supplied URLs
// yielded any content to summarize. Callers use it to tell "the page is
// unreachable" apart from a summarizer outage.
var ErrAllFetchesFailed = errors.New("no reachable content in supplied urls")

// Summary is the summarizer's reply for one batch of URLs.
type Summary struct {
	Text        string // summary of the fetched content
	Language    string // ISO 639-1 language of the source body
	Translation string // body translated to the target language, when it differs
}

// Summarizer is the external collaborator contract the pipeline depends on.
type Summarizer interface {
	Summarize(ctx context.Context, urls []string) (*Summary, error)
}

// Client fetches the pages behind the URLs and asks an OpenAI-compatible
// chat completions endpoint for a summary and, when the source language
// differs from the configured target, a translation.
type Client struct {
	httpClient  *http.Client
	fetchClient *http.Client
	cfg         config.SummarizerConfig
	retryPolicy retry.Policy
	logger      logger.Logger
}

func NewClient(cfg config.SummarizerConfig, log logger.Logger) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		fetchClient: &http.Client{Timeout: cfg.FetchTimeout},
		cfg:         cfg,
		retryPolicy: retry.Policy{MaxAttempts: 3, InitialInterval: 1 * time.Second, MaxInterval: 10 * time.Second, Multiplier: 2.0},
		logger:      log,
	}
}

func (c *Client) Summarize(ctx context.Context, urls []string) (*Summary, error) {
	start := time.Now()
	summary, err := c.summarize(ctx, urls)
	metrics.ObserveSummarizerDuration(time.Since(start))

	if err != nil {
		metrics.SummarizerRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.SummarizerRequestsTotal.WithLabelValues("ok").Inc()
	return summary, nil
}

func (c *Client) summarize(ctx context.Context, urls []string) (*Summary, error) {
	var parts []string
	for _, u := range urls {
		text, err := c.fetchText(ctx, u)
		if err != nil {
			c.logger.WarnwCtx(ctx, "Failed to fetch url content",
				"url", u,
				"error", err,
			)
			continue
		}
		parts = append(parts, text)
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: %d urls tried", ErrAllFetchesFailed, len(urls))
	}

	content, err := c.complete(ctx, strings.Join(parts, "\n\n---\n\n"))
	if err != nil {
		return nil, err
	}

	return c.parseReply(ctx, content), nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// modelReply is the JSON shape the prompt instructs the model to produce.
type modelReply struct {
	Summary        string `json:"summary"`
	Language       string `json:"language"`
	BodyTranslated string `json:"body_translated,omitempty"`
}

func (c *Client) complete(ctx context.Context, document string) (string, error) {
	prompt := fmt.Sprintf(`You are a professional at summarizing and translating web pages.

- Summarize the given page text. Not too short; do not over-omit.
- If the body is not in %[1]q, also translate the body into %[1]q,
  truncating anything beyond 1000 characters.
- Reply with JSON only, in this shape:
  {"summary": "...", "language": "ISO 639-1 code of the body", "body_translated": "translation, only when the body language differs from %[1]q"}

Page text:

%[2]s`, c.cfg.TargetLanguage, document)

	reqBody, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt},
		},
		ResponseFormat: &respFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	var content string
	err = retry.Do(ctx, "summarizer_completion", c.retryPolicy, func() error {
		var reqErr error
		content, reqErr = c.completeOnce(ctx, reqBody)
		return reqErr
	})
	if err != nil {
		return "", err
	}

	return content, nil
}

func (c *Client) completeOnce(ctx context.Context, reqBody []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", retry.NewFatalError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", retry.NewRetryableError(fmt.Errorf("completion status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return "", retry.NewFatalError(fmt.Errorf("completion status %d: %s", resp.StatusCode, body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if chatResp.Error != nil {
		return "", retry.NewFatalError(fmt.Errorf("completion error: %s", chatResp.Error.Message))
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// parseReply decodes the model's JSON reply. A reply that is not the
// requested shape is still delivered verbatim rather than dropped.
func (c *Client) parseReply(ctx context.Context, content string) *Summary {
	var reply modelReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil || reply.Summary == "" {
		c.logger.WarnwCtx(ctx, "Summarizer reply was not the requested JSON shape",
			"content_length", len(content),
		)
		return &Summary{Text: content}
	}

	s := &Summary{
		Text:     reply.Summary,
		Language: reply.Language,
	}
	if reply.Language != c.cfg.TargetLanguage && reply.BodyTranslated != "" {
		s.Translation = reply.BodyTranslated
	}
	return s
}
