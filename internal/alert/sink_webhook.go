package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookConfig controls webhook delivery. Zero values fall back to the
// defaults: 2s timeout, 3 attempts, 100ms base backoff doubled per retry.
type WebhookConfig struct {
	URL         string
	Headers     map[string]string
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

// WebhookSink POSTs alert events as JSON to an HTTP endpoint, retrying
// transient failures with exponential backoff.
type WebhookSink struct {
	url         string
	headers     map[string]string
	maxAttempts int
	backoff     time.Duration
	client      *http.Client
}

func NewWebhookSink(cfg WebhookConfig) (*WebhookSink, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook url is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	hdr := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		hdr[k] = v
	}
	return &WebhookSink{
		url:         cfg.URL,
		headers:     hdr,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (s *WebhookSink) Name() string { return "webhook:" + s.url }

func (s *WebhookSink) Deliver(ctx context.Context, ev *Event) error {
	if ev == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	delay := s.backoff
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
			delay *= 2
		}
		if lastErr = s.post(ctx, payload, ev.ID); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *WebhookSink) post(ctx context.Context, payload []byte, alertID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Vigilo-Alert-Id", alertID)
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	return fmt.Errorf("status %d body=%q", resp.StatusCode, body)
}

func (s *WebhookSink) Close(context.Context) error {
	return nil
}
