package alert

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSSink delivers the composed alert message through a Twilio-compatible
// Messages endpoint. Credentials come from the environment so they never
// land in the config file.
type SMSSink struct {
	endpoint   string
	accountSID string
	authToken  string
	from       string
	to         string
	client     *http.Client
}

// SMSConfig carries the sink settings. BaseURL defaults to the Twilio API.
type SMSConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string
	To         string
	Timeout    time.Duration
}

func NewSMSSink(cfg SMSConfig) (*SMSSink, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("sms sink requires account sid and auth token")
	}
	if cfg.From == "" || cfg.To == "" {
		return nil, fmt.Errorf("sms sink requires from and to numbers")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.twilio.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SMSSink{
		endpoint:   fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", base, cfg.AccountSID),
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.From,
		to:         cfg.To,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

func (s *SMSSink) Name() string { return "sms:" + s.to }

func (s *SMSSink) Deliver(ctx context.Context, ev *Event) error {
	if ev == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	form := url.Values{}
	form.Set("From", s.from)
	form.Set("To", s.to)
	form.Set("Body", ev.Message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("status %d body=%q", resp.StatusCode, body)
	}
	return nil
}

func (s *SMSSink) Close(context.Context) error { return nil }
