package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			"dir source without path",
			func(c *Config) { c.Source.Type = "dir"; c.Source.Path = "" },
			"source.path",
		},
		{
			"unknown source type",
			func(c *Config) { c.Source.Type = "rtsp" },
			"source.type",
		},
		{
			"confidence above one",
			func(c *Config) { c.Detection.Confidence = 1.5 },
			"detection.confidence",
		},
		{
			"start hour out of range",
			func(c *Config) { h := 24; c.Schedule.StartHour = &h },
			"start_hour",
		},
		{
			"negative cooldown",
			func(c *Config) { c.Alerts.CooldownSeconds = -1 },
			"cooldown",
		},
		{
			"zero hourly cap",
			func(c *Config) { c.Alerts.HourlyCap = 0 },
			"hourly_cap",
		},
		{
			"file sink without path",
			func(c *Config) { c.Alerts.Sinks = []SinkConfig{{Type: "file_jsonl"}} },
			"missing path",
		},
		{
			"file sink negative rotation size",
			func(c *Config) {
				c.Alerts.Sinks = []SinkConfig{{Type: "file_jsonl", Path: "a.jsonl", MaxSizeMB: -1}}
			},
			"max_size_mb",
		},
		{
			"webhook sink negative attempts",
			func(c *Config) {
				c.Alerts.Sinks = []SinkConfig{{Type: "webhook", URL: "https://hooks.example.com/v", MaxAttempts: -1}}
			},
			"max_attempts",
		},
		{
			"webhook sink with ftp url",
			func(c *Config) { c.Alerts.Sinks = []SinkConfig{{Type: "webhook", URL: "ftp://x"}} },
			"http or https",
		},
		{
			"sms sink without numbers",
			func(c *Config) { c.Alerts.Sinks = []SinkConfig{{Type: "sms"}} },
			"from/to",
		},
		{
			"unknown sink type",
			func(c *Config) { c.Alerts.Sinks = []SinkConfig{{Type: "pager"}} },
			"unknown type",
		},
		{
			"telemetry without endpoint",
			func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.Endpoint = "" },
			"endpoint",
		},
		{
			"bad logging level",
			func(c *Config) { c.Logging.Level = "loud" },
			"logging.level",
		},
	}

	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(cfg)
		err := Validate(cfg)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.wantErr) {
			t.Fatalf("%s: error %q does not mention %q", tc.name, err, tc.wantErr)
		}
	}
}

func TestValidateAcceptsFullSinkSet(t *testing.T) {
	cfg := validConfig()
	cfg.Alerts.Sinks = []SinkConfig{
		{Type: "file_jsonl", Path: "logs/alerts.jsonl"},
		{Type: "webhook", URL: "https://hooks.example.com/v"},
		{Type: "sms", From: "+15550001111", To: "+15550002222"},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateNilConfig(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
