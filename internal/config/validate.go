package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Source.Type)) {
	case "dir":
		if strings.TrimSpace(cfg.Source.Path) == "" {
			return errors.New("source.path must be set for a dir source")
		}
	case "synthetic":
	default:
		return fmt.Errorf("source.type must be dir or synthetic, got %q", cfg.Source.Type)
	}
	if cfg.Source.IntervalMS <= 0 {
		return errors.New("source.interval_ms must be positive")
	}

	if cfg.Detection.Confidence <= 0 || cfg.Detection.Confidence > 1 {
		return fmt.Errorf("detection.confidence must be in (0,1], got %f", cfg.Detection.Confidence)
	}

	if h := cfg.Schedule.Start(); h < 0 || h > 23 {
		return fmt.Errorf("schedule.start_hour %d out of range [0,23]", h)
	}
	if h := cfg.Schedule.End(); h < 0 || h > 23 {
		return fmt.Errorf("schedule.end_hour %d out of range [0,23]", h)
	}

	if cfg.Alerts.CooldownSeconds <= 0 {
		return errors.New("alerts.cooldown_seconds must be positive")
	}
	if cfg.Alerts.HourlyCap <= 0 {
		return errors.New("alerts.hourly_cap must be positive")
	}

	for i, s := range cfg.Alerts.Sinks {
		if err := validateSinkConfig(i, s); err != nil {
			return err
		}
	}

	if err := validateTelemetryConfig(cfg.Telemetry); err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", cfg.Logging.Level)
	}

	return nil
}

func validateSinkConfig(i int, s SinkConfig) error {
	switch strings.ToLower(strings.TrimSpace(s.Type)) {
	case "file_jsonl":
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("alert sink %d (file_jsonl) missing path", i)
		}
		if s.MaxSizeMB < 0 {
			return fmt.Errorf("alert sink %d (file_jsonl) max_size_mb must not be negative", i)
		}
	case "webhook":
		if strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("alert sink %d (webhook) missing url", i)
		}
		u, err := url.Parse(s.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("alert sink %d (webhook) has invalid url", i)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("alert sink %d (webhook) url must be http or https", i)
		}
		if s.MaxAttempts < 0 {
			return fmt.Errorf("alert sink %d (webhook) max_attempts must not be negative", i)
		}
	case "sms":
		if strings.TrimSpace(s.From) == "" || strings.TrimSpace(s.To) == "" {
			return fmt.Errorf("alert sink %d (sms) missing from/to numbers", i)
		}
	default:
		return fmt.Errorf("alert sink %d has unknown type %q", i, s.Type)
	}
	return nil
}

func validateTelemetryConfig(t TelemetryConfig) error {
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.Endpoint) == "" {
		return errors.New("telemetry enabled but endpoint is empty")
	}
	if t.Protocol != "" {
		switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
		case "grpc", "http":
		default:
			return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", t.Protocol)
		}
	}
	return nil
}
