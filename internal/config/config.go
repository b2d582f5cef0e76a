package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds Vigilo configuration.
type Config struct {
	Feed      FeedConfig      `yaml:"feed"`
	Source    SourceConfig    `yaml:"source"`
	Detection DetectionConfig `yaml:"detection"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Privacy   PrivacyConfig   `yaml:"privacy"`
	Snapshots SnapshotsConfig `yaml:"snapshots"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type FeedConfig struct {
	Name string `yaml:"name"` // label carried on alerts, e.g. "camera-1"
}

type SourceConfig struct {
	Type       string `yaml:"type"` // dir | synthetic
	Path       string `yaml:"path"` // dir source: directory of JPEG/PNG frames
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	IntervalMS int    `yaml:"interval_ms"` // capture interval per frame
	MaxFrames  int    `yaml:"max_frames"`  // synthetic source: 0 = unbounded
}

type DetectionConfig struct {
	BundleDir  string  `yaml:"bundle_dir"` // ONNX bundle; empty runs the scripted detector
	Confidence float32 `yaml:"confidence"`
}

type ScheduleConfig struct {
	AfterHoursEnabled *bool `yaml:"after_hours_enabled"`
	StartHour         *int  `yaml:"start_hour"`
	EndHour           *int  `yaml:"end_hour"`
}

type AlertsConfig struct {
	CooldownSeconds int          `yaml:"cooldown_seconds"`
	HourlyCap       int          `yaml:"hourly_cap"`
	QueueSize       int          `yaml:"queue_size"`
	Workers         int          `yaml:"workers"`
	Sinks           []SinkConfig `yaml:"sinks"`
}

type SinkConfig struct {
	Type        string            `yaml:"type"`        // file_jsonl | webhook | sms
	Path        string            `yaml:"path"`        // file_jsonl
	MaxSizeMB   int               `yaml:"max_size_mb"` // file_jsonl: rotate past this size, 0 = never
	URL         string            `yaml:"url"`         // webhook
	Headers     map[string]string `yaml:"headers"`
	MaxAttempts int               `yaml:"max_attempts"` // webhook: delivery attempts, 0 = default
	From        string            `yaml:"from"`         // sms
	To          string            `yaml:"to"`           // sms
}

type PrivacyConfig struct {
	BlurEnabled  *bool `yaml:"blur_enabled"`
	BlurStrength int   `yaml:"blur_strength"`
}

type SnapshotsConfig struct {
	Dir string `yaml:"dir"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"` // grpc | http
}

// Enabled resolves the pointer field; the window is on by default.
func (s ScheduleConfig) Enabled() bool {
	return s.AfterHoursEnabled == nil || *s.AfterHoursEnabled
}

// Start returns the window start hour (default 22).
func (s ScheduleConfig) Start() int {
	if s.StartHour == nil {
		return 22
	}
	return *s.StartHour
}

// End returns the window end hour (default 6).
func (s ScheduleConfig) End() int {
	if s.EndHour == nil {
		return 6
	}
	return *s.EndHour
}

// Enabled resolves the pointer field; blurring is on by default.
func (p PrivacyConfig) Enabled() bool {
	return p.BlurEnabled == nil || *p.BlurEnabled
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, return default config
		if os.IsNotExist(err) {
			cfg := &Config{}
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Feed.Name == "" {
		cfg.Feed.Name = "camera-1"
	}

	if cfg.Source.Type == "" {
		cfg.Source.Type = "synthetic"
	}
	if cfg.Source.Width <= 0 {
		cfg.Source.Width = 640
	}
	if cfg.Source.Height <= 0 {
		cfg.Source.Height = 480
	}
	if cfg.Source.IntervalMS <= 0 {
		cfg.Source.IntervalMS = 1000
	}

	if cfg.Detection.Confidence <= 0 {
		cfg.Detection.Confidence = 0.5
	}

	if cfg.Alerts.CooldownSeconds <= 0 {
		cfg.Alerts.CooldownSeconds = 30
	}
	if cfg.Alerts.HourlyCap <= 0 {
		cfg.Alerts.HourlyCap = 10
	}
	if cfg.Alerts.QueueSize <= 0 {
		cfg.Alerts.QueueSize = 100
	}
	if cfg.Alerts.Workers <= 0 {
		cfg.Alerts.Workers = 1
	}

	if cfg.Privacy.BlurStrength <= 0 {
		cfg.Privacy.BlurStrength = 15
	}

	if cfg.Snapshots.Dir == "" {
		cfg.Snapshots.Dir = "snapshots"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
}
