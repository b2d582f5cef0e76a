package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vigilo-ai/vigilo/internal/alert"
	"github.com/vigilo-ai/vigilo/internal/config"
	"github.com/vigilo-ai/vigilo/internal/detect"
	"github.com/vigilo-ai/vigilo/internal/frames"
	"github.com/vigilo-ai/vigilo/internal/gate"
	"github.com/vigilo-ai/vigilo/internal/pipeline"
	"github.com/vigilo-ai/vigilo/internal/schedule"
	"github.com/vigilo-ai/vigilo/internal/snapshot"
	"github.com/vigilo-ai/vigilo/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "vigilo.yaml", "Path to Vigilo config file")
	sourcePath := flag.String("source", "", "Frame directory (overrides config source)")
	afterHours := flag.Bool("after-hours", false, "Force after-hours mode on")
	flag.Parse()

	// Credentials (Twilio, OTLP) come from the environment; .env is optional.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *sourcePath != "" {
		cfg.Source.Type = "dir"
		cfg.Source.Path = *sourcePath
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Protocol: cfg.Telemetry.Protocol,
		Service:  "vigilo",
		Version:  "1",
	}, logger)
	if err != nil {
		logger.Fatal("telemetry setup failed", zap.Error(err))
	}
	defer tel.Shutdown(context.Background())

	source, err := buildSource(cfg)
	if err != nil {
		logger.Fatal("frame source setup failed", zap.Error(err))
	}
	defer source.Close()

	detector, err := buildDetector(cfg, logger)
	if err != nil {
		logger.Fatal("detector setup failed", zap.Error(err))
	}
	defer detector.Close()

	sched, err := schedule.New(cfg.Schedule.Start(), cfg.Schedule.End(), cfg.Schedule.Enabled())
	if err != nil {
		logger.Fatal("schedule setup failed", zap.Error(err))
	}
	if *afterHours {
		sched.Force(true)
		logger.Info("after-hours mode forced on")
	}

	snaps, err := snapshot.NewWriter(cfg.Snapshots.Dir)
	if err != nil {
		logger.Fatal("snapshot writer setup failed", zap.Error(err))
	}

	sinks, err := buildSinks(cfg)
	if err != nil {
		logger.Fatal("alert sink setup failed", zap.Error(err))
	}
	emitter := alert.NewEmitter(alert.EmitterConfig{
		QueueSize: cfg.Alerts.QueueSize,
		Workers:   cfg.Alerts.Workers,
	}, sinks, logger)
	defer emitter.Close(context.Background())

	p, err := pipeline.New(pipeline.Options{
		Feed:         cfg.Feed.Name,
		Source:       source,
		Detector:     detector,
		Schedule:     sched,
		Gate:         gate.New(time.Duration(cfg.Alerts.CooldownSeconds)*time.Second, cfg.Alerts.HourlyCap),
		Snapshots:    snaps,
		Emitter:      emitter,
		BlurEnabled:  cfg.Privacy.Enabled(),
		BlurStrength: cfg.Privacy.BlurStrength,
		Log:          logger,
		Telemetry:    tel,
	})
	if err != nil {
		logger.Fatal("pipeline setup failed", zap.Error(err))
	}

	logger.Info("vigilo started",
		zap.String("feed", cfg.Feed.Name),
		zap.String("source", cfg.Source.Type),
		zap.Int("sinks", len(sinks)))

	stats, err := p.Run(ctx)
	if err != nil {
		logger.Fatal("pipeline error", zap.Error(err))
	}

	logger.Info("vigilo stopped",
		zap.Int("frames", stats.Frames),
		zap.Int("detections", stats.Detections),
		zap.Int("alerts_fired", stats.Fired),
		zap.Any("suppressed", stats.Suppressed))
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	switch level {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

func buildSource(cfg *config.Config) (frames.Source, error) {
	interval := time.Duration(cfg.Source.IntervalMS) * time.Millisecond
	start := time.Now()
	switch cfg.Source.Type {
	case "dir":
		return frames.NewDirSource(cfg.Source.Path, start, interval)
	default:
		return frames.NewSyntheticSource(cfg.Source.Width, cfg.Source.Height, cfg.Source.MaxFrames, start, interval), nil
	}
}

func buildDetector(cfg *config.Config, logger *zap.Logger) (detect.Detector, error) {
	if cfg.Detection.BundleDir == "" {
		logger.Info("no model bundle configured, using scripted detector")
		return detect.NewScriptedDetector(), nil
	}
	d, err := detect.LoadONNXDetector(cfg.Detection.BundleDir, cfg.Detection.Confidence)
	if err != nil {
		return nil, err
	}
	logger.Info("onnx detector loaded", zap.String("bundle", cfg.Detection.BundleDir))
	return d, nil
}

func buildSinks(cfg *config.Config) ([]alert.Sink, error) {
	var sinks []alert.Sink
	for _, sc := range cfg.Alerts.Sinks {
		switch sc.Type {
		case "file_jsonl":
			s, err := alert.NewFileSink(sc.Path, int64(sc.MaxSizeMB)*1024*1024)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, s)
		case "webhook":
			s, err := alert.NewWebhookSink(alert.WebhookConfig{
				URL:         sc.URL,
				Headers:     sc.Headers,
				MaxAttempts: sc.MaxAttempts,
			})
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, s)
		case "sms":
			s, err := alert.NewSMSSink(alert.SMSConfig{
				AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
				AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
				From:       sc.From,
				To:         sc.To,
			})
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, s)
		}
	}
	return sinks, nil
}
