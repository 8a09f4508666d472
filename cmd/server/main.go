package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saintzema/ai-voice-call-agent/internal/audio"
	"github.com/saintzema/ai-voice-call-agent/internal/config"
	"github.com/saintzema/ai-voice-call-agent/internal/metrics"
	"github.com/saintzema/ai-voice-call-agent/internal/server"
	"github.com/saintzema/ai-voice-call-agent/internal/session"
	"github.com/saintzema/ai-voice-call-agent/internal/speech"
	"github.com/saintzema/ai-voice-call-agent/internal/twilio"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "ai-voice-call-agent"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("address", cfg.Server.Address),
		slog.String("public_host", cfg.Server.PublicHost),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("frame_bytes", cfg.Audio.FrameBytes),
		slog.Float64("reply_cooldown", cfg.Session.ReplyCooldown),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.Bool("synthesis_configured", cfg.Synthesis.ModelPath != ""),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Load pre-recorded audio assets (missing files degrade to silence)
	assets := audio.LoadAssets(cfg.Audio.GreetingPath, cfg.Audio.FollowupPath,
		cfg.Audio.SampleRate, logger)

	// Build the speech pipeline
	pipeline := speech.NewPipelineFromConfig(
		speech.TranscriberConfig{
			Endpoint: cfg.Transcription.Endpoint,
			APIKey:   cfg.Transcription.APIKey,
			Model:    cfg.Transcription.Model,
			Language: cfg.Transcription.Language,
			Timeout:  cfg.Transcription.GetTimeoutDuration(),
		},
		speech.GeneratorConfig{
			Binary:  cfg.Generation.Binary,
			Model:   cfg.Generation.Model,
			Timeout: cfg.Generation.GetTimeoutDuration(),
		},
		speech.SynthesizerConfig{
			Binary:     cfg.Synthesis.Binary,
			ModelPath:  cfg.Synthesis.ModelPath,
			WorkDir:    cfg.Synthesis.WorkDir,
			SampleRate: cfg.Audio.SampleRate,
			Timeout:    cfg.Synthesis.GetTimeoutDuration(),
		},
		logger,
	)

	// Initialize session registry
	registry := session.NewRegistry(session.RegistryConfig{
		Session: session.Config{
			SampleRate:    cfg.Audio.SampleRate,
			ReplyCooldown: cfg.Session.GetReplyCooldown(),
			GreetingDelay: cfg.Session.GetGreetingDelay(),
			RecordDir:     cfg.Session.RecordDir,
		},
		FrameBytes:  cfg.Audio.FrameBytes,
		IdleTimeout: cfg.Session.GetIdleTimeout(),
	}, pipeline, assets, appMetrics, logger)
	logger.Info("Session registry initialized",
		slog.Duration("reply_cooldown", cfg.Session.GetReplyCooldown()),
		slog.Duration("idle_timeout", cfg.Session.GetIdleTimeout()),
		slog.String("record_dir", cfg.Session.RecordDir),
	)

	// Initialize the vendor REST client for follow-up SMS
	twilioClient := twilio.New(twilio.Config{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		From:       cfg.Twilio.FromNumber,
	})
	if !twilioClient.Enabled() {
		logger.Warn("SMS client not configured, follow-up messages disabled")
	}

	// Initialize and start the HTTP server
	srv := server.New(cfg, registry, twilioClient, appMetrics, logger)
	if err := srv.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)),
	)

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	// Stop the HTTP server first (stop accepting new calls)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Finalize remaining sessions so every call gets its record
	registry.Stop()

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
