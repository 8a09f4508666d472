package speech

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// FallbackReply is spoken whenever reply generation fails or times out.
const FallbackReply = "I've noted your request. Anything else?"

// GeneratorConfig configures the reply generation subprocess.
type GeneratorConfig struct {
	Binary  string
	Model   string
	Timeout time.Duration
}

// Generator produces a short spoken reply by running a local language
// model binary with the prompt on stdin. A missing binary, a non-zero
// exit or a timeout all degrade to FallbackReply so the caller always
// hears something.
type Generator struct {
	config GeneratorConfig
	logger *slog.Logger
}

// NewGenerator creates a reply generator.
func NewGenerator(cfg GeneratorConfig, logger *slog.Logger) *Generator {
	if cfg.Binary == "" {
		cfg.Binary = "ollama"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.2:1b"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	return &Generator{config: cfg, logger: logger}
}

// GenerateReply runs the model subprocess and returns its trimmed
// output, or FallbackReply on any failure.
func (g *Generator) GenerateReply(ctx context.Context, prompt string) string {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	start := time.Now()

	cmd := exec.CommandContext(ctx, g.config.Binary, "run", g.config.Model)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		reason := err.Error()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
		}
		g.logger.Warn("Reply generation failed, using fallback",
			slog.String("reason", reason),
			slog.String("stderr", strings.TrimSpace(stderr.String())),
			slog.Duration("elapsed", time.Since(start)),
		)
		return FallbackReply
	}

	reply := strings.TrimSpace(stdout.String())
	if reply == "" {
		g.logger.Warn("Reply generation produced no output, using fallback")
		return FallbackReply
	}

	g.logger.Debug("Generated reply",
		slog.Int("prompt_length", len(prompt)),
		slog.Int("reply_length", len(reply)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return reply
}
