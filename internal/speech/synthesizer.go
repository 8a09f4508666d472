package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saintzema/ai-voice-call-agent/internal/audio"
)

// SynthesizerConfig configures the text-to-speech subprocess.
type SynthesizerConfig struct {
	Binary     string
	ModelPath  string
	WorkDir    string
	SampleRate int
	Timeout    time.Duration
}

// Synthesizer renders reply text to telephony audio by running a piper
// TTS subprocess that writes a WAV file, then converting the result to
// mu-law. Without a configured voice model synthesis is skipped and the
// reply is silently dropped.
type Synthesizer struct {
	config       SynthesizerConfig
	logger       *slog.Logger
	missingModel sync.Once
}

// NewSynthesizer creates a speech synthesizer.
func NewSynthesizer(cfg SynthesizerConfig, logger *slog.Logger) *Synthesizer {
	if cfg.Binary == "" {
		cfg.Binary = "piper"
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 8000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Synthesizer{config: cfg, logger: logger}
}

// Synthesize renders text to a mu-law buffer ready for streaming. An
// empty buffer means nothing will be played; that is the degraded
// outcome for missing configuration or any synthesis failure.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) audio.Buffer {
	empty := audio.Buffer{Encoding: audio.EncodingMulaw, SampleRate: s.config.SampleRate}

	if strings.TrimSpace(text) == "" {
		return empty
	}
	if s.config.ModelPath == "" {
		s.missingModel.Do(func() {
			s.logger.Warn("No voice model configured, replies will not be spoken")
		})
		return empty
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()

	buf, err := s.render(ctx, text)
	if err != nil {
		s.logger.Warn("Speech synthesis failed, dropping reply audio",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return empty
	}

	s.logger.Debug("Synthesized reply",
		slog.Int("text_length", len(text)),
		slog.Duration("audio_duration", buf.Duration()),
		slog.Duration("elapsed", time.Since(start)),
	)
	return buf
}

// render runs the TTS subprocess against a temp file and converts the
// produced WAV to telephony mu-law.
func (s *Synthesizer) render(ctx context.Context, text string) (audio.Buffer, error) {
	outPath := filepath.Join(s.config.WorkDir, fmt.Sprintf("tts-%s.wav", uuid.New().String()))
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, s.config.Binary,
		"--model", s.config.ModelPath,
		"--output_file", outPath,
	)
	cmd.Stdin = strings.NewReader(text)

	if out, err := cmd.CombinedOutput(); err != nil {
		return audio.Buffer{}, fmt.Errorf("TTS subprocess failed: %w (%s)",
			err, strings.TrimSpace(string(out)))
	}

	wav, err := os.ReadFile(outPath)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("failed to read TTS output: %w", err)
	}

	samples, rate, err := audio.DecodeWAV(wav)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("failed to parse TTS output: %w", err)
	}
	if rate != s.config.SampleRate {
		samples = audio.Resample(samples, rate, s.config.SampleRate)
	}

	return audio.Buffer{
		Data:       audio.EncodeMulaw(samples),
		Encoding:   audio.EncodingMulaw,
		SampleRate: s.config.SampleRate,
	}, nil
}
