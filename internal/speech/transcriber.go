package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/saintzema/ai-voice-call-agent/internal/audio"
)

// TranscriberConfig configures the speech recognition HTTP client.
type TranscriberConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
}

// Transcriber posts WAV-wrapped linear audio to a Whisper-style
// recognition endpoint. Any failure is treated as silence: a missed
// utterance must not take down the call.
type Transcriber struct {
	config     TranscriberConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// transcriptionResponse is the recognition service's JSON reply.
type transcriptionResponse struct {
	Text string `json:"text"`
}

// NewTranscriber creates a transcription client.
func NewTranscriber(cfg TranscriberConfig, logger *slog.Logger) *Transcriber {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}

	return &Transcriber{
		config: cfg,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}
}

// Transcribe recognizes one utterance of linear PCM audio and returns
// the text, or the empty string on no-speech or any failure.
func (t *Transcriber) Transcribe(ctx context.Context, pcm []int16, sampleRate int) string {
	if len(pcm) == 0 {
		return ""
	}
	if t.config.Endpoint == "" || t.config.APIKey == "" {
		t.logger.Debug("Transcription not configured, treating utterance as silence")
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	text, err := t.doRequest(ctx, pcm, sampleRate)
	if err != nil {
		t.logger.Warn("Transcription failed, treating utterance as silence",
			slog.String("error", err.Error()),
		)
		return ""
	}
	return text
}

// doRequest performs a single multipart request to the recognition API.
// Failures are never retried within the same turn.
func (t *Transcriber) doRequest(ctx context.Context, pcm []int16, sampleRate int) (string, error) {
	wav, err := audio.EncodeWAV(pcm, sampleRate)
	if err != nil {
		return "", fmt.Errorf("failed to wrap audio: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(wav); err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}

	fields := map[string]string{
		"model":    t.config.Model,
		"language": t.config.Language,
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.Endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(body))
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response JSON: %w", err)
	}

	return parsed.Text, nil
}
