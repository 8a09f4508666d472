package media

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/saintzema/ai-voice-call-agent/internal/audio"
)

// Sender delivers one outbound media event to the transport.
type Sender interface {
	SendMedia(streamSid string, frame []byte) error
}

// Pacer splits outbound µ-law audio into fixed frames and emits them at
// the cadence of real playback time. It is the sole owner of outbound
// frame emission for its session: frames from one utterance are never
// interleaved with frames from another.
type Pacer struct {
	sender     Sender
	frameBytes int
	frameTime  time.Duration
	logger     *slog.Logger

	// Serializes utterances so concurrent Play calls cannot interleave.
	mu sync.Mutex
}

// NewPacer creates a pacer for the given frame size and sample rate.
// µ-law carries one sample per byte, so the frame duration is
// frameBytes / sampleRate seconds.
func NewPacer(sender Sender, frameBytes, sampleRate int, logger *slog.Logger) *Pacer {
	frameTime := time.Duration(frameBytes) * time.Second / time.Duration(sampleRate)
	return &Pacer{
		sender:     sender,
		frameBytes: frameBytes,
		frameTime:  frameTime,
		logger:     logger,
	}
}

// FrameDuration returns the playback time of one nominal frame.
func (p *Pacer) FrameDuration() time.Duration {
	return p.frameTime
}

// Play emits the buffer as paced media events and returns the number of
// frames sent. An empty buffer means "nothing to play" and sends no
// frames. Play blocks until the last frame is emitted or ctx is
// cancelled.
func (p *Pacer) Play(ctx context.Context, streamSid string, buf audio.Buffer) (int, error) {
	if buf.Empty() {
		return 0, nil
	}
	if buf.Encoding != audio.EncodingMulaw {
		return 0, fmt.Errorf("pacer requires mulaw audio, got %s", buf.Encoding)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ticker := time.NewTicker(p.frameTime)
	defer ticker.Stop()

	sent := 0
	for frame := range Frames(buf.Data, p.frameBytes) {
		if sent > 0 {
			// First frame goes out immediately; each following frame
			// waits one frame's playback time.
			select {
			case <-ticker.C:
			case <-ctx.Done():
				p.logger.Debug("Playback cancelled",
					slog.String("stream_sid", streamSid),
					slog.Int("frames_sent", sent),
				)
				return sent, ctx.Err()
			}
		}

		if err := p.sender.SendMedia(streamSid, frame); err != nil {
			return sent, fmt.Errorf("failed to send frame %d: %w", sent, err)
		}
		sent++
	}

	p.logger.Debug("Playback complete",
		slog.String("stream_sid", streamSid),
		slog.Int("frames_sent", sent),
		slog.Duration("audio_duration", buf.Duration()),
	)

	return sent, nil
}
