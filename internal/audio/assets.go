package audio

import (
	"log/slog"
	"math"
	"os"
	"time"
)

// mulawSilence is the µ-law byte for a zero-amplitude sample.
const mulawSilence = 0xFF

// Assets holds the pre-recorded µ-law prompts handed to sessions by
// reference. They are loaded once at startup and never mutated.
type Assets struct {
	// Greeting is played shortly after a media stream starts.
	Greeting Buffer
	// Followup is played when the caller goes quiet for too long.
	Followup Buffer
}

// LoadAssets reads raw 8 kHz µ-law prompt files from disk. A missing or
// unreadable greeting degrades to a one-second test tone so the caller
// still gets an audible line check; the followup degrades to silence.
func LoadAssets(greetingPath, followupPath string, sampleRate int, logger *slog.Logger) *Assets {
	return &Assets{
		Greeting: loadPrompt(greetingPath, Tone(440, time.Second, sampleRate), sampleRate, logger),
		Followup: loadPrompt(followupPath, Silence(400*time.Millisecond, sampleRate), sampleRate, logger),
	}
}

func loadPrompt(path string, fallback Buffer, sampleRate int, logger *slog.Logger) Buffer {
	if path == "" {
		return fallback
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Prompt audio not found, using fallback",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fallback
	}

	logger.Info("Loaded prompt audio",
		slog.String("path", path),
		slog.Int("bytes", len(data)),
	)
	return Buffer{Data: data, Encoding: EncodingMulaw, SampleRate: sampleRate}
}

// Silence returns a µ-law buffer of the given duration containing no audio.
func Silence(d time.Duration, sampleRate int) Buffer {
	n := int(d.Seconds() * float64(sampleRate))
	data := make([]byte, n)
	for i := range data {
		data[i] = mulawSilence
	}
	return Buffer{Data: data, Encoding: EncodingMulaw, SampleRate: sampleRate}
}

// Tone generates a µ-law sine tone, used as an audible line check when no
// greeting prompt is configured.
func Tone(freq float64, d time.Duration, sampleRate int) Buffer {
	n := int(d.Seconds() * float64(sampleRate))
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		v := math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)) * 0.3
		samples[i] = int16(math.Round(v * 32767))
	}
	return Buffer{Data: EncodeMulaw(samples), Encoding: EncodingMulaw, SampleRate: sampleRate}
}
