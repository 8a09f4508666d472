package audio

import "time"

// Encoding identifies the sample format of a Buffer.
type Encoding int

const (
	// EncodingMulaw is 8-bit G.711 µ-law, one byte per sample.
	EncodingMulaw Encoding = iota
	// EncodingPCM16 is 16-bit linear PCM, little-endian, two bytes per sample.
	EncodingPCM16
)

// String returns a human-readable encoding name.
func (e Encoding) String() string {
	switch e {
	case EncodingMulaw:
		return "mulaw"
	case EncodingPCM16:
		return "pcm16"
	default:
		return "unknown"
	}
}

// Buffer is an immutable audio buffer tagged with its encoding and sample
// rate. Buffers are passed by value between pipeline stages and never
// mutated in place.
type Buffer struct {
	Data       []byte
	Encoding   Encoding
	SampleRate int
}

// Empty reports whether the buffer carries no audio. An empty buffer
// means "nothing to play", not an error.
func (b Buffer) Empty() bool {
	return len(b.Data) == 0
}

// Samples returns the number of audio samples in the buffer.
func (b Buffer) Samples() int {
	if b.Encoding == EncodingPCM16 {
		return len(b.Data) / 2
	}
	return len(b.Data)
}

// Duration returns the playback duration of the buffer.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Samples()) * time.Second / time.Duration(b.SampleRate)
}
