package audio

import (
	"math"
	"testing"
)

func TestDecodeMulawLength(t *testing.T) {
	data := []byte{0x00, 0x7F, 0x80, 0xFF}
	samples := DecodeMulaw(data)
	if len(samples) != len(data) {
		t.Errorf("Expected %d samples, got %d", len(data), len(samples))
	}
}

func TestMulawSilence(t *testing.T) {
	samples := DecodeMulaw([]byte{mulawSilence})
	if samples[0] != 0 {
		t.Errorf("Expected 0xFF to decode to 0, got %d", samples[0])
	}
	encoded := EncodeMulaw([]int16{0})
	if encoded[0] != mulawSilence {
		t.Errorf("Expected 0 to encode to 0xFF, got 0x%02X", encoded[0])
	}
}

func TestMulawSignPreserved(t *testing.T) {
	tests := []struct {
		name   string
		sample int16
	}{
		{"small positive", 100},
		{"small negative", -100},
		{"large positive", 20000},
		{"large negative", -20000},
		{"max", 32767},
		{"min", -32768},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded := DecodeMulaw(EncodeMulaw([]int16{tt.sample}))[0]
			if tt.sample > 0 && decoded < 0 || tt.sample < 0 && decoded > 0 {
				t.Errorf("Sign not preserved: %d -> %d", tt.sample, decoded)
			}
		})
	}
}

func TestMulawRoundTripQuantization(t *testing.T) {
	// A full sweep over representable magnitudes: the round-trip error
	// must stay within one quantization step for the sample's segment.
	for s := -32000; s <= 32000; s += 17 {
		sample := int16(s)
		decoded := DecodeMulaw(EncodeMulaw([]int16{sample}))[0]

		diff := int(decoded) - int(sample)
		if diff < 0 {
			diff = -diff
		}
		if step := QuantizationStep(sample); diff > step {
			t.Fatalf("Sample %d decoded to %d: error %d exceeds quantization step %d",
				sample, decoded, diff, step)
		}
	}
}

func TestMulawFixedPointAfterOneRoundTrip(t *testing.T) {
	// Generate a sine sweep, run it through the codec twice: the second
	// pass must be lossless.
	samples := make([]int16, 8000)
	for i := range samples {
		samples[i] = int16(12000 * math.Sin(2*math.Pi*440*float64(i)/8000))
	}

	decoded := DecodeMulaw(EncodeMulaw(samples))
	again := DecodeMulaw(EncodeMulaw(decoded))

	if len(again) != len(decoded) {
		t.Fatalf("Expected %d samples, got %d", len(decoded), len(again))
	}
	for i := range again {
		if again[i] != decoded[i] {
			t.Fatalf("Second codec cycle differs at sample %d: %d != %d", i, again[i], decoded[i])
		}
	}
}

func TestBytesToSamplesTruncatesPartialSample(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05} // trailing odd byte
	samples := BytesToSamples(data)
	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(samples))
	}
	if samples[0] != 0x0201 || samples[1] != 0x0403 {
		t.Errorf("Little-endian decode wrong: got %d, %d", samples[0], samples[1])
	}
}

func TestSamplesToBytesRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 12345, -12345, 32767, -32768}
	got := BytesToSamples(SamplesToBytes(samples))
	if len(got) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(got))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("Sample %d: expected %d, got %d", i, samples[i], got[i])
		}
	}
}
