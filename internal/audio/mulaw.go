package audio

// G.711 µ-law companding constants.
const (
	// MulawBias is the bias added to the magnitude before segment lookup.
	MulawBias = 0x84
	// MulawClip is the maximum magnitude representable after biasing.
	MulawClip = 32635
)

// DecodeMulaw converts 8-bit µ-law samples to 16-bit linear PCM.
// One input byte yields one output sample.
func DecodeMulaw(data []byte) []int16 {
	samples := make([]int16, len(data))
	for i, b := range data {
		u := ^b
		sign := u & 0x80
		exponent := (u >> 4) & 0x07
		mantissa := u & 0x0F

		value := ((int(mantissa) << 3) + MulawBias) << exponent
		value -= MulawBias

		if sign != 0 {
			samples[i] = int16(-value)
		} else {
			samples[i] = int16(value)
		}
	}
	return samples
}

// EncodeMulaw converts 16-bit linear PCM samples to 8-bit µ-law.
// Companding is lossy, but re-encoding a decoded buffer reproduces the
// original µ-law bytes exactly.
func EncodeMulaw(samples []int16) []byte {
	out := make([]byte, len(samples))
	for i, s := range samples {
		var sign byte
		value := int(s)
		if value < 0 {
			value = -value
			sign = 0x80
		}
		if value > MulawClip {
			value = MulawClip
		}
		value += MulawBias

		// Segment is the position of the most significant set bit of the
		// biased magnitude; the mantissa is the four bits below it.
		exponent := 7
		for mask := 0x4000; exponent > 0 && value&mask == 0; exponent-- {
			mask >>= 1
		}
		mantissa := byte(value>>(uint(exponent)+3)) & 0x0F

		out[i] = ^(sign | byte(exponent)<<4 | mantissa)
	}
	return out
}

// QuantizationStep returns the µ-law quantization step size for the
// segment that the given linear sample falls into.
func QuantizationStep(sample int16) int {
	value := int(sample)
	if value < 0 {
		value = -value
	}
	if value > MulawClip {
		value = MulawClip
	}
	value += MulawBias

	exponent := 7
	for mask := 0x4000; exponent > 0 && value&mask == 0; exponent-- {
		mask >>= 1
	}
	return 1 << (uint(exponent) + 3)
}

// BytesToSamples converts little-endian 16-bit PCM bytes to samples.
// A trailing partial sample is truncated.
func BytesToSamples(data []byte) []int16 {
	n := len(data) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

// SamplesToBytes converts 16-bit PCM samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(uint16(s) >> 8)
	}
	return data
}
