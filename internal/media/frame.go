package media

import "iter"

// DefaultFrameBytes is the transport's expected frame size: 1280 bytes of
// 8 kHz µ-law, about 160 ms of audio per frame.
const DefaultFrameBytes = 1280

// Frames splits a companded audio buffer into transport frames of the
// given size, in forward order. The last frame may be shorter. The
// returned sequence is finite and can be ranged over more than once.
func Frames(data []byte, size int) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		if size <= 0 {
			return
		}
		for start := 0; start < len(data); start += size {
			end := start + size
			if end > len(data) {
				end = len(data)
			}
			if !yield(data[start:end]) {
				return
			}
		}
	}
}

// FrameCount returns the number of frames Frames will produce.
func FrameCount(dataLen, size int) int {
	if size <= 0 || dataLen <= 0 {
		return 0
	}
	return (dataLen + size - 1) / size
}
