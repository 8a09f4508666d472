package media

import (
	"bytes"
	"testing"
)

func TestFrameCountAndSizes(t *testing.T) {
	tests := []struct {
		name      string
		dataLen   int
		frameSize int
		want      int
		lastSize  int
	}{
		{"exact multiple", 2560, 1280, 2, 1280},
		{"with remainder", 3000, 1280, 3, 440},
		{"single short frame", 100, 1280, 1, 100},
		{"empty buffer", 0, 1280, 0, 0},
		{"one byte", 1, 1280, 1, 1},
		{"frame size one", 5, 1, 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, tt.dataLen)
			for i := range data {
				data[i] = byte(i)
			}

			if got := FrameCount(tt.dataLen, tt.frameSize); got != tt.want {
				t.Errorf("FrameCount = %d, want %d", got, tt.want)
			}

			var frames [][]byte
			for frame := range Frames(data, tt.frameSize) {
				frames = append(frames, frame)
			}

			if len(frames) != tt.want {
				t.Fatalf("Got %d frames, want %d", len(frames), tt.want)
			}
			for i, frame := range frames {
				wantSize := tt.frameSize
				if i == len(frames)-1 {
					wantSize = tt.lastSize
				}
				if len(frame) != wantSize {
					t.Errorf("Frame %d size %d, want %d", i, len(frame), wantSize)
				}
			}
		})
	}
}

func TestFramesConcatenationReproducesBuffer(t *testing.T) {
	data := make([]byte, 3333)
	for i := range data {
		data[i] = byte(i * 7)
	}

	var joined []byte
	for frame := range Frames(data, 256) {
		joined = append(joined, frame...)
	}

	if !bytes.Equal(joined, data) {
		t.Error("Concatenated frames do not reproduce the original buffer")
	}
}

func TestFramesRestartable(t *testing.T) {
	data := make([]byte, 1000)
	seq := Frames(data, 300)

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}

	if first, second := count(), count(); first != second || first != 4 {
		t.Errorf("Sequence not restartable: first pass %d frames, second %d", first, second)
	}
}

func TestFramesEarlyBreak(t *testing.T) {
	data := make([]byte, 1000)
	n := 0
	for range Frames(data, 100) {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Errorf("Expected 3 frames before break, got %d", n)
	}
}
