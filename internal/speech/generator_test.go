package speech

import (
	"context"
	"testing"
	"time"
)

func TestGenerateReplyMissingBinary(t *testing.T) {
	g := NewGenerator(GeneratorConfig{
		Binary:  "definitely-not-a-real-binary-xyz",
		Timeout: time.Second,
	}, testLogger())

	got := g.GenerateReply(context.Background(), "hello")
	if got != FallbackReply {
		t.Errorf("Expected fallback reply, got %q", got)
	}
}

func TestGenerateReplyTimeout(t *testing.T) {
	g := NewGenerator(GeneratorConfig{
		Binary:  "sleep",
		Model:   "5",
		Timeout: 50 * time.Millisecond,
	}, testLogger())

	start := time.Now()
	got := g.GenerateReply(context.Background(), "hello")
	elapsed := time.Since(start)

	if got != FallbackReply {
		t.Errorf("Expected fallback reply on timeout, got %q", got)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Timeout not enforced, took %v", elapsed)
	}
}

func TestGenerateReplyEmptyOutput(t *testing.T) {
	// A successful subprocess with no output still falls back.
	g := NewGenerator(GeneratorConfig{
		Binary:  "true",
		Timeout: time.Second,
	}, testLogger())

	got := g.GenerateReply(context.Background(), "hello")
	if got != FallbackReply {
		t.Errorf("Expected fallback for empty output, got %q", got)
	}
}

func TestGenerateReplyContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGenerator(GeneratorConfig{Binary: "sleep", Model: "5"}, testLogger())
	if got := g.GenerateReply(ctx, "hello"); got != FallbackReply {
		t.Errorf("Expected fallback on cancelled context, got %q", got)
	}
}
