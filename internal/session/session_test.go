package session

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/saintzema/ai-voice-call-agent/internal/audio"
	"github.com/saintzema/ai-voice-call-agent/internal/media"
	"github.com/saintzema/ai-voice-call-agent/internal/metrics"
	"github.com/saintzema/ai-voice-call-agent/internal/speech"
)

// Shared across the package: promauto metrics register globally and can
// only be created once per process.
var testMetrics = metrics.NewMetrics()

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubStages is a scriptable speech pipeline.
type stubStages struct {
	transcribeText  string
	reply           string
	replyAudio      audio.Buffer
	transcribeCalls atomic.Int32
	blockTranscribe chan struct{} // if set, Transcribe waits for it
}

func (s *stubStages) Transcribe(ctx context.Context, pcm []int16, rate int) string {
	s.transcribeCalls.Add(1)
	if s.blockTranscribe != nil {
		select {
		case <-s.blockTranscribe:
		case <-ctx.Done():
			return ""
		}
	}
	return s.transcribeText
}

func (s *stubStages) GenerateReply(ctx context.Context, prompt string) string {
	return s.reply
}

func (s *stubStages) Synthesize(ctx context.Context, text string) audio.Buffer {
	return s.replyAudio
}

// captureSender records outbound frames.
type captureSender struct {
	mu     sync.Mutex
	frames [][]byte
}

func (c *captureSender) SendMedia(streamSid string, frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frame)
	return nil
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func emptyAssets() *audio.Assets {
	return &audio.Assets{
		Greeting: audio.Buffer{Encoding: audio.EncodingMulaw, SampleRate: 8000},
		Followup: audio.Buffer{Encoding: audio.EncodingMulaw, SampleRate: 8000},
	}
}

func startEvent(callSid string) *media.Event {
	return &media.Event{
		Event:     media.EventStart,
		StreamSid: "MZ" + callSid,
		Start:     &media.StartPayload{CallSid: callSid, StreamSid: "MZ" + callSid},
	}
}

func mediaEvent(chunk []byte) *media.Event {
	return &media.Event{
		Event: media.EventMedia,
		Media: &media.MediaPayload{Payload: base64.StdEncoding.EncodeToString(chunk)},
	}
}

func newTestSession(t *testing.T, cfg Config, stages speech.Stages, sender media.Sender) *Session {
	t.Helper()
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 8000
	}
	if cfg.RecordDir == "" {
		cfg.RecordDir = t.TempDir()
	}
	pacer := media.NewPacer(sender, media.DefaultFrameBytes, cfg.SampleRate, testLogger())
	return New("test-session", cfg, stages, pacer, emptyAssets(), testMetrics, testLogger(), nil)
}

func waitForPhase(t *testing.T, s *Session, want Phase) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s.Phase() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Session never reached phase %v, stuck at %v", want, s.Phase())
}

func TestEndToEndScenario(t *testing.T) {
	recordDir := t.TempDir()
	replyBytes := 16000 // 2 seconds of mu-law at 8 kHz

	stages := &stubStages{
		transcribeText: "2 x burger, I'm Sam",
		reply:          "Got it, anything else?",
		replyAudio: audio.Buffer{
			Data:       make([]byte, replyBytes),
			Encoding:   audio.EncodingMulaw,
			SampleRate: 8000,
		},
	}
	sender := &captureSender{}

	s := newTestSession(t, Config{
		ReplyCooldown: 5 * time.Second,
		GreetingDelay: time.Millisecond,
		RecordDir:     recordDir,
	}, stages, sender)

	s.HandleEvent(startEvent("CA1"))
	chunk := make([]byte, 1280)
	for i := 0; i < 5; i++ {
		s.HandleEvent(mediaEvent(chunk))
	}

	// One turn runs; the remaining media events fall inside the reply
	// cooldown and must not start another.
	waitForPhase(t, s, PhaseResponding)
	waitForPhase(t, s, PhaseAwaitingSpeech)

	s.HandleEvent(&media.Event{Event: media.EventStop})
	<-s.Done()

	wantFrames := media.FrameCount(replyBytes, media.DefaultFrameBytes)
	if got := sender.count(); got != wantFrames {
		t.Errorf("Outbound frames = %d, want %d", got, wantFrames)
	}
	if got := stages.transcribeCalls.Load(); got != 1 {
		t.Errorf("Transcribe calls = %d, want 1", got)
	}

	rec, err := ReadRecord(recordDir, "CA1")
	if err != nil {
		t.Fatalf("Failed to read persisted record: %v", err)
	}
	if rec.ExtractedFields.Name != "Sam" {
		t.Errorf("Name = %q, want Sam", rec.ExtractedFields.Name)
	}
	if len(rec.ExtractedFields.Items) != 1 || rec.ExtractedFields.Items[0] != "2x burger" {
		t.Errorf("Items = %v, want [2x burger]", rec.ExtractedFields.Items)
	}
	if len(rec.Transcript) != 2 {
		t.Fatalf("Transcript entries = %d, want 2", len(rec.Transcript))
	}
	if rec.Transcript[0].Role != "caller" || rec.Transcript[1].Role != "agent" {
		t.Errorf("Transcript roles = %s, %s", rec.Transcript[0].Role, rec.Transcript[1].Role)
	}
	if rec.Transcript[1].Text != "Got it, anything else?" {
		t.Errorf("Agent text = %q", rec.Transcript[1].Text)
	}
}

func TestTurnGuard(t *testing.T) {
	release := make(chan struct{})
	stages := &stubStages{
		transcribeText:  "hello",
		reply:           "hi there",
		replyAudio:      audio.Buffer{Encoding: audio.EncodingMulaw, SampleRate: 8000},
		blockTranscribe: release,
	}
	sender := &captureSender{}

	s := newTestSession(t, Config{
		ReplyCooldown: time.Minute,
		GreetingDelay: time.Millisecond,
	}, stages, sender)
	defer func() { s.Close(); <-s.Done() }()

	s.HandleEvent(startEvent("CA2"))
	chunk := make([]byte, 160)
	s.HandleEvent(mediaEvent(chunk))
	waitForPhase(t, s, PhaseResponding)

	// Flood the session while a turn is in flight.
	for i := 0; i < 20; i++ {
		s.HandleEvent(mediaEvent(chunk))
	}
	time.Sleep(20 * time.Millisecond)

	if got := stages.transcribeCalls.Load(); got != 1 {
		t.Fatalf("Concurrent turns started: %d Transcribe calls", got)
	}

	close(release)
	waitForPhase(t, s, PhaseAwaitingSpeech)
}

func TestFallbackReplyStillReachesAwaitingSpeech(t *testing.T) {
	recordDir := t.TempDir()
	stages := &stubStages{
		transcribeText: "anyone there",
		reply:          speech.FallbackReply,
		replyAudio:     audio.Buffer{Encoding: audio.EncodingMulaw, SampleRate: 8000},
	}
	sender := &captureSender{}

	s := newTestSession(t, Config{
		ReplyCooldown: time.Minute,
		GreetingDelay: time.Millisecond,
		RecordDir:     recordDir,
	}, stages, sender)

	s.HandleEvent(startEvent("CA3"))
	s.HandleEvent(mediaEvent(make([]byte, 160)))
	waitForPhase(t, s, PhaseAwaitingSpeech)

	s.HandleEvent(&media.Event{Event: media.EventStop})
	<-s.Done()

	rec, err := ReadRecord(recordDir, "CA3")
	if err != nil {
		t.Fatalf("Failed to read record: %v", err)
	}
	if len(rec.Transcript) != 2 || rec.Transcript[1].Text != speech.FallbackReply {
		t.Errorf("Expected fallback sentence in transcript, got %+v", rec.Transcript)
	}
}

func TestEmptyTranscriptionSkipsReply(t *testing.T) {
	stages := &stubStages{
		transcribeText: "",
		reply:          "should never be spoken",
		replyAudio:     audio.Buffer{Data: make([]byte, 1600), Encoding: audio.EncodingMulaw, SampleRate: 8000},
	}
	sender := &captureSender{}

	s := newTestSession(t, Config{
		ReplyCooldown: time.Minute,
		GreetingDelay: time.Millisecond,
	}, stages, sender)
	defer func() { s.Close(); <-s.Done() }()

	s.HandleEvent(startEvent("CA4"))
	s.HandleEvent(mediaEvent(make([]byte, 160)))
	waitForPhase(t, s, PhaseAwaitingSpeech)
	time.Sleep(20 * time.Millisecond)

	if got := sender.count(); got != 0 {
		t.Errorf("Unrecognized speech must not produce audio, sent %d frames", got)
	}
}

func TestSilentCallerStaysRateLimited(t *testing.T) {
	release := make(chan struct{})
	stages := &stubStages{
		transcribeText:  "",
		reply:           "should never be spoken",
		replyAudio:      audio.Buffer{Encoding: audio.EncodingMulaw, SampleRate: 8000},
		blockTranscribe: release,
	}
	sender := &captureSender{}

	s := newTestSession(t, Config{
		ReplyCooldown: time.Minute,
		GreetingDelay: time.Millisecond,
	}, stages, sender)
	defer func() { s.Close(); <-s.Done() }()

	s.HandleEvent(startEvent("CA7"))
	s.HandleEvent(mediaEvent(make([]byte, 160)))
	waitForPhase(t, s, PhaseResponding)
	close(release)
	waitForPhase(t, s, PhaseAwaitingSpeech)

	// The followup is an agent utterance too: media arriving right after
	// an unrecognized turn is still inside the cooldown and must not
	// trigger transcription per inbound frame.
	for i := 0; i < 20; i++ {
		s.HandleEvent(mediaEvent(make([]byte, 160)))
	}
	time.Sleep(20 * time.Millisecond)

	if got := stages.transcribeCalls.Load(); got != 1 {
		t.Errorf("Transcribe calls = %d, want 1 (cooldown must survive an empty turn)", got)
	}
}

func TestDuplicateStartIgnored(t *testing.T) {
	release := make(chan struct{})
	stages := &stubStages{
		transcribeText:  "hello",
		reply:           "hi there",
		replyAudio:      audio.Buffer{Encoding: audio.EncodingMulaw, SampleRate: 8000},
		blockTranscribe: release,
	}
	sender := &captureSender{}

	s := newTestSession(t, Config{
		ReplyCooldown: time.Minute,
		GreetingDelay: time.Millisecond,
	}, stages, sender)
	defer func() { s.Close(); <-s.Done() }()

	s.HandleEvent(startEvent("CA8"))
	s.HandleEvent(mediaEvent(make([]byte, 160)))
	waitForPhase(t, s, PhaseResponding)

	// A replayed start event must not re-open the listening phase while
	// a turn is in flight.
	s.HandleEvent(startEvent("CA8"))
	s.HandleEvent(mediaEvent(make([]byte, 160)))
	time.Sleep(20 * time.Millisecond)

	if got := s.Phase(); got != PhaseResponding {
		t.Errorf("Phase = %v, want Responding", got)
	}
	if got := stages.transcribeCalls.Load(); got != 1 {
		t.Errorf("Transcribe calls = %d, want 1", got)
	}

	close(release)
	waitForPhase(t, s, PhaseAwaitingSpeech)
}

func TestClosingReplyEndsSession(t *testing.T) {
	recordDir := t.TempDir()
	stages := &stubStages{
		transcribeText: "that's all, thanks",
		reply:          "Thanks for calling, goodbye!",
		replyAudio:     audio.Buffer{Encoding: audio.EncodingMulaw, SampleRate: 8000},
	}
	sender := &captureSender{}

	s := newTestSession(t, Config{
		ReplyCooldown: time.Minute,
		GreetingDelay: time.Millisecond,
		RecordDir:     recordDir,
	}, stages, sender)

	s.HandleEvent(startEvent("CA5"))
	s.HandleEvent(mediaEvent(make([]byte, 160)))

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Session did not finish after a closing reply")
	}

	if s.Phase() != PhaseDone {
		t.Errorf("Phase = %v, want Done", s.Phase())
	}
	if _, err := ReadRecord(recordDir, "CA5"); err != nil {
		t.Errorf("Record not persisted after closing reply: %v", err)
	}
}

func TestStopCancelsInflightTurn(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	stages := &stubStages{
		transcribeText:  "hello",
		reply:           "hi",
		replyAudio:      audio.Buffer{Encoding: audio.EncodingMulaw, SampleRate: 8000},
		blockTranscribe: release,
	}
	sender := &captureSender{}

	s := newTestSession(t, Config{
		ReplyCooldown: time.Minute,
		GreetingDelay: time.Millisecond,
	}, stages, sender)

	s.HandleEvent(startEvent("CA6"))
	s.HandleEvent(mediaEvent(make([]byte, 160)))
	waitForPhase(t, s, PhaseResponding)

	s.HandleEvent(&media.Event{Event: media.EventStop})

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not finalize the session while a turn was in flight")
	}
}
