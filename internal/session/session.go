package session

import (
	"context"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/saintzema/ai-voice-call-agent/internal/audio"
	"github.com/saintzema/ai-voice-call-agent/internal/extract"
	"github.com/saintzema/ai-voice-call-agent/internal/media"
	"github.com/saintzema/ai-voice-call-agent/internal/metrics"
	"github.com/saintzema/ai-voice-call-agent/internal/speech"
)

// Phase is the lifecycle stage of one call session. Phases only advance
// forward; an external disconnect forces Done from any phase.
type Phase int

const (
	PhaseGreeting Phase = iota
	PhaseAwaitingSpeech
	PhaseResponding
	PhaseDone
)

// String returns the phase name for logs and monitoring.
func (p Phase) String() string {
	switch p {
	case PhaseGreeting:
		return "greeting"
	case PhaseAwaitingSpeech:
		return "awaiting_speech"
	case PhaseResponding:
		return "responding"
	case PhaseDone:
		return "done"
	}
	return "unknown"
}

// Config holds the per-session timing and persistence parameters.
type Config struct {
	SampleRate    int
	ReplyCooldown time.Duration
	GreetingDelay time.Duration
	RecordDir     string
}

// closingRe detects a reply that ends the conversation.
var closingRe = regexp.MustCompile(`(?i)\b(goodbye|bye)\b`)

// TranscriptEntry is one spoken line, caller or agent.
type TranscriptEntry struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session is the state of one active call. All mutation happens on the
// session's own event loop goroutine; the mutex only protects the
// monitoring snapshot taken by other goroutines.
type Session struct {
	ID        string
	StreamSid string
	CallSid   string
	StartTime time.Time

	config  Config
	stages  speech.Stages
	pacer   *media.Pacer
	assets  *audio.Assets
	metrics *metrics.Metrics
	logger  *slog.Logger

	events   chan *media.Event
	turnDone chan turnResult
	closed   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	// Event-loop-owned state.
	phase      Phase
	pending    []byte // buffered inbound mu-law audio
	lastTurnAt time.Time
	fields     extract.Fields
	transcript []TranscriptEntry
	framesSent int
	onFinalize func(*Session)

	mu           sync.RWMutex
	lastActivity time.Time
}

// turnResult is posted back to the event loop when a turn's pipeline and
// playback have finished.
type turnResult struct {
	utterance string
	reply     string
	fields    extract.Fields
	frames    int
	elapsed   time.Duration
	spoke     bool
}

// New creates a session and starts its event loop. onFinalize runs once
// on the loop goroutine after the record is persisted.
func New(id string, cfg Config, stages speech.Stages, pacer *media.Pacer,
	assets *audio.Assets, m *metrics.Metrics, logger *slog.Logger,
	onFinalize func(*Session)) *Session {

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()

	s := &Session{
		ID:           id,
		StartTime:    now,
		config:       cfg,
		stages:       stages,
		pacer:        pacer,
		assets:       assets,
		metrics:      m,
		logger:       logger.With(slog.String("session_id", id)),
		events:       make(chan *media.Event, 64),
		turnDone:     make(chan turnResult, 1),
		closed:       make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
		phase:        PhaseGreeting,
		lastActivity: now,
		onFinalize:   onFinalize,
	}

	go s.run()
	return s
}

// HandleEvent queues one inbound media stream event. Events arriving
// after the session closed are dropped.
func (s *Session) HandleEvent(ev *media.Event) {
	select {
	case s.events <- ev:
	case <-s.closed:
	}
}

// Close force-finalizes the session, cancelling any in-flight turn. Safe
// to call more than once; used when the transport drops without a stop
// event.
func (s *Session) Close() {
	s.HandleEvent(&media.Event{Event: media.EventStop})
}

// Done is closed once the session has been finalized.
func (s *Session) Done() <-chan struct{} {
	return s.closed
}

// run is the session event loop. It owns all session state: inbound
// events, the greeting timer and turn completions are serialized here.
func (s *Session) run() {
	defer close(s.closed)
	defer s.cancel()

	var greetTimer *time.Timer
	var greetC <-chan time.Time

	for {
		select {
		case <-s.ctx.Done():
			s.finalize()
			return

		case <-greetC:
			greetC = nil
			s.playPrompt(s.assets.Greeting)

		case res := <-s.turnDone:
			s.completeTurn(res)
			if s.phase == PhaseDone {
				s.finalize()
				return
			}

		case ev := <-s.events:
			switch ev.Event {
			case media.EventStart:
				if s.phase != PhaseGreeting {
					s.logger.Warn("Ignoring duplicate start event",
						slog.String("stream_sid", ev.StreamSid))
					continue
				}
				s.handleStart(ev)
				greetTimer = time.NewTimer(s.config.GreetingDelay)
				greetC = greetTimer.C

			case media.EventMedia:
				s.handleMedia(ev)

			case media.EventStop:
				if greetTimer != nil {
					greetTimer.Stop()
				}
				s.setPhase(PhaseDone)
				s.cancel() // abort any in-flight turn
				s.finalize()
				return
			}
		}
	}
}

// handleStart captures the call identifiers and moves straight to
// awaiting speech; greeting playback is asynchronous.
func (s *Session) handleStart(ev *media.Event) {
	s.StreamSid = ev.StreamSid
	if ev.Start != nil {
		s.CallSid = ev.Start.CallSid
	}
	s.touch()
	s.metrics.RecordCallStarted()

	s.logger.Info("Call started",
		slog.String("stream_sid", s.StreamSid),
		slog.String("call_sid", s.CallSid),
	)

	s.setPhase(PhaseAwaitingSpeech)
}

// handleMedia buffers inbound audio and starts a turn when the session
// is listening and the inter-reply cooldown has elapsed. There is no
// voice activity detection: the fixed cooldown is the documented
// turn-taking heuristic.
func (s *Session) handleMedia(ev *media.Event) {
	s.touch()
	s.metrics.RecordEventReceived()

	chunk, err := ev.AudioChunk()
	if err != nil {
		s.metrics.RecordEventError()
		s.logger.Warn("Dropping undecodable media payload", slog.String("error", err.Error()))
		return
	}
	s.pending = append(s.pending, chunk...)
	s.metrics.RecordFrameReceived()

	if s.phase != PhaseAwaitingSpeech {
		s.metrics.RecordTurnSuppressed()
		return
	}
	if !s.lastTurnAt.IsZero() && time.Since(s.lastTurnAt) < s.config.ReplyCooldown {
		s.metrics.RecordTurnSuppressed()
		return
	}
	if len(s.pending) == 0 {
		return
	}

	s.startTurn()
}

// startTurn snapshots the buffered audio and extracted fields, flips the
// session to Responding and runs the speech pipeline off-loop. Exactly
// one turn can be in flight because only this transition leaves
// AwaitingSpeech.
func (s *Session) startTurn() {
	buffered := s.pending
	s.pending = nil
	s.lastTurnAt = time.Now()
	fieldsSnapshot := s.fields
	streamSid := s.StreamSid

	s.setPhase(PhaseResponding)
	s.metrics.RecordTurnStarted()

	go func() {
		start := time.Now()
		res := s.runPipeline(streamSid, buffered, fieldsSnapshot)
		res.elapsed = time.Since(start)

		select {
		case s.turnDone <- res:
		case <-s.closed:
		}
	}()
}

// runPipeline executes transcribe, extract, generate, synthesize and
// playback for one turn. Every stage degrades instead of failing, so
// the result is always usable.
func (s *Session) runPipeline(streamSid string, mulaw []byte, fields extract.Fields) turnResult {
	pcm := audio.DecodeMulaw(mulaw)

	utterance := s.stages.Transcribe(s.ctx, pcm, s.config.SampleRate)
	if utterance == "" {
		s.metrics.RecordStageFailure("transcription")
		return turnResult{fields: fields}
	}

	updated := extract.Update(fields, utterance)

	reply := s.stages.GenerateReply(s.ctx, speech.BuildPrompt(updated, utterance))
	if reply == speech.FallbackReply {
		s.metrics.RecordStageFailure("generation")
		s.metrics.RecordFallbackReply()
	}

	buf := s.stages.Synthesize(s.ctx, reply)
	if buf.Empty() {
		s.metrics.RecordStageFailure("synthesis")
	}

	frames, err := s.pacer.Play(s.ctx, streamSid, buf)
	if err != nil {
		s.logger.Warn("Playback interrupted",
			slog.Int("frames_sent", frames),
			slog.String("error", err.Error()),
		)
	}
	s.metrics.RecordFramesSent(frames)

	return turnResult{
		utterance: utterance,
		reply:     reply,
		fields:    updated,
		frames:    frames,
		spoke:     true,
	}
}

// completeTurn folds a finished turn back into session state and returns
// the session to listening, or marks it done on a closing reply.
func (s *Session) completeTurn(res turnResult) {
	s.metrics.RecordTurnCompleted(res.elapsed.Seconds())
	s.framesSent += res.frames

	if !res.spoke {
		// Nothing was recognized; nudge the caller and listen again.
		// The followup counts as an outbound utterance, so the cooldown
		// restarts here too or a silent line would trigger a turn per
		// media event.
		s.lastTurnAt = time.Now()
		s.playPrompt(s.assets.Followup)
		s.setPhase(PhaseAwaitingSpeech)
		return
	}

	now := time.Now()
	s.mu.Lock()
	s.fields = res.fields
	s.transcript = append(s.transcript,
		TranscriptEntry{Role: "caller", Text: res.utterance, At: now},
		TranscriptEntry{Role: "agent", Text: res.reply, At: now},
	)
	s.mu.Unlock()
	s.lastTurnAt = now

	s.logger.Info("Turn completed",
		slog.String("utterance", res.utterance),
		slog.String("reply", res.reply),
		slog.Int("frames_sent", res.frames),
		slog.Duration("elapsed", res.elapsed),
	)

	if closingRe.MatchString(res.reply) {
		s.setPhase(PhaseDone)
		return
	}
	s.setPhase(PhaseAwaitingSpeech)
}

// playPrompt streams a pre-recorded asset. Playback runs off-loop so a
// long prompt does not delay inbound event handling.
func (s *Session) playPrompt(buf audio.Buffer) {
	if buf.Empty() {
		return
	}
	streamSid := s.StreamSid

	go func() {
		frames, err := s.pacer.Play(s.ctx, streamSid, buf)
		if err != nil {
			s.logger.Debug("Prompt playback interrupted", slog.String("error", err.Error()))
		}
		s.metrics.RecordFramesSent(frames)
	}()
}

// finalize persists the call record and reports terminal metrics. Runs
// exactly once, on the event loop goroutine.
func (s *Session) finalize() {
	s.setPhase(PhaseDone)

	duration := time.Since(s.StartTime)
	s.metrics.RecordCallCompleted(duration.Seconds())

	if s.CallSid != "" {
		if err := WriteRecord(s.config.RecordDir, s.record()); err != nil {
			s.metrics.RecordRecordFailure()
			s.logger.Error("Failed to persist call record",
				slog.String("call_sid", s.CallSid),
				slog.String("error", err.Error()),
			)
		} else {
			s.metrics.RecordRecordWritten()
		}
	}

	s.logger.Info("Call finished",
		slog.String("call_sid", s.CallSid),
		slog.Duration("duration", duration),
		slog.Int("transcript_entries", len(s.transcript)),
		slog.Int("frames_sent", s.framesSent),
	)

	if s.onFinalize != nil {
		s.onFinalize(s)
	}
}

// record builds the durable call record from session state.
func (s *Session) record() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Record{
		CallSid:         s.CallSid,
		StreamSid:       s.StreamSid,
		StartedAt:       s.StartTime,
		EndedAt:         time.Now(),
		Transcript:      s.transcript,
		ExtractedFields: s.fields,
	}
}

// setPhase moves the session to p. Done is terminal: the turn loop
// cycles between AwaitingSpeech and Responding, but nothing leaves Done.
func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	if s.phase != PhaseDone {
		s.phase = p
	}
	s.mu.Unlock()
}

// Phase returns the current phase for monitoring.
func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// LastActivity returns the time of the most recent inbound event.
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// Info returns a monitoring snapshot of the session.
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Info{
		SessionID:         s.ID,
		StreamSid:         s.StreamSid,
		CallSid:           s.CallSid,
		Phase:             s.phase.String(),
		StartTime:         s.StartTime,
		LastActivity:      s.lastActivity,
		Duration:          time.Since(s.StartTime),
		TranscriptEntries: len(s.transcript),
		ExtractedFields:   s.fields,
	}
}

// Info represents session information for monitoring and APIs.
type Info struct {
	SessionID         string         `json:"session_id"`
	StreamSid         string         `json:"stream_sid"`
	CallSid           string         `json:"call_sid"`
	Phase             string         `json:"phase"`
	StartTime         time.Time      `json:"start_time"`
	LastActivity      time.Time      `json:"last_activity"`
	Duration          time.Duration  `json:"duration"`
	TranscriptEntries int            `json:"transcript_entries"`
	ExtractedFields   extract.Fields `json:"extracted_fields"`
}
