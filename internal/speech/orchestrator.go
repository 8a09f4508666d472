package speech

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/saintzema/ai-voice-call-agent/internal/audio"
	"github.com/saintzema/ai-voice-call-agent/internal/extract"
)

// Stages is the per-turn speech pipeline. Implementations never return
// errors: each stage degrades to a defined default on failure.
type Stages interface {
	Transcribe(ctx context.Context, pcm []int16, sampleRate int) string
	GenerateReply(ctx context.Context, prompt string) string
	Synthesize(ctx context.Context, text string) audio.Buffer
}

// Pipeline composes the three concrete stages.
type Pipeline struct {
	transcriber *Transcriber
	generator   *Generator
	synthesizer *Synthesizer
}

// NewPipeline wires the concrete stage implementations together.
func NewPipeline(t *Transcriber, g *Generator, s *Synthesizer) *Pipeline {
	return &Pipeline{transcriber: t, generator: g, synthesizer: s}
}

func (p *Pipeline) Transcribe(ctx context.Context, pcm []int16, sampleRate int) string {
	return p.transcriber.Transcribe(ctx, pcm, sampleRate)
}

func (p *Pipeline) GenerateReply(ctx context.Context, prompt string) string {
	return p.generator.GenerateReply(ctx, prompt)
}

func (p *Pipeline) Synthesize(ctx context.Context, text string) audio.Buffer {
	return p.synthesizer.Synthesize(ctx, text)
}

// BuildPrompt renders the generation prompt for one turn: a fixed
// persona, the slots collected so far and the caller's latest words.
func BuildPrompt(fields extract.Fields, utterance string) string {
	var b strings.Builder
	b.WriteString("You are a concise phone agent for a small business. ")
	b.WriteString("Reply in one or two short spoken sentences. ")
	b.WriteString("If the caller ordered items, confirm them. ")
	b.WriteString("Ask for missing details one at a time.\n")
	fmt.Fprintf(&b, "Known so far: %s\n", fields.Summary())
	fmt.Fprintf(&b, "Caller said: %s\n", utterance)
	return b.String()
}

// NewPipelineFromConfig builds the production pipeline.
func NewPipelineFromConfig(tc TranscriberConfig, gc GeneratorConfig, sc SynthesizerConfig, logger *slog.Logger) *Pipeline {
	return NewPipeline(
		NewTranscriber(tc, logger),
		NewGenerator(gc, logger),
		NewSynthesizer(sc, logger),
	)
}
