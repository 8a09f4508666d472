// Package audio handles telephony audio conversion and buffering.
// It implements G.711 µ-law companding to and from 16-bit linear PCM,
// WAV container wrapping for the external speech services, and loading
// of pre-recorded µ-law prompts with a generated tone fallback.
package audio
