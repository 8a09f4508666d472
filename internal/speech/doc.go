// Package speech orchestrates the external speech services for one
// conversational turn: transcription over HTTP, reply generation and
// speech synthesis via subprocesses. Every stage carries its own timeout
// and fails soft: a failed stage degrades to a defined default (empty
// text, a fixed acknowledgment, empty audio) and never terminates the
// call session.
package speech
