// Package session owns the lifecycle of one telephone call: it consumes
// the inbound media event stream, decides when to take a conversational
// turn, drives the speech pipeline and outbound playback, and persists a
// transcript record when the call ends. Each session is serviced by a
// single goroutine with an internal event queue, so turn-taking needs no
// locks: the phase field alone guards against overlapping turns.
package session
