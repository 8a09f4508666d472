// Package media implements the media-stream wire protocol and outbound
// frame pacing. It parses inbound start/media/stop events, splits µ-law
// buffers into fixed transport frames, and emits them at real playback
// cadence so the stream behaves as live audio rather than a burst.
package media
