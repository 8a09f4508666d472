package media

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Event names used on the media stream.
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventMark      = "mark"
	EventStop      = "stop"
)

// Event is one JSON message on the media stream. Unknown event names are
// carried through and ignored by the session engine.
type Event struct {
	Event     string        `json:"event"`
	StreamSid string        `json:"streamSid,omitempty"`
	Start     *StartPayload `json:"start,omitempty"`
	Media     *MediaPayload `json:"media,omitempty"`
	Stop      *StopPayload  `json:"stop,omitempty"`
}

// StartPayload carries the call identity for a new media stream.
type StartPayload struct {
	StreamSid    string            `json:"streamSid"`
	AccountSid   string            `json:"accountSid"`
	CallSid      string            `json:"callSid"`
	Tracks       []string          `json:"tracks,omitempty"`
	MediaFormat  MediaFormat       `json:"mediaFormat,omitempty"`
	CustomParams map[string]string `json:"customParameters,omitempty"`
}

// MediaFormat describes the audio encoding negotiated for the stream.
type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

// MediaPayload carries one chunk of base64-encoded µ-law audio.
type MediaPayload struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

// StopPayload carries the call identity on stream end.
type StopPayload struct {
	AccountSid string `json:"accountSid"`
	CallSid    string `json:"callSid"`
}

// ParseEvent decodes one inbound media-stream message.
func ParseEvent(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("failed to parse media event: %w", err)
	}
	return &ev, nil
}

// AudioChunk returns the decoded µ-law payload of a media event.
func (e *Event) AudioChunk() ([]byte, error) {
	if e.Media == nil || e.Media.Payload == "" {
		return nil, nil
	}
	chunk, err := base64.StdEncoding.DecodeString(e.Media.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode media payload: %w", err)
	}
	return chunk, nil
}

// MarshalMediaEvent builds the outbound media-event envelope for one
// frame of µ-law audio.
func MarshalMediaEvent(streamSid string, frame []byte) ([]byte, error) {
	ev := Event{
		Event:     EventMedia,
		StreamSid: streamSid,
		Media: &MediaPayload{
			Payload: base64.StdEncoding.EncodeToString(frame),
		},
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal media event: %w", err)
	}
	return data, nil
}
