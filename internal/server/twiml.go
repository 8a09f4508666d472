package server

import (
	"encoding/xml"
	"fmt"
)

// TwiML is the call-control document returned from the voice webhook.
// Element order in the struct is the order the vendor executes verbs.
type TwiML struct {
	XMLName xml.Name `xml:"Response"`
	Say     []Say    `xml:"Say,omitempty"`
	Pause   *Pause   `xml:"Pause,omitempty"`
	Connect *Connect `xml:"Connect,omitempty"`
}

// Say speaks text to the caller with the vendor's built-in voice.
type Say struct {
	Voice string `xml:"voice,attr,omitempty"`
	Text  string `xml:",chardata"`
}

// Pause waits before the next verb.
type Pause struct {
	Length int `xml:"length,attr"`
}

// Connect bridges the call to a bidirectional media stream.
type Connect struct {
	Stream Stream `xml:"Stream"`
}

// Stream names the WebSocket endpoint receiving the call audio.
type Stream struct {
	URL string `xml:"url,attr"`
}

// VoiceResponse renders the answer document for an inbound call: a
// short spoken intro, then the media stream bridge.
func VoiceResponse(publicHost string) ([]byte, error) {
	doc := TwiML{
		Say: []Say{
			{Voice: "alice", Text: "Please hold while we connect you."},
		},
		Pause: &Pause{Length: 1},
		Connect: &Connect{
			Stream: Stream{URL: fmt.Sprintf("wss://%s/media", publicHost)},
		},
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render call-control document: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
