package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/saintzema/ai-voice-call-agent/internal/extract"
)

// Record is the durable result of one call: the full transcript plus the
// fields extracted from it, keyed by the call identifier.
type Record struct {
	CallSid         string            `json:"call_sid"`
	StreamSid       string            `json:"stream_sid,omitempty"`
	StartedAt       time.Time         `json:"started_at"`
	EndedAt         time.Time         `json:"ended_at"`
	Transcript      []TranscriptEntry `json:"transcript"`
	ExtractedFields extract.Fields    `json:"extracted_fields"`
}

// WriteRecord persists one call record as call-<sid>.json in dir. Each
// call writes exactly once, so there are no concurrent writers for the
// same identifier.
func WriteRecord(dir string, rec Record) error {
	if rec.CallSid == "" {
		return fmt.Errorf("record has no call identifier")
	}
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	path := filepath.Join(dir, RecordFilename(rec.CallSid))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write record %s: %w", path, err)
	}
	return nil
}

// ReadRecord loads a previously persisted call record.
func ReadRecord(dir, callSid string) (Record, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	data, err := os.ReadFile(filepath.Join(dir, RecordFilename(callSid)))
	if err != nil {
		return Record{}, fmt.Errorf("failed to read record for %s: %w", callSid, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to parse record for %s: %w", callSid, err)
	}
	return rec, nil
}

// RecordFilename returns the per-call record filename.
func RecordFilename(callSid string) string {
	return "call-" + callSid + ".json"
}
