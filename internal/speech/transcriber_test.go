package speech

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTranscribeSuccess(t *testing.T) {
	var gotAuth, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("Failed to parse multipart form: %v", err)
		}
		if r.FormValue("model") == "" {
			t.Error("Missing model field")
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Missing file field: %v", err)
		} else {
			file.Close()
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "two burgers please"}`))
	}))
	defer server.Close()

	tr := NewTranscriber(TranscriberConfig{
		Endpoint: server.URL,
		APIKey:   "test-key",
	}, testLogger())

	pcm := make([]int16, 800)
	got := tr.Transcribe(context.Background(), pcm, 8000)
	if got != "two burgers please" {
		t.Errorf("Transcribe = %q, want %q", got, "two burgers please")
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if !strings.HasPrefix(gotContentType, "multipart/form-data") {
		t.Errorf("Content-Type = %q", gotContentType)
	}
}

func TestTranscribeFailuresReturnEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "internal error", http.StatusInternalServerError)
		}},
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad key", http.StatusUnauthorized)
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			tr := NewTranscriber(TranscriberConfig{
				Endpoint: server.URL,
				APIKey:   "test-key",
			}, testLogger())

			if got := tr.Transcribe(context.Background(), make([]int16, 160), 8000); got != "" {
				t.Errorf("Expected empty string on failure, got %q", got)
			}
		})
	}
}

func TestTranscribeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"text": "too late"}`))
	}))
	defer server.Close()

	tr := NewTranscriber(TranscriberConfig{
		Endpoint: server.URL,
		APIKey:   "test-key",
		Timeout:  20 * time.Millisecond,
	}, testLogger())

	if got := tr.Transcribe(context.Background(), make([]int16, 160), 8000); got != "" {
		t.Errorf("Expected empty string on timeout, got %q", got)
	}
}

func TestTranscribeUnconfigured(t *testing.T) {
	tr := NewTranscriber(TranscriberConfig{}, testLogger())
	if got := tr.Transcribe(context.Background(), make([]int16, 160), 8000); got != "" {
		t.Errorf("Expected empty string without configuration, got %q", got)
	}
}

func TestTranscribeEmptyAudio(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	tr := NewTranscriber(TranscriberConfig{Endpoint: server.URL, APIKey: "k"}, testLogger())
	if got := tr.Transcribe(context.Background(), nil, 8000); got != "" {
		t.Errorf("Expected empty string for empty audio, got %q", got)
	}
	if called {
		t.Error("Empty audio must not reach the recognition service")
	}
}
