// Stub recognition server for local development: accepts the same
// multipart request the agent sends to the real recognition API and
// answers with a canned transcription.
package main

import (
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"time"
)

type transcriptionResponse struct {
	Text string `json:"text"`
}

var cannedText = flag.String("text", "I'm Sam, I want to order 2 x burger",
	"Transcription returned for every request")

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	model := r.FormValue("model")
	language := r.FormValue("language")

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	log.Printf("Transcription request: file=%s size=%d model=%s language=%s",
		header.Filename, len(audioData), model, language)

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transcriptionResponse{Text: *cannedText})

	log.Printf("Transcription response sent: %q", *cannedText)
}

func main() {
	addr := flag.String("addr", ":9000", "Listen address")
	flag.Parse()

	http.HandleFunc("/v1/audio/transcriptions", transcribeHandler)

	log.Printf("Stub transcription server listening on %s", *addr)
	log.Printf("Point transcription.endpoint at http://localhost%s/v1/audio/transcriptions", *addr)

	if err := http.ListenAndServe(*addr, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
