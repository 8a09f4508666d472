package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
)

// Call outcomes that warrant a follow-up text to the caller.
var missedCallStatuses = map[string]bool{
	"no-answer": true,
	"busy":      true,
	"failed":    true,
}

// minAnsweredSeconds is the shortest call treated as a real
// conversation; anything shorter gets the follow-up as well.
const minAnsweredSeconds = 10

// handleVoice answers the inbound-call webhook with the call-control
// document that bridges the caller onto the media stream.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	host := s.config.Server.PublicHost
	if host == "" {
		host = r.Host
	}

	doc, err := VoiceResponse(host)
	if err != nil {
		s.logger.Error("Failed to render voice response", slog.String("error", err.Error()))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.logger.Info("Answering inbound call",
		slog.String("call_sid", r.FormValue("CallSid")),
		slog.String("from", r.FormValue("From")),
		slog.String("media_host", host),
	)

	w.Header().Set("Content-Type", "text/xml")
	w.Write(doc)
}

// handleStatus receives call status callbacks and sends a follow-up SMS
// for calls that never became a conversation.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed status callback", http.StatusBadRequest)
		return
	}

	callSid := r.PostFormValue("CallSid")
	status := r.PostFormValue("CallStatus")
	caller := r.PostFormValue("From")
	duration, _ := strconv.Atoi(r.PostFormValue("CallDuration"))

	s.logger.Info("Call status update",
		slog.String("call_sid", callSid),
		slog.String("status", status),
		slog.Int("duration", duration),
	)

	if s.shouldFollowUp(status, duration) {
		s.sendFollowUp(r.Context(), callSid, caller)
	}

	w.WriteHeader(http.StatusNoContent)
}

// shouldFollowUp decides whether a finished call needs the missed-call
// text.
func (s *Server) shouldFollowUp(status string, duration int) bool {
	if missedCallStatuses[status] {
		return true
	}
	return status == "completed" && duration < minAnsweredSeconds
}

// sendFollowUp texts the caller, falling back to the verified number
// when the caller's number is unavailable.
func (s *Server) sendFollowUp(ctx context.Context, callSid, caller string) {
	if !s.twilioClient.Enabled() {
		s.logger.Debug("SMS follow-up skipped, client not configured",
			slog.String("call_sid", callSid),
		)
		return
	}

	to := caller
	if to == "" {
		to = s.config.Twilio.VerifiedNumber
	}
	if to == "" {
		return
	}

	const body = "Sorry we missed you. Reply here or call back any time and we'll pick up where we left off."

	msg, err := s.twilioClient.SendSMS(ctx, to, body)
	if err != nil {
		s.metrics.RecordSMSFailure()
		s.logger.Warn("Follow-up SMS failed",
			slog.String("call_sid", callSid),
			slog.String("to", to),
			slog.String("error", err.Error()),
		)
		return
	}

	s.metrics.RecordSMSSent()
	s.logger.Info("Follow-up SMS sent",
		slog.String("call_sid", callSid),
		slog.String("to", to),
		slog.String("message_sid", msg.SID),
	)
}
