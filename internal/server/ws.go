package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/saintzema/ai-voice-call-agent/internal/media"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The media stream originates from the telephony vendor, not a
	// browser, so origin checking does not apply.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSender adapts one WebSocket connection to the frame sender used by
// the pacer. The vendor requires every frame as a separate text message,
// and gorilla permits only one concurrent writer per connection.
type wsSender struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSender) SendMedia(streamSid string, frame []byte) error {
	payload, err := media.MarshalMediaEvent(streamSid, frame)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// handleMedia upgrades the connection and pumps inbound media stream
// events into a new call session until the stream or transport ends.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Media stream upgrade failed",
			slog.String("remote", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		return
	}
	defer conn.Close()

	sess := s.registry.CreateSession(&wsSender{conn: conn})
	defer func() {
		sess.Close()
		<-sess.Done()
	}()

	s.logger.Info("Media stream connected",
		slog.String("session_id", sess.ID),
		slog.String("remote", r.RemoteAddr),
	)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("Media stream read error",
					slog.String("session_id", sess.ID),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		ev, err := media.ParseEvent(data)
		if err != nil {
			s.metrics.RecordEventError()
			s.logger.Warn("Dropping malformed media stream message",
				slog.String("session_id", sess.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		switch ev.Event {
		case media.EventConnected, media.EventMark:
			// Transport chatter, nothing to do.
		case media.EventStart, media.EventMedia:
			sess.HandleEvent(ev)
		case media.EventStop:
			sess.HandleEvent(ev)
			return
		default:
			s.logger.Debug("Ignoring unknown media stream event",
				slog.String("event", ev.Event),
			)
		}
	}
}
