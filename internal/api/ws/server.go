// Package ws exposes the streaming transcription protocol over a WebSocket
// endpoint. Each connection gets one session; the read loop is the single
// consumer of inbound frames, so session state is never mutated concurrently.
package ws

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"audio-transcription-service/internal/decode"
	"audio-transcription-service/internal/engine"
	"audio-transcription-service/internal/events"
	"audio-transcription-service/internal/observability/logging"
	"audio-transcription-service/internal/session"
)

// Handler upgrades HTTP requests to WebSocket transcription sessions.
type Handler struct {
	engine    engine.Engine
	decoder   *decode.Decoder
	publisher *events.Publisher
	cfg       session.Config
	upgrader  websocket.Upgrader
	logger    zerolog.Logger
}

// NewHandler creates the WebSocket handler. The engine may be nil when model
// initialization failed; sessions then report the error and close.
func NewHandler(eng engine.Engine, dec *decode.Decoder, pub *events.Publisher, cfg session.Config) *Handler {
	return &Handler{
		engine:    eng,
		decoder:   dec,
		publisher: pub,
		cfg:       cfg,
		upgrader: websocket.Upgrader{
			// The service sits behind its own origin; cross-origin browser
			// clients are allowed the same way the one-shot HTTP API is.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logging.WithComponent("ws"),
	}
}

// sender serializes outbound writes. Chunk processors emit partials from
// their own goroutines while the read loop sends acks, so every write must
// take the mutex.
type sender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Send writes one JSON frame.
func (s *sender) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// ServeHTTP runs one streaming transcription session over the upgraded
// connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sess := session.New(h.engine, h.decoder, h.publisher, &sender{conn: conn}, h.cfg)
	if err := sess.Open(); err != nil {
		h.logger.Warn().Err(err).Str("sessionId", sess.ID).Msg("session rejected")
		return
	}

	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			// Abrupt disconnect is a normal termination: discard without
			// finalizing.
			sess.Discard()
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if done := sess.HandleMessage(r.Context(), raw); done {
			return
		}
	}
}
