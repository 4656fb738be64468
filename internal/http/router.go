// Package http provides the service HTTP router: the synchronous one-shot
// transcription endpoint, the WebSocket mount and health endpoints.
package http

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"audio-transcription-service/internal/decode"
	"audio-transcription-service/internal/engine"
	"audio-transcription-service/internal/observability"
	"audio-transcription-service/internal/observability/logging"
)

// TranscriptionRequest is the body of POST /api/transcribe.
type TranscriptionRequest struct {
	AudioData  string `json:"audio_data"` // base64 encoded audio
	SampleRate int    `json:"sample_rate"`
	Format     string `json:"format"`
}

// TranscriptionResponse is the reply of POST /api/transcribe.
type TranscriptionResponse struct {
	Text   string `json:"text"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewRouter constructs the HTTP router for the service. wsHandler serves the
// streaming WebSocket endpoint; eng may be nil when model init failed.
func NewRouter(eng engine.Engine, dec *decode.Decoder, wsHandler http.Handler) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestLogger)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if eng == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("engine not initialized"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// Streaming endpoint
	r.Get("/ws/transcribe", wsHandler.ServeHTTP)

	// Synchronous one-shot transcription: same decode+transcribe path as the
	// streaming session, no chunking.
	r.Post("/api/transcribe", transcribeHandler(eng, dec))

	return r
}

func transcribeHandler(eng engine.Engine, dec *decode.Decoder) http.HandlerFunc {
	logger := logging.WithComponent("api")

	return func(w http.ResponseWriter, r *http.Request) {
		if eng == nil {
			writeJSON(w, http.StatusServiceUnavailable, TranscriptionResponse{
				Status: "error",
				Error:  "transcription engine not initialized",
			})
			return
		}

		var req TranscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, TranscriptionResponse{
				Status: "error",
				Error:  "invalid request body: " + err.Error(),
			})
			return
		}
		if req.Format == "" {
			req.Format = "wav"
		}
		if req.SampleRate == 0 {
			req.SampleRate = decode.CanonicalRate
		}

		payload, err := base64.StdEncoding.DecodeString(req.AudioData)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, TranscriptionResponse{
				Status: "error",
				Error:  "invalid base64 audio data: " + err.Error(),
			})
			return
		}

		start := time.Now()
		pcm, err := dec.Decode(r.Context(), payload, req.Format, req.SampleRate)
		if err != nil {
			writeJSON(w, http.StatusOK, TranscriptionResponse{
				Status: "error",
				Error:  err.Error(),
			})
			return
		}

		text, err := eng.Transcribe(r.Context(), pcm)
		if err != nil {
			logger.Error().Err(err).Msg("one-shot transcription failed")
			writeJSON(w, http.StatusOK, TranscriptionResponse{
				Status: "error",
				Error:  err.Error(),
			})
			return
		}

		logger.Info().
			Int("bytes", len(payload)).
			Dur("duration", time.Since(start)).
			Msg("one-shot transcription complete")
		writeJSON(w, http.StatusOK, TranscriptionResponse{
			Text:   text,
			Status: "success",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
