package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"audio-transcription-service/internal/decode"
	"audio-transcription-service/internal/engine"
	"audio-transcription-service/internal/events"
	"audio-transcription-service/internal/models"
	"audio-transcription-service/internal/observability/logging"
	"audio-transcription-service/internal/observability/metrics"
)

// ErrEngineNotReady is returned when a session is opened before the
// transcription engine was initialized.
var ErrEngineNotReady = errors.New("transcription engine not initialized")

// DefaultMinChunkBytes is the fragment size below which no chunk processing
// is spawned. Smaller fragments are never a valid standalone container and
// would only flood the logs with predictable decode failures.
const DefaultMinChunkBytes = 1000

// Sender delivers outbound protocol messages to the client. Implementations
// must be safe for concurrent use: chunk processors emit partials from their
// own goroutines.
type Sender interface {
	Send(v any) error
}

// Config holds per-session tunables.
type Config struct {
	MinChunkBytes int
}

// Session is the per-connection protocol state machine. It owns the ordered
// fragment list and the set of outstanding chunk-processing tasks. Inbound
// messages are handled sequentially by the connection's read loop; only the
// fragment append and task registration take the session mutex, and no lock
// is held across a transcription call.
type Session struct {
	ID string

	cfg        Config
	engine     engine.Engine
	decoder    *decode.Decoder
	reconciler *Reconciler
	publisher  *events.Publisher
	sender     Sender
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	lifecycle  *Lifecycle

	mu        sync.Mutex
	fragments []Fragment
	nextSeq   int

	tasks   sync.WaitGroup
	started time.Time
}

// New creates a session for one transport connection. The engine handle is
// process-wide and never mutated by the session.
func New(eng engine.Engine, dec *decode.Decoder, pub *events.Publisher, sender Sender, cfg Config) *Session {
	if cfg.MinChunkBytes <= 0 {
		cfg.MinChunkBytes = DefaultMinChunkBytes
	}
	id := uuid.NewString()
	return &Session{
		ID:         id,
		cfg:        cfg,
		engine:     eng,
		decoder:    dec,
		reconciler: NewReconciler(dec, eng),
		publisher:  pub,
		sender:     sender,
		metrics:    metrics.DefaultMetrics,
		logger:     logging.WithSession(id),
		lifecycle:  NewLifecycle(),
	}
}

// Open verifies the engine is available and transitions to STREAMING. When
// the engine is missing the client gets one error message and the session is
// closed immediately.
func (s *Session) Open() error {
	s.started = time.Now()
	if s.engine == nil {
		s.send(models.NewError("transcription engine not initialized"))
		s.lifecycle.Close()
		return ErrEngineNotReady
	}
	if err := s.lifecycle.Begin(); err != nil {
		return err
	}
	s.metrics.RecordSessionStart()
	s.logger.Info().Msg("session opened")
	return nil
}

// HandleMessage dispatches one inbound frame. It returns true when the
// session reached its terminal state and the connection should be closed.
// Malformed frames produce a non-fatal error message; the session stays open.
func (s *Session) HandleMessage(ctx context.Context, raw []byte) bool {
	if s.lifecycle.IsClosed() {
		return true
	}

	msg, err := models.ParseInbound(raw)
	if err != nil {
		s.logger.Warn().Err(err).Msg("rejected inbound message")
		s.send(models.NewError(err.Error()))
		return false
	}

	switch msg.Type {
	case models.TypeAudioChunk:
		s.handleChunk(ctx, msg)
		return false
	case models.TypeEnd:
		s.finalize(ctx)
		return true
	default:
		// ParseInbound already rejected unknown types.
		return false
	}
}

// Discard tears the session down without running finalization. Used on
// abrupt disconnect, which is a normal, non-error termination. In-flight
// chunk tasks are left to finish on their own; their results are dropped by
// the closed lifecycle.
func (s *Session) Discard() {
	if s.lifecycle.IsClosed() {
		return
	}
	s.lifecycle.Close()
	s.metrics.RecordSessionEnd(time.Since(s.started).Seconds())
	s.logger.Info().Msg("session discarded without finalizing")
}

// handleChunk appends the fragment, spawns a chunk processor when the
// payload is big enough, and always acknowledges receipt.
func (s *Session) handleChunk(ctx context.Context, msg models.Inbound) {
	payload, err := base64.StdEncoding.DecodeString(msg.Data)
	if err != nil {
		s.send(models.NewError(fmt.Sprintf("failed to decode audio chunk: %v", err)))
		return
	}
	if err := s.lifecycle.AcceptFragment(); err != nil {
		s.send(models.NewError(err.Error()))
		return
	}

	s.mu.Lock()
	s.nextSeq++
	frag := Fragment{
		Seq:        s.nextSeq,
		Data:       payload,
		Format:     msg.Format,
		SampleRate: msg.SampleRate,
	}
	s.fragments = append(s.fragments, frag)
	spawn := len(payload) >= s.cfg.MinChunkBytes
	if spawn {
		s.tasks.Add(1)
	}
	s.mu.Unlock()

	s.metrics.RecordFragment(len(payload))

	if spawn {
		go s.processChunk(ctx, frag)
	} else {
		s.metrics.RecordChunkSkipped()
		s.logger.Debug().
			Int("chunk", frag.Seq).
			Int("bytes", len(payload)).
			Msg("fragment below size threshold, skipping partial processing")
	}

	s.send(models.NewAck(frag.Seq))
}

// processChunk decodes and transcribes one fragment off the ingestion path
// and emits an advisory partial result. All failures here are logged and
// suppressed: most individual fragments are not valid standalone containers
// until enough data accumulates, so partial-chunk failure is the expected
// steady state of a live stream.
func (s *Session) processChunk(ctx context.Context, frag Fragment) {
	defer s.tasks.Done()

	chunkLog := logging.WithChunk(s.ID, frag.Seq)

	pcm, err := s.decoder.Decode(ctx, frag.Data, frag.Format, frag.SampleRate)
	if err != nil {
		if de, ok := decode.AsDecodeError(err); ok {
			s.metrics.RecordDecodeFailure(de.Kind.String())
			if de.Kind.Transient() {
				chunkLog.Debug().Err(err).Msg("chunk decode failed")
				return
			}
		}
		chunkLog.Warn().Err(err).Msg("chunk decode failed")
		return
	}

	start := time.Now()
	text, err := s.engine.Transcribe(ctx, pcm)
	s.metrics.RecordEngineCall(s.engine.Name(), "partial", err, time.Since(start).Seconds())
	if err != nil {
		chunkLog.Warn().Err(err).Msg("chunk transcription failed")
		return
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if err := s.lifecycle.EmitPartial(); err != nil {
		chunkLog.Debug().Err(err).Msg("dropping late partial")
		return
	}

	s.send(models.NewPartial(text, frag.Seq))
	s.metrics.RecordPartialTranscription()
	s.publishPartial(frag.Seq, text)
}

// finalize waits for every outstanding chunk task (collecting, not
// propagating, their outcomes), then runs the reconciler over the full
// fragment list. Failures in this path ARE surfaced: the final result is the
// one the caller depends on.
func (s *Session) finalize(ctx context.Context) {
	if err := s.lifecycle.BeginFinalize(); err != nil {
		s.logger.Warn().Err(err).Msg("finalize rejected")
		s.send(models.NewError(err.Error()))
		return
	}
	defer func() {
		s.lifecycle.Close()
		s.metrics.RecordSessionEnd(time.Since(s.started).Seconds())
	}()

	s.tasks.Wait()

	s.mu.Lock()
	fragments := make([]Fragment, len(s.fragments))
	copy(fragments, s.fragments)
	s.mu.Unlock()

	if len(fragments) == 0 {
		s.logger.Info().Msg("finalize with no audio")
		s.metrics.RecordFinalizeError()
		s.send(models.NewError(ErrEmptyAudio.Error()))
		return
	}

	s.send(models.NewProcessing("Processing final audio..."))

	text, err := s.reconciler.Reconcile(ctx, fragments)
	if err != nil {
		s.logger.Error().Err(err).Msg("final pass failed")
		s.metrics.RecordFinalizeError()
		s.send(models.NewError(fmt.Sprintf("Audio processing failed: %v", err)))
		return
	}

	if err := s.lifecycle.EmitFinal(); err != nil {
		s.logger.Error().Err(err).Msg("final emission rejected")
		return
	}

	s.send(models.NewFinal(text))
	s.metrics.RecordFinalTranscription()
	s.publishFinal(text, fragments)
	s.logger.Info().
		Int("fragments", len(fragments)).
		Dur("sessionDuration", time.Since(s.started)).
		Msg("session finalized")
}

// send delivers one outbound message, logging delivery failures. A failed
// write usually means the client went away; the read loop will observe the
// disconnect and discard the session.
func (s *Session) send(v any) {
	if err := s.sender.Send(v); err != nil {
		s.logger.Debug().Err(err).Msg("outbound send failed")
	}
}

func (s *Session) publishPartial(seq int, text string) {
	ev := models.TranscriptPartial{
		EventType: "session.transcript.partial",
		SessionID: s.ID,
		Chunk:     seq,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := s.publisher.PublishPartial(context.Background(), s.ID, ev); err != nil {
		s.logger.Warn().Err(err).Int("chunk", seq).Msg("failed to publish partial event")
	}
}

func (s *Session) publishFinal(text string, fragments []Fragment) {
	var audioBytes int64
	for _, f := range fragments {
		audioBytes += int64(len(f.Data))
	}
	ev := models.TranscriptFinal{
		EventType:  "session.transcript.final",
		SessionID:  s.ID,
		Text:       text,
		Fragments:  len(fragments),
		AudioBytes: audioBytes,
		Timestamp:  time.Now().UnixMilli(),
		DurationMs: time.Since(s.started).Milliseconds(),
	}
	if err := s.publisher.PublishFinal(context.Background(), s.ID, ev); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish final event")
	}
}
