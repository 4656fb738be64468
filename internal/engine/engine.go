// Package engine defines the interface for transcription engines.
//
// An engine maps a canonical PCM buffer to text. Calls may take seconds and
// block the calling goroutine; the orchestrator is responsible for keeping
// them off the ingestion path. The process holds a single engine handle,
// initialized once at startup and injected into every session; engines must
// be safe to call concurrently.
package engine

import (
	"context"

	"audio-transcription-service/internal/decode"
)

// Engine transcribes canonical PCM audio to text.
type Engine interface {
	// Name identifies the provider for logs and metrics.
	Name() string

	// Transcribe converts a canonical PCM buffer to text. Blocking; no retry
	// is performed by callers on failure.
	Transcribe(ctx context.Context, pcm decode.PCM) (string, error)
}
