// Package mock provides a scriptable transcription engine for tests and for
// running the service locally without a model or cloud credentials.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"audio-transcription-service/internal/decode"
	"audio-transcription-service/internal/engine"
)

// Compile-time assertion that Engine implements engine.Engine.
var _ engine.Engine = (*Engine)(nil)

// DefaultTexts are cycled through when no script is provided.
var DefaultTexts = []string{
	"hello there",
	"hello there how are",
	"hello there how are you doing today",
}

// Engine implements engine.Engine with scripted responses. Safe for
// concurrent use.
type Engine struct {
	mu    sync.Mutex
	texts []string
	next  int
	delay time.Duration
	err   error

	calls int
}

// New creates a mock engine cycling through texts (DefaultTexts when empty).
func New(texts ...string) *Engine {
	if len(texts) == 0 {
		texts = DefaultTexts
	}
	return &Engine{texts: texts}
}

// WithDelay makes every Transcribe call sleep for d, simulating a slow model.
func (e *Engine) WithDelay(d time.Duration) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay = d
	return e
}

// Fail makes every subsequent Transcribe call return err (nil restores
// normal behavior).
func (e *Engine) Fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Name identifies the provider.
func (e *Engine) Name() string {
	return "mock"
}

// Transcribe returns the next scripted text.
func (e *Engine) Transcribe(ctx context.Context, pcm decode.PCM) (string, error) {
	e.mu.Lock()
	delay := e.delay
	err := e.err
	e.calls++
	text := e.texts[e.next%len(e.texts)]
	e.next++
	e.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	if pcm.Empty() {
		return "", fmt.Errorf("mock engine: empty PCM buffer")
	}
	return text, nil
}

// Calls returns the number of Transcribe invocations so far.
func (e *Engine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
