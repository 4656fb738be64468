// Package whisper provides a transcription engine backed by a local
// whisper.cpp server (whisper-server), which exposes a batch REST API at
// POST /inference. Audio is submitted as a multipart WAV upload.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"audio-transcription-service/internal/decode"
	"audio-transcription-service/internal/engine"
)

const (
	defaultLanguage    = "en"
	defaultCallTimeout = 60 * time.Second
)

// Compile-time assertion that Engine implements engine.Engine.
var _ engine.Engine = (*Engine)(nil)

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithLanguage sets the language code forwarded to the whisper server.
// Defaults to "en".
func WithLanguage(lang string) Option {
	return func(e *Engine) {
		e.language = lang
	}
}

// WithHTTPClient overrides the HTTP client used for inference calls.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) {
		e.client = c
	}
}

// Engine calls a whisper-server /inference endpoint. Safe for concurrent use;
// the server serializes inference internally.
type Engine struct {
	serverURL string
	language  string
	client    *http.Client
}

// New creates a whisper engine and verifies the server is reachable, so a
// missing or still-loading model fails at startup rather than mid-session.
func New(serverURL string, opts ...Option) (*Engine, error) {
	e := &Engine{
		serverURL: strings.TrimRight(serverURL, "/"),
		language:  defaultLanguage,
		client:    &http.Client{Timeout: defaultCallTimeout},
	}
	for _, opt := range opts {
		opt(e)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.serverURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper server unreachable at %s: %w", e.serverURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisper server not ready: %s", resp.Status)
	}
	return e, nil
}

// Name identifies the provider.
func (e *Engine) Name() string {
	return "whisper"
}

// inferenceResponse is the subset of the whisper-server reply we consume.
type inferenceResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Transcribe submits the PCM buffer as a WAV upload and returns the
// transcribed text.
func (e *Engine) Transcribe(ctx context.Context, pcm decode.PCM) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(decode.EncodeWAV(pcm)); err != nil {
		return "", err
	}
	if err := mw.WriteField("language", e.language); err != nil {
		return "", err
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.serverURL+"/inference", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper inference request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whisper inference response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper inference failed: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var out inferenceResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("whisper inference decode: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("whisper inference error: %s", out.Error)
	}
	return strings.TrimSpace(out.Text), nil
}
