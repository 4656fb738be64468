// Package google provides a Google Cloud Speech-to-Text transcription engine
// using the batch Recognize API.
package google

import (
	"context"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"

	"audio-transcription-service/internal/decode"
	"audio-transcription-service/internal/engine"
)

// Compile-time assertion that Engine implements engine.Engine.
var _ engine.Engine = (*Engine)(nil)

// Engine implements engine.Engine using Google Cloud Speech-to-Text.
type Engine struct {
	client       *speech.Client
	languageCode string
}

// New creates a Google STT engine.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, languageCode string) (*Engine, error) {
	if languageCode == "" {
		languageCode = "en-US"
	}
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Engine{client: c, languageCode: languageCode}, nil
}

// Name identifies the provider.
func (e *Engine) Name() string {
	return "google"
}

// Transcribe runs one batch recognition over the PCM buffer and joins the
// result alternatives into a single text.
func (e *Engine) Transcribe(ctx context.Context, pcm decode.PCM) (string, error) {
	resp, err := e.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(pcm.Rate),
			LanguageCode:    e.languageCode,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm.Data},
		},
	})
	if err != nil {
		return "", err
	}

	var parts []string
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		parts = append(parts, r.Alternatives[0].Transcript)
	}
	return strings.TrimSpace(strings.Join(parts, " ")), nil
}

// Close releases the underlying gRPC client.
func (e *Engine) Close() error {
	return e.client.Close()
}
