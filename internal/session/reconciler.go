package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"audio-transcription-service/internal/decode"
	"audio-transcription-service/internal/engine"
	"audio-transcription-service/internal/observability/metrics"
)

// ErrEmptyAudio is returned when finalization runs with no fragments.
var ErrEmptyAudio = errors.New("no audio data received")

// Fragment is one raw audio chunk as received from the transport. Immutable
// once created; Seq is strictly increasing per session and defines the
// concatenation order of the final pass.
type Fragment struct {
	Seq        int
	Data       []byte
	Format     string
	SampleRate int
}

// Reconciler produces the single authoritative transcription for a session
// from the full ordered fragment list. Unlike per-chunk processing, its
// failures are surfaced to the caller.
type Reconciler struct {
	decoder *decode.Decoder
	engine  engine.Engine
	metrics *metrics.Metrics
}

// NewReconciler creates a Reconciler over the given decoder and engine.
func NewReconciler(d *decode.Decoder, e engine.Engine) *Reconciler {
	return &Reconciler{
		decoder: d,
		engine:  e,
		metrics: metrics.DefaultMetrics,
	}
}

// Reconcile concatenates the fragment payloads in ascending sequence order,
// decodes the full stream and transcribes it. A concatenated stream is
// generally a more valid container than any individual fragment.
func (r *Reconciler) Reconcile(ctx context.Context, fragments []Fragment) (string, error) {
	if len(fragments) == 0 {
		return "", ErrEmptyAudio
	}

	ordered := make([]Fragment, len(fragments))
	copy(ordered, fragments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	var total int
	for _, f := range ordered {
		total += len(f.Data)
	}
	buf := make([]byte, 0, total)
	for _, f := range ordered {
		buf = append(buf, f.Data...)
	}

	first := ordered[0]
	pcm, err := r.decoder.Decode(ctx, buf, first.Format, first.SampleRate)
	if err != nil {
		if de, ok := decode.AsDecodeError(err); ok {
			r.metrics.RecordDecodeFailure(de.Kind.String())
		}
		return "", err
	}

	start := time.Now()
	text, err := r.engine.Transcribe(ctx, pcm)
	r.metrics.RecordEngineCall(r.engine.Name(), "final", err, time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
