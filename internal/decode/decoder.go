package decode

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"audio-transcription-service/internal/observability/metrics"
)

// Defaults for the decoder configuration.
const (
	// DefaultMinBytes is the minimum input size below which no strategy is
	// attempted. Fragments smaller than this are never a valid container.
	DefaultMinBytes = 100

	// DefaultFFmpegTimeout bounds a single external ffmpeg invocation.
	DefaultFFmpegTimeout = 15 * time.Second

	DefaultFFmpegPath = "ffmpeg"
)

// Config holds decoder tunables.
type Config struct {
	MinBytes      int
	FFmpegPath    string
	FFmpegTimeout time.Duration
}

// strategy is one entry in the ordered fallback chain.
type strategy struct {
	name string
	fn   func(ctx context.Context, data []byte, format string, rate int) (PCM, error)
}

// Decoder converts compressed audio payloads to canonical PCM by trying an
// ordered chain of strategies. Safe for concurrent use.
type Decoder struct {
	cfg        Config
	strategies []strategy
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// New creates a Decoder with the default strategy chain:
// native WAV parse, external ffmpeg, raw container reinterpretation.
func New(cfg Config) *Decoder {
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = DefaultMinBytes
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = DefaultFFmpegPath
	}
	if cfg.FFmpegTimeout <= 0 {
		cfg.FFmpegTimeout = DefaultFFmpegTimeout
	}

	d := &Decoder{
		cfg:     cfg,
		metrics: metrics.DefaultMetrics,
		logger:  log.With().Str("component", "decoder").Logger(),
	}
	d.strategies = []strategy{
		{name: "native", fn: d.decodeNative},
		{name: "ffmpeg", fn: d.decodeFFmpeg},
		{name: "raw", fn: d.decodeRaw},
	}
	return d
}

// Decode converts data (declared as the given container format and nominal
// sample rate) into canonical mono 48 kHz 16-bit PCM. It returns a
// *DecodeError when the input is too small or when every strategy fails.
func (d *Decoder) Decode(ctx context.Context, data []byte, format string, rate int) (PCM, error) {
	if len(data) < d.cfg.MinBytes {
		return PCM{}, &DecodeError{
			Kind:   KindTooSmall,
			Reason: fmt.Sprintf("%d bytes is below the %d byte minimum", len(data), d.cfg.MinBytes),
		}
	}

	var lastErr error
	for _, s := range d.strategies {
		pcm, err := s.fn(ctx, data, format, rate)
		if err == nil {
			if pcm.Empty() {
				lastErr = &DecodeError{Kind: KindEmptyOutput,
					Reason: fmt.Sprintf("strategy %s produced an empty buffer", s.name)}
				d.metrics.RecordDecodeAttempt(s.name, false)
				continue
			}
			d.metrics.RecordDecodeAttempt(s.name, true)
			return pcm, nil
		}
		lastErr = err
		d.metrics.RecordDecodeAttempt(s.name, false)
		d.logger.Debug().
			Str("strategy", s.name).
			Str("format", format).
			Int("bytes", len(data)).
			Err(err).
			Msg("decode strategy failed, trying next")
	}

	// Preserve the more specific kind when the last strategy already
	// classified its failure.
	if de, ok := AsDecodeError(lastErr); ok && de.Kind != KindAllFailed {
		return PCM{}, de
	}
	return PCM{}, &DecodeError{
		Kind:   KindAllFailed,
		Reason: "no decode strategy succeeded",
		Err:    lastErr,
	}
}

// decodeNative handles container formats that can be parsed without external
// tooling. Only WAV/RIFF qualifies; compressed containers (webm/ogg/opus)
// fall through to ffmpeg.
func (d *Decoder) decodeNative(_ context.Context, data []byte, format string, _ int) (PCM, error) {
	switch strings.ToLower(format) {
	case "wav", "wave", "":
		w, err := parseWAV(data)
		if err != nil {
			return PCM{}, err
		}
		return canonicalize(w)
	default:
		return PCM{}, fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// decodeFFmpeg shells out to ffmpeg with a hard timeout. Timeouts and
// non-zero exits are ordinary strategy failures.
func (d *Decoder) decodeFFmpeg(ctx context.Context, data []byte, _ string, _ int) (PCM, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.FFmpegTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.cfg.FFmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-ar", fmt.Sprint(CanonicalRate),
		"-ac", fmt.Sprint(CanonicalChannels),
		"-f", "s16le",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return PCM{}, fmt.Errorf("ffmpeg timed out after %v", d.cfg.FFmpegTimeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return PCM{}, fmt.Errorf("ffmpeg: %s", msg)
	}

	out := stdout.Bytes()
	// Drop a trailing odd byte rather than failing the whole decode.
	if len(out)%2 == 1 {
		out = out[:len(out)-1]
	}
	return PCM{Data: out, Rate: CanonicalRate}, nil
}

// decodeRaw is the last resort: interpret the bytes as an already-valid PCM
// container regardless of the declared format. Resampling still runs when the
// container carries a foreign rate.
func (d *Decoder) decodeRaw(_ context.Context, data []byte, _ string, _ int) (PCM, error) {
	w, err := parseWAV(data)
	if err != nil {
		return PCM{}, err
	}
	return canonicalize(w)
}

// canonicalize downmixes and resamples parsed WAV audio to the canonical
// format, validating the result is non-empty.
func canonicalize(w wavInfo) (PCM, error) {
	pcm := Downmix(w.data, w.channels)
	pcm, err := Resample(pcm, w.rate, CanonicalRate)
	if err != nil {
		return PCM{}, err
	}
	out := PCM{Data: pcm, Rate: CanonicalRate}
	if out.Empty() {
		return PCM{}, &DecodeError{Kind: KindEmptyOutput, Reason: "no samples after conversion"}
	}
	return out, nil
}
