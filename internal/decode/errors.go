package decode

import (
	"errors"
	"fmt"
)

// Kind classifies a decode failure. The kind is decided here, at the decoder
// boundary, so callers never have to inspect error message text.
type Kind int

const (
	// KindTooSmall - input below the minimum byte threshold; no strategy was
	// attempted. Common for the first fragments of a live stream.
	KindTooSmall Kind = iota
	// KindResampleInvalid - resampling computed a non-positive output length.
	KindResampleInvalid
	// KindEmptyOutput - a strategy produced an empty PCM buffer.
	KindEmptyOutput
	// KindAllFailed - every strategy in the chain failed.
	KindAllFailed
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindTooSmall:
		return "too_small"
	case KindResampleInvalid:
		return "resample_invalid"
	case KindEmptyOutput:
		return "empty_output"
	case KindAllFailed:
		return "all_strategies_failed"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Transient reports whether the failure is an expected steady-state condition
// of live streaming (incomplete fragments) rather than something worth a
// warning-level log.
func (k Kind) Transient() bool {
	return k == KindTooSmall || k == KindAllFailed
}

// DecodeError is the failure type returned by Decoder.Decode.
type DecodeError struct {
	Kind   Kind
	Reason string
	Err    error // last underlying strategy error, may be nil
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode %s: %s", e.Kind, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// AsDecodeError extracts a *DecodeError from err, if present.
func AsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// errUnsupportedFormat signals that a strategy cannot handle the declared
// container format; the chain proceeds to the next strategy.
var errUnsupportedFormat = errors.New("unsupported container format")
