package decode

import (
	"bytes"
	"testing"
)

func int16Bytes(samples ...int16) []byte {
	return FromInt16s(samples, CanonicalRate).Data
}

func TestResample_SameRatePassthrough(t *testing.T) {
	in := int16Bytes(1, 2, 3)
	out, err := Resample(in, CanonicalRate, CanonicalRate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Error("same-rate resample should return input unchanged")
	}
}

func TestResample_Upsample(t *testing.T) {
	in := make([]byte, 1600*BytesPerSample) // 0.1s at 16kHz
	out, err := Resample(in, 16000, CanonicalRate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := len(out)/BytesPerSample, 4800; got != want {
		t.Errorf("expected %d output samples, got %d", want, got)
	}
}

func TestResample_Downsample(t *testing.T) {
	in := make([]byte, 4410*BytesPerSample) // 0.1s at 44.1kHz
	out, err := Resample(in, 44100, CanonicalRate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := len(out)/BytesPerSample, 4800; got != want {
		t.Errorf("expected %d output samples, got %d", want, got)
	}
}

func TestResample_InterpolatesBetweenSamples(t *testing.T) {
	// Doubling the rate of [0, 100] should place 50 between them.
	in := int16Bytes(0, 100)
	out, err := Resample(in, 8000, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := PCM{Data: out, Rate: 16000}
	samples := p.Int16s()
	if len(samples) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(samples))
	}
	if samples[0] != 0 || samples[1] != 50 {
		t.Errorf("expected [0 50 ...], got %v", samples[:2])
	}
}

func TestResample_EmptyInput(t *testing.T) {
	_, err := Resample(nil, 16000, CanonicalRate)
	de, ok := AsDecodeError(err)
	if !ok || de.Kind != KindResampleInvalid {
		t.Errorf("expected resample_invalid error, got %v", err)
	}
}

func TestResample_InvalidRate(t *testing.T) {
	_, err := Resample(int16Bytes(1, 2), 0, CanonicalRate)
	de, ok := AsDecodeError(err)
	if !ok || de.Kind != KindResampleInvalid {
		t.Errorf("expected resample_invalid error, got %v", err)
	}
}

func TestDownmix_StereoAverages(t *testing.T) {
	// Two stereo frames: (100, 200) and (-50, 50).
	in := int16Bytes(100, 200, -50, 50)
	out := Downmix(in, 2)
	samples := (PCM{Data: out, Rate: CanonicalRate}).Int16s()
	if len(samples) != 2 {
		t.Fatalf("expected 2 mono samples, got %d", len(samples))
	}
	if samples[0] != 150 || samples[1] != 0 {
		t.Errorf("expected [150 0], got %v", samples)
	}
}

func TestDownmix_MonoPassthrough(t *testing.T) {
	in := int16Bytes(1, 2, 3)
	if out := Downmix(in, 1); !bytes.Equal(in, out) {
		t.Error("mono downmix should return input unchanged")
	}
}

func TestDownmix_NoOverflow(t *testing.T) {
	in := int16Bytes(32767, 32767)
	out := Downmix(in, 2)
	samples := (PCM{Data: out, Rate: CanonicalRate}).Int16s()
	if samples[0] != 32767 {
		t.Errorf("expected 32767, got %d", samples[0])
	}
}
