package decode

import "time"

// Canonical PCM parameters. Everything handed to the transcription engine is
// mono 48 kHz 16-bit signed little-endian.
const (
	CanonicalRate     = 48000
	CanonicalChannels = 1
	BytesPerSample    = 2
)

// PCM is a canonical PCM buffer: mono, 16-bit little-endian samples at Rate Hz.
type PCM struct {
	Data []byte
	Rate int
}

// Samples returns the number of 16-bit samples in the buffer.
func (p PCM) Samples() int {
	return len(p.Data) / BytesPerSample
}

// Duration returns the playback duration of the buffer.
func (p PCM) Duration() time.Duration {
	if p.Rate <= 0 {
		return 0
	}
	return time.Duration(p.Samples()) * time.Second / time.Duration(p.Rate)
}

// Empty reports whether the buffer holds no complete sample.
func (p PCM) Empty() bool {
	return p.Samples() == 0
}

// Int16s decodes the buffer into int16 samples.
func (p PCM) Int16s() []int16 {
	n := p.Samples()
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(p.Data[i*2]) | int16(p.Data[i*2+1])<<8
	}
	return out
}

// FromInt16s builds a PCM buffer from int16 samples at the given rate.
func FromInt16s(samples []int16, rate int) PCM {
	data := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return PCM{Data: data, Rate: rate}
}
