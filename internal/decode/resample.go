package decode

// Resample converts 16-bit mono PCM from srcRate to dstRate using linear
// interpolation. Input must be little-endian int16 samples. Returns a
// KindResampleInvalid error when the computed output length is non-positive.
func Resample(pcm []byte, srcRate, dstRate int) ([]byte, error) {
	if srcRate == dstRate {
		return pcm, nil
	}
	srcSamples := len(pcm) / BytesPerSample
	if srcRate <= 0 || dstRate <= 0 || srcSamples == 0 {
		return nil, &DecodeError{Kind: KindResampleInvalid,
			Reason: "invalid sample rate or empty input"}
	}
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples <= 0 {
		return nil, &DecodeError{Kind: KindResampleInvalid,
			Reason: "computed output length is non-positive"}
	}

	out := make([]byte, dstSamples*BytesPerSample)
	ratio := float64(srcRate) / float64(dstRate)

	for i := 0; i < dstSamples; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := int16(pcm[srcIdx*2]) | int16(pcm[srcIdx*2+1])<<8
		s1 := s0
		if srcIdx+1 < srcSamples {
			s1 = int16(pcm[(srcIdx+1)*2]) | int16(pcm[(srcIdx+1)*2+1])<<8
		}

		v := int16(float64(s0)*(1-frac) + float64(s1)*frac)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out, nil
}

// Downmix averages interleaved multi-channel 16-bit PCM into mono. Uses int32
// accumulation to avoid overflow and clamps to the int16 range. Mono input is
// returned unchanged.
func Downmix(pcm []byte, channels int) []byte {
	if channels <= 1 {
		return pcm
	}
	frameBytes := channels * BytesPerSample
	frames := len(pcm) / frameBytes
	out := make([]byte, frames*BytesPerSample)
	for i := 0; i < frames; i++ {
		var sum int32
		for c := 0; c < channels; c++ {
			off := i*frameBytes + c*BytesPerSample
			sum += int32(int16(pcm[off]) | int16(pcm[off+1])<<8)
		}
		avg := sum / int32(channels)
		if avg > 32767 {
			avg = 32767
		} else if avg < -32768 {
			avg = -32768
		}
		out[i*2] = byte(avg)
		out[i*2+1] = byte(avg >> 8)
	}
	return out
}
