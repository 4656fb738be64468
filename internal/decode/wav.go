package decode

import (
	"encoding/binary"
	"fmt"
)

const wavHeaderSize = 44

// wavInfo describes the raw contents of a parsed WAV/RIFF file before
// canonicalization.
type wavInfo struct {
	data     []byte
	rate     int
	channels int
}

// parseWAV walks the RIFF chunk list and extracts 16-bit PCM audio. Unlike a
// fixed 44-byte header read, this tolerates extra chunks (LIST, fact) that
// encoders commonly insert between "fmt " and "data".
func parseWAV(b []byte) (wavInfo, error) {
	var w wavInfo
	if len(b) < wavHeaderSize {
		return w, fmt.Errorf("wav: %d bytes is shorter than a RIFF header", len(b))
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return w, fmt.Errorf("wav: missing RIFF/WAVE magic")
	}

	var (
		haveFmt  bool
		format   uint16
		bits     uint16
		channels uint16
		rate     uint32
	)

	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(b) {
			// Truncated chunk: for "data" take what is actually present,
			// streamed WAVs often carry a bogus size.
			if id == "data" && body < len(b) {
				size = len(b) - body
			} else {
				return w, fmt.Errorf("wav: truncated %q chunk", id)
			}
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return w, fmt.Errorf("wav: fmt chunk too short (%d bytes)", size)
			}
			format = binary.LittleEndian.Uint16(b[body : body+2])
			channels = binary.LittleEndian.Uint16(b[body+2 : body+4])
			rate = binary.LittleEndian.Uint32(b[body+4 : body+8])
			bits = binary.LittleEndian.Uint16(b[body+14 : body+16])
			haveFmt = true
		case "data":
			if !haveFmt {
				return w, fmt.Errorf("wav: data chunk before fmt chunk")
			}
			if format != 1 {
				return w, fmt.Errorf("wav: unsupported audio format %d (PCM only)", format)
			}
			if bits != 16 {
				return w, fmt.Errorf("wav: unsupported bit depth %d (16-bit only)", bits)
			}
			if channels == 0 || rate == 0 {
				return w, fmt.Errorf("wav: invalid fmt chunk (channels=%d rate=%d)", channels, rate)
			}
			w.data = b[body : body+size]
			w.rate = int(rate)
			w.channels = int(channels)
			return w, nil
		}

		// Chunks are word-aligned.
		off = body + size
		if size%2 == 1 {
			off++
		}
	}
	return w, fmt.Errorf("wav: no data chunk found")
}

// EncodeWAV wraps a canonical PCM buffer in a minimal mono 16-bit WAV
// container. Used when handing audio to HTTP-based engines and in tests.
func EncodeWAV(p PCM) []byte {
	dataSize := len(p.Data)
	out := make([]byte, wavHeaderSize+dataSize)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], CanonicalChannels)
	binary.LittleEndian.PutUint32(out[24:28], uint32(p.Rate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(p.Rate*CanonicalChannels*BytesPerSample))
	binary.LittleEndian.PutUint16(out[32:34], CanonicalChannels*BytesPerSample)
	binary.LittleEndian.PutUint16(out[34:36], 16)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))
	copy(out[wavHeaderSize:], p.Data)

	return out
}
