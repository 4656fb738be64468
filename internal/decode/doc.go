// Package decode converts arbitrary compressed audio payloads into the
// canonical PCM format handed to the transcription engine: mono, 48 kHz,
// 16-bit signed little-endian samples.
//
// Decoding runs an ordered chain of strategies (native WAV parse, external
// ffmpeg invocation, raw PCM reinterpretation); the first strategy to succeed
// wins and the last failure is reported if all of them fail. Every failure
// carries a structured kind so callers can branch on the class of error
// instead of its message text.
package decode
