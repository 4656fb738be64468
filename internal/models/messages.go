// Package models defines the wire shapes of the streaming protocol and the
// transcript events published to Kafka.
package models

import (
	"encoding/json"
	"fmt"
)

// Inbound message types.
const (
	TypeAudioChunk = "audio_chunk"
	TypeEnd        = "end"
)

// Outbound status values.
const (
	StatusReceived      = "received"
	StatusTranscription = "transcription"
	StatusProcessing    = "processing"
	StatusError         = "error"
)

// Inbound is the envelope of a client frame.
type Inbound struct {
	Type       string `json:"type"`
	Data       string `json:"data,omitempty"` // base64 audio payload
	Format     string `json:"format,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// ParseInbound decodes and validates one client frame. The returned error is
// a protocol-level error: the session stays open, the message is rejected.
func ParseInbound(raw []byte) (Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, fmt.Errorf("malformed message: %w", err)
	}
	switch msg.Type {
	case TypeAudioChunk:
		if msg.Data == "" {
			return msg, fmt.Errorf("audio_chunk without data")
		}
		if msg.SampleRate < 0 {
			return msg, fmt.Errorf("invalid sample_rate %d", msg.SampleRate)
		}
	case TypeEnd:
		// No payload.
	case "":
		return msg, fmt.Errorf("message without type")
	default:
		return msg, fmt.Errorf("unknown message type %q", msg.Type)
	}
	return msg, nil
}

// Ack acknowledges receipt of one audio chunk.
type Ack struct {
	Status string `json:"status"`
	Chunk  int    `json:"chunk"`
}

// NewAck builds the acknowledgment for chunk seq.
func NewAck(seq int) Ack {
	return Ack{Status: StatusReceived, Chunk: seq}
}

// Transcription carries a partial or final transcription result. Chunk is the
// originating fragment sequence number for partials and omitted for finals.
type Transcription struct {
	Status  string `json:"status"`
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
	Chunk   int    `json:"chunk,omitempty"`
}

// NewPartial builds a partial transcription message for chunk seq.
func NewPartial(text string, seq int) Transcription {
	return Transcription{Status: StatusTranscription, Text: text, IsFinal: false, Chunk: seq}
}

// NewFinal builds the single authoritative transcription message.
func NewFinal(text string) Transcription {
	return Transcription{Status: StatusTranscription, Text: text, IsFinal: true}
}

// Processing signals that the final pass has started.
type Processing struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewProcessing builds the processing notification.
func NewProcessing(message string) Processing {
	return Processing{Status: StatusProcessing, Message: message}
}

// Error reports a protocol, decode or finalization failure to the client.
type Error struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// NewError builds an error message.
func NewError(err string) Error {
	return Error{Status: StatusError, Error: err}
}
