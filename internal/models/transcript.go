package models

// TranscriptPartial is the event published for an advisory per-chunk
// transcription.
type TranscriptPartial struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	Chunk     int    `json:"chunk"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// TranscriptFinal is the event published for the one authoritative
// transcription of a session.
type TranscriptFinal struct {
	EventType  string `json:"eventType"`
	SessionID  string `json:"sessionId"`
	Text       string `json:"text"`
	Fragments  int    `json:"fragments"`
	AudioBytes int64  `json:"audioBytes"`
	Timestamp  int64  `json:"timestamp"`
	DurationMs int64  `json:"durationMs"`
}
