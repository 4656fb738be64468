// Package session implements the per-connection streaming transcription
// orchestrator: the protocol state machine that dispatches inbound frames,
// the chunk processor that transcribes individual fragments off the
// ingestion path, and the reconciler that produces the single authoritative
// transcription once streaming ends.
package session
