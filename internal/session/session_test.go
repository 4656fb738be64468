package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"audio-transcription-service/internal/decode"
	enginemock "audio-transcription-service/internal/engine/mock"
	"audio-transcription-service/internal/events"
	"audio-transcription-service/internal/models"
)

// captureSender records every outbound message in delivery order.
type captureSender struct {
	mu   sync.Mutex
	msgs []any
}

func (c *captureSender) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, v)
	return nil
}

func (c *captureSender) all() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func (c *captureSender) acks() []models.Ack {
	var out []models.Ack
	for _, m := range c.all() {
		if a, ok := m.(models.Ack); ok {
			out = append(out, a)
		}
	}
	return out
}

func (c *captureSender) partials() []models.Transcription {
	var out []models.Transcription
	for _, m := range c.all() {
		if tr, ok := m.(models.Transcription); ok && !tr.IsFinal {
			out = append(out, tr)
		}
	}
	return out
}

func (c *captureSender) finals() []models.Transcription {
	var out []models.Transcription
	for _, m := range c.all() {
		if tr, ok := m.(models.Transcription); ok && tr.IsFinal {
			out = append(out, tr)
		}
	}
	return out
}

func (c *captureSender) errs() []models.Error {
	var out []models.Error
	for _, m := range c.all() {
		if e, ok := m.(models.Error); ok {
			out = append(out, e)
		}
	}
	return out
}

func (c *captureSender) processings() []models.Processing {
	var out []models.Processing
	for _, m := range c.all() {
		if p, ok := m.(models.Processing); ok {
			out = append(out, p)
		}
	}
	return out
}

func testDecoder() *decode.Decoder {
	return decode.New(decode.Config{FFmpegPath: "/nonexistent/ffmpeg"})
}

func testPublisher() *events.Publisher {
	return events.New(&events.Config{Enabled: false})
}

// testWAV builds a mono 48kHz WAV holding n ramp samples.
func testWAV(n int) []byte {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(i % 2000)
	}
	return decode.EncodeWAV(decode.FromInt16s(samples, decode.CanonicalRate))
}

func chunkFrame(t *testing.T, payload []byte, format string) []byte {
	t.Helper()
	raw, err := json.Marshal(models.Inbound{
		Type:       models.TypeAudioChunk,
		Data:       base64.StdEncoding.EncodeToString(payload),
		Format:     format,
		SampleRate: decode.CanonicalRate,
	})
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return raw
}

func endFrame() []byte {
	return []byte(`{"type":"end"}`)
}

func newTestSession(eng *enginemock.Engine, sender Sender) *Session {
	if eng == nil {
		// A typed nil pointer would make the interface non-nil.
		return New(nil, testDecoder(), testPublisher(), sender, Config{})
	}
	return New(eng, testDecoder(), testPublisher(), sender, Config{})
}

func TestSession_OpenWithoutEngine(t *testing.T) {
	sender := &captureSender{}
	sess := newTestSession(nil, sender)

	if err := sess.Open(); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	errs := sender.errs()
	if len(errs) != 1 {
		t.Fatalf("expected 1 error message, got %d", len(errs))
	}
	if !sess.lifecycle.IsClosed() {
		t.Error("session should be closed after failed open")
	}
}

// One continuous stream split at arbitrary byte offsets: the first fragment is
// below the processing threshold, the rest are headerless tails that no
// strategy can decode alone. Every chunk is acked, per-chunk failures stay
// silent, and the reconciled concatenation produces the final.
func TestSession_SplitStream(t *testing.T) {
	eng := enginemock.New("the quick brown fox")
	sender := &captureSender{}
	sess := newTestSession(eng, sender)
	if err := sess.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	full := testWAV(4000) // 8044 bytes
	parts := [][]byte{full[:500], full[500:4000], full[4000:]}

	ctx := context.Background()
	for _, p := range parts {
		if done := sess.HandleMessage(ctx, chunkFrame(t, p, "wav")); done {
			t.Fatal("audio_chunk should not terminate the session")
		}
	}
	if done := sess.HandleMessage(ctx, endFrame()); !done {
		t.Fatal("end should terminate the session")
	}

	acks := sender.acks()
	if len(acks) != 3 {
		t.Fatalf("expected 3 acks, got %d", len(acks))
	}
	for i, a := range acks {
		if a.Chunk != i+1 {
			t.Errorf("ack %d: expected chunk %d, got %d", i, i+1, a.Chunk)
		}
		if a.Status != models.StatusReceived {
			t.Errorf("ack %d: expected status received, got %q", i, a.Status)
		}
	}

	if errs := sender.errs(); len(errs) != 0 {
		t.Errorf("per-chunk failures must not reach the client, got %v", errs)
	}
	if got := sender.processings(); len(got) != 1 {
		t.Fatalf("expected 1 processing message, got %d", len(got))
	}
	finals := sender.finals()
	if len(finals) != 1 {
		t.Fatalf("expected exactly 1 final, got %d", len(finals))
	}
	if finals[0].Text != "the quick brown fox" {
		t.Errorf("unexpected final text %q", finals[0].Text)
	}
	if finals[0].Chunk != 0 {
		t.Errorf("final should not carry a chunk number, got %d", finals[0].Chunk)
	}

	all := sender.all()
	if _, ok := all[len(all)-1].(models.Transcription); !ok {
		t.Errorf("final transcription must be the last message, got %T", all[len(all)-1])
	}
}

// Standalone decodable chunks above the threshold each yield one partial, the
// final comes after all of them.
func TestSession_PartialsThenFinal(t *testing.T) {
	eng := enginemock.New()
	sender := &captureSender{}
	sess := newTestSession(eng, sender)
	if err := sess.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ctx := context.Background()
	sess.HandleMessage(ctx, chunkFrame(t, testWAV(1000), "wav"))
	sess.HandleMessage(ctx, chunkFrame(t, testWAV(1000), "wav"))
	sess.HandleMessage(ctx, endFrame())

	partials := sender.partials()
	if len(partials) != 2 {
		t.Fatalf("expected 2 partials, got %d", len(partials))
	}
	seen := map[int]bool{}
	for _, p := range partials {
		if p.Status != models.StatusTranscription || p.IsFinal {
			t.Errorf("bad partial: %+v", p)
		}
		seen[p.Chunk] = true
	}
	if !seen[1] || !seen[2] {
		t.Errorf("partials should reference chunks 1 and 2, got %v", seen)
	}

	if len(sender.finals()) != 1 {
		t.Fatalf("expected 1 final, got %d", len(sender.finals()))
	}
	if got := eng.Calls(); got != 3 {
		t.Errorf("expected 3 engine calls (2 partial + 1 final), got %d", got)
	}

	all := sender.all()
	last, ok := all[len(all)-1].(models.Transcription)
	if !ok || !last.IsFinal {
		t.Errorf("last message must be the final, got %#v", all[len(all)-1])
	}
}

// A slow engine must not let an in-flight partial land after the final.
func TestSession_FinalIsLastWithSlowEngine(t *testing.T) {
	eng := enginemock.New().WithDelay(30 * time.Millisecond)
	sender := &captureSender{}
	sess := newTestSession(eng, sender)
	if err := sess.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		sess.HandleMessage(ctx, chunkFrame(t, testWAV(1200), "wav"))
	}
	sess.HandleMessage(ctx, endFrame())

	all := sender.all()
	finalIdx := -1
	for i, m := range all {
		if tr, ok := m.(models.Transcription); ok && tr.IsFinal {
			if finalIdx != -1 {
				t.Fatal("more than one final emitted")
			}
			finalIdx = i
		}
	}
	if finalIdx != len(all)-1 {
		t.Errorf("final at index %d of %d messages, must be last", finalIdx, len(all))
	}
}

func TestSession_EndWithoutAudio(t *testing.T) {
	eng := enginemock.New()
	sender := &captureSender{}
	sess := newTestSession(eng, sender)
	if err := sess.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if done := sess.HandleMessage(context.Background(), endFrame()); !done {
		t.Fatal("end should terminate the session")
	}

	errs := sender.errs()
	if len(errs) != 1 {
		t.Fatalf("expected exactly 1 error, got %d", len(errs))
	}
	if errs[0].Error != ErrEmptyAudio.Error() {
		t.Errorf("unexpected error text %q", errs[0].Error)
	}
	if len(sender.processings()) != 0 {
		t.Error("no processing message should be sent for an empty session")
	}
	if len(sender.finals()) != 0 || len(sender.partials()) != 0 {
		t.Error("no transcription should be sent for an empty session")
	}
	if eng.Calls() != 0 {
		t.Errorf("engine should not be called, got %d calls", eng.Calls())
	}
}

func TestSession_MalformedFrameKeepsSessionOpen(t *testing.T) {
	eng := enginemock.New()
	sender := &captureSender{}
	sess := newTestSession(eng, sender)
	if err := sess.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()

	cases := [][]byte{
		[]byte(`{not json`),
		[]byte(`{"type":"bogus"}`),
		[]byte(`{"type":"audio_chunk"}`),
		[]byte(`{"type":"audio_chunk","data":"!!!not-base64!!!"}`),
	}
	for i, raw := range cases {
		if done := sess.HandleMessage(ctx, raw); done {
			t.Fatalf("case %d: bad frame must not terminate the session", i)
		}
	}
	if got := len(sender.errs()); got != len(cases) {
		t.Fatalf("expected %d error messages, got %d", len(cases), got)
	}

	// The session still accepts well-formed chunks afterwards.
	sess.HandleMessage(ctx, chunkFrame(t, testWAV(300), "wav"))
	if len(sender.acks()) != 1 {
		t.Error("session should still ack valid chunks after rejected frames")
	}
}

func TestSession_SmallChunkSkipsProcessing(t *testing.T) {
	eng := enginemock.New()
	sender := &captureSender{}
	sess := newTestSession(eng, sender)
	if err := sess.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ctx := context.Background()
	sess.HandleMessage(ctx, chunkFrame(t, testWAV(400), "wav")) // 844 bytes < 1000
	sess.HandleMessage(ctx, endFrame())

	if len(sender.acks()) != 1 {
		t.Fatalf("expected 1 ack, got %d", len(sender.acks()))
	}
	if len(sender.partials()) != 0 {
		t.Error("sub-threshold chunk must not produce a partial")
	}
	// Only the final pass should have hit the engine.
	if eng.Calls() != 1 {
		t.Errorf("expected 1 engine call, got %d", eng.Calls())
	}
	if len(sender.finals()) != 1 {
		t.Errorf("expected 1 final, got %d", len(sender.finals()))
	}
}

func TestSession_FinalDecodeFailureSurfaced(t *testing.T) {
	eng := enginemock.New()
	sender := &captureSender{}
	sess := newTestSession(eng, sender)
	if err := sess.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	garbage := make([]byte, 1500)
	for i := range garbage {
		garbage[i] = byte(i * 31)
	}
	ctx := context.Background()
	sess.HandleMessage(ctx, chunkFrame(t, garbage, "webm"))
	sess.HandleMessage(ctx, endFrame())

	if len(sender.processings()) != 1 {
		t.Error("processing message should still be sent before the final pass")
	}
	errs := sender.errs()
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if !strings.HasPrefix(errs[0].Error, "Audio processing failed:") {
		t.Errorf("unexpected error text %q", errs[0].Error)
	}
	if len(sender.finals()) != 0 {
		t.Error("no final should be emitted when the final pass fails")
	}
}

func TestSession_FinalEngineFailureSurfaced(t *testing.T) {
	eng := enginemock.New()
	eng.Fail(errors.New("model unavailable"))
	sender := &captureSender{}
	sess := newTestSession(eng, sender)
	if err := sess.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ctx := context.Background()
	sess.HandleMessage(ctx, chunkFrame(t, testWAV(1000), "wav"))
	sess.HandleMessage(ctx, endFrame())

	errs := sender.errs()
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if !strings.Contains(errs[0].Error, "model unavailable") {
		t.Errorf("unexpected error text %q", errs[0].Error)
	}
	if len(sender.finals()) != 0 {
		t.Error("no final should be emitted when the engine fails")
	}
}

func TestSession_MessagesAfterEndIgnored(t *testing.T) {
	eng := enginemock.New()
	sender := &captureSender{}
	sess := newTestSession(eng, sender)
	if err := sess.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ctx := context.Background()
	sess.HandleMessage(ctx, chunkFrame(t, testWAV(1000), "wav"))
	sess.HandleMessage(ctx, endFrame())

	before := len(sender.all())
	if done := sess.HandleMessage(ctx, chunkFrame(t, testWAV(1000), "wav")); !done {
		t.Error("messages after end should report the session as done")
	}
	if len(sender.all()) != before {
		t.Error("messages after end must not produce new output")
	}
}

func TestSession_DiscardSkipsFinalize(t *testing.T) {
	eng := enginemock.New()
	sender := &captureSender{}
	sess := newTestSession(eng, sender)
	if err := sess.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ctx := context.Background()
	sess.HandleMessage(ctx, chunkFrame(t, testWAV(1000), "wav"))
	sess.Discard()
	sess.Discard() // idempotent

	if !sess.lifecycle.IsClosed() {
		t.Error("discarded session should be closed")
	}
	if len(sender.finals()) != 0 || len(sender.processings()) != 0 {
		t.Error("discard must not run finalization")
	}
}

func TestSession_SequenceNumbersIncrease(t *testing.T) {
	eng := enginemock.New()
	sender := &captureSender{}
	sess := newTestSession(eng, sender)
	if err := sess.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		sess.HandleMessage(ctx, chunkFrame(t, testWAV(200), "wav"))
	}
	acks := sender.acks()
	if len(acks) != 5 {
		t.Fatalf("expected 5 acks, got %d", len(acks))
	}
	for i, a := range acks {
		if a.Chunk != i+1 {
			t.Errorf("ack %d: expected chunk %d, got %d", i, i+1, a.Chunk)
		}
	}
}
