package session

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a streaming session.
type State int

const (
	// StateOpen - connection accepted, engine not yet verified.
	StateOpen State = iota
	// StateStreaming - accepting audio_chunk and end messages.
	StateStreaming
	// StateFinalizing - end received; waiting for chunk tasks, then the
	// final pass.
	StateFinalizing
	// StateClosed - terminal.
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateStreaming:
		return "STREAMING"
	case StateFinalizing:
		return "FINALIZING"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Errors for invalid state transitions.
var (
	ErrSessionClosed       = errors.New("session is closed")
	ErrNotStreaming        = errors.New("session is not streaming")
	ErrFinalAlreadyEmitted = errors.New("final already emitted for this session")
	ErrPartialAfterFinal   = errors.New("cannot emit partial after final")
)

// Lifecycle manages the state machine for a single session. Thread-safe.
//
// State transitions:
//
//	OPEN → STREAMING → FINALIZING → CLOSED
//
// Rules:
//   - STREAMING: fragments accepted, partials may be emitted.
//   - FINALIZING: no new fragments; in-flight partials may still be emitted
//     until the final is; the final is emitted exactly once.
//   - CLOSED: terminal; reachable from any state (abrupt disconnect).
type Lifecycle struct {
	mu        sync.RWMutex
	state     State
	finalSent bool
}

// NewLifecycle creates a lifecycle in OPEN state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateOpen}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// FinalEmitted reports whether the final transcription has been emitted.
func (l *Lifecycle) FinalEmitted() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.finalSent
}

// Begin transitions OPEN → STREAMING.
func (l *Lifecycle) Begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateOpen {
		return fmt.Errorf("cannot begin streaming from %s", l.state)
	}
	l.state = StateStreaming
	return nil
}

// AcceptFragment validates that a new fragment may be appended.
func (l *Lifecycle) AcceptFragment() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.state != StateStreaming {
		return ErrNotStreaming
	}
	return nil
}

// BeginFinalize transitions STREAMING → FINALIZING.
func (l *Lifecycle) BeginFinalize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case StateStreaming:
		l.state = StateFinalizing
		return nil
	case StateClosed:
		return ErrSessionClosed
	default:
		return fmt.Errorf("cannot finalize from %s", l.state)
	}
}

// EmitPartial validates a partial emission. Partials are allowed while
// streaming and while finalizing waits for in-flight tasks, but never after
// the final has been emitted.
func (l *Lifecycle) EmitPartial() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.state == StateClosed {
		return ErrSessionClosed
	}
	if l.finalSent {
		return ErrPartialAfterFinal
	}
	return nil
}

// EmitFinal validates and records the one final emission. Only valid in
// FINALIZING, only once.
func (l *Lifecycle) EmitFinal() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateClosed {
		return ErrSessionClosed
	}
	if l.state != StateFinalizing {
		return fmt.Errorf("cannot emit final from %s", l.state)
	}
	if l.finalSent {
		return ErrFinalAlreadyEmitted
	}
	l.finalSent = true
	return nil
}

// Close transitions to CLOSED. Callable from any state, idempotent.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateClosed
}

// IsClosed reports whether the session reached the terminal state.
func (l *Lifecycle) IsClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateClosed
}
