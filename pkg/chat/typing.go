package chat

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	// TypingAnnounceInterval bounds how often a continuously typing user is
	// announced to the server.
	TypingAnnounceInterval = 2000 * time.Millisecond
	// TypingIdleTimeout is how long input must stay quiet before the local
	// emitter goes back to idle. No "stopped typing" message exists; remote
	// peers expire the indicator on their own.
	TypingIdleTimeout = 1000 * time.Millisecond
	// TypingExpiry clears a remote typing indicator that received no fresh
	// announcement.
	TypingExpiry = 3000 * time.Millisecond
)

type emitterState int

const (
	emitterIdle emitterState = iota
	emitterAnnouncing
)

// TypingEmitter throttles local "typing" announcements. The first input event
// announces immediately and arms a repeating announce timer; further input
// only keeps the idle timer alive. Once input stops for TypingIdleTimeout the
// emitter returns to idle and the repeat timer is canceled.
type TypingEmitter struct {
	mu       sync.Mutex
	clock    clock.Clock
	announce func()

	state  emitterState
	repeat *clock.Timer
	idle   *clock.Timer
}

// NewTypingEmitter wires the emitter to a fire-and-forget announce callback.
func NewTypingEmitter(c clock.Clock, announce func()) *TypingEmitter {
	return &TypingEmitter{clock: c, announce: announce}
}

// Input records one local input-change event.
func (e *TypingEmitter) Input() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == emitterIdle {
		e.state = emitterAnnouncing
		e.announce()
		e.repeat = e.clock.AfterFunc(TypingAnnounceInterval, e.repeatFired)
		e.idle = e.clock.AfterFunc(TypingIdleTimeout, e.idleFired)
		return
	}
	// already announcing, the repeat timer covers the wire; just stay alive
	e.idle.Stop()
	e.idle = e.clock.AfterFunc(TypingIdleTimeout, e.idleFired)
}

func (e *TypingEmitter) repeatFired() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != emitterAnnouncing {
		return
	}
	e.announce()
	e.repeat = e.clock.AfterFunc(TypingAnnounceInterval, e.repeatFired)
}

func (e *TypingEmitter) idleFired() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != emitterAnnouncing {
		return
	}
	e.stopLocked()
}

// Stop cancels both timers and returns to idle. Called when the composed
// message is sent and on disconnect; safe to call repeatedly.
func (e *TypingEmitter) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *TypingEmitter) stopLocked() {
	e.state = emitterIdle
	if e.repeat != nil {
		e.repeat.Stop()
		e.repeat = nil
	}
	if e.idle != nil {
		e.idle.Stop()
		e.idle = nil
	}
}

// TypingIndicator tracks the single remote typer currently shown. A newer
// announcement overwrites the slot, a message from the shown typer clears it
// immediately, and silence clears it after TypingExpiry.
type TypingIndicator struct {
	mu    sync.Mutex
	clock clock.Clock
	self  string
	show  func(name string)
	hide  func()

	current string
	expiry  *clock.Timer
}

func NewTypingIndicator(c clock.Clock, self string, show func(name string), hide func()) *TypingIndicator {
	return &TypingIndicator{clock: c, self: self, show: show, hide: hide}
}

// Announce handles one inbound typing announcement.
func (t *TypingIndicator) Announce(sender string) {
	if sender == "" || sender == t.self {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = sender
	t.show(sender)
	if t.expiry != nil {
		t.expiry.Stop()
	}
	t.expiry = t.clock.AfterFunc(TypingExpiry, t.expired)
}

// MessageFrom clears the indicator when the shown typer delivers an actual
// message, which is stronger evidence of "done typing" than expiry.
func (t *TypingIndicator) MessageFrom(sender string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == "" || t.current != sender {
		return
	}
	t.clearLocked()
}

func (t *TypingIndicator) expired() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == "" {
		return
	}
	t.clearLocked()
}

// Stop clears the slot and cancels the expiry timer. Safe to call repeatedly.
func (t *TypingIndicator) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.expiry != nil {
		t.expiry.Stop()
		t.expiry = nil
	}
	t.current = ""
}

func (t *TypingIndicator) clearLocked() {
	t.current = ""
	if t.expiry != nil {
		t.expiry.Stop()
		t.expiry = nil
	}
	t.hide()
}
