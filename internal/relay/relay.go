// Package relay delivers pipeline events from worker goroutines to one
// ordered consumer stream.
package relay

import "sync"

// Kind identifies one UI-facing event type.
type Kind string

const (
	KindRecordingStarted      Kind = "recording-started"
	KindRecordingStopped      Kind = "recording-stopped"
	KindTranscriptionComplete Kind = "transcription-complete"
	KindAmplitude             Kind = "amplitude"
	KindError                 Kind = "error"
)

// Event is one notification pushed to the shell. Text carries the transcript
// for transcription-complete and the message for error events; Seq, Loudness,
// and Bands are set only on amplitude events.
type Event struct {
	Kind     Kind
	Text     string
	Seq      uint64
	Loudness float64
	Bands    []float64
}

// amplitudeBacklog bounds how many amplitude events may sit undelivered
// before the oldest is discarded. Lifecycle events are never dropped.
const amplitudeBacklog = 256

// Relay is a multi-producer single-consumer event queue. Publish never
// blocks; a stalled consumer costs amplitude frames, not captured audio.
// Delivery order matches publish order, so per-kind ordering holds and
// recording-stopped always precedes its cycle's transcription-complete.
type Relay struct {
	mu     sync.Mutex
	queue  []Event
	closed bool

	wake chan struct{}
	out  chan Event
}

// New constructs a relay and starts its dispatch goroutine.
func New() *Relay {
	r := &Relay{
		wake: make(chan struct{}, 1),
		out:  make(chan Event),
	}
	go r.dispatch()
	return r
}

// Events returns the single ordered consumer stream. The channel closes
// after Close once every queued event has been delivered.
func (r *Relay) Events() <-chan Event {
	return r.out
}

// Publish enqueues an event without blocking the caller. Events published
// after Close are discarded.
func (r *Relay) Publish(ev Event) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if ev.Kind == KindAmplitude && len(r.queue) >= amplitudeBacklog {
		r.dropOldestAmplitudeLocked()
	}
	r.queue = append(r.queue, ev)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Close stops accepting events and closes the consumer stream once the
// remaining queue has drained.
func (r *Relay) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// dropOldestAmplitudeLocked removes the oldest queued amplitude event. Held
// lifecycle events keep their slots so completion ordering is preserved.
func (r *Relay) dropOldestAmplitudeLocked() {
	for i, ev := range r.queue {
		if ev.Kind == KindAmplitude {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			return
		}
	}
}

// dispatch drains the queue into the consumer channel in publish order.
func (r *Relay) dispatch() {
	for {
		r.mu.Lock()
		batch := r.queue
		r.queue = nil
		closed := r.closed
		r.mu.Unlock()

		for _, ev := range batch {
			r.out <- ev
		}

		if closed {
			// One final sweep: Publish racing Close may have queued more.
			r.mu.Lock()
			rest := r.queue
			r.queue = nil
			r.mu.Unlock()
			for _, ev := range rest {
				r.out <- ev
			}
			close(r.out)
			return
		}

		<-r.wake
	}
}
