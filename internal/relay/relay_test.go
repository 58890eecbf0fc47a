package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, r *Relay, n int) []Event {
	t.Helper()
	events := make([]Event, 0, n)
	timeout := time.After(2 * time.Second)
	for len(events) < n {
		select {
		case ev, ok := <-r.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(events), n)
		}
	}
	return events
}

func TestDeliveryPreservesPublishOrder(t *testing.T) {
	r := New()
	defer r.Close()

	r.Publish(Event{Kind: KindRecordingStarted})
	r.Publish(Event{Kind: KindAmplitude, Loudness: 0.1})
	r.Publish(Event{Kind: KindAmplitude, Loudness: 0.2})
	r.Publish(Event{Kind: KindRecordingStopped})
	r.Publish(Event{Kind: KindTranscriptionComplete, Text: "hello"})

	events := collect(t, r, 5)
	require.Equal(t, KindRecordingStarted, events[0].Kind)
	require.Equal(t, KindAmplitude, events[1].Kind)
	require.Equal(t, 0.1, events[1].Loudness)
	require.Equal(t, KindAmplitude, events[2].Kind)
	require.Equal(t, KindRecordingStopped, events[3].Kind)
	require.Equal(t, KindTranscriptionComplete, events[4].Kind)
	require.Equal(t, "hello", events[4].Text)
}

func TestPublishNeverBlocksWithoutConsumer(t *testing.T) {
	r := New()
	defer r.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < amplitudeBacklog*4; i++ {
			r.Publish(Event{Kind: KindAmplitude, Loudness: float64(i)})
		}
		r.Publish(Event{Kind: KindRecordingStopped})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked with a stalled consumer")
	}
}

func TestBacklogDropsOldestAmplitudeKeepsLifecycle(t *testing.T) {
	r := New()

	r.Publish(Event{Kind: KindRecordingStarted})
	for i := 0; i < amplitudeBacklog+50; i++ {
		r.Publish(Event{Kind: KindAmplitude, Loudness: float64(i)})
	}
	r.Publish(Event{Kind: KindRecordingStopped})
	r.Close()

	var lifecycle []Kind
	amplitudes := 0
	for ev := range r.Events() {
		if ev.Kind == KindAmplitude {
			amplitudes++
			continue
		}
		lifecycle = append(lifecycle, ev.Kind)
	}

	require.Equal(t, []Kind{KindRecordingStarted, KindRecordingStopped}, lifecycle)
	require.LessOrEqual(t, amplitudes, amplitudeBacklog+1)
	require.Greater(t, amplitudes, 0)
}

func TestCloseDrainsQueueThenClosesStream(t *testing.T) {
	r := New()

	r.Publish(Event{Kind: KindRecordingStarted})
	r.Publish(Event{Kind: KindTranscriptionComplete, Text: "done"})
	r.Close()

	events := collect(t, r, 2)
	require.Len(t, events, 2)

	_, ok := <-r.Events()
	require.False(t, ok, "stream should be closed after drain")
}

func TestPublishAfterCloseIsDiscarded(t *testing.T) {
	r := New()
	r.Close()
	r.Publish(Event{Kind: KindRecordingStarted})

	_, ok := <-r.Events()
	require.False(t, ok)
}
