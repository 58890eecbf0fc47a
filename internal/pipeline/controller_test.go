package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"voiceflow/internal/asr"
	"voiceflow/internal/audio"
	"voiceflow/internal/config"
	"voiceflow/internal/dsp"
	"voiceflow/internal/fsm"
	"voiceflow/internal/hotkey"
	"voiceflow/internal/relay"
)

type fakeSink struct {
	mu      sync.Mutex
	commits []string
	pastes  []bool
	err     error
}

func (s *fakeSink) Commit(text string, autoPaste bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits = append(s.commits, text)
	s.pastes = append(s.pastes, autoPaste)
	return s.err
}

func (s *fakeSink) Commits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commits...)
}

type fakeASRModel struct {
	text string
	err  error
}

func (m *fakeASRModel) Transcribe(_ context.Context, _ []float32, _ string) (string, error) {
	return m.text, m.err
}

func (m *fakeASRModel) Close() error { return nil }

type fakeASRBackend struct {
	model asr.Model
	err   error
}

func (b *fakeASRBackend) Load(_ context.Context, _ string) (asr.Model, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.model, nil
}

type harness struct {
	controller *Controller
	hook       *hotkey.FakeHook
	audioCtx   *audio.FakeContext
	engine     *asr.Engine
	sink       *fakeSink
	relay      *relay.Relay
}

func newHarness(t *testing.T, backend asr.Backend) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := relay.New()
	audioCtx := audio.NewFakeContext()
	capture := audio.NewService(audioCtx, dsp.NewAnalyzer(audio.BlockSize, audio.SampleRate), r, logger)
	engine := asr.NewEngine(backend, logger)
	hook := hotkey.NewFakeHook()
	listener := hotkey.NewListener(hook)
	sink := &fakeSink{}

	cfg := config.Default()
	controller := New(cfg, logger, capture, engine, listener, sink, r)
	t.Cleanup(controller.Shutdown)

	return &harness{
		controller: controller,
		hook:       hook,
		audioCtx:   audioCtx,
		engine:     engine,
		sink:       sink,
		relay:      r,
	}
}

func (h *harness) initAndAwaitModel(t *testing.T) {
	t.Helper()
	require.NoError(t, h.controller.Init(context.Background()))
	require.Eventually(t, func() bool {
		return h.engine.CurrentModel() != ""
	}, 2*time.Second, time.Millisecond, "model never loaded")
}

func (h *harness) nextEvent(t *testing.T) relay.Event {
	t.Helper()
	select {
	case ev, ok := <-h.relay.Events():
		require.True(t, ok, "relay closed early")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relay event")
		return relay.Event{}
	}
}

func (h *harness) nextNonAmplitude(t *testing.T) relay.Event {
	t.Helper()
	for {
		ev := h.nextEvent(t)
		if ev.Kind != relay.KindAmplitude {
			return ev
		}
	}
}

func (h *harness) awaitState(t *testing.T, want fsm.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.controller.State() == want
	}, 2*time.Second, time.Millisecond, "never reached state %s", want)
}

func TestFullDictationCycle(t *testing.T) {
	h := newHarness(t, &fakeASRBackend{model: &fakeASRModel{text: "hello world"}})
	h.initAndAwaitModel(t)

	h.hook.Press()
	ev := h.nextEvent(t)
	require.Equal(t, relay.KindRecordingStarted, ev.Kind)
	h.awaitState(t, fsm.StateRecording)

	samples := make([]float32, audio.BlockSize*3)
	for i := range samples {
		samples[i] = 0.4
	}
	h.audioCtx.LastCapture().Feed(samples)

	// Three complete blocks produce three amplitude frames.
	for i := 0; i < 3; i++ {
		ev = h.nextEvent(t)
		require.Equal(t, relay.KindAmplitude, ev.Kind)
		require.Greater(t, ev.Loudness, 0.0)
		require.Len(t, ev.Bands, dsp.NumBands)
	}

	h.hook.Release()
	ev = h.nextNonAmplitude(t)
	require.Equal(t, relay.KindRecordingStopped, ev.Kind)

	ev = h.nextNonAmplitude(t)
	require.Equal(t, relay.KindTranscriptionComplete, ev.Kind)
	require.Equal(t, "hello world", ev.Text)

	require.Equal(t, []string{"hello world"}, h.sink.Commits())
	h.awaitState(t, fsm.StateIdle)
}

func TestStrayEdgesAreDropped(t *testing.T) {
	h := newHarness(t, &fakeASRBackend{model: &fakeASRModel{text: "x"}})
	h.initAndAwaitModel(t)

	// Release without press.
	h.controller.OnDeactivate()
	require.Equal(t, fsm.StateIdle, h.controller.State())

	// Double press records once.
	h.controller.OnActivate()
	h.controller.OnActivate()
	require.Equal(t, fsm.StateRecording, h.controller.State())
	ev := h.nextEvent(t)
	require.Equal(t, relay.KindRecordingStarted, ev.Kind)

	h.controller.OnDeactivate()
	h.awaitState(t, fsm.StateIdle)
}

func TestActivateDuringProcessingIsDropped(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, &fakeASRBackend{model: &blockingModel{release: release}})
	h.initAndAwaitModel(t)

	h.controller.OnActivate()
	h.audioCtx.LastCapture().Feed([]float32{0.1})
	h.controller.OnDeactivate()
	require.Equal(t, fsm.StateProcessing, h.controller.State())

	h.controller.OnActivate()
	require.Equal(t, fsm.StateProcessing, h.controller.State())
	require.Len(t, h.audioCtx.Captures(), 1)

	close(release)
	h.awaitState(t, fsm.StateIdle)
}

type blockingModel struct {
	release chan struct{}
}

func (m *blockingModel) Transcribe(_ context.Context, _ []float32, _ string) (string, error) {
	<-m.release
	return "delayed", nil
}

func (m *blockingModel) Close() error { return nil }

func TestCaptureFailureStaysIdle(t *testing.T) {
	h := newHarness(t, &fakeASRBackend{model: &fakeASRModel{text: "x"}})
	h.initAndAwaitModel(t)
	h.audioCtx.CaptureErr = errors.New("no sound server")

	h.controller.OnActivate()
	require.Equal(t, fsm.StateIdle, h.controller.State())

	ev := h.nextNonAmplitude(t)
	require.Equal(t, relay.KindError, ev.Kind)
	require.Contains(t, ev.Text, "no sound server")
}

func TestTranscriptionFailurePublishesEmptyCompletion(t *testing.T) {
	h := newHarness(t, &fakeASRBackend{model: &fakeASRModel{err: errors.New("inference crashed")}})
	h.initAndAwaitModel(t)

	h.controller.OnActivate()
	h.audioCtx.LastCapture().Feed([]float32{0.3, 0.1})
	h.controller.OnDeactivate()

	ev := h.nextNonAmplitude(t)
	require.Equal(t, relay.KindRecordingStarted, ev.Kind)
	ev = h.nextNonAmplitude(t)
	require.Equal(t, relay.KindRecordingStopped, ev.Kind)

	ev = h.nextNonAmplitude(t)
	require.Equal(t, relay.KindError, ev.Kind)

	ev = h.nextNonAmplitude(t)
	require.Equal(t, relay.KindTranscriptionComplete, ev.Kind)
	require.Empty(t, ev.Text)

	require.Empty(t, h.sink.Commits())
	h.awaitState(t, fsm.StateIdle)
}

func TestModelLoadFailurePublishesError(t *testing.T) {
	h := newHarness(t, &fakeASRBackend{err: errors.New("model file missing")})
	require.NoError(t, h.controller.Init(context.Background()))

	ev := h.nextNonAmplitude(t)
	require.Equal(t, relay.KindError, ev.Kind)
	require.Contains(t, ev.Text, "model file missing")
}

func TestAbortDiscardsActiveRecording(t *testing.T) {
	h := newHarness(t, &fakeASRBackend{model: &fakeASRModel{text: "never"}})
	h.initAndAwaitModel(t)

	h.controller.OnActivate()
	h.audioCtx.LastCapture().Feed([]float32{0.9, 0.8})

	h.controller.OnDataReset()
	require.Equal(t, fsm.StateIdle, h.controller.State())

	// Nothing was transcribed or committed.
	require.Empty(t, h.sink.Commits())
}

func TestShutdownIsIdempotentAndBounded(t *testing.T) {
	h := newHarness(t, &fakeASRBackend{model: &fakeASRModel{text: "x"}})
	h.initAndAwaitModel(t)

	h.controller.OnActivate()
	start := time.Now()
	h.controller.Shutdown()
	h.controller.Shutdown()
	require.Less(t, time.Since(start), shutdownGrace)

	require.Equal(t, fsm.StateIdle, h.controller.State())
	require.Empty(t, h.engine.CurrentModel())
	require.False(t, h.controller.listener.IsRunning())
}
