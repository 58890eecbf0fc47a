// Package pipeline coordinates the push-to-talk dictation cycle: hotkey
// edges drive capture, transcription, and clipboard commit through a
// guarded state machine.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"voiceflow/internal/asr"
	"voiceflow/internal/audio"
	"voiceflow/internal/config"
	"voiceflow/internal/fsm"
	"voiceflow/internal/hotkey"
	"voiceflow/internal/relay"
)

// TranscriptSink commits finished transcripts. *output.Sink satisfies it.
type TranscriptSink interface {
	Commit(text string, autoPaste bool) error
}

// shutdownGrace bounds how long Shutdown waits for an in-flight
// transcription worker before detaching it.
const shutdownGrace = 5 * time.Second

// Controller owns the dictation state machine. All transitions happen under
// one mutex; capture teardown and inference run outside it so hotkey edges
// stay responsive.
type Controller struct {
	cfg      config.Settings
	logger   *slog.Logger
	capture  *audio.Service
	engine   *asr.Engine
	listener *hotkey.Listener
	sink     TranscriptSink
	relay    *relay.Relay

	mu    sync.Mutex
	state fsm.State

	workers      sync.WaitGroup
	shutdownOnce sync.Once
}

// New wires the pipeline components together. Nothing starts until Init.
func New(
	cfg config.Settings,
	logger *slog.Logger,
	capture *audio.Service,
	engine *asr.Engine,
	listener *hotkey.Listener,
	sink TranscriptSink,
	r *relay.Relay,
) *Controller {
	return &Controller{
		cfg:      cfg,
		logger:   logger,
		capture:  capture,
		engine:   engine,
		listener: listener,
		sink:     sink,
		relay:    r,
		state:    fsm.StateIdle,
	}
}

// Init installs hotkey callbacks, starts the listener, and kicks off the
// model load in the background. A listener failure is returned as a warning;
// the pipeline stays usable through programmatic activation.
func (c *Controller) Init(ctx context.Context) error {
	c.capture.SetDevice(c.cfg.Device)
	c.listener.SetCallbacks(c.OnActivate, c.OnDeactivate)

	go c.loadModel(ctx)

	if err := c.listener.Start(); err != nil {
		c.logger.Error("hotkey listener failed to start", "error", err.Error())
		c.publishError(err)
		return err
	}
	return nil
}

func (c *Controller) loadModel(ctx context.Context) {
	if err := c.engine.Load(ctx, c.cfg.Model); err != nil {
		c.logger.Error("model load failed", "model", c.cfg.Model, "error", err.Error())
		c.publishError(err)
		return
	}
	c.logger.Info("pipeline ready", "model", c.cfg.Model)
}

// State returns the current pipeline state.
func (c *Controller) State() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnActivate begins a recording cycle. Edges arriving outside Idle are
// dropped; a capture failure leaves the pipeline Idle and publishes an
// error event.
func (c *Controller) OnActivate() {
	c.mu.Lock()
	if c.state != fsm.StateIdle {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("activate ignored", "state", state)
		return
	}
	c.mu.Unlock()

	if err := c.capture.Start(); err != nil {
		c.logger.Error("capture start failed", "error", err.Error())
		c.publishError(err)
		return
	}

	c.mu.Lock()
	// A concurrent edge may have won the race while the stream opened.
	if c.state != fsm.StateIdle {
		c.mu.Unlock()
		c.capture.Stop()
		return
	}
	c.state = fsm.StateRecording
	c.mu.Unlock()

	c.logger.Info("recording started")
	c.relay.Publish(relay.Event{Kind: relay.KindRecordingStarted})
}

// OnDeactivate ends the recording, hands the buffer to the transcription
// worker, and moves to Processing. Edges arriving outside Recording are
// dropped.
func (c *Controller) OnDeactivate() {
	c.mu.Lock()
	next, err := fsm.Transition(c.state, fsm.EventDeactivate)
	if err != nil {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("deactivate ignored", "state", state)
		return
	}
	c.state = next
	c.mu.Unlock()

	buffer := c.capture.Stop()
	seconds := float64(len(buffer)) / float64(audio.SampleRate)
	c.logger.Info("recording stopped", "samples", len(buffer), "seconds", seconds)
	c.relay.Publish(relay.Event{Kind: relay.KindRecordingStopped})

	c.workers.Add(1)
	go c.transcribe(buffer)
}

// transcribe runs inference and commits the transcript. It always publishes
// transcription-complete (with empty text on failure) and returns the
// pipeline to Idle.
func (c *Controller) transcribe(buffer []float32) {
	defer c.workers.Done()

	text, err := c.engine.Transcribe(context.Background(), buffer, c.cfg.Language)
	if err != nil {
		c.logger.Error("transcription failed", "error", err.Error())
		c.publishError(err)
		text = ""
	}

	if text != "" {
		if err := c.sink.Commit(text, c.cfg.AutoPaste); err != nil {
			c.logger.Error("clipboard commit failed", "error", err.Error())
			c.publishError(err)
		}
	}

	c.relay.Publish(relay.Event{Kind: relay.KindTranscriptionComplete, Text: text})

	c.mu.Lock()
	if next, err := fsm.Transition(c.state, fsm.EventTranscribed); err == nil {
		c.state = next
	}
	c.mu.Unlock()
}

// Abort discards the active cycle without transcribing. Used when user data
// is reset or onboarding restarts mid-recording. Idle is a no-op.
func (c *Controller) Abort() {
	c.mu.Lock()
	next, err := fsm.Transition(c.state, fsm.EventAbort)
	if err != nil {
		c.mu.Unlock()
		return
	}
	wasRecording := c.state == fsm.StateRecording
	c.state = next
	c.mu.Unlock()

	if wasRecording {
		discarded := c.capture.Stop()
		c.logger.Info("recording aborted", "discarded_samples", len(discarded))
	}
}

// OnOnboardingComplete re-arms the pipeline after first-run setup, discarding
// any cycle that was active during the flow.
func (c *Controller) OnOnboardingComplete() {
	c.Abort()
	c.logger.Info("onboarding complete; pipeline armed")
}

// OnDataReset discards any active cycle and clears captured audio state.
func (c *Controller) OnDataReset() {
	c.Abort()
	c.logger.Info("user data reset; pipeline idle")
}

// Shutdown stops the listener, discards any active capture, waits briefly
// for the transcription worker, and releases the model. Safe to call more
// than once.
func (c *Controller) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.listener.Stop()

		if c.capture.IsCapturing() {
			discarded := c.capture.Stop()
			c.logger.Info("capture discarded on shutdown", "samples", len(discarded))
		}

		done := make(chan struct{})
		go func() {
			c.workers.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(shutdownGrace):
			c.logger.Warn("transcription worker still running; detaching")
		}

		c.engine.Unload()
		c.relay.Close()

		c.mu.Lock()
		c.state = fsm.StateIdle
		c.mu.Unlock()

		c.logger.Info("pipeline shut down")
	})
}

func (c *Controller) publishError(err error) {
	c.relay.Publish(relay.Event{Kind: relay.KindError, Text: err.Error()})
}
