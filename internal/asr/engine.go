// Package asr manages speech recognition model lifecycle and transcription.
package asr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrModelNotLoaded reports transcription attempted before a model is ready.
var ErrModelNotLoaded = errors.New("no model loaded")

// LoadError wraps a model load failure with the model name that failed.
type LoadError struct {
	Model string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %q: %v", e.Model, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Backend produces loaded models by name.
type Backend interface {
	Load(ctx context.Context, name string) (Model, error)
}

// Model is one loaded recognition model.
type Model interface {
	Transcribe(ctx context.Context, samples []float32, language string) (string, error)
	Close() error
}

// KnownModels returns the supported model catalog, smallest first.
func KnownModels() []string {
	return []string{"tiny", "base", "small", "medium", "large"}
}

// Engine serializes model loads and exposes thread-safe transcription over
// the currently loaded model.
type Engine struct {
	backend Backend
	logger  *slog.Logger

	loadMu  sync.Mutex
	loading atomic.Bool

	mu    sync.Mutex
	model Model
	name  string
}

// NewEngine wraps a backend.
func NewEngine(backend Backend, logger *slog.Logger) *Engine {
	return &Engine{backend: backend, logger: logger}
}

// Load swaps in the named model. Loading the already-current model is a
// no-op. On failure the previous model stays unloaded; loads are serialized
// so concurrent callers never race the swap.
func (e *Engine) Load(ctx context.Context, name string) error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	e.mu.Lock()
	if e.model != nil && e.name == name {
		e.mu.Unlock()
		return nil
	}
	old := e.model
	e.model = nil
	e.name = ""
	e.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil && e.logger != nil {
			e.logger.Warn("close previous model", "error", err.Error())
		}
	}

	e.loading.Store(true)
	defer e.loading.Store(false)

	model, err := e.backend.Load(ctx, name)
	if err != nil {
		return &LoadError{Model: name, Err: err}
	}

	e.mu.Lock()
	e.model = model
	e.name = name
	e.mu.Unlock()

	if e.logger != nil {
		e.logger.Info("model loaded", "model", name)
	}
	return nil
}

// Unload releases the current model. Unloading when nothing is loaded is a
// no-op.
func (e *Engine) Unload() {
	e.mu.Lock()
	model := e.model
	e.model = nil
	e.name = ""
	e.mu.Unlock()

	if model != nil {
		if err := model.Close(); err != nil && e.logger != nil {
			e.logger.Warn("close model", "error", err.Error())
		}
	}
}

// CurrentModel returns the loaded model name, or "" when none is loaded.
func (e *Engine) CurrentModel() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.name
}

// IsLoading reports whether a load is in flight.
func (e *Engine) IsLoading() bool {
	return e.loading.Load()
}

// Transcribe runs recognition over the samples. Empty input yields an empty
// transcript without touching the model. Samples are clamped to [-1, 1]
// before inference; the input slice is never modified.
func (e *Engine) Transcribe(ctx context.Context, samples []float32, language string) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	e.mu.Lock()
	model := e.model
	e.mu.Unlock()
	if model == nil {
		return "", ErrModelNotLoaded
	}

	clamped := make([]float32, len(samples))
	for i, v := range samples {
		switch {
		case v > 1:
			v = 1
		case v < -1:
			v = -1
		}
		clamped[i] = v
	}

	text, err := model.Transcribe(ctx, clamped, language)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return text, nil
}
