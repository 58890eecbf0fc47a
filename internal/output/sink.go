// Package output applies transcript commit side effects (clipboard and paste).
package output

import (
	"fmt"
	"log/slog"

	"github.com/atotto/clipboard"
)

// Sink writes transcripts to the system clipboard and optionally dispatches
// a paste keystroke into the focused window.
type Sink struct {
	logger *slog.Logger

	write func(string) error
	read  func() (string, error)
	paste func() error
}

// NewSink constructs a clipboard sink backed by the system clipboard.
func NewSink(logger *slog.Logger) *Sink {
	return &Sink{
		logger: logger,
		write:  clipboard.WriteAll,
		read:   clipboard.ReadAll,
		paste:  synthesizePaste,
	}
}

// SetText replaces the clipboard contents with text. Empty text clears the
// clipboard rather than being rejected.
func (s *Sink) SetText(text string) error {
	if err := s.write(text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	return nil
}

// GetText returns the current clipboard contents.
func (s *Sink) GetText() (string, error) {
	text, err := s.read()
	if err != nil {
		return "", fmt.Errorf("read clipboard: %w", err)
	}
	return text, nil
}

// Commit writes transcript text to the clipboard and, when paste is enabled,
// dispatches the paste shortcut. Paste failures are logged, not returned:
// the clipboard write already succeeded and the user can paste manually.
func (s *Sink) Commit(transcript string, autoPaste bool) error {
	if transcript == "" {
		return nil
	}
	if err := s.SetText(transcript); err != nil {
		return err
	}
	if !autoPaste {
		return nil
	}
	if err := s.paste(); err != nil {
		s.logPasteFailure(err)
	}
	return nil
}

// PasteAtCursor dispatches the platform paste shortcut into the focused
// window. The clipboard is left untouched.
func (s *Sink) PasteAtCursor() error {
	if err := s.paste(); err != nil {
		return fmt.Errorf("dispatch paste: %w", err)
	}
	return nil
}

func (s *Sink) logPasteFailure(err error) {
	if s.logger == nil || err == nil {
		return
	}
	s.logger.Error("paste dispatch failed; clipboard remains set", "error", err.Error())
}
