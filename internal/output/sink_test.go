package output

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// memorySink swaps the system clipboard and paste synthesis for in-memory
// stand-ins so tests never touch global state.
func memorySink() (*Sink, *string, *int) {
	var stored string
	var pastes int
	s := NewSink(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.write = func(text string) error {
		stored = text
		return nil
	}
	s.read = func() (string, error) {
		return stored, nil
	}
	s.paste = func() error {
		pastes++
		return nil
	}
	return s, &stored, &pastes
}

func TestSetTextGetTextRoundTrip(t *testing.T) {
	s, _, _ := memorySink()

	require.NoError(t, s.SetText("hello world"))
	got, err := s.GetText()
	require.NoError(t, err)
	require.Equal(t, "hello world", got)
}

func TestSetTextAcceptsEmptyAndUnicode(t *testing.T) {
	s, stored, _ := memorySink()

	require.NoError(t, s.SetText("héllo — こんにちは"))
	require.Equal(t, "héllo — こんにちは", *stored)

	require.NoError(t, s.SetText(""))
	require.Equal(t, "", *stored)
}

func TestSetTextWrapsWriteFailure(t *testing.T) {
	s, _, _ := memorySink()
	s.write = func(string) error { return errors.New("no clipboard owner") }

	err := s.SetText("anything")
	require.Error(t, err)
	require.Contains(t, err.Error(), "set clipboard")
}

func TestCommitSkipsEmptyTranscript(t *testing.T) {
	s, stored, pastes := memorySink()
	*stored = "previous contents"

	require.NoError(t, s.Commit("", true))
	require.Equal(t, "previous contents", *stored)
	require.Zero(t, *pastes)
}

func TestCommitPastesOnlyWhenEnabled(t *testing.T) {
	s, stored, pastes := memorySink()

	require.NoError(t, s.Commit("take one", false))
	require.Equal(t, "take one", *stored)
	require.Zero(t, *pastes)

	require.NoError(t, s.Commit("take two", true))
	require.Equal(t, "take two", *stored)
	require.Equal(t, 1, *pastes)
}

func TestCommitToleratesPasteFailure(t *testing.T) {
	s, stored, _ := memorySink()
	s.paste = func() error { return errors.New("uinput unavailable") }

	require.NoError(t, s.Commit("still copied", true))
	require.Equal(t, "still copied", *stored)
}

func TestPasteAtCursorWrapsFailure(t *testing.T) {
	s, _, pastes := memorySink()

	require.NoError(t, s.PasteAtCursor())
	require.Equal(t, 1, *pastes)

	s.paste = func() error { return errors.New("denied") }
	err := s.PasteAtCursor()
	require.Error(t, err)
	require.Contains(t, err.Error(), "dispatch paste")
}
