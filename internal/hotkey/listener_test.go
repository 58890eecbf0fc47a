package hotkey

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestStartStopIdempotence(t *testing.T) {
	hook := NewFakeHook()
	l := NewListener(hook)

	require.False(t, l.IsRunning())
	l.Stop() // stop before start is safe
	require.False(t, l.IsRunning())

	require.NoError(t, l.Start())
	require.NoError(t, l.Start())
	require.True(t, l.IsRunning())
	require.True(t, hook.Registered)

	l.Stop()
	l.Stop()
	require.False(t, l.IsRunning())
	require.False(t, hook.Registered)
}

func TestStartSurfacesHookFailure(t *testing.T) {
	hook := NewFakeHook()
	hook.RegisterErr = errors.New("hook install denied")
	l := NewListener(hook)

	err := l.Start()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrHookUnavailable)
	require.Contains(t, err.Error(), "register global hotkey")
	require.False(t, l.IsRunning())
}

func TestPressReleaseFiresOneEdgePair(t *testing.T) {
	hook := NewFakeHook()
	l := NewListener(hook)

	activated := make(chan struct{}, 4)
	deactivated := make(chan struct{}, 4)
	l.SetCallbacks(
		func() { activated <- struct{}{} },
		func() { deactivated <- struct{}{} },
	)

	require.NoError(t, l.Start())
	defer l.Stop()

	hook.Press()
	waitSignal(t, activated, "activate edge")

	hook.Release()
	waitSignal(t, deactivated, "deactivate edge")

	require.Empty(t, activated)
	require.Empty(t, deactivated)
}

func TestHeldKeyDoesNotRepeatActivate(t *testing.T) {
	hook := NewFakeHook()
	l := NewListener(hook)

	var activations atomic.Int32
	activated := make(chan struct{}, 4)
	l.SetCallbacks(func() {
		activations.Add(1)
		activated <- struct{}{}
	}, nil)

	require.NoError(t, l.Start())
	defer l.Stop()

	hook.Press()
	waitSignal(t, activated, "first activate")

	// Key repeat while held.
	hook.Press()
	hook.Press()

	hook.Release()
	hook.Press()
	waitSignal(t, activated, "second activate after release")

	require.Equal(t, int32(2), activations.Load())
}

func TestStrayReleaseWithoutPressIsIgnored(t *testing.T) {
	hook := NewFakeHook()
	l := NewListener(hook)

	deactivated := make(chan struct{}, 4)
	activated := make(chan struct{}, 4)
	l.SetCallbacks(func() { activated <- struct{}{} }, func() { deactivated <- struct{}{} })

	require.NoError(t, l.Start())
	defer l.Stop()

	hook.Release()
	hook.Press()
	waitSignal(t, activated, "activate")
	require.Empty(t, deactivated)
}

func TestNilCallbacksSuppressDelivery(t *testing.T) {
	hook := NewFakeHook()
	l := NewListener(hook)

	require.NoError(t, l.Start())
	defer l.Stop()

	// No callbacks installed; edges must not panic.
	hook.Press()
	hook.Release()

	// Install only activate mid-run.
	activated := make(chan struct{}, 1)
	l.SetCallbacks(func() { activated <- struct{}{} }, nil)
	hook.Press()
	waitSignal(t, activated, "activate after SetCallbacks")
	hook.Release()
}
