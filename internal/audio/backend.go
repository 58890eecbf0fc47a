// Package audio handles device discovery, capture streams, and block-aligned
// sample accumulation for the dictation pipeline.
package audio

import (
	"errors"
	"strings"
)

// Fixed capture format: everything downstream assumes 16kHz mono float32 in
// 1024-sample analysis blocks.
const (
	SampleRate = 16000
	Channels   = 1
	BlockSize  = 1024
)

// ErrDeviceUnavailable reports that the requested capture device could not
// be opened.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// DataCallback receives mono float32 samples as the platform delivers them.
// Invocations are serialized by the backend.
type DataCallback func(samples []float32)

// CaptureConfig fixes the stream format requested from the platform.
type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

// DeviceInfo describes one capture device surfaced to the user.
type DeviceInfo struct {
	ID      string // opaque platform-specific identifier
	Name    string
	Default bool
}

// Context is the platform audio layer.
type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

// CaptureDevice is one open capture stream.
type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
}

// matchDevice resolves a user-supplied device term against the live device
// list. Empty or "default" terms select the platform default.
func matchDevice(devices []DeviceInfo, term string) *DeviceInfo {
	term = strings.TrimSpace(strings.ToLower(term))
	if term == "" || term == "default" {
		return nil
	}
	for i := range devices {
		dev := &devices[i]
		if strings.Contains(strings.ToLower(dev.ID), term) ||
			strings.Contains(strings.ToLower(dev.Name), term) {
			return dev
		}
	}
	return nil
}
