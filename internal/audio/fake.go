package audio

import "sync"

// FakeContext drives the capture service from tests without a sound server.
type FakeContext struct {
	DeviceList []DeviceInfo
	DevicesErr error
	CaptureErr error

	mu      sync.Mutex
	created []*FakeCapture
	closed  bool
}

func NewFakeContext(devices ...DeviceInfo) *FakeContext {
	return &FakeContext{DeviceList: devices}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	if f.DevicesErr != nil {
		return nil, f.DevicesErr
	}
	return f.DeviceList, nil
}

func (f *FakeContext) NewCapture(device *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	if f.CaptureErr != nil {
		return nil, f.CaptureErr
	}
	capture := &FakeCapture{Device: device}
	f.mu.Lock()
	f.created = append(f.created, capture)
	f.mu.Unlock()
	return capture, nil
}

func (f *FakeContext) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

// Captures returns every capture created so far.
func (f *FakeContext) Captures() []*FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeCapture(nil), f.created...)
}

// LastCapture returns the most recently created capture, or nil.
func (f *FakeContext) LastCapture() *FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.created) == 0 {
		return nil
	}
	return f.created[len(f.created)-1]
}

// FakeCapture records lifecycle calls and lets tests feed scripted samples.
type FakeCapture struct {
	Device   *DeviceInfo
	StartErr error

	mu      sync.Mutex
	cb      DataCallback
	started bool
	stopped bool
	closed  bool
}

func (f *FakeCapture) Start() error {
	if f.StartErr != nil {
		return f.StartErr
	}
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *FakeCapture) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

// Feed delivers samples as if the platform produced them.
func (f *FakeCapture) Feed(samples []float32) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(samples)
	}
}

// Stopped reports whether Stop has been called.
func (f *FakeCapture) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}
