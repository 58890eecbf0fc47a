//go:build linux

package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
)

type pulseContext struct {
	client *pulse.Client
}

// NewContext connects to the Pulse server.
func NewContext() (Context, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("voiceflow"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return &pulseContext{client: client}, nil
}

func (p *pulseContext) Devices() ([]DeviceInfo, error) {
	defaultID := ""
	if def, err := p.client.DefaultSource(); err == nil {
		defaultID = def.ID()
	}

	sources, err := p.client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(sources))
	for _, src := range sources {
		devices = append(devices, DeviceInfo{
			ID:      src.ID(),
			Name:    src.Name(),
			Default: src.ID() == defaultID,
		})
	}
	return devices, nil
}

func (p *pulseContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	return &pulseCapture{client: p.client, device: device, config: config}, nil
}

func (p *pulseContext) Close() {
	p.client.Close()
}

type pulseCapture struct {
	client   *pulse.Client
	device   *DeviceInfo
	config   CaptureConfig
	callback atomic.Pointer[DataCallback]

	mu     sync.Mutex
	stream *pulse.RecordStream
}

func (c *pulseCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return nil
	}

	writer := pulse.Float32Writer(func(buf []float32) (int, error) {
		if cb := c.callback.Load(); cb != nil && len(buf) > 0 {
			(*cb)(buf)
		}
		return len(buf), nil
	})

	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(int(c.config.SampleRate)),
		pulse.RecordBufferFragmentSize(BlockSize * 4),
		pulse.RecordMediaName("voiceflow dictation"),
	}
	if c.device != nil {
		source, err := c.client.SourceByID(c.device.ID)
		if err != nil {
			return fmt.Errorf("resolve source %q: %w", c.device.ID, err)
		}
		opts = append(opts, pulse.RecordSource(source))
	}

	stream, err := c.client.NewRecord(writer, opts...)
	if err != nil {
		return fmt.Errorf("create pulse record stream: %w", err)
	}

	c.stream = stream
	stream.Start()
	return nil
}

func (c *pulseCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		c.stream.Stop()
	}
}

func (c *pulseCapture) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		c.stream.Close()
		c.stream = nil
	}
}

func (c *pulseCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}
