package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"voiceflow/internal/dsp"
	"voiceflow/internal/relay"
)

// Service owns one capture stream at a time. While capturing it accumulates
// every sample for transcription and runs the spectral analyzer on each
// complete block, publishing amplitude events to the relay.
type Service struct {
	ctx      Context
	analyzer *dsp.Analyzer
	relay    *relay.Relay
	logger   *slog.Logger

	mu        sync.Mutex
	capturing bool
	device    string
	capture   CaptureDevice
	recorded  []float32
	block     []float32
	seq       uint64
}

// NewService wires the platform context to the analyzer and event relay.
func NewService(ctx Context, analyzer *dsp.Analyzer, r *relay.Relay, logger *slog.Logger) *Service {
	return &Service{
		ctx:      ctx,
		analyzer: analyzer,
		relay:    r,
		logger:   logger,
	}
}

// SetDevice records the preferred capture device term. It takes effect on
// the next Start; an active stream is left untouched.
func (s *Service) SetDevice(term string) {
	s.mu.Lock()
	s.device = term
	s.mu.Unlock()
}

// Devices lists capture devices from the platform context.
func (s *Service) Devices() ([]DeviceInfo, error) {
	devices, err := s.ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("list capture devices: %w", err)
	}
	return devices, nil
}

// IsCapturing reports whether a stream is currently open.
func (s *Service) IsCapturing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capturing
}

// Start opens the capture stream and resets accumulation state. Calling
// Start while capturing is a no-op.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capturing {
		return nil
	}

	var selected *DeviceInfo
	if s.device != "" {
		devices, err := s.ctx.Devices()
		if err != nil {
			return fmt.Errorf("list capture devices: %w", err)
		}
		if selected = matchDevice(devices, s.device); selected == nil && s.logger != nil {
			s.logger.Warn("configured device not found; using default", "device", s.device)
		}
	}

	capture, err := s.ctx.NewCapture(selected, CaptureConfig{
		SampleRate: SampleRate,
		Channels:   Channels,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	capture.SetCallback(s.onSamples)

	s.recorded = s.recorded[:0]
	s.block = s.block[:0]
	s.seq = 0
	s.analyzer.Reset()

	if err := capture.Start(); err != nil {
		capture.Close()
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	s.capture = capture
	s.capturing = true
	return nil
}

// Stop closes the stream and returns everything captured since Start,
// including any partial trailing block. Calling Stop while idle returns nil.
func (s *Service) Stop() []float32 {
	s.mu.Lock()
	if !s.capturing {
		s.mu.Unlock()
		return nil
	}
	s.capturing = false
	capture := s.capture
	s.capture = nil

	buffer := make([]float32, len(s.recorded))
	copy(buffer, s.recorded)
	s.recorded = s.recorded[:0]
	s.block = s.block[:0]
	s.analyzer.Reset()
	s.mu.Unlock()

	capture.Stop()
	capture.Close()
	return buffer
}

// onSamples accumulates capture data and analyzes complete blocks. Samples
// arriving after Stop are dropped.
func (s *Service) onSamples(samples []float32) {
	if len(samples) == 0 {
		return
	}

	var frames []dsp.Frame
	var firstSeq uint64

	s.mu.Lock()
	if !s.capturing {
		s.mu.Unlock()
		return
	}
	s.recorded = append(s.recorded, samples...)
	s.block = append(s.block, samples...)
	firstSeq = s.seq
	for len(s.block) >= BlockSize {
		frames = append(frames, s.analyzer.Analyze(s.block[:BlockSize]))
		rest := copy(s.block, s.block[BlockSize:])
		s.block = s.block[:rest]
		s.seq++
	}
	s.mu.Unlock()

	for i, frame := range frames {
		s.relay.Publish(relay.Event{
			Kind:     relay.KindAmplitude,
			Seq:      firstSeq + uint64(i),
			Loudness: frame.Loudness,
			Bands:    frame.Bands,
		})
	}
}
