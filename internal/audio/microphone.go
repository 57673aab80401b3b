package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 1024

// Recorder captures mono audio from the default input device into a
// bounded buffer. The capture callback only appends samples; recognition
// runs outside, over snapshots taken with Buffer.
type Recorder struct {
	sampleRate int
	maxSamples int

	mu        sync.Mutex
	buf       []float32
	stream    *portaudio.Stream
	recording bool
}

// NewRecorder initializes the audio host and prepares a recorder at the
// given sample rate, keeping at most maxSeconds of recent audio.
func NewRecorder(sampleRate, maxSeconds int) (*Recorder, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize audio host: %v", err)
	}
	return &Recorder{
		sampleRate: sampleRate,
		maxSamples: sampleRate * maxSeconds,
	}, nil
}

// Start opens the default input device and begins capturing.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return fmt.Errorf("recording is already in progress")
	}

	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		return fmt.Errorf("failed to get default input device: %v", err)
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(r.sampleRate),
		FramesPerBuffer: framesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, r.capture)
	if err != nil {
		return fmt.Errorf("failed to open audio stream: %v", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start audio stream: %v", err)
	}

	r.stream = stream
	r.recording = true
	return nil
}

// capture appends incoming samples, discarding the oldest audio once the
// buffer exceeds its bound.
func (r *Recorder) capture(in []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf = append(r.buf, in...)
	if len(r.buf) > r.maxSamples {
		drop := len(r.buf) - r.maxSamples
		copy(r.buf, r.buf[drop:])
		r.buf = r.buf[:r.maxSamples]
	}
}

// Buffer returns a copy of the captured audio.
func (r *Recorder) Buffer() []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float32, len(r.buf))
	copy(out, r.buf)
	return out
}

// Stop halts capture. The buffer is kept.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return nil
	}
	r.recording = false

	if err := r.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop stream: %v", err)
	}
	if err := r.stream.Close(); err != nil {
		return fmt.Errorf("failed to close stream: %v", err)
	}
	r.stream = nil
	return nil
}

// Close stops capture and releases the audio host.
func (r *Recorder) Close() error {
	if err := r.Stop(); err != nil {
		return err
	}
	return portaudio.Terminate()
}
