package recording

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leonardotrapani/hyprlive/internal/pcm"
)

var (
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrDeviceUnavailable = errors.New("microphone unavailable")
)

// Format describes the PCM stream requested from a capture device.
type Format struct {
	SampleRate int
	Channels   int
	Encoding   string
}

// Device hands out exclusive access to a microphone.
type Device interface {
	Acquire(ctx context.Context, format Format) (Handle, error)
}

// Handle is an acquired microphone. Subscribe returns a lazy, unbounded
// sequence of frames that ends when the handle is released.
type Handle interface {
	Subscribe(frameLength, sampleRate int) (iter.Seq2[pcm.Frame, error], error)
	Release() error
}

type Config struct {
	SampleRate        int
	Channels          int
	Format            string
	FrameLength       int // samples per channel in each frame
	Device            string
	ChannelBufferSize int
}

func DefaultConfig() Config {
	return Config{
		SampleRate:        16000,
		Channels:          1,
		Format:            "s16",
		FrameLength:       4096,
		Device:            "",
		ChannelBufferSize: 30,
	}
}

// Recorder turns a capture Device into a stream of fixed-size frames.
// Frames are handed over without waiting for the consumer; when the consumer
// falls behind, frames are dropped rather than stalling capture.
type Recorder struct {
	config    Config
	device    Device
	recording atomic.Bool

	mu     sync.Mutex // guards handle and cancel
	handle Handle
	cancel context.CancelFunc

	wg sync.WaitGroup
}

func NewRecorder(config Config, device Device) *Recorder {
	return &Recorder{config: config, device: device}
}

func (r *Recorder) IsRecording() bool {
	return r.recording.Load()
}

// Acquire takes the microphone. It fails with ErrPermissionDenied or
// ErrDeviceUnavailable.
func (r *Recorder) Acquire(ctx context.Context) error {
	if err := r.validateConfig(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle != nil {
		return fmt.Errorf("microphone already acquired")
	}

	h, err := r.device.Acquire(ctx, Format{
		SampleRate: r.config.SampleRate,
		Channels:   r.config.Channels,
		Encoding:   r.config.Format,
	})
	if err != nil {
		return err
	}
	r.handle = h
	return nil
}

// Start begins delivering frames from the acquired microphone.
func (r *Recorder) Start(ctx context.Context) (<-chan pcm.Frame, <-chan error, error) {
	if r.recording.Load() {
		return nil, nil, fmt.Errorf("already recording")
	}

	r.mu.Lock()
	h := r.handle
	r.mu.Unlock()
	if h == nil {
		return nil, nil, fmt.Errorf("microphone not acquired")
	}

	frames, err := h.Subscribe(r.config.FrameLength, r.config.SampleRate)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe: %w", err)
	}

	// Create a cancellable context specific to this recording session.
	recordingCtx, cancel := context.WithCancel(ctx)

	frameCh := make(chan pcm.Frame, r.config.ChannelBufferSize)
	errCh := make(chan error, 1)

	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	r.recording.Store(true)
	r.wg.Add(1)
	go r.captureLoop(recordingCtx, frames, frameCh, errCh)

	return frameCh, errCh, nil
}

// Stop releases the microphone and waits for the capture goroutine to exit,
// so no frame is delivered after Stop returns. Safe to call at any time.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	cancel := r.cancel
	h := r.handle
	r.cancel = nil
	r.handle = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var err error
	if h != nil {
		err = h.Release()
	}

	r.wg.Wait()
	return err
}

func (r *Recorder) captureLoop(ctx context.Context, frames iter.Seq2[pcm.Frame, error], frameCh chan<- pcm.Frame, errCh chan<- error) {
	defer func() {
		close(frameCh)
		close(errCh)
		r.recording.Store(false)
		r.wg.Done()
	}()

	var sentCount int
	var droppedCount int
	lastDropLog := time.Now()

	for frame, err := range frames {
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			r.emitErr(errCh, err)
			return
		}

		select {
		case frameCh <- frame:
			sentCount++
		case <-ctx.Done():
			return
		default:
			droppedCount++
			if time.Since(lastDropLog) > time.Second {
				log.Printf("Recording: dropped %d frames due to backpressure", droppedCount)
				lastDropLog = time.Now()
				droppedCount = 0
			}
		}
	}
}

func (r *Recorder) emitErr(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
		// Best-effort; avoid blocking
	}
	log.Printf("Recording error: %v", err)
}

func (r *Recorder) validateConfig() error {
	if r.config.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", r.config.SampleRate)
	}
	if r.config.Channels <= 0 {
		return fmt.Errorf("invalid Channels: %d", r.config.Channels)
	}
	if r.config.FrameLength <= 0 {
		return fmt.Errorf("invalid FrameLength: %d", r.config.FrameLength)
	}
	if r.config.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid ChannelBufferSize: %d", r.config.ChannelBufferSize)
	}
	if r.config.Format == "" {
		return fmt.Errorf("invalid Format: empty")
	}
	if r.device == nil {
		return fmt.Errorf("no capture device")
	}
	return nil
}
