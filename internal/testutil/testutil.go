package testutil

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprlive/internal/config"
	"github.com/leonardotrapani/hyprlive/internal/live"
	"github.com/leonardotrapani/hyprlive/internal/pcm"
	"github.com/leonardotrapani/hyprlive/internal/playback"
	"github.com/leonardotrapani/hyprlive/internal/recording"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Providers["gemini"] = config.ProviderConfig{APIKey: "test-api-key"}
	cfg.Notifications = config.NotificationsConfig{Enabled: true, Type: "log"}
	return cfg
}

// CreateTempConfigFile writes content to config.toml in a temp dir and returns its path
func CreateTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

// WaitFor polls cond until it holds or the timeout expires
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// FakeCaptureDevice is a recording.Device that hands out scripted frames.
type FakeCaptureDevice struct {
	mu sync.Mutex

	AcquireErr error
	// Frames are delivered in order once the handle is subscribed; afterwards
	// the sequence blocks until the handle is released.
	Frames []pcm.Frame

	acquired int
	released int
	handle   *FakeCaptureHandle
}

func (d *FakeCaptureDevice) Acquire(ctx context.Context, format recording.Format) (recording.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.AcquireErr != nil {
		return nil, d.AcquireErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.acquired++
	d.handle = &FakeCaptureHandle{device: d, format: format, frames: d.Frames, done: make(chan struct{})}
	return d.handle, nil
}

func (d *FakeCaptureDevice) Acquired() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acquired
}

func (d *FakeCaptureDevice) Released() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}

// Fail makes the active handle's frame sequence end with err.
func (d *FakeCaptureDevice) Fail(err error) {
	d.mu.Lock()
	h := d.handle
	d.mu.Unlock()
	if h != nil {
		h.fail(err)
	}
}

type FakeCaptureHandle struct {
	device *FakeCaptureDevice
	format recording.Format
	frames []pcm.Frame

	mu       sync.Mutex
	failErr  error
	failCh   chan struct{}
	done     chan struct{}
	released bool
}

func (h *FakeCaptureHandle) fail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failErr = err
	if h.failCh != nil {
		close(h.failCh)
		h.failCh = nil
	}
}

func (h *FakeCaptureHandle) Subscribe(frameLength, sampleRate int) (iter.Seq2[pcm.Frame, error], error) {
	if sampleRate != h.format.SampleRate {
		return nil, fmt.Errorf("sample rate %d does not match acquired %d", sampleRate, h.format.SampleRate)
	}
	h.mu.Lock()
	failCh := make(chan struct{})
	h.failCh = failCh
	h.mu.Unlock()

	return func(yield func(pcm.Frame, error) bool) {
		for _, f := range h.frames {
			select {
			case <-h.done:
				return
			default:
			}
			if !yield(f, nil) {
				return
			}
		}
		select {
		case <-h.done:
		case <-failCh:
			h.mu.Lock()
			err := h.failErr
			h.mu.Unlock()
			yield(pcm.Frame{}, err)
		}
	}, nil
}

func (h *FakeCaptureHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	h.released = true
	close(h.done)

	h.device.mu.Lock()
	h.device.released++
	h.device.mu.Unlock()
	return nil
}

// FakeOutput is a playback.Output driven by a manual clock.
type FakeOutput struct {
	mu        sync.Mutex
	now       time.Duration
	sources   []*FakeSource
	closed    int
	Err       error
	NowCalled int
}

func (o *FakeOutput) Now() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.NowCalled++
	return o.now
}

func (o *FakeOutput) Schedule(frame pcm.Frame, start time.Duration, ended func()) (playback.Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return nil, o.Err
	}
	src := &FakeSource{Start: start, Duration: frame.Duration(), ended: ended}
	o.sources = append(o.sources, src)
	return src, nil
}

func (o *FakeOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed++
	return nil
}

func (o *FakeOutput) Closed() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

func (o *FakeOutput) Sources() []*FakeSource {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*FakeSource, len(o.sources))
	copy(out, o.sources)
	return out
}

// Advance moves the clock forward and ends every source that finished playing.
func (o *FakeOutput) Advance(d time.Duration) {
	o.mu.Lock()
	o.now += d
	now := o.now
	var finished []*FakeSource
	for _, s := range o.sources {
		if !s.Cancelled() && !s.isEnded() && s.Start+s.Duration <= now {
			finished = append(finished, s)
		}
	}
	o.mu.Unlock()

	for _, s := range finished {
		s.end()
	}
}

type FakeSource struct {
	Start    time.Duration
	Duration time.Duration

	mu        sync.Mutex
	cancelled bool
	done      bool
	ended     func()
}

func (s *FakeSource) Cancel() {
	s.mu.Lock()
	if s.cancelled || s.done {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	s.mu.Unlock()
	s.end()
}

func (s *FakeSource) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (s *FakeSource) isEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *FakeSource) end() {
	s.mu.Lock()
	s.done = true
	ended := s.ended
	s.ended = nil
	s.mu.Unlock()
	if ended != nil {
		go ended()
	}
}

// FakePlaybackDevice opens Output, or fails with Err.
type FakePlaybackDevice struct {
	mu     sync.Mutex
	Output *FakeOutput
	Err    error
	opened int
}

func (d *FakePlaybackDevice) Open(ctx context.Context) (playback.Output, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	d.opened++
	if d.Output == nil {
		d.Output = &FakeOutput{}
	}
	return d.Output, nil
}

func (d *FakePlaybackDevice) Opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

// FakeChannel is a live.Channel whose inbound events are pushed by the test.
type FakeChannel struct {
	mu       sync.Mutex
	sent     []pcm.Frame
	closed   int
	SendErr  error
	CloseErr error
	events   chan live.Event
}

func NewFakeChannel() *FakeChannel {
	return &FakeChannel{events: make(chan live.Event, 64)}
}

func (c *FakeChannel) Send(frame pcm.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return c.SendErr
	}
	c.sent = append(c.sent, frame)
	return nil
}

func (c *FakeChannel) Events() <-chan live.Event {
	return c.events
}

func (c *FakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return c.CloseErr
}

// Push delivers an inbound event to the session.
func (c *FakeChannel) Push(ev live.Event) {
	c.events <- ev
}

func (c *FakeChannel) Sent() []pcm.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]pcm.Frame, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *FakeChannel) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// FakeDialer returns Channel on Dial, or fails with Err. If Block is set, Dial
// waits until the context is done.
type FakeDialer struct {
	mu      sync.Mutex
	Channel *FakeChannel
	Err     error
	Block   bool
	dials   int
	configs []live.Config
}

func (d *FakeDialer) Dial(ctx context.Context, cfg live.Config) (live.Channel, error) {
	d.mu.Lock()
	d.dials++
	d.configs = append(d.configs, cfg)
	block, err := d.Block, d.Err
	if d.Channel == nil {
		d.Channel = NewFakeChannel()
	}
	ch := d.Channel
	d.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, &live.ChannelError{Op: "connect", Err: ctx.Err()}
	}
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (d *FakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *FakeDialer) LastConfig() live.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.configs) == 0 {
		return live.Config{}
	}
	return d.configs[len(d.configs)-1]
}
