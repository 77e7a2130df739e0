package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/leonardotrapani/hyprlive/internal/live"
	"github.com/leonardotrapani/hyprlive/internal/pcm"
	"github.com/leonardotrapani/hyprlive/internal/playback"
	"github.com/leonardotrapani/hyprlive/internal/recording"
	"github.com/leonardotrapani/hyprlive/internal/transcript"
)

type State string

const (
	Idle       State = "idle"
	Connecting State = "connecting"
	Connected  State = "connected"
	Error      State = "error"
)

const defaultConnectTimeout = 15 * time.Second

// Deps are the devices and the remote endpoint a Controller drives.
// Playback may be nil for a transcript-only session.
type Deps struct {
	Capture  recording.Device
	Dialer   live.Dialer
	Playback playback.Device
}

type Options struct {
	Live    live.Config
	Capture recording.Config

	// Format of inbound audio.
	OutputSampleRate int
	OutputChannels   int

	// Bounds microphone acquisition plus channel open.
	ConnectTimeout time.Duration

	// Callbacks run on the controller's goroutines and must not block.
	OnStateChange func(state State, err error)
	OnTranscript  func(item transcript.Item)
	OnDegraded    func(err error)
}

// Controller runs one live conversation at a time. All inbound events,
// playback completions and capture failures are handled on a single
// goroutine per conversation.
type Controller struct {
	deps Deps

	mu         sync.Mutex
	opts       Options
	state      State
	err        error
	degraded   bool
	transcript *transcript.Aggregator
	cancel     context.CancelFunc
	done       chan struct{}
}

func New(deps Deps, opts Options) *Controller {
	return &Controller{
		deps:       deps,
		opts:       opts,
		state:      Idle,
		transcript: transcript.New(),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that put the controller in Error, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Degraded reports whether the current conversation runs without audio output.
func (c *Controller) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}

// Transcript returns a snapshot of the current (or last) conversation.
func (c *Controller) Transcript() []transcript.Item {
	c.mu.Lock()
	agg := c.transcript
	c.mu.Unlock()
	return agg.Snapshot()
}

// Configure replaces the devices and options used by the next Start. A
// running conversation keeps what it started with.
func (c *Controller) Configure(deps Deps, opts Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deps = deps
	c.opts = opts
}

// Start begins a conversation. It returns once the controller is
// Connecting; progress is reported through OnStateChange.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Idle {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotIdle, state)
	}
	if c.cancel != nil {
		c.cancel()
	}

	deps, opts := c.deps, c.opts
	if deps.Capture == nil || deps.Dialer == nil {
		c.mu.Unlock()
		return ErrNotConfigured
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.cancel = cancel
	c.done = done
	c.err = nil
	c.degraded = false
	c.transcript = transcript.New()
	agg := c.transcript
	// Connecting is set under the lock so a concurrent Start sees ErrNotIdle.
	c.state = Connecting
	cb := c.opts.OnStateChange
	c.mu.Unlock()

	log.Printf("Session: %s -> %s", Idle, Connecting)
	if cb != nil {
		cb(Connecting, nil)
	}
	go c.run(runCtx, deps, opts, agg, done)
	return nil
}

// Stop ends the conversation from any state and waits until every resource
// is released. Calling it again, or from Idle, is a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	c.mu.Lock()
	if c.done != nil {
		// a new conversation started while this one was being torn down
		c.mu.Unlock()
		return
	}
	from := c.state
	c.state = Idle
	cb := c.opts.OnStateChange
	c.mu.Unlock()

	if from != Idle {
		log.Printf("Session: %s -> %s (stopped)", from, Idle)
		if cb != nil {
			cb(Idle, nil)
		}
	}
}

// transition moves to state unless the conversation was cancelled by Stop,
// which owns the final transition to Idle.
func (c *Controller) transition(ctx context.Context, to State, err error) bool {
	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		return false
	}
	from := c.state
	c.state = to
	if to == Error {
		c.err = err
	}
	cb := c.opts.OnStateChange
	c.mu.Unlock()

	if from != to {
		if err != nil {
			log.Printf("Session: %s -> %s: %v", from, to, err)
		} else {
			log.Printf("Session: %s -> %s", from, to)
		}
		if cb != nil {
			cb(to, err)
		}
	}
	return true
}

// resources holds what a conversation acquired; each is released once.
type resources struct {
	recorder  *recording.Recorder
	channel   live.Channel
	scheduler *playback.Scheduler
	sendDone  chan struct{}
}

func (r *resources) release() {
	var errs []error

	// Closing the channel first unblocks an in-flight send.
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if r.recorder != nil {
		if err := r.recorder.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("release microphone: %w", err))
		}
	}
	if r.sendDone != nil {
		<-r.sendDone
	}
	if r.scheduler != nil {
		if err := r.scheduler.Close(); err != nil {
			errs = append(errs, fmt.Errorf("release audio output: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		log.Printf("Session: teardown: %v", err)
	}
	log.Printf("Session: resources released")
}

func (c *Controller) run(ctx context.Context, deps Deps, opts Options, agg *transcript.Aggregator, done chan struct{}) {
	defer close(done)

	res := &resources{}
	fail := func(err error) {
		c.transition(ctx, Error, err)
		res.release()
	}

	connectCtx, cancelConnect := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancelConnect()

	rec := recording.NewRecorder(opts.Capture, deps.Capture)
	if err := rec.Acquire(connectCtx); err != nil {
		fail(err)
		return
	}
	res.recorder = rec

	ch, err := deps.Dialer.Dial(connectCtx, opts.Live)
	if err != nil {
		fail(err)
		return
	}
	res.channel = ch
	cancelConnect()

	res.scheduler = c.openPlayback(ctx, deps.Playback)

	frames, captureErrs, err := rec.Start(ctx)
	if err != nil {
		fail(err)
		return
	}

	sendErrs := make(chan error, 1)
	res.sendDone = make(chan struct{})
	go sendLoop(ch, frames, sendErrs, res.sendDone)

	if !c.transition(ctx, Connected, nil) {
		res.release()
		return
	}

	d := &dispatcher{opts: opts, transcript: agg, scheduler: res.scheduler, onDegraded: c.markDegraded}
	events := ch.Events()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Session: stop requested")
			res.release()
			return

		case ev, ok := <-events:
			if !ok {
				ev = live.Event{Kind: live.EventClosed}
			}
			switch ev.Kind {
			case live.EventError:
				fail(ev.Err)
				return
			case live.EventClosed:
				log.Printf("Session: channel closed by remote")
				res.release()
				c.transition(ctx, Idle, nil)
				return
			default:
				d.dispatch(ev)
			}

		case id := <-res.scheduler.Ended():
			res.scheduler.OnUnitEnded(id)

		case err, ok := <-captureErrs:
			if !ok {
				captureErrs = nil
				continue
			}
			fail(fmt.Errorf("capture: %w", err))
			return

		case err := <-sendErrs:
			fail(err)
			return
		}
	}
}

// openPlayback returns a scheduler; without an output device the scheduler
// is unavailable and the conversation is transcript-only.
func (c *Controller) openPlayback(ctx context.Context, device playback.Device) *playback.Scheduler {
	if ctx.Err() != nil {
		return playback.NewScheduler(nil)
	}
	if device == nil {
		log.Printf("Session: playback disabled, transcript only")
		c.markDegraded(nil)
		return playback.NewScheduler(nil)
	}
	out, err := device.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// stopped while opening; the event loop tears down
			return playback.NewScheduler(nil)
		}
		c.markDegraded(fmt.Errorf("%w: %w", playback.ErrPlaybackUnavailable, err))
		return playback.NewScheduler(nil)
	}
	return playback.NewScheduler(out)
}

// markDegraded switches to transcript-only. err is nil when playback was
// disabled on purpose.
func (c *Controller) markDegraded(err error) {
	c.mu.Lock()
	already := c.degraded
	c.degraded = true
	cb := c.opts.OnDegraded
	c.mu.Unlock()

	if already || err == nil {
		return
	}
	log.Printf("Session: audio output unavailable, continuing transcript-only: %v", err)
	if cb != nil {
		cb(err)
	}
}

// sendLoop forwards frames in capture order. The first failure is reported
// and the rest of the stream is discarded until the recorder stops.
func sendLoop(ch live.Channel, frames <-chan pcm.Frame, errs chan<- error, done chan<- struct{}) {
	defer close(done)

	failed := false
	for frame := range frames {
		if failed {
			continue
		}
		if err := ch.Send(frame); err != nil {
			failed = true
			select {
			case errs <- err:
			default:
			}
		}
	}
}
