package playback

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leonardotrapani/hyprlive/internal/pcm"
)

type Config struct {
	SampleRate int
	Channels   int
	Format     string
	Device     string
	// Lead is how far ahead of the clock audio is written into pw-play.
	Lead time.Duration
	// QueueSize bounds the number of sources waiting to be written.
	QueueSize int
}

func DefaultConfig() Config {
	return Config{
		SampleRate: 24000,
		Channels:   1,
		Format:     "s16",
		Device:     "",
		Lead:       60 * time.Millisecond,
		QueueSize:  256,
	}
}

const sliceDuration = 20 * time.Millisecond

// PipeWire plays audio through a pw-play subprocess. Only one Output may be
// open at a time.
type PipeWire struct {
	config Config
	inUse  atomic.Bool
}

func NewPipeWire(config Config) *PipeWire {
	return &PipeWire{config: config}
}

func (p *PipeWire) Open(ctx context.Context) (Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.config.SampleRate <= 0 || p.config.Channels <= 0 {
		return nil, fmt.Errorf("%w: invalid format %d Hz x %d", ErrPlaybackUnavailable, p.config.SampleRate, p.config.Channels)
	}
	if !p.inUse.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: output device busy", ErrPlaybackUnavailable)
	}

	if _, err := exec.LookPath("pw-play"); err != nil {
		p.inUse.Store(false)
		return nil, fmt.Errorf("%w: pw-play not found: %v (install pipewire-tools)", ErrPlaybackUnavailable, err)
	}

	// The output outlives ctx, which only bounds the connect phase.
	outCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(outCtx, "pw-play", p.buildPwPlayArgs()...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		p.inUse.Store(false)
		return nil, fmt.Errorf("%w: create stdin pipe: %v", ErrPlaybackUnavailable, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		p.inUse.Store(false)
		return nil, fmt.Errorf("%w: create stderr pipe: %v", ErrPlaybackUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		p.inUse.Store(false)
		return nil, fmt.Errorf("%w: start pw-play: %v", ErrPlaybackUnavailable, err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Printf("Playback stderr: %s", scanner.Text())
		}
	}()

	o := newPipewireOutput(outCtx, cancel, p, cmd, stdin)

	log.Printf("Playback: pw-play started (%d Hz, %d ch)", p.config.SampleRate, p.config.Channels)
	return o, nil
}

func (p *PipeWire) buildPwPlayArgs() []string {
	args := []string{
		"--format", p.config.Format,
		"--rate", strconv.Itoa(p.config.SampleRate),
		"--channels", strconv.Itoa(p.config.Channels),
	}
	if p.config.Device != "" {
		args = append(args, "--target", p.config.Device)
	}
	return append(args, "-") // stdin
}

// newPipewireOutput starts the write loop feeding stdin. cmd may be nil when
// stdin is not backed by a process.
func newPipewireOutput(ctx context.Context, cancel context.CancelFunc, p *PipeWire, cmd *exec.Cmd, stdin io.WriteCloser) *pipewireOutput {
	o := &pipewireOutput{
		device: p,
		config: p.config,
		cmd:    cmd,
		stdin:  stdin,
		epoch:  time.Now(),
		queue:  make(chan *pipewireSource, p.config.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	o.wg.Add(1)
	go o.writeLoop()
	return o
}

type pipewireOutput struct {
	device *PipeWire
	config Config
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	epoch  time.Time
	queue  chan *pipewireSource

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type pipewireSource struct {
	frame      pcm.Frame
	start      time.Duration
	cancelled  chan struct{}
	cancelOnce sync.Once
	endOnce    sync.Once
	ended      func()
}

func (s *pipewireSource) Cancel() {
	s.cancelOnce.Do(func() { close(s.cancelled) })
}

func (s *pipewireSource) finish() {
	s.endOnce.Do(func() {
		if s.ended != nil {
			s.ended()
		}
	})
}

func (o *pipewireOutput) Now() time.Duration {
	return time.Since(o.epoch)
}

func (o *pipewireOutput) Schedule(frame pcm.Frame, start time.Duration, ended func()) (Source, error) {
	if frame.SampleRate != o.config.SampleRate || frame.Channels != o.config.Channels {
		return nil, fmt.Errorf("frame format %d Hz x %d does not match output %d Hz x %d",
			frame.SampleRate, frame.Channels, o.config.SampleRate, o.config.Channels)
	}
	if o.ctx.Err() != nil {
		return nil, fmt.Errorf("output closed")
	}

	src := &pipewireSource{
		frame:     frame,
		start:     start,
		cancelled: make(chan struct{}),
		ended:     ended,
	}
	select {
	case o.queue <- src:
		return src, nil
	default:
		return nil, fmt.Errorf("playback queue full (%d sources)", cap(o.queue))
	}
}

// writeLoop writes sources in start order, pacing writes against the output
// clock so that a cancelled source stops within roughly Lead of real time.
func (o *pipewireOutput) writeLoop() {
	defer o.wg.Done()
	for {
		select {
		case <-o.ctx.Done():
			o.drain()
			return
		case src := <-o.queue:
			o.play(src)
		}
	}
}

func (o *pipewireOutput) play(src *pipewireSource) {
	defer src.finish()

	data := src.frame.Bytes()
	bytesPerSecond := o.config.SampleRate * o.config.Channels * pcm.SampleWidth
	sliceBytes := int(int64(bytesPerSecond) * int64(sliceDuration) / int64(time.Second))
	if sliceBytes <= 0 {
		sliceBytes = pcm.SampleWidth * o.config.Channels
	}

	offsetTime := func(off int) time.Duration {
		return time.Duration(off) * time.Second / time.Duration(bytesPerSecond)
	}

	for off := 0; off < len(data); off += sliceBytes {
		if !o.waitUntil(src.start+offsetTime(off)-o.config.Lead, src) {
			return
		}
		end := min(off+sliceBytes, len(data))
		if _, err := o.stdin.Write(data[off:end]); err != nil {
			log.Printf("Playback: write error: %v", err)
			return
		}
	}

	o.waitUntil(src.start+offsetTime(len(data)), src)
}

// waitUntil blocks until the clock reaches at. It returns false if the source
// was cancelled or the output closed first.
func (o *pipewireOutput) waitUntil(at time.Duration, src *pipewireSource) bool {
	d := at - o.Now()
	if d <= 0 {
		select {
		case <-src.cancelled:
			return false
		case <-o.ctx.Done():
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-src.cancelled:
		return false
	case <-o.ctx.Done():
		return false
	}
}

func (o *pipewireOutput) drain() {
	for {
		select {
		case src := <-o.queue:
			src.finish()
		default:
			return
		}
	}
}

func (o *pipewireOutput) Close() error {
	var err error
	o.closeOnce.Do(func() {
		o.cancel()
		o.wg.Wait()
		err = o.stdin.Close()
		// pw-play is killed by the cancelled context, so its exit status is noise.
		if o.cmd != nil {
			_ = o.cmd.Wait()
		}
		o.device.inUse.Store(false)
		log.Printf("Playback: pw-play stopped")
	})
	return err
}
