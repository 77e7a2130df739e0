package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leonardotrapani/hyprlive/internal/pcm"
)

// startupGrace is how long Acquire watches pw-record for an immediate exit,
// which is how a denied or missing source shows up.
const startupGrace = 150 * time.Millisecond

// PipeWire captures from a pw-record subprocess. Only one Handle may be held
// at a time.
type PipeWire struct {
	target string
	inUse  atomic.Bool
}

func NewPipeWire(target string) *PipeWire {
	return &PipeWire{target: target}
}

func (p *PipeWire) Acquire(ctx context.Context, format Format) (Handle, error) {
	if !p.inUse.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: device busy", ErrDeviceUnavailable)
	}

	h, err := p.start(ctx, format)
	if err != nil {
		p.inUse.Store(false)
		return nil, err
	}
	return h, nil
}

func (p *PipeWire) start(ctx context.Context, format Format) (*pipewireHandle, error) {
	if err := CheckPipeWireAvailable(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	// Not tied to ctx: the process lives until Release.
	cmd := exec.Command("pw-record", buildPwRecordArgs(format, p.target)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: create stdout pipe: %v", ErrDeviceUnavailable, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: create stderr pipe: %v", ErrDeviceUnavailable, err)
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: start pw-record: %v", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("%w: start pw-record: %v", ErrDeviceUnavailable, err)
	}

	h := &pipewireHandle{
		device: p,
		format: format,
		cmd:    cmd,
		stdout: stdout,
		exited: make(chan struct{}),
	}

	// Log stderr lines to aid diagnostics.
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			line := scanner.Text()
			h.noteStderr(line)
			log.Printf("Recording stderr: %s", line)
		}
	}()
	go func() {
		h.waitErr = cmd.Wait()
		close(h.exited)
	}()

	select {
	case <-h.exited:
		return nil, h.classifyEarlyExit()
	case <-ctx.Done():
		h.kill()
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, ctx.Err())
	case <-time.After(startupGrace):
	}

	log.Printf("Recording: pw-record started (%d Hz, %d ch)", format.SampleRate, format.Channels)
	return h, nil
}

func buildPwRecordArgs(format Format, target string) []string {
	args := []string{
		"--format", format.Encoding,
		"--rate", strconv.Itoa(format.SampleRate),
		"--channels", strconv.Itoa(format.Channels),
	}
	if target != "" {
		args = append(args, "--target", target)
	}
	return append(args, "-") // stdout
}

type pipewireHandle struct {
	device *PipeWire
	format Format
	cmd    *exec.Cmd
	stdout io.Reader

	exited  chan struct{}
	waitErr error

	stderrMu   sync.Mutex
	stderrTail []string

	released    atomic.Bool
	releaseOnce sync.Once
}

func (h *pipewireHandle) noteStderr(line string) {
	h.stderrMu.Lock()
	defer h.stderrMu.Unlock()
	h.stderrTail = append(h.stderrTail, line)
	if len(h.stderrTail) > 8 {
		h.stderrTail = h.stderrTail[1:]
	}
}

func (h *pipewireHandle) classifyEarlyExit() error {
	h.stderrMu.Lock()
	tail := strings.Join(h.stderrTail, "; ")
	h.stderrMu.Unlock()

	lower := strings.ToLower(tail)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "denied") || strings.Contains(lower, "not allowed") {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, tail)
	}
	return fmt.Errorf("%w: pw-record exited: %v %s", ErrDeviceUnavailable, h.waitErr, tail)
}

func (h *pipewireHandle) Subscribe(frameLength, sampleRate int) (iter.Seq2[pcm.Frame, error], error) {
	if sampleRate != h.format.SampleRate {
		return nil, fmt.Errorf("sample rate %d does not match acquired stream (%d)", sampleRate, h.format.SampleRate)
	}
	if frameLength <= 0 {
		return nil, fmt.Errorf("invalid frame length %d", frameLength)
	}
	frameBytes := frameLength * h.format.Channels * pcm.SampleWidth

	return func(yield func(pcm.Frame, error) bool) {
		buf := make([]byte, frameBytes)
		for {
			if _, err := io.ReadFull(h.stdout, buf); err != nil {
				if h.released.Load() {
					return
				}
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					yield(pcm.Frame{}, fmt.Errorf("%w: pw-record exited", ErrDeviceUnavailable))
					return
				}
				yield(pcm.Frame{}, fmt.Errorf("read audio: %w", err))
				return
			}

			frame, err := pcm.DecodeAudioData(buf, h.format.SampleRate, h.format.Channels)
			if !yield(frame, err) {
				return
			}
		}
	}, nil
}

func (h *pipewireHandle) kill() {
	if h.cmd.Process != nil {
		_ = h.cmd.Process.Kill()
	}
	<-h.exited
}

func (h *pipewireHandle) Release() error {
	h.releaseOnce.Do(func() {
		h.released.Store(true)
		h.kill()
		h.device.inUse.Store(false)
		log.Printf("Recording: pw-record released")
	})
	return nil
}

func CheckPipeWireAvailable(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	// Use a short timeout to avoid hangs on misconfigured systems.
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(checkCtx, "pw-cli", "info")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}
