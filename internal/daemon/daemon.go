package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/leonardotrapani/hyprlive/internal/bus"
	"github.com/leonardotrapani/hyprlive/internal/config"
	"github.com/leonardotrapani/hyprlive/internal/live"
	"github.com/leonardotrapani/hyprlive/internal/notify"
	"github.com/leonardotrapani/hyprlive/internal/playback"
	"github.com/leonardotrapani/hyprlive/internal/provider"
	"github.com/leonardotrapani/hyprlive/internal/recording"
	"github.com/leonardotrapani/hyprlive/internal/session"
)

// Backend builds the microphone, speaker and voice service for a config.
type Backend func(ctx context.Context, cfg *config.Config) (session.Deps, error)

// DefaultBackend uses PipeWire for audio and the configured live provider.
func DefaultBackend(ctx context.Context, cfg *config.Config) (session.Deps, error) {
	dialer, err := live.NewDialer(ctx, cfg.Live.Provider, cfg.APIKey(), cfg.Live.Model)
	if err != nil {
		return session.Deps{}, err
	}

	deps := session.Deps{
		Capture: recording.NewPipeWire(cfg.Capture.Device),
		Dialer:  dialer,
	}
	if cfg.Playback.Enabled {
		deps.Playback = playback.NewPipeWire(cfg.ToPlaybackConfig())
	}
	return deps, nil
}

// SessionOptions maps a config onto controller options. Callbacks are left
// for the caller.
func SessionOptions(cfg *config.Config) session.Options {
	outputRate := cfg.Playback.SampleRate
	if p := provider.GetProvider(cfg.Live.Provider); p != nil {
		outputRate = p.OutputSampleRate()
	}
	return session.Options{
		Live:             cfg.ToLiveConfig(),
		Capture:          cfg.ToRecordingConfig(),
		OutputSampleRate: outputRate,
		OutputChannels:   1, // live providers only send mono audio
		ConnectTimeout:   cfg.Live.ConnectTimeout,
	}
}

type Daemon struct {
	mu       sync.RWMutex
	notifier notify.Notifier
	fixed    bool // notifier was injected and survives reloads
	messages map[notify.MessageType]notify.Message

	toggleMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc

	manager    *config.Manager
	backend    Backend
	controller *session.Controller
}

// New creates a daemon around the config held by m. A nil notifier means
// the one named in the config; a nil backend means DefaultBackend.
func New(m *config.Manager, n notify.Notifier, backend Backend) *Daemon {
	if backend == nil {
		backend = DefaultBackend
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		notifier:   n,
		fixed:      n != nil,
		ctx:        ctx,
		cancel:     cancel,
		manager:    m,
		backend:    backend,
		controller: session.New(session.Deps{}, session.Options{}),
	}

	d.apply(m.GetConfig())
	m.OnReload(d.reload)
	return d
}

func (d *Daemon) Controller() *session.Controller {
	return d.controller
}

// apply rebuilds the devices and options for the next conversation.
func (d *Daemon) apply(cfg *config.Config) {
	deps, err := d.backend(d.ctx, cfg)
	if err != nil {
		log.Printf("Daemon: voice service not ready: %v", err)
	}

	opts := SessionOptions(cfg)
	opts.OnStateChange = d.onStateChange
	opts.OnDegraded = d.onDegraded
	d.controller.Configure(deps, opts)

	d.mu.Lock()
	if !d.fixed {
		if cfg.Notifications.Enabled {
			d.notifier = notify.New(cfg.Notifications.Type)
		} else {
			d.notifier = notify.Nop{}
		}
	}
	d.messages = cfg.Notifications.Messages.Resolve()
	d.mu.Unlock()
}

func (d *Daemon) reload(cfg *config.Config) {
	d.apply(cfg)
	d.notify(notify.MsgConfigReloaded, "")
	log.Printf("Daemon: configuration applied to the next conversation")
}

func (d *Daemon) notify(kind notify.MessageType, detail string) {
	d.mu.RLock()
	n := d.notifier
	msg, ok := d.messages[kind]
	d.mu.RUnlock()
	if n == nil || !ok {
		return
	}
	if detail != "" {
		msg = msg.WithDetail(detail)
	}
	go n.Send(msg)
}

func (d *Daemon) onStateChange(state session.State, err error) {
	switch state {
	case session.Connecting:
		d.notify(notify.MsgConnecting, "")
	case session.Connected:
		d.notify(notify.MsgSessionStarted, "")
	case session.Idle:
		d.notify(notify.MsgSessionEnded, "")
	case session.Error:
		d.notify(notify.MsgSessionError, session.Explain(err))
	}
}

func (d *Daemon) onDegraded(err error) {
	d.notify(notify.MsgPlaybackDegraded, "")
}

func (d *Daemon) status() session.State {
	return d.controller.State()
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	if err := d.manager.StartWatching(d.ctx); err != nil {
		log.Printf("Daemon: config hot reload disabled: %v", err)
	}
	defer d.manager.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal %v, shutting down gracefully", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	log.Printf("Daemon started, listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("Shutdown requested")
				d.controller.Stop()
				return nil
			}
			log.Printf("Accept error: %v", err)
			d.controller.Stop()
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("Client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 || line[0] == '\n' {
		fmt.Fprint(c, "ERR empty\n")
		return
	}
	cmd := line[0]

	switch cmd {
	case bus.CmdToggle:
		if err := d.toggle(); err != nil {
			fmt.Fprintf(c, "ERR %v\n", err)
			return
		}
		fmt.Fprintf(c, "OK toggled status=%s\n", d.status())
	case bus.CmdStop:
		d.stop()
		fmt.Fprint(c, "OK stopped\n")
	case bus.CmdStatus:
		fmt.Fprintln(c, d.statusLine())
	case bus.CmdTranscript:
		data, err := json.Marshal(d.controller.Transcript())
		if err != nil {
			fmt.Fprintf(c, "ERR %v\n", err)
			return
		}
		fmt.Fprintf(c, "TRANSCRIPT %s\n", data)
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		log.Printf("Unknown command: %c", cmd)
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}

func (d *Daemon) statusLine() string {
	state := d.status()
	line := fmt.Sprintf("STATUS status=%s", state)
	if state == session.Connected && d.controller.Degraded() {
		line += " playback=off"
	}
	return line
}

// toggle starts a conversation from Idle, ends a running one, and retries
// from Error.
func (d *Daemon) toggle() error {
	d.toggleMu.Lock()
	defer d.toggleMu.Unlock()

	switch d.status() {
	case session.Idle:
		return d.start()

	case session.Connecting, session.Connected:
		d.controller.Stop()
		return nil

	case session.Error:
		d.controller.Stop()
		return d.start()

	default:
		return fmt.Errorf("unexpected state %s", d.status())
	}
}

func (d *Daemon) start() error {
	err := d.controller.Start(d.ctx)
	if errors.Is(err, session.ErrNotConfigured) {
		d.notify(notify.MsgSessionError, session.Explain(err))
	}
	return err
}

func (d *Daemon) stop() {
	d.toggleMu.Lock()
	defer d.toggleMu.Unlock()
	d.controller.Stop()
}
