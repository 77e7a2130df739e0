package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"google.golang.org/genai"

	"github.com/leonardotrapani/hyprlive/internal/pcm"
	"github.com/leonardotrapani/hyprlive/internal/transcript"
)

// geminiSession is the part of *genai.Session the channel uses.
type geminiSession interface {
	SendRealtimeInput(input genai.LiveRealtimeInput) error
	Receive() (*genai.LiveServerMessage, error)
	Close() error
}

// GeminiDialer opens Gemini Live sessions.
type GeminiDialer struct {
	client *genai.Client
}

func NewGeminiDialer(ctx context.Context, apiKey string) (*GeminiDialer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiDialer{client: client}, nil
}

func (d *GeminiDialer) Dial(ctx context.Context, cfg Config) (Channel, error) {
	log.Printf("gemini-live: connecting, model=%s, voice=%s, language=%s", cfg.Model, cfg.Voice, cfg.Language)
	session, err := d.client.Live.Connect(ctx, cfg.Model, geminiConnectConfig(cfg))
	if err != nil {
		return nil, &ChannelError{Op: "connect", Err: err}
	}
	log.Printf("gemini-live: connected")
	return newGeminiChannel(session), nil
}

func geminiConnectConfig(cfg Config) *genai.LiveConnectConfig {
	lc := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			LanguageCode: cfg.Language,
		},
	}
	if cfg.Voice != "" {
		lc.SpeechConfig.VoiceConfig = &genai.VoiceConfig{
			PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
		}
	}
	if cfg.InputTranscription {
		lc.InputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	if cfg.OutputTranscription {
		lc.OutputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	if cfg.SystemInstruction != "" {
		lc.SystemInstruction = genai.NewContentFromText(cfg.SystemInstruction, genai.RoleUser)
	}
	return lc
}

type geminiChannel struct {
	session geminiSession
	events  chan Event
	done    chan struct{}

	sendMu    sync.Mutex
	closing   atomic.Bool
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

func newGeminiChannel(session geminiSession) *geminiChannel {
	c := &geminiChannel{
		session: session,
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.readLoop()
	return c
}

func (c *geminiChannel) Events() <-chan Event {
	return c.events
}

func (c *geminiChannel) Send(frame pcm.Frame) error {
	if c.closing.Load() {
		return &ChannelError{Op: "send", Err: errChannelClosed}
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	err := c.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{
			MIMEType: fmt.Sprintf("audio/pcm;rate=%d", frame.SampleRate),
			Data:     frame.Bytes(),
		},
	})
	if err != nil {
		return &ChannelError{Op: "send", Err: err}
	}
	return nil
}

// Close ends the session. No further events are delivered after Close.
func (c *geminiChannel) Close() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		close(c.done)
		c.closeErr = c.session.Close()
		c.wg.Wait()
	})
	return c.closeErr
}

func (c *geminiChannel) readLoop() {
	defer c.wg.Done()
	defer close(c.events)

	for {
		msg, err := c.session.Receive()
		if err != nil {
			if c.closing.Load() {
				return
			}
			if isRemoteClose(err) {
				log.Printf("gemini-live: closed by server: %v", err)
				c.emit(Event{Kind: EventClosed})
				return
			}
			c.emit(Event{Kind: EventError, Err: &ChannelError{Op: "receive", Err: err}})
			return
		}

		if msg.SetupComplete != nil {
			log.Printf("gemini-live: setup complete")
		}
		if msg.GoAway != nil {
			log.Printf("gemini-live: server is going away")
		}
		for _, ev := range geminiEvents(msg) {
			if !c.emit(ev) {
				return
			}
		}
	}
}

func (c *geminiChannel) emit(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// geminiEvents splits one server message into classified events. Transcripts
// come first so text is visible before the matching audio plays, and the
// turn boundary comes last.
func geminiEvents(msg *genai.LiveServerMessage) []Event {
	if msg == nil || msg.ServerContent == nil {
		return nil
	}
	sc := msg.ServerContent

	var events []Event
	if t := sc.InputTranscription; t != nil && t.Text != "" {
		events = append(events, Event{Kind: EventTranscription, Role: transcript.RoleUser, Text: t.Text})
	}
	if t := sc.OutputTranscription; t != nil && t.Text != "" {
		events = append(events, Event{Kind: EventTranscription, Role: transcript.RoleModel, Text: t.Text})
	}
	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			if !strings.HasPrefix(part.InlineData.MIMEType, "audio/") {
				continue
			}
			events = append(events, Event{Kind: EventAudio, Audio: pcm.EncodeBytes(part.InlineData.Data)})
		}
	}
	if sc.Interrupted {
		events = append(events, Event{Kind: EventInterrupted})
	}
	if sc.TurnComplete {
		events = append(events, Event{Kind: EventTurnComplete})
	}
	return events
}

// isRemoteClose reports whether err is the server ending the session
// normally rather than a transport failure.
func isRemoteClose(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway
	}
	return false
}
