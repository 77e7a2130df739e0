package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/leonardotrapani/hyprlive/internal/pcm"
	"github.com/leonardotrapani/hyprlive/internal/provider"
	"github.com/leonardotrapani/hyprlive/internal/transcript"
)

// openaiRealtimeRate is the only pcm16 rate the realtime API accepts.
const openaiRealtimeRate = 24000

// OpenAIRealtimeDialer opens OpenAI Realtime conversations over a websocket.
type OpenAIRealtimeDialer struct {
	endpoint *provider.EndpointConfig
	apiKey   string
	dialer   *websocket.Dialer
}

// NewOpenAIRealtimeDialer creates a dialer for the given realtime endpoint
// (e.g., wss://api.openai.com, /v1/realtime).
func NewOpenAIRealtimeDialer(endpoint *provider.EndpointConfig, apiKey string) *OpenAIRealtimeDialer {
	return &OpenAIRealtimeDialer{
		endpoint: endpoint,
		apiKey:   apiKey,
		dialer:   websocket.DefaultDialer,
	}
}

// OpenAI Realtime WebSocket message types (outgoing)
type openaiRealtimeSessionUpdate struct {
	Type    string                      `json:"type"`
	Session openaiRealtimeSessionConfig `json:"session"`
}

type openaiRealtimeSessionConfig struct {
	Modalities              []string                     `json:"modalities,omitempty"`
	Instructions            string                       `json:"instructions,omitempty"`
	Voice                   string                       `json:"voice,omitempty"`
	InputAudioFormat        string                       `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string                       `json:"output_audio_format,omitempty"`
	InputAudioTranscription *openaiRealtimeTranscription `json:"input_audio_transcription,omitempty"`
	TurnDetection           *openaiRealtimeTurnDetection `json:"turn_detection,omitempty"`
}

type openaiRealtimeTranscription struct {
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`
}

type openaiRealtimeTurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
	CreateResponse    bool    `json:"create_response"`
	InterruptResponse bool    `json:"interrupt_response"`
}

type openaiRealtimeInputAudioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// OpenAI Realtime WebSocket response types (incoming)
type openaiRealtimeServerEvent struct {
	Type       string                     `json:"type"`
	EventID    string                     `json:"event_id,omitempty"`
	Session    *openaiRealtimeSessionInfo `json:"session,omitempty"`
	Error      *openaiRealtimeError       `json:"error,omitempty"`
	ItemID     string                     `json:"item_id,omitempty"`
	ResponseID string                     `json:"response_id,omitempty"`
	Transcript string                     `json:"transcript,omitempty"`
	Delta      string                     `json:"delta,omitempty"`
}

type openaiRealtimeSessionInfo struct {
	ID    string `json:"id"`
	Model string `json:"model"`
}

type openaiRealtimeError struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (d *OpenAIRealtimeDialer) Dial(ctx context.Context, cfg Config) (Channel, error) {
	wsURL, err := d.buildURL(cfg.Model)
	if err != nil {
		return nil, &ChannelError{Op: "connect", Err: fmt.Errorf("build websocket url: %w", err)}
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+d.apiKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	log.Printf("openai-realtime: connecting to %s", wsURL)
	conn, resp, err := d.dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			log.Printf("openai-realtime: dial failed with status %d", resp.StatusCode)
		}
		return nil, &ChannelError{Op: "connect", Err: fmt.Errorf("websocket dial: %w", err)}
	}

	c := &openaiRealtimeChannel{
		conn:             conn,
		events:           make(chan Event, 64),
		done:             make(chan struct{}),
		inputTranscripts: cfg.InputTranscription,
		outputTranscript: cfg.OutputTranscription,
		itemsWithDeltas:  make(map[string]bool),
	}

	if err := c.configureSession(cfg); err != nil {
		conn.Close()
		return nil, &ChannelError{Op: "connect", Err: fmt.Errorf("configure session: %w", err)}
	}

	c.wg.Add(1)
	go c.readLoop()

	log.Printf("openai-realtime: connected, model=%s, voice=%s", cfg.Model, cfg.Voice)
	return c, nil
}

// buildURL constructs the WebSocket URL with the model as query parameter
func (d *OpenAIRealtimeDialer) buildURL(model string) (string, error) {
	u, err := url.Parse(d.endpoint.URL())
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("model", model)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type openaiRealtimeChannel struct {
	conn   *websocket.Conn
	events chan Event
	done   chan struct{}

	inputTranscripts bool
	outputTranscript bool
	// items whose user transcript already arrived as deltas; touched only by readLoop
	itemsWithDeltas map[string]bool

	writeMu   sync.Mutex
	closing   atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// configureSession sends session.update: audio out, server VAD with
// automatic responses and barge-in.
func (c *openaiRealtimeChannel) configureSession(cfg Config) error {
	update := openaiRealtimeSessionUpdate{
		Type: "session.update",
		Session: openaiRealtimeSessionConfig{
			Modalities:        []string{"audio", "text"},
			Instructions:      cfg.SystemInstruction,
			Voice:             cfg.Voice,
			InputAudioFormat:  "pcm16",
			OutputAudioFormat: "pcm16",
			TurnDetection: &openaiRealtimeTurnDetection{
				Type:              "server_vad",
				Threshold:         0.5,
				PrefixPaddingMs:   300,
				SilenceDurationMs: 500,
				CreateResponse:    true,
				InterruptResponse: true,
			},
		},
	}
	if cfg.InputTranscription {
		update.Session.InputAudioTranscription = &openaiRealtimeTranscription{
			Model:    "gpt-4o-transcribe",
			Language: cfg.Language,
		}
	}
	return c.writeJSON(update)
}

func (c *openaiRealtimeChannel) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(v)
}

func (c *openaiRealtimeChannel) Events() <-chan Event {
	return c.events
}

// Send appends a frame to the input buffer. Frames at another rate are
// resampled to 24 kHz.
func (c *openaiRealtimeChannel) Send(frame pcm.Frame) error {
	if c.closing.Load() {
		return &ChannelError{Op: "send", Err: errChannelClosed}
	}

	samples := resample(frame.Samples, frame.SampleRate, openaiRealtimeRate)
	msg := openaiRealtimeInputAudioAppend{
		Type:  "input_audio_buffer.append",
		Audio: pcm.Encode(samples),
	}
	if err := c.writeJSON(msg); err != nil {
		return &ChannelError{Op: "send", Err: fmt.Errorf("websocket write: %w", err)}
	}
	return nil
}

func (c *openaiRealtimeChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		close(c.done)

		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()

		err = c.conn.Close()
		c.wg.Wait()
	})
	return err
}

func (c *openaiRealtimeChannel) readLoop() {
	defer c.wg.Done()
	defer close(c.events)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if c.closing.Load() {
				return
			}
			if isRemoteClose(err) {
				log.Printf("openai-realtime: closed by server: %v", err)
				c.emit(Event{Kind: EventClosed})
				return
			}
			c.emit(Event{Kind: EventError, Err: &ChannelError{Op: "receive", Err: err}})
			return
		}

		var event openaiRealtimeServerEvent
		if err := json.Unmarshal(message, &event); err != nil {
			log.Printf("openai-realtime: parse error: %v", err)
			continue
		}

		for _, ev := range c.classify(event) {
			if !c.emit(ev) {
				return
			}
		}
	}
}

func (c *openaiRealtimeChannel) emit(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// classify maps a server event to zero or more channel events
func (c *openaiRealtimeChannel) classify(event openaiRealtimeServerEvent) []Event {
	switch event.Type {
	case "session.created":
		if event.Session != nil {
			log.Printf("openai-realtime: session created, id=%s, model=%s", event.Session.ID, event.Session.Model)
		}

	case "session.updated":
		log.Printf("openai-realtime: session updated")

	case "error":
		// Protocol errors (bad parameters, cancelled responses) leave the
		// connection usable.
		if event.Error != nil {
			errMsg := event.Error.Message
			if event.Error.Code != "" {
				errMsg = fmt.Sprintf("%s: %s", event.Error.Code, errMsg)
			}
			log.Printf("openai-realtime: error: %s", errMsg)
		}

	case "input_audio_buffer.speech_started":
		return []Event{{Kind: EventInterrupted}}

	case "response.audio.delta":
		if event.Delta != "" {
			return []Event{{Kind: EventAudio, Audio: event.Delta}}
		}

	case "response.audio_transcript.delta":
		if c.outputTranscript && event.Delta != "" {
			return []Event{{Kind: EventTranscription, Role: transcript.RoleModel, Text: event.Delta}}
		}

	case "conversation.item.input_audio_transcription.delta":
		if c.inputTranscripts && event.Delta != "" {
			c.itemsWithDeltas[event.ItemID] = true
			return []Event{{Kind: EventTranscription, Role: transcript.RoleUser, Text: event.Delta}}
		}

	case "conversation.item.input_audio_transcription.completed":
		seen := c.itemsWithDeltas[event.ItemID]
		delete(c.itemsWithDeltas, event.ItemID)
		if c.inputTranscripts && !seen && event.Transcript != "" {
			return []Event{{Kind: EventTranscription, Role: transcript.RoleUser, Text: event.Transcript}}
		}

	case "conversation.item.input_audio_transcription.failed":
		log.Printf("openai-realtime: transcription failed for item %s", event.ItemID)

	case "response.done":
		return []Event{{Kind: EventTurnComplete}}

	case "input_audio_buffer.speech_stopped", "input_audio_buffer.committed",
		"conversation.item.created", "response.created", "response.output_item.added",
		"response.output_item.done", "response.content_part.added", "response.content_part.done",
		"response.audio.done", "response.audio_transcript.done", "rate_limits.updated":
		// lifecycle noise

	default:
		log.Printf("openai-realtime: unhandled event type: %s", event.Type)
	}
	return nil
}

// resample converts pcm16 samples between rates using linear interpolation
func resample(input []int16, from, to int) []int16 {
	if from == to || from <= 0 || len(input) == 0 {
		return input
	}

	n := len(input) * to / from
	output := make([]int16, n)
	for i := range output {
		srcPos := float64(i) * float64(from) / float64(to)
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s1 := input[srcIdx]
		s2 := s1
		if srcIdx+1 < len(input) {
			s2 = input[srcIdx+1]
		}
		output[i] = int16(float64(s1)*(1-frac) + float64(s2)*frac)
	}
	return output
}
