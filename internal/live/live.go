package live

import (
	"context"
	"errors"
	"fmt"

	"github.com/leonardotrapani/hyprlive/internal/pcm"
	"github.com/leonardotrapani/hyprlive/internal/provider"
	"github.com/leonardotrapani/hyprlive/internal/transcript"
)

// EventKind tags an inbound message after the adapter has classified it.
type EventKind int

const (
	EventTranscription EventKind = iota
	EventTurnComplete
	EventAudio
	EventInterrupted
	EventError
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventTranscription:
		return "transcription"
	case EventTurnComplete:
		return "turn-complete"
	case EventAudio:
		return "audio"
	case EventInterrupted:
		return "interrupted"
	case EventError:
		return "error"
	case EventClosed:
		return "closed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one classified inbound message.
type Event struct {
	Kind EventKind
	Role transcript.Role // EventTranscription
	Text string          // EventTranscription
	// Audio is base64 encoded pcm16 at the provider's output rate (EventAudio).
	Audio string
	Err   error // EventError
}

// Channel is an open bidirectional connection to a live speech model.
// Events is closed once the channel has been closed from either side; the
// last event before that is EventClosed or EventError unless Close was called
// locally.
type Channel interface {
	Send(frame pcm.Frame) error
	Events() <-chan Event
	Close() error
}

// Dialer opens Channels. Dial returns once the remote side has accepted the
// session configuration.
type Dialer interface {
	Dial(ctx context.Context, cfg Config) (Channel, error)
}

// Config is the session configuration sent when the channel opens. Audio
// responses are always requested.
type Config struct {
	Model             string
	Voice             string
	Language          string // provider format, see language.ToProviderFormat
	SystemInstruction string

	InputTranscription  bool
	OutputTranscription bool
}

var errChannelClosed = errors.New("channel closed")

// ChannelError is a connect or transport failure.
type ChannelError struct {
	Op  string // connect, send, receive
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("live channel %s: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// NewDialer returns the Dialer for a registered provider.
func NewDialer(ctx context.Context, providerName, apiKey, model string) (Dialer, error) {
	p := provider.GetProvider(providerName)
	if p == nil {
		return nil, fmt.Errorf("unknown provider: %s", providerName)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s: API key required", providerName)
	}

	switch providerName {
	case provider.ProviderGemini:
		return NewGeminiDialer(ctx, apiKey)
	case provider.ProviderOpenAI:
		m := provider.FindModel(p, model)
		if m == nil || m.Endpoint == nil {
			return nil, fmt.Errorf("openai: unknown realtime model %q", model)
		}
		return NewOpenAIRealtimeDialer(m.Endpoint, apiKey), nil
	default:
		return nil, fmt.Errorf("no live adapter for provider %s", providerName)
	}
}
