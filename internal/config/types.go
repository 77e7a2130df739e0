package config

import (
	"reflect"
	"time"

	"github.com/leonardotrapani/hyprlive/internal/notify"
)

type Config struct {
	Live          LiveConfig                `toml:"live"`
	Capture       CaptureConfig             `toml:"capture"`
	Playback      PlaybackConfig            `toml:"playback"`
	Providers     map[string]ProviderConfig `toml:"providers"`
	Notifications NotificationsConfig       `toml:"notifications"`
}

// ProviderConfig holds API key for a provider
type ProviderConfig struct {
	APIKey string `toml:"api_key"`
}

// LiveConfig selects the speech model and how a conversation is set up
type LiveConfig struct {
	Provider            string        `toml:"provider"`
	Model               string        `toml:"model"`
	Voice               string        `toml:"voice"`
	Language            string        `toml:"language"` // empty for auto-detect
	SystemInstruction   string        `toml:"system_instruction"`
	InputTranscription  bool          `toml:"input_transcription"`
	OutputTranscription bool          `toml:"output_transcription"`
	ConnectTimeout      time.Duration `toml:"connect_timeout"`
}

type CaptureConfig struct {
	SampleRate        int    `toml:"sample_rate"`
	Channels          int    `toml:"channels"`
	Format            string `toml:"format"`
	FrameLength       int    `toml:"frame_length"` // samples per frame
	Device            string `toml:"device"`
	ChannelBufferSize int    `toml:"channel_buffer_size"`
}

type PlaybackConfig struct {
	Enabled    bool   `toml:"enabled"`
	SampleRate int    `toml:"sample_rate"`
	Channels   int    `toml:"channels"`
	Device     string `toml:"device"`
}

type NotificationsConfig struct {
	Enabled  bool           `toml:"enabled"`
	Type     string         `toml:"type"` // "desktop", "log", "none"
	Messages MessagesConfig `toml:"messages"`
}

type MessageConfig struct {
	Title string `toml:"title"`
	Body  string `toml:"body"`
}

type MessagesConfig struct {
	Connecting       MessageConfig `toml:"connecting"`
	SessionStarted   MessageConfig `toml:"session_started"`
	SessionEnded     MessageConfig `toml:"session_ended"`
	SessionError     MessageConfig `toml:"session_error"`
	PlaybackDegraded MessageConfig `toml:"playback_degraded"`
	ConfigReloaded   MessageConfig `toml:"config_reloaded"`
}

// Resolve merges user config with defaults from MessageDefs
func (m *MessagesConfig) Resolve() map[notify.MessageType]notify.Message {
	result := make(map[notify.MessageType]notify.Message)

	v := reflect.ValueOf(m).Elem()
	t := v.Type()
	tagToField := make(map[string]int)
	for i := 0; i < t.NumField(); i++ {
		tagToField[t.Field(i).Tag.Get("toml")] = i
	}

	for _, def := range notify.MessageDefs {
		msg := notify.Message{
			Title:   def.DefaultTitle,
			Body:    def.DefaultBody,
			IsError: def.IsError,
		}
		if idx, ok := tagToField[def.ConfigKey]; ok {
			userMsg := v.Field(idx).Interface().(MessageConfig)
			if userMsg.Title != "" {
				msg.Title = userMsg.Title
			}
			if userMsg.Body != "" {
				msg.Body = userMsg.Body
			}
		}
		result[def.Type] = msg
	}
	return result
}
