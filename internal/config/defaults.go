package config

import (
	"time"

	"github.com/leonardotrapani/hyprlive/internal/provider"
)

const defaultSystemInstruction = "You are a friendly voice assistant. Keep answers short and conversational."

// DefaultConfig returns the configuration used when no file exists yet.
func DefaultConfig() *Config {
	gemini := provider.GetProvider(provider.ProviderGemini)
	return &Config{
		Live: LiveConfig{
			Provider:            provider.ProviderGemini,
			Model:               gemini.DefaultModel(),
			Voice:               gemini.DefaultVoice(),
			Language:            "",
			SystemInstruction:   defaultSystemInstruction,
			InputTranscription:  true,
			OutputTranscription: true,
			ConnectTimeout:      15 * time.Second,
		},
		Capture: CaptureConfig{
			SampleRate:        16000,
			Channels:          1,
			Format:            "s16",
			FrameLength:       4096,
			Device:            "",
			ChannelBufferSize: 30,
		},
		Playback: PlaybackConfig{
			Enabled:    true,
			SampleRate: gemini.OutputSampleRate(),
			Channels:   1,
			Device:     "",
		},
		Providers: make(map[string]ProviderConfig),
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
	}
}
