package config

import (
	"github.com/leonardotrapani/hyprlive/internal/language"
	"github.com/leonardotrapani/hyprlive/internal/live"
	"github.com/leonardotrapani/hyprlive/internal/playback"
	"github.com/leonardotrapani/hyprlive/internal/provider"
	"github.com/leonardotrapani/hyprlive/internal/recording"
)

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		SampleRate:        c.Capture.SampleRate,
		Channels:          c.Capture.Channels,
		Format:            c.Capture.Format,
		FrameLength:       c.Capture.FrameLength,
		Device:            c.Capture.Device,
		ChannelBufferSize: c.Capture.ChannelBufferSize,
	}
}

func (c *Config) ToPlaybackConfig() playback.Config {
	config := playback.DefaultConfig()
	config.SampleRate = c.Playback.SampleRate
	config.Channels = c.Playback.Channels
	config.Device = c.Playback.Device
	return config
}

func (c *Config) ToLiveConfig() live.Config {
	return live.Config{
		Model:               c.Live.Model,
		Voice:               c.Live.Voice,
		Language:            language.ToProviderFormat(c.Live.Language, c.Live.Provider),
		SystemInstruction:   c.Live.SystemInstruction,
		InputTranscription:  c.Live.InputTranscription,
		OutputTranscription: c.Live.OutputTranscription,
	}
}

// APIKey returns the key for the configured live provider
func (c *Config) APIKey() string {
	return c.resolveAPIKeyForProvider(c.Live.Provider)
}

// resolveAPIKeyForProvider returns the API key for a provider from the
// providers table, then the provider's environment variables
func (c *Config) resolveAPIKeyForProvider(providerName string) string {
	if c.Providers != nil {
		if pc, ok := c.Providers[providerName]; ok && pc.APIKey != "" {
			return pc.APIKey
		}
	}
	return provider.APIKeyFromEnv(providerName)
}
