package config

import (
	"fmt"
	"strings"

	"github.com/leonardotrapani/hyprlive/internal/language"
	"github.com/leonardotrapani/hyprlive/internal/provider"
)

const (
	captureSampleRate  = 16000
	captureFrameLength = 4096
)

func (c *Config) Validate() error {
	if err := c.validateLive(); err != nil {
		return err
	}

	// both live adapters take 16 kHz mono pcm16 in 4096-sample frames
	if c.Capture.SampleRate != captureSampleRate {
		return fmt.Errorf("invalid capture.sample_rate: %d (must be %d)", c.Capture.SampleRate, captureSampleRate)
	}
	if c.Capture.Channels != 1 {
		return fmt.Errorf("invalid capture.channels: %d (must be 1)", c.Capture.Channels)
	}
	if c.Capture.FrameLength != captureFrameLength {
		return fmt.Errorf("invalid capture.frame_length: %d (must be %d)", c.Capture.FrameLength, captureFrameLength)
	}
	if c.Capture.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid capture.channel_buffer_size: %d", c.Capture.ChannelBufferSize)
	}
	if c.Capture.Format != "s16" {
		return fmt.Errorf("invalid capture.format: %q (only s16 is supported)", c.Capture.Format)
	}

	if c.Playback.SampleRate <= 0 {
		return fmt.Errorf("invalid playback.sample_rate: %d", c.Playback.SampleRate)
	}
	// provider audio is always mono
	if c.Playback.Channels != 1 {
		return fmt.Errorf("invalid playback.channels: %d (must be 1)", c.Playback.Channels)
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	return nil
}

func (c *Config) validateLive() error {
	p := provider.GetProvider(c.Live.Provider)
	if p == nil {
		return fmt.Errorf("unsupported live.provider: %q (must be %s)", c.Live.Provider, strings.Join(provider.ListProviders(), " or "))
	}

	apiKey := c.resolveAPIKeyForProvider(c.Live.Provider)
	if apiKey == "" {
		return fmt.Errorf("%s API key required: not found in config (providers.%s.api_key) or environment variable (%s)",
			p.Name(), p.Name(), strings.Join(provider.EnvVarsForProvider(p.Name()), " or "))
	}

	if c.Live.Model == "" {
		return fmt.Errorf("invalid live.model: empty")
	}
	model := provider.FindModel(p, c.Live.Model)
	if model == nil {
		return fmt.Errorf("invalid live.model for %s: %s", p.Name(), c.Live.Model)
	}

	if c.Live.Voice != "" && !provider.HasVoice(p, c.Live.Voice) {
		return fmt.Errorf("invalid live.voice for %s: %s (available: %s)", p.Name(), c.Live.Voice, strings.Join(p.Voices(), ", "))
	}

	if !language.IsValidCode(c.Live.Language) {
		return fmt.Errorf("invalid live.language: %s (use empty string for auto-detect or codes like 'en', 'de', 'pt-BR')", c.Live.Language)
	}
	if !model.SupportsLanguage(language.FromCode(c.Live.Language).Code) {
		return fmt.Errorf("model %s does not support language %s", model.ID, language.Label(c.Live.Language))
	}

	// pw-play is fed the provider's audio unconverted
	if c.Playback.SampleRate > 0 && c.Playback.SampleRate != p.OutputSampleRate() {
		return fmt.Errorf("playback.sample_rate %d does not match %s output audio (%d Hz)", c.Playback.SampleRate, p.Name(), p.OutputSampleRate())
	}

	if c.Live.ConnectTimeout <= 0 {
		return fmt.Errorf("invalid live.connect_timeout: %v", c.Live.ConnectTimeout)
	}
	return nil
}
