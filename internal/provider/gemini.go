package provider

import (
	"strings"

	"github.com/leonardotrapani/hyprlive/internal/language"
)

// GeminiProvider implements Provider for the Gemini Live API
type GeminiProvider struct{}

func (p *GeminiProvider) Name() string {
	return ProviderGemini
}

func (p *GeminiProvider) ValidateAPIKey(key string) bool {
	return strings.HasPrefix(key, "AIza") && len(key) >= 30
}

func (p *GeminiProvider) Models() []Model {
	langs := language.Codes()
	return []Model{
		{
			ID:                 "gemini-2.5-flash-native-audio-preview-09-2025",
			Name:               "Gemini 2.5 Flash Native Audio",
			Description:        "Native audio dialog with affective voices",
			SupportedLanguages: langs,
			DocsURL:            "https://ai.google.dev/gemini-api/docs/live",
		},
		{
			ID:                 "gemini-live-2.5-flash-preview",
			Name:               "Gemini Live 2.5 Flash",
			Description:        "Half-cascade live model with text-to-speech output",
			SupportedLanguages: langs,
			DocsURL:            "https://ai.google.dev/gemini-api/docs/live",
		},
	}
}

func (p *GeminiProvider) DefaultModel() string {
	return "gemini-2.5-flash-native-audio-preview-09-2025"
}

func (p *GeminiProvider) Voices() []string {
	return []string{"Puck", "Charon", "Kore", "Fenrir", "Aoede", "Leda", "Orus", "Zephyr"}
}

func (p *GeminiProvider) DefaultVoice() string {
	return "Zephyr"
}

func (p *GeminiProvider) InputSampleRate() int  { return 16000 }
func (p *GeminiProvider) OutputSampleRate() int { return 24000 }
