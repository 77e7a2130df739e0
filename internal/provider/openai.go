package provider

import "strings"

// OpenAIProvider implements Provider for the OpenAI Realtime API
type OpenAIProvider struct{}

func (p *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

func (p *OpenAIProvider) ValidateAPIKey(key string) bool {
	return strings.HasPrefix(key, "sk-")
}

func (p *OpenAIProvider) Models() []Model {
	endpoint := &EndpointConfig{BaseURL: "wss://api.openai.com", Path: "/v1/realtime"}
	return []Model{
		{
			ID:          "gpt-4o-realtime-preview",
			Name:        "GPT-4o Realtime",
			Description: "Speech-to-speech conversation with server-side turn detection",
			Endpoint:    endpoint,
			DocsURL:     "https://platform.openai.com/docs/guides/realtime",
		},
		{
			ID:          "gpt-4o-mini-realtime-preview",
			Name:        "GPT-4o Mini Realtime",
			Description: "Cheaper, lower-latency realtime model",
			Endpoint:    endpoint,
			DocsURL:     "https://platform.openai.com/docs/guides/realtime",
		},
	}
}

func (p *OpenAIProvider) DefaultModel() string {
	return "gpt-4o-realtime-preview"
}

func (p *OpenAIProvider) Voices() []string {
	return []string{"alloy", "ash", "ballad", "coral", "echo", "sage", "shimmer", "verse"}
}

func (p *OpenAIProvider) DefaultVoice() string {
	return "alloy"
}

// The realtime API only accepts 24 kHz pcm16 in both directions.
func (p *OpenAIProvider) InputSampleRate() int  { return 24000 }
func (p *OpenAIProvider) OutputSampleRate() int { return 24000 }
