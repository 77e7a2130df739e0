package provider

import (
	"os"
	"sort"
)

// Provider describes a live speech service
type Provider interface {
	Name() string
	ValidateAPIKey(key string) bool
	Models() []Model
	DefaultModel() string
	Voices() []string
	DefaultVoice() string
	// InputSampleRate is the PCM rate the service expects from the microphone.
	InputSampleRate() int
	// OutputSampleRate is the PCM rate of synthesized speech.
	OutputSampleRate() int
}

var registry = make(map[string]Provider)

func init() {
	Register(&GeminiProvider{})
	Register(&OpenAIProvider{})
}

// Register adds a provider to the registry
func Register(p Provider) {
	registry[p.Name()] = p
}

// GetProvider returns a provider by name, or nil if not found
func GetProvider(name string) Provider {
	return registry[name]
}

// ListProviders returns all registered provider names, sorted
func ListProviders() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindModel returns the model with the given ID, or nil
func FindModel(p Provider, id string) *Model {
	for _, m := range p.Models() {
		if m.ID == id {
			return &m
		}
	}
	return nil
}

// HasVoice reports whether voice is one of the provider's voices
func HasVoice(p Provider, voice string) bool {
	for _, v := range p.Voices() {
		if v == voice {
			return true
		}
	}
	return false
}

// APIKeyFromEnv returns the first non-empty env var for the provider
func APIKeyFromEnv(name string) string {
	for _, env := range EnvVarsForProvider(name) {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return ""
}
