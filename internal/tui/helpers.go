package tui

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprlive/internal/config"
	"github.com/leonardotrapani/hyprlive/internal/language"
	"github.com/leonardotrapani/hyprlive/internal/provider"
)

// providerDisplayNames maps provider IDs to human-readable names.
var providerDisplayNames = map[string]string{
	"gemini": "Google Gemini Live",
	"openai": "OpenAI Realtime",
}

var providerKeyURLs = map[string]string{
	"gemini": "https://aistudio.google.com/apikey",
	"openai": "https://platform.openai.com/api-keys",
}

func getProviderDisplayName(providerName string) string {
	if name, ok := providerDisplayNames[providerName]; ok {
		return name
	}
	return providerName
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

func getConfiguredProviders(cfg *config.Config) []string {
	providers := make([]string, 0, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		if pc.APIKey != "" {
			providers = append(providers, name)
		}
	}
	sort.Strings(providers)
	return providers
}

// hasUserChanges detects if config has user modifications
func hasUserChanges(cfg *config.Config) bool {
	return len(getConfiguredProviders(cfg)) > 0
}

func providerOptions(cfg *config.Config) []huh.Option[string] {
	names := provider.ListProviders()
	options := make([]huh.Option[string], 0, len(names))
	for _, name := range names {
		label := getProviderDisplayName(name)
		if pc, ok := cfg.Providers[name]; ok && pc.APIKey != "" {
			label += " (configured)"
		} else if provider.APIKeyFromEnv(name) != "" {
			label += " (key from environment)"
		}
		options = append(options, huh.NewOption(label, name))
	}
	return options
}

func modelOptions(providerName string) []huh.Option[string] {
	p := provider.GetProvider(providerName)
	if p == nil {
		return nil
	}
	models := p.Models()
	options := make([]huh.Option[string], 0, len(models))
	for _, m := range models {
		label := m.ID
		if m.Description != "" {
			label = fmt.Sprintf("%s - %s", m.ID, m.Description)
		}
		if m.ID == p.DefaultModel() {
			label += " (default)"
		}
		options = append(options, huh.NewOption(label, m.ID))
	}
	return options
}

func voiceOptions(providerName string) []huh.Option[string] {
	p := provider.GetProvider(providerName)
	if p == nil {
		return nil
	}
	options := make([]huh.Option[string], 0, len(p.Voices()))
	for _, v := range p.Voices() {
		label := v
		if v == p.DefaultVoice() {
			label += " (default)"
		}
		options = append(options, huh.NewOption(label, v))
	}
	return options
}

// languageOptions lists auto-detect first, then the languages the model
// can speak.
func languageOptions(providerName, modelID string) []huh.Option[string] {
	var model *provider.Model
	if p := provider.GetProvider(providerName); p != nil {
		model = provider.FindModel(p, modelID)
	}

	options := []huh.Option[string]{huh.NewOption(language.Auto.Name, "")}
	for _, lang := range language.List() {
		if model != nil && !model.SupportsLanguage(lang.Code) {
			continue
		}
		options = append(options, huh.NewOption(fmt.Sprintf("%s - %s", language.Label(lang.Code), lang.NativeName), lang.Code))
	}
	return options
}

// answers collects what the wizard asked for.
type answers struct {
	Provider          string
	APIKey            string
	Model             string
	Voice             string
	Language          string
	SystemInstruction string
	Transcription     bool
	Playback          bool
	NotificationType  string
}

func answersFrom(cfg *config.Config) answers {
	a := answers{
		Provider:          cfg.Live.Provider,
		Model:             cfg.Live.Model,
		Voice:             cfg.Live.Voice,
		Language:          cfg.Live.Language,
		SystemInstruction: cfg.Live.SystemInstruction,
		Transcription:     cfg.Live.InputTranscription || cfg.Live.OutputTranscription,
		Playback:          cfg.Playback.Enabled,
		NotificationType:  cfg.Notifications.Type,
	}
	if !cfg.Notifications.Enabled {
		a.NotificationType = "none"
	}
	if a.Provider == "" {
		a.Provider = provider.ProviderGemini
	}
	return a
}

// apply writes the answers into cfg. Model and voice fall back to the
// provider defaults when they do not belong to the chosen provider. An empty
// API key keeps the stored one.
func (a answers) apply(cfg *config.Config) {
	p := provider.GetProvider(a.Provider)

	cfg.Live.Provider = a.Provider
	cfg.Live.Model = a.Model
	cfg.Live.Voice = a.Voice
	if p != nil {
		if provider.FindModel(p, a.Model) == nil {
			cfg.Live.Model = p.DefaultModel()
		}
		if a.Voice != "" && !provider.HasVoice(p, a.Voice) {
			cfg.Live.Voice = p.DefaultVoice()
		}
		cfg.Playback.SampleRate = p.OutputSampleRate()
	}
	cfg.Live.Language = a.Language
	cfg.Live.SystemInstruction = a.SystemInstruction
	cfg.Live.InputTranscription = a.Transcription
	cfg.Live.OutputTranscription = a.Transcription
	cfg.Playback.Enabled = a.Playback

	if a.APIKey != "" {
		if cfg.Providers == nil {
			cfg.Providers = make(map[string]config.ProviderConfig)
		}
		cfg.Providers[a.Provider] = config.ProviderConfig{APIKey: a.APIKey}
	}

	switch a.NotificationType {
	case "none":
		cfg.Notifications.Enabled = false
		cfg.Notifications.Type = "none"
	case "":
	default:
		cfg.Notifications.Enabled = true
		cfg.Notifications.Type = a.NotificationType
	}
}

func validateAPIKeyFor(providerName string, existing string) func(string) error {
	return func(key string) error {
		if key == "" {
			if existing != "" || provider.APIKeyFromEnv(providerName) != "" {
				return nil // keep current
			}
			return fmt.Errorf("API key is required")
		}
		p := provider.GetProvider(providerName)
		if p != nil && !p.ValidateAPIKey(key) {
			return fmt.Errorf("this does not look like a %s API key", getProviderDisplayName(providerName))
		}
		return nil
	}
}
