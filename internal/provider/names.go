package provider

// Provider name constants for config and registry
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Environment variable names for API keys
const (
	EnvGeminiKey = "GEMINI_API_KEY"
	EnvGoogleKey = "GOOGLE_API_KEY"
	EnvOpenAIKey = "OPENAI_API_KEY"
)

// EnvVarsForProvider returns the environment variables consulted for a
// provider's API key, in priority order
func EnvVarsForProvider(provider string) []string {
	switch provider {
	case ProviderGemini:
		return []string{EnvGeminiKey, EnvGoogleKey}
	case ProviderOpenAI:
		return []string{EnvOpenAIKey}
	default:
		return nil
	}
}
