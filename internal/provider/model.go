package provider

// Model represents a live speech model with its connection metadata
type Model struct {
	ID                 string          // unique identifier (e.g., "gpt-4o-realtime-preview")
	Name               string          // display name
	Description        string          // short description
	SupportedLanguages []string        // ISO 639-1 codes; empty means any
	Endpoint           *EndpointConfig // nil when the SDK resolves the endpoint itself
	DocsURL            string          // URL to provider's model documentation
}

// EndpointConfig holds the WebSocket endpoint configuration
type EndpointConfig struct {
	BaseURL string // e.g., "wss://api.openai.com"
	Path    string // e.g., "/v1/realtime"
}

// URL joins base and path.
func (e *EndpointConfig) URL() string {
	return e.BaseURL + e.Path
}

// SupportsLanguage returns true if the model supports the given language code.
// Auto-detect (empty string) is always supported.
func (m *Model) SupportsLanguage(code string) bool {
	if code == "" || len(m.SupportedLanguages) == 0 {
		return true
	}
	for _, supported := range m.SupportedLanguages {
		if supported == code {
			return true
		}
	}
	return false
}
