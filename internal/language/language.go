package language

import "strings"

// Language represents a language the live speech models can converse in
type Language struct {
	Code       string // ISO 639-1 code (e.g., "en", "es")
	Tag        string // BCP-47 tag sent to the model (e.g., "en-US", "es-US")
	Name       string // English name (e.g., "English", "Spanish")
	NativeName string // Native name (e.g., "English", "Español")
}

// Auto lets the model pick the language from the conversation
var Auto = Language{Code: "", Tag: "", Name: "Auto-detect", NativeName: ""}

// languages lists the languages with native-audio voices. Tags use the
// regional variant the voices are trained on.
var languages = []Language{
	{Code: "ar", Tag: "ar-EG", Name: "Arabic", NativeName: "العربية"},
	{Code: "bn", Tag: "bn-BD", Name: "Bengali", NativeName: "বাংলা"},
	{Code: "de", Tag: "de-DE", Name: "German", NativeName: "Deutsch"},
	{Code: "en", Tag: "en-US", Name: "English", NativeName: "English"},
	{Code: "es", Tag: "es-US", Name: "Spanish", NativeName: "Español"},
	{Code: "fr", Tag: "fr-FR", Name: "French", NativeName: "Français"},
	{Code: "gu", Tag: "gu-IN", Name: "Gujarati", NativeName: "ગુજરાતી"},
	{Code: "hi", Tag: "hi-IN", Name: "Hindi", NativeName: "हिन्दी"},
	{Code: "id", Tag: "id-ID", Name: "Indonesian", NativeName: "Bahasa Indonesia"},
	{Code: "it", Tag: "it-IT", Name: "Italian", NativeName: "Italiano"},
	{Code: "ja", Tag: "ja-JP", Name: "Japanese", NativeName: "日本語"},
	{Code: "kn", Tag: "kn-IN", Name: "Kannada", NativeName: "ಕನ್ನಡ"},
	{Code: "ko", Tag: "ko-KR", Name: "Korean", NativeName: "한국어"},
	{Code: "ml", Tag: "ml-IN", Name: "Malayalam", NativeName: "മലയാളം"},
	{Code: "mr", Tag: "mr-IN", Name: "Marathi", NativeName: "मराठी"},
	{Code: "nl", Tag: "nl-NL", Name: "Dutch", NativeName: "Nederlands"},
	{Code: "pl", Tag: "pl-PL", Name: "Polish", NativeName: "Polski"},
	{Code: "pt", Tag: "pt-BR", Name: "Portuguese", NativeName: "Português"},
	{Code: "ro", Tag: "ro-RO", Name: "Romanian", NativeName: "Română"},
	{Code: "ru", Tag: "ru-RU", Name: "Russian", NativeName: "Русский"},
	{Code: "ta", Tag: "ta-IN", Name: "Tamil", NativeName: "தமிழ்"},
	{Code: "te", Tag: "te-IN", Name: "Telugu", NativeName: "తెలుగు"},
	{Code: "th", Tag: "th-TH", Name: "Thai", NativeName: "ไทย"},
	{Code: "tr", Tag: "tr-TR", Name: "Turkish", NativeName: "Türkçe"},
	{Code: "uk", Tag: "uk-UA", Name: "Ukrainian", NativeName: "Українська"},
	{Code: "vi", Tag: "vi-VN", Name: "Vietnamese", NativeName: "Tiếng Việt"},
	{Code: "zh", Tag: "cmn-CN", Name: "Chinese", NativeName: "中文"},
}

var codeIndex map[string]Language

func init() {
	codeIndex = make(map[string]Language, len(languages)+1)
	codeIndex[""] = Auto
	for _, lang := range languages {
		codeIndex[lang.Code] = lang
	}
}

// FromCode returns the Language for the given code.
// Returns Auto if code is not found.
func FromCode(code string) Language {
	if lang, ok := codeIndex[normalize(code)]; ok {
		return lang
	}
	return Auto
}

// List returns all supported languages (excluding Auto)
func List() []Language {
	result := make([]Language, len(languages))
	copy(result, languages)
	return result
}

// Codes returns all language codes (excluding empty string for auto)
func Codes() []string {
	codes := make([]string, len(languages))
	for i, lang := range languages {
		codes[i] = lang.Code
	}
	return codes
}

// IsValidCode returns true if the code is recognized (including empty for auto).
// A full BCP-47 tag is accepted when its primary subtag is known.
func IsValidCode(code string) bool {
	_, ok := codeIndex[normalize(code)]
	return ok
}

// ToBCP47 maps a configured language to the tag a speech config expects.
// Tags with a region are passed through unchanged; auto maps to "".
func ToBCP47(code string) string {
	code = strings.TrimSpace(code)
	if strings.ContainsAny(code, "-_") {
		return strings.ReplaceAll(code, "_", "-")
	}
	return FromCode(code).Tag
}

// ToProviderFormat converts a configured language to the form a provider
// expects: a BCP-47 tag for gemini, a bare ISO 639-1 code for openai.
func ToProviderFormat(code, provider string) string {
	switch provider {
	case "gemini":
		return ToBCP47(code)
	default:
		return FromCode(code).Code
	}
}

// Label returns a human-readable label for a code, e.g. "German (de)".
func Label(code string) string {
	lang := FromCode(code)
	if lang.Code == "" {
		return Auto.Name
	}
	return lang.Name + " (" + lang.Code + ")"
}

// normalize reduces "de-DE", "de_DE" or "DE" to "de".
func normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		code = code[:i]
	}
	return code
}
