package language

import "testing"

func TestFromCode(t *testing.T) {
	tests := []struct {
		code     string
		wantCode string
		wantName string
	}{
		{"en", "en", "English"},
		{"es", "es", "Spanish"},
		{"zh", "zh", "Chinese"},
		{"de-DE", "de", "German"},
		{"PT_br", "pt", "Portuguese"},
		{"invalid", "", "Auto-detect"},
		{"", "", "Auto-detect"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := FromCode(tt.code)
			if got.Code != tt.wantCode {
				t.Errorf("FromCode(%q).Code = %q, want %q", tt.code, got.Code, tt.wantCode)
			}
			if got.Name != tt.wantName {
				t.Errorf("FromCode(%q).Name = %q, want %q", tt.code, got.Name, tt.wantName)
			}
		})
	}
}

func TestIsValidCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"en", true},
		{"en-GB", true},
		{"ja", true},
		{"invalid", false},
		{"", true}, // auto is valid
		{"xyz", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := IsValidCode(tt.code)
			if got != tt.want {
				t.Errorf("IsValidCode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestListAndCodesAgree(t *testing.T) {
	list := List()
	codes := Codes()
	if len(list) != len(codes) {
		t.Fatalf("List() has %d entries, Codes() has %d", len(list), len(codes))
	}

	seen := make(map[string]bool)
	for i, lang := range list {
		if lang.Code != codes[i] {
			t.Errorf("entry %d: code %q vs %q", i, lang.Code, codes[i])
		}
		if lang.Tag == "" {
			t.Errorf("%s has no BCP-47 tag", lang.Code)
		}
		if seen[lang.Code] {
			t.Errorf("duplicate code %q", lang.Code)
		}
		seen[lang.Code] = true
	}
	if !seen["en"] {
		t.Error("List() does not contain English")
	}
}

func TestAuto(t *testing.T) {
	if Auto.Code != "" {
		t.Errorf("Auto.Code = %q, want empty string", Auto.Code)
	}
	if Auto.Name != "Auto-detect" {
		t.Errorf("Auto.Name = %q, want 'Auto-detect'", Auto.Name)
	}
}

func TestToBCP47(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"en", "en-US"},
		{"de", "de-DE"},
		{"zh", "cmn-CN"},
		{"en-GB", "en-GB"},
		{"pt_PT", "pt-PT"},
		{"", ""},
		{"xx", ""},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ToBCP47(tt.code); got != tt.want {
				t.Errorf("ToBCP47(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestToProviderFormat(t *testing.T) {
	tests := []struct {
		code     string
		provider string
		want     string
	}{
		{"en", "gemini", "en-US"},
		{"fr", "gemini", "fr-FR"},
		{"", "gemini", ""},

		{"en", "openai", "en"},
		{"en-GB", "openai", "en"},
		{"", "openai", ""},
	}

	for _, tt := range tests {
		t.Run(tt.code+"_"+tt.provider, func(t *testing.T) {
			got := ToProviderFormat(tt.code, tt.provider)
			if got != tt.want {
				t.Errorf("ToProviderFormat(%q, %q) = %q, want %q", tt.code, tt.provider, got, tt.want)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	if got := Label("de"); got != "German (de)" {
		t.Errorf("Label(de) = %q", got)
	}
	if got := Label(""); got != "Auto-detect" {
		t.Errorf("Label('') = %q", got)
	}
}
