package utils

import "testing"

func TestExtractLanguageFromMessage(t *testing.T) {
	cases := []struct {
		content string
		want    string
	}{
		{"Please speak French to me", "fr"},
		{"I am from France", "fr"},
		{"lang=es", "es"},
		{"The user only speaks German", "de"},
		{"respond in English please", "en"},
		{"hello there", ""},
		{"", ""},
	}

	for _, tc := range cases {
		if got := ExtractLanguageFromMessage(tc.content); got != tc.want {
			t.Errorf("ExtractLanguageFromMessage(%q) = %q, want %q", tc.content, got, tc.want)
		}
	}
}

func TestGetLanguageName(t *testing.T) {
	if got := GetLanguageName("fr"); got != "French" {
		t.Errorf("got %q", got)
	}
	// Unknown codes pass through unchanged.
	if got := GetLanguageName("xx"); got != "xx" {
		t.Errorf("got %q", got)
	}
}

func TestExtractLanguageFromPreferences(t *testing.T) {
	cases := []struct {
		name     string
		prefs    map[string]interface{}
		wantCode string
		wantName string
	}{
		{"nil map", nil, "", ""},
		{"language code", map[string]interface{}{"language": "fr"}, "fr", "French"},
		{"display name any case", map[string]interface{}{"language": "FRENCH"}, "fr", "French"},
		{"unknown language value", map[string]interface{}{"language": "xx"}, "", ""},
		{"non-string language value", map[string]interface{}{"language": 42}, "", ""},
		{"pattern in another field", map[string]interface{}{"notes": "User only speaks Spanish"}, "es", "Spanish"},
		{"language key wins over scan", map[string]interface{}{"language": "de", "notes": "speaks Spanish"}, "de", "German"},
		{"nothing stored", map[string]interface{}{"city": "Winnipeg"}, "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, name := ExtractLanguageFromPreferences(tc.prefs)
			if code != tc.wantCode || name != tc.wantName {
				t.Errorf("got (%q, %q), want (%q, %q)", code, name, tc.wantCode, tc.wantName)
			}
		})
	}
}
