package utils

import (
	"strings"
)

// LanguagePatterns maps language codes to detection patterns
var LanguagePatterns = map[string][]string{
	"fr": {"france", "speak french", "respond in french", "lang=fr", "language=french", "only speaks french", "only speak french"},
	"en": {"english", "speak english", "respond in english", "lang=en", "language=english", "preferred language is english", "prefers to speak in english"},
	"es": {"spanish", "speaks spanish", "only speaks spanish", "only speak spanish", "lang=es"},
	"de": {"german", "speaks german", "only speaks german", "only speak german", "lang=de"},
	"it": {"italian", "speaks italian", "only speaks italian", "only speak italian", "lang=it"},
	"pt": {"portuguese", "speaks portuguese", "only speaks portuguese", "only speak portuguese", "lang=pt"},
	"ja": {"japanese", "speaks japanese", "only speaks japanese", "only speak japanese", "lang=ja"},
	"zh": {"chinese", "speaks chinese", "only speaks chinese", "only speak chinese", "lang=zh"},
	"ko": {"korean", "speaks korean", "only speaks korean", "only speak korean", "lang=ko"},
	"ru": {"russian", "speaks russian", "only speaks russian", "only speak russian", "lang=ru"},
}

// LanguageNames maps language codes to display names
var LanguageNames = map[string]string{
	"fr": "French",
	"en": "English",
	"es": "Spanish",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ja": "Japanese",
	"zh": "Chinese",
	"ko": "Korean",
	"ru": "Russian",
}

// ExtractLanguageFromMessage extracts the language code from a message
func ExtractLanguageFromMessage(content string) string {
	lowerContent := strings.ToLower(content)

	for langCode, patterns := range LanguagePatterns {
		for _, pattern := range patterns {
			if strings.Contains(lowerContent, pattern) {
				return langCode
			}
		}
	}
	return ""
}

// GetLanguageName returns the display name for a language code
func GetLanguageName(langCode string) string {
	if name, ok := LanguageNames[langCode]; ok {
		return name
	}
	return langCode // Return code if name not found
}

// ExtractLanguageFromPreferences searches a long-term preferences map for a
// stored language choice. A "language" key wins; otherwise string values are
// scanned for the detection patterns.
func ExtractLanguageFromPreferences(prefs map[string]interface{}) (string, string) {
	if prefs == nil {
		return "", ""
	}

	if v, ok := prefs["language"]; ok {
		if code, ok := v.(string); ok && code != "" {
			lower := strings.ToLower(code)
			if _, known := LanguageNames[lower]; known {
				return lower, GetLanguageName(lower)
			}
			// Stored display names ("French") also resolve
			for langCode, name := range LanguageNames {
				if strings.EqualFold(name, code) {
					return langCode, name
				}
			}
		}
	}

	for _, v := range prefs {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if code := ExtractLanguageFromMessage(s); code != "" {
			return code, GetLanguageName(code)
		}
	}

	return "", ""
}
