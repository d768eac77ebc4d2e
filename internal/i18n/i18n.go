// Package i18n holds the bot's user-facing strings per language.
package i18n

import (
	"fmt"
	"strings"
)

const (
	// DefaultLanguage is used for unknown languages and missing keys
	DefaultLanguage = "en"
	// BerneseGermanMessages is the Swiss German dialect of the Canton of Bern
	BerneseGermanMessages = "ch_be"
)

var catalogs = map[string]map[string]string{
	DefaultLanguage:       englishMessages,
	BerneseGermanMessages: berneseGermanMessages,
}

// Localizer looks up messages in one language with English fallback.
type Localizer struct {
	language string
	messages map[string]string
}

// NewLocalizer picks the catalog for language; unknown languages get English.
func NewLocalizer(language string) *Localizer {
	language = normalizeLanguage(language)
	messages, ok := catalogs[language]
	if !ok {
		language = DefaultLanguage
		messages = englishMessages
	}
	return &Localizer{language: language, messages: messages}
}

// Language returns the language actually in use.
func (l *Localizer) Language() string {
	return l.language
}

// T formats the message for key. Unknown keys return the key itself.
func (l *Localizer) T(key string, args ...any) string {
	message, ok := l.messages[key]
	if !ok {
		message, ok = englishMessages[key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return message
	}
	return fmt.Sprintf(message, args...)
}

// GetSupportedLanguages lists the language codes with a catalog.
func GetSupportedLanguages() []string {
	return []string{DefaultLanguage, BerneseGermanMessages}
}

// IsSupported reports whether language has its own catalog.
func IsSupported(language string) bool {
	_, ok := catalogs[normalizeLanguage(language)]
	return ok
}

func normalizeLanguage(language string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(language)), "-", "_")
}

func getMessages(language string) map[string]string {
	if messages, ok := catalogs[normalizeLanguage(language)]; ok {
		return messages
	}
	return englishMessages
}
