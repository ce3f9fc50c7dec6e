// Package i18n picks the message printer used for operator-facing output.
package i18n

import (
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLang is the fallback language
var DefaultLang = language.English

// SupportedLangs are the languages we support
var SupportedLangs = []language.Tag{
	language.English,
	language.TraditionalChinese,
}

var matcher = language.NewMatcher(SupportedLangs)

// MatchLanguage returns the best matching supported language for a locale
// string such as "en_US.UTF-8" or "zh-TW".
func MatchLanguage(locale string) language.Tag {
	if i := strings.Index(locale, "."); i != -1 {
		locale = locale[:i]
	}
	locale = strings.ReplaceAll(locale, "_", "-")
	if locale == "" || locale == "C" || locale == "POSIX" {
		return DefaultLang
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return DefaultLang
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return DefaultLang
	}
	return SupportedLangs[idx]
}

// NewCLIPrinter returns a printer for the system's locale (from env vars)
func NewCLIPrinter() *message.Printer {
	lang := os.Getenv("LC_ALL")
	if lang == "" {
		lang = os.Getenv("LANG")
	}
	return message.NewPrinter(MatchLanguage(lang))
}
