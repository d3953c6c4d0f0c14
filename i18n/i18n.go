// Package i18n translates the user-facing strings of the pdk command.
//
// Catalogs are embedded from locales/{lang}/LC_MESSAGES/pdk.po and selected
// with Init. Until Init is called, T and N return their arguments.
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var locales embed.FS

const domain = "pdk"

var locale *gotext.Locale

// Init selects the message catalog for lang, or for the language named by
// the environment when lang is empty.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	locale = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	locale.AddDomain(domain)
	locale.SetDomain(domain)
}

// T translates msgid.
func T(msgid string) string {
	if locale == nil {
		return msgid
	}
	return locale.Get(msgid)
}

// N translates a message with plural forms for count n.
func N(singular, plural string, n int) string {
	if locale == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return locale.GetN(singular, plural, n)
}

// detectLanguage follows the GNU gettext order LANGUAGE, LC_ALL,
// LC_MESSAGES, LANG and falls back to "en".
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		val, _, _ = strings.Cut(val, ".")
		val, _, _ = strings.Cut(val, "@")
		if val == "" || val == "C" || val == "POSIX" {
			continue
		}
		return val
	}
	return "en"
}
